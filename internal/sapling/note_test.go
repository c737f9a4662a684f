package sapling

import (
	"encoding/binary"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"
)

type testNote struct {
	d     [DiversifierSize]byte
	value uint64
	rseed [32]byte
	lead  byte
	memo  [MemoSize]byte
}

// encryptNote plays the sender side of note encryption towards ivk.
func encryptNote(t *testing.T, rng *rand.Rand, ivk *IncomingViewingKey, n *testNote) *ShieldedOutput {
	t.Helper()
	gd, ok := DiversifyHash(n.d)
	require.True(t, ok)
	var pkd Point
	pkd.Mul(gd, ivk.scalar)

	var esk, rcm *big.Int
	if n.lead == leadByteV2 {
		esk = toScalar(prfExpand(n.rseed[:], expandDomainEsk))
		rcm = toScalar(prfExpand(n.rseed[:], expandDomainRcm))
	} else {
		esk = randomScalar(rng)
		rcm = leToBig(n.rseed[:])
	}

	var epk Point
	epk.Mul(gd, esk)
	out := &ShieldedOutput{EphemeralKey: epk.Bytes()}

	var shared Point
	shared.ClearCofactor(&pkd)
	shared.Mul(&shared, esk)
	key := kdf(&shared, out.EphemeralKey)

	pt := make([]byte, 0, notePlaintextSize)
	pt = append(pt, n.lead)
	pt = append(pt, n.d[:]...)
	pt = binary.LittleEndian.AppendUint64(pt, n.value)
	pt = append(pt, n.rseed[:]...)
	pt = append(pt, n.memo[:]...)

	aead, err := chacha20poly1305.New(key[:])
	require.NoError(t, err)
	out.EncCiphertext = aead.Seal(nil, zeroNonce[:], pt, nil)
	require.Len(t, out.EncCiphertext, EncCiphertextSize)

	out.Cmu = NoteCommitment(gd, &pkd, n.value, rcm)
	return out
}

func newTestNote(rng *rand.Rand, lead byte, text string) *testNote {
	n := &testNote{d: findDiversifier(rng), value: uint64(rng.Int63()), lead: lead}
	if lead == leadByteV1 {
		n.rseed = leBytes32(randomScalar(rng))
	} else {
		rng.Read(n.rseed[:])
	}
	if text == "" {
		n.memo[0] = noMemoByte
	} else {
		copy(n.memo[:], text)
	}
	return n
}

func TestDecryptNoteFull(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	fvk := testViewingKey(rng)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)

	for _, lead := range []byte{leadByteV1, leadByteV2} {
		n := newTestNote(rng, lead, "ACT:4|E:🌱|Roots before branches")
		out := encryptNote(t, rng, ivk, n)

		note, err := DecryptNote(out, fvk)
		require.NoError(t, err)
		require.Equal(t, lead, note.LeadByte)
		require.Equal(t, n.d, note.Diversifier)
		require.Equal(t, n.value, note.Value)
		require.Equal(t, n.rseed, note.Rseed)
		require.True(t, note.HasMemo)
		require.Equal(t, n.memo, note.Memo)

		addr, err := ivk.Address(n.d)
		require.NoError(t, err)
		require.Equal(t, *addr, note.Address)

		// Deterministic for the same inputs.
		again, err := DecryptNote(out, fvk)
		require.NoError(t, err)
		require.Equal(t, note, again)
	}
}

func TestDecryptNoteNoMemo(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	fvk := testViewingKey(rng)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)

	out := encryptNote(t, rng, ivk, newTestNote(rng, leadByteV2, ""))
	note, err := DecryptNote(out, fvk)
	require.NoError(t, err)
	require.False(t, note.HasMemo)
}

func TestDecryptCompactAgreesWithFull(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	fvk := testViewingKey(rng)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)

	for _, lead := range []byte{leadByteV1, leadByteV2} {
		out := encryptNote(t, rng, ivk, newTestNote(rng, lead, "ACT2|Patience is a seed"))
		full, err := DecryptNote(out, fvk)
		require.NoError(t, err)

		compact := &ShieldedOutput{
			Cmu:           out.Cmu,
			EphemeralKey:  out.EphemeralKey,
			EncCiphertext: out.EncCiphertext[:CompactCiphertextSize],
		}
		note, err := DecryptNote(compact, fvk)
		require.NoError(t, err)
		require.False(t, note.HasMemo)
		require.Equal(t, full.Diversifier, note.Diversifier)
		require.Equal(t, full.Value, note.Value)
		require.Equal(t, full.Rseed, note.Rseed)
		require.Equal(t, full.Address, note.Address)
	}
}

func TestDecryptNoteWrongKey(t *testing.T) {
	rng := rand.New(rand.NewSource(24))
	fvk := testViewingKey(rng)
	other := testViewingKey(rng)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)

	out := encryptNote(t, rng, ivk, newTestNote(rng, leadByteV2, "ACT:1|first"))
	_, err = DecryptNote(out, other)
	require.ErrorIs(t, err, ErrNoteNotForKey)

	compact := *out
	compact.EncCiphertext = out.EncCiphertext[:CompactCiphertextSize]
	_, err = DecryptNote(&compact, other)
	require.ErrorIs(t, err, ErrNoteNotForKey)
}

func TestDecryptNoteTampered(t *testing.T) {
	rng := rand.New(rand.NewSource(25))
	fvk := testViewingKey(rng)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)
	out := encryptNote(t, rng, ivk, newTestNote(rng, leadByteV1, "ACT:9|tampered"))

	flipped := *out
	flipped.EncCiphertext = append([]byte(nil), out.EncCiphertext...)
	flipped.EncCiphertext[100] ^= 0x01
	_, err = DecryptNote(&flipped, fvk)
	require.ErrorIs(t, err, ErrNoteNotForKey)

	badCmu := *out
	badCmu.Cmu[0] ^= 0x01
	_, err = DecryptNote(&badCmu, fvk)
	require.ErrorIs(t, err, ErrNoteNotForKey)

	// A flipped value bit survives the unauthenticated compact path but
	// not the commitment check.
	compact := *out
	compact.EncCiphertext = append([]byte(nil), out.EncCiphertext[:CompactCiphertextSize]...)
	compact.EncCiphertext[13] ^= 0x01
	_, err = DecryptNote(&compact, fvk)
	require.ErrorIs(t, err, ErrNoteNotForKey)

	badEpk := *out
	badEpk.EphemeralKey = leBytes32(q)
	_, err = DecryptNote(&badEpk, fvk)
	require.ErrorIs(t, err, ErrNoteNotForKey)
}

func TestDecryptNoteInvalidLength(t *testing.T) {
	rng := rand.New(rand.NewSource(26))
	fvk := testViewingKey(rng)
	for _, n := range []int{0, 51, 53, 579, 581} {
		_, err := DecryptNote(&ShieldedOutput{EncCiphertext: make([]byte, n)}, fvk)
		require.True(t, errors.Is(err, ErrInvalidCiphertext), "length %d", n)
	}
}

func TestTryDecrypt(t *testing.T) {
	rng := rand.New(rand.NewSource(27))
	wrong := testViewingKey(rng)
	right := testViewingKey(rng)
	ivk, err := right.IncomingViewingKey()
	require.NoError(t, err)
	out := encryptNote(t, rng, ivk, newTestNote(rng, leadByteV2, "ACT:12|last"))

	note, idx := TryDecrypt(out, []*FullViewingKey{wrong, right})
	require.NotNil(t, note)
	require.Equal(t, 1, idx)

	note, idx = TryDecrypt(out, []*FullViewingKey{wrong})
	require.Nil(t, note)
	require.Equal(t, -1, idx)

	note, idx = TryDecrypt(out, nil)
	require.Nil(t, note)
	require.Equal(t, -1, idx)
}

func TestEncryptNote(t *testing.T) {
	rng := rand.New(rand.NewSource(28))
	fvk, err := DecodeFullViewingKey(knownViewingKey)
	require.NoError(t, err)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)

	n := newTestNote(rng, leadByteV2, "ACT:9|The lantern answers")
	addr, err := ivk.Address(n.d)
	require.NoError(t, err)
	out, err := EncryptNote(addr, n.value, n.rseed, []byte("ACT:9|The lantern answers"))
	require.NoError(t, err)
	require.Equal(t, encryptNote(t, rng, ivk, n), out)

	note, err := DecryptNote(out, fvk)
	require.NoError(t, err)
	require.Equal(t, *addr, note.Address)
	require.True(t, note.HasMemo)
	require.Equal(t, n.memo, note.Memo)

	out, err = EncryptNote(addr, 1, n.rseed, nil)
	require.NoError(t, err)
	note, err = DecryptNote(out, fvk)
	require.NoError(t, err)
	require.False(t, note.HasMemo)

	_, err = EncryptNote(addr, 1, n.rseed, make([]byte, MemoSize+1))
	require.ErrorIs(t, err, ErrMemoTooLong)
}
