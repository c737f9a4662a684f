package sapling

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// CompactCiphertextSize is the ZIP 307 prefix: lead byte, d, v and rseed.
	CompactCiphertextSize = 52
	// EncCiphertextSize is the full note ciphertext including the AEAD tag.
	EncCiphertextSize = 580
	MemoSize          = 512

	notePlaintextSize = EncCiphertextSize - chacha20poly1305.Overhead

	leadByteV1 = 0x01
	leadByteV2 = 0x02

	// noMemoByte starts the memo of a note that carries no memo.
	noMemoByte = 0xf6
)

var (
	// ErrNoteNotForKey reports that the output was not addressed to the key.
	ErrNoteNotForKey     = errors.New("sapling: note not decryptable with key")
	ErrInvalidCiphertext = errors.New("sapling: invalid ciphertext length")
	ErrMemoTooLong       = errors.New("sapling: memo longer than 512 bytes")

	zeroNonce [chacha20poly1305.NonceSize]byte
)

// ShieldedOutput is the part of a Sapling output needed for trial decryption.
type ShieldedOutput struct {
	Cmu          [32]byte
	EphemeralKey [32]byte
	// EncCiphertext is either the 52 byte compact prefix or the full
	// 580 byte ciphertext.
	EncCiphertext []byte
}

// DecryptedNote is the plaintext of an output that decrypted and whose
// note commitment matched.
type DecryptedNote struct {
	Diversifier [DiversifierSize]byte
	Value       uint64
	Rseed       [32]byte
	LeadByte    byte
	Memo        [MemoSize]byte
	// HasMemo is false for compact ciphertexts and for the "no memo" marker.
	HasMemo bool
	Address PaymentAddress
}

// DecryptNote trial-decrypts out with fvk.
func DecryptNote(out *ShieldedOutput, fvk *FullViewingKey) (*DecryptedNote, error) {
	ivk, err := fvk.IncomingViewingKey()
	if err != nil {
		return nil, err
	}
	return ivk.DecryptNote(out)
}

// TryDecrypt returns the first note any of keys can decrypt, with the index
// of that key, or (nil, -1).
func TryDecrypt(out *ShieldedOutput, keys []*FullViewingKey) (*DecryptedNote, int) {
	for i, fvk := range keys {
		note, err := DecryptNote(out, fvk)
		if err == nil {
			return note, i
		}
	}
	return nil, -1
}

// DecryptNote trial-decrypts out with ivk.
func (ivk *IncomingViewingKey) DecryptNote(out *ShieldedOutput) (*DecryptedNote, error) {
	if out == nil {
		return nil, ErrInvalidCiphertext
	}
	full := len(out.EncCiphertext) == EncCiphertextSize
	if !full && len(out.EncCiphertext) != CompactCiphertextSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCiphertext, len(out.EncCiphertext))
	}

	epk, err := PointFromBytes(out.EphemeralKey[:])
	if err != nil {
		return nil, ErrNoteNotForKey
	}
	var shared Point
	shared.ClearCofactor(epk)
	shared.Mul(&shared, ivk.scalar)
	key := kdf(&shared, out.EphemeralKey)

	var plaintext []byte
	if full {
		aead, err := chacha20poly1305.New(key[:])
		if err != nil {
			return nil, err
		}
		plaintext, err = aead.Open(nil, zeroNonce[:], out.EncCiphertext, nil)
		if err != nil {
			return nil, ErrNoteNotForKey
		}
	} else {
		plaintext, err = compactOpen(key, out.EncCiphertext)
		if err != nil {
			return nil, err
		}
	}

	note, err := ivk.parsePlaintext(plaintext, out)
	if err != nil {
		return nil, err
	}
	if full {
		copy(note.Memo[:], plaintext[CompactCiphertextSize:notePlaintextSize])
		note.HasMemo = note.Memo[0] != noMemoByte
	}
	return note, nil
}

// EncryptNote is the sender side of DecryptNote. It builds a v2 (ZIP 212)
// note to addr whose esk and rcm derive from rseed. An empty memo is sent
// as the "no memo" marker.
func EncryptNote(addr *PaymentAddress, value uint64, rseed [32]byte, memo []byte) (*ShieldedOutput, error) {
	if len(memo) > MemoSize {
		return nil, fmt.Errorf("%w: %d", ErrMemoTooLong, len(memo))
	}
	gd, ok := DiversifyHash(addr.Diversifier)
	if !ok {
		return nil, ErrInvalidDiversifier
	}
	pkd, err := PointFromBytes(addr.PkD[:])
	if err != nil {
		return nil, err
	}

	esk := toScalar(prfExpand(rseed[:], expandDomainEsk))
	rcm := toScalar(prfExpand(rseed[:], expandDomainRcm))

	var epk Point
	epk.Mul(gd, esk)
	out := &ShieldedOutput{EphemeralKey: epk.Bytes()}

	var shared Point
	shared.ClearCofactor(pkd)
	shared.Mul(&shared, esk)
	key := kdf(&shared, out.EphemeralKey)

	var padded [MemoSize]byte
	if len(memo) == 0 {
		padded[0] = noMemoByte
	} else {
		copy(padded[:], memo)
	}
	pt := make([]byte, 0, notePlaintextSize)
	pt = append(pt, leadByteV2)
	pt = append(pt, addr.Diversifier[:]...)
	pt = binary.LittleEndian.AppendUint64(pt, value)
	pt = append(pt, rseed[:]...)
	pt = append(pt, padded[:]...)

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	out.EncCiphertext = aead.Seal(nil, zeroNonce[:], pt, nil)
	out.Cmu = NoteCommitment(gd, pkd, value, rcm)
	return out, nil
}

// compactOpen decrypts the compact prefix with the ChaCha20 keystream
// starting at block 1, block 0 being reserved for the Poly1305 key.
func compactOpen(key [32]byte, ciphertext []byte) ([]byte, error) {
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], zeroNonce[:])
	if err != nil {
		return nil, err
	}
	cipher.SetCounter(1)
	plaintext := make([]byte, len(ciphertext))
	cipher.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

func (ivk *IncomingViewingKey) parsePlaintext(pt []byte, out *ShieldedOutput) (*DecryptedNote, error) {
	note := &DecryptedNote{LeadByte: pt[0]}
	if note.LeadByte != leadByteV1 && note.LeadByte != leadByteV2 {
		return nil, ErrNoteNotForKey
	}
	copy(note.Diversifier[:], pt[1:12])
	note.Value = binary.LittleEndian.Uint64(pt[12:20])
	copy(note.Rseed[:], pt[20:52])

	gd, ok := DiversifyHash(note.Diversifier)
	if !ok {
		return nil, ErrNoteNotForKey
	}
	var pkd Point
	pkd.Mul(gd, ivk.scalar)

	var rcm *big.Int
	if note.LeadByte == leadByteV1 {
		rcm = leToBig(note.Rseed[:])
		if rcm.Cmp(rJ) >= 0 {
			return nil, ErrNoteNotForKey
		}
	} else {
		rcm = toScalar(prfExpand(note.Rseed[:], expandDomainRcm))

		esk := toScalar(prfExpand(note.Rseed[:], expandDomainEsk))
		var derived Point
		derived.Mul(gd, esk)
		epk := derived.Bytes()
		if subtle.ConstantTimeCompare(epk[:], out.EphemeralKey[:]) != 1 {
			return nil, ErrNoteNotForKey
		}
	}

	cmu := NoteCommitment(gd, &pkd, note.Value, rcm)
	if subtle.ConstantTimeCompare(cmu[:], out.Cmu[:]) != 1 {
		return nil, ErrNoteNotForKey
	}

	note.Address = PaymentAddress{Diversifier: note.Diversifier, PkD: pkd.Bytes()}
	return note, nil
}
