package sapling

import (
	"encoding/hex"
	"math/rand"
	"strings"
	"testing"

	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/internal/bech32"
	"github.com/stretchr/testify/require"
)

// A mainnet extended viewing key and a payment address it owns.
const (
	knownViewingKey = "zxviews1qwu8xma4qqqqpq9msrvf23sh4y582lkx5tppjnwc68ecc2mwccct4wlqr0d5848fe2cu8g673yphm6jcrmzuyaeuvc66udy7ruv7s3y8phv2racsaa7trfx4wwdp3hupvkurnt8pgs2f46p3wvsarlh62eqsg89jl8j2fvkj6jc2ejcxhlpx87cv07mp2g8474lzxcrsh0uhnuenflv5ye7tre03wwk9syfw5nenhkn6rs22recmt5umnrptnka77js8xjr7cdzw25qr8ft2c"
	knownAddress    = "zs1p5dclcm74pmg0zhsdk9jqnrlnxua83zm6my33uayg0hwranh6w2k3s4uaaezl6fg38ua2jkq64t"
)

// testViewingKey builds a key whose ak and nk are random multiples of fixed
// generators.
func testViewingKey(rng *rand.Rand) *FullViewingKey {
	var ak, nk Point
	ak.Mul(spendAuthGenerator(), randomScalar(rng))
	nk.Mul(FindGroupHash("Zcash_H_", nil), randomScalar(rng))

	fvk := &FullViewingKey{Ak: ak.Bytes(), Nk: nk.Bytes()}
	rng.Read(fvk.Ovk[:])
	return fvk
}

func TestFullViewingKeyFromBytes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	fvk := testViewingKey(rng)

	got, err := FullViewingKeyFromBytes(fvk.Bytes())
	require.NoError(t, err)
	require.Equal(t, fvk, got)

	fvk.HasDk = true
	rng.Read(fvk.Dk[:])
	raw := fvk.Bytes()
	require.Len(t, raw, 128)
	got, err = FullViewingKeyFromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, fvk, got)

	extended := make([]byte, 41, 169)
	extended[0] = 3
	extended = append(extended, raw...)
	got, err = FullViewingKeyFromBytes(extended)
	require.NoError(t, err)
	require.Equal(t, fvk, got)

	_, err = FullViewingKeyFromBytes(raw[:95])
	require.ErrorIs(t, err, ErrInvalidViewingKey)
	_, err = FullViewingKeyFromBytes(append(raw, 0))
	require.ErrorIs(t, err, ErrInvalidViewingKey)
}

func TestFullViewingKeyRejectsBadPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	fvk := testViewingKey(rng)
	raw := fvk.Bytes()
	for i := 0; i < 31; i++ {
		raw[i] = 0xff
	}
	raw[31] = 0x7f
	_, err := FullViewingKeyFromBytes(raw)
	require.ErrorIs(t, err, ErrInvalidViewingKey)
}

func TestDecodeFullViewingKey(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	fvk := testViewingKey(rng)

	for _, hrp := range constants.ViewingKeyHRPs {
		encoded, err := fvk.Encode(hrp)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(encoded, hrp+"1"))
		require.Greater(t, len(encoded), 90)

		got, err := DecodeFullViewingKey(encoded)
		require.NoError(t, err)
		require.Equal(t, fvk, got)
	}

	foreign, err := bech32.Encode("zviewsfoo", fvk.Bytes(), bech32.Bech32)
	require.NoError(t, err)
	_, err = DecodeFullViewingKey(foreign)
	require.ErrorIs(t, err, ErrUnknownKeyPrefix)

	encoded, err := fvk.Encode(constants.HRPFullViewingKey)
	require.NoError(t, err)
	last := encoded[len(encoded)-1]
	swap := byte('q')
	if last == 'q' {
		swap = 'p'
	}
	_, err = DecodeFullViewingKey(encoded[:len(encoded)-1] + string(swap))
	require.ErrorIs(t, err, ErrInvalidChecksum)

	_, err = DecodeFullViewingKey("not a key")
	require.ErrorIs(t, err, ErrInvalidViewingKey)
}

func TestIncomingViewingKey(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	fvk := testViewingKey(rng)

	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)
	b := ivk.Bytes()
	require.Zero(t, b[31]&0xf8)

	again, err := fvk.IncomingViewingKey()
	require.NoError(t, err)
	require.Equal(t, b, again.Bytes())

	other, err := testViewingKey(rng).IncomingViewingKey()
	require.NoError(t, err)
	require.NotEqual(t, b, other.Bytes())
}

func TestPaymentAddressEncode(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	ivk, err := testViewingKey(rng).IncomingViewingKey()
	require.NoError(t, err)

	d := findDiversifier(rng)
	addr, err := ivk.Address(d)
	require.NoError(t, err)

	for _, testnet := range []bool{false, true} {
		hrp := constants.PaymentAddressHRP(testnet)
		encoded, err := addr.Encode(hrp)
		require.NoError(t, err)

		dec, err := bech32.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, hrp, dec.HRP)
		require.True(t, dec.ChecksumValid())
		require.Len(t, dec.Data, DiversifierSize+32)
		require.Equal(t, d[:], dec.Data[:DiversifierSize])
		require.Equal(t, addr.PkD[:], dec.Data[DiversifierSize:])
	}
}

func TestKnownViewingKeyAddress(t *testing.T) {
	fvk, err := DecodeFullViewingKey(knownViewingKey)
	require.NoError(t, err)
	require.True(t, fvk.HasDk)
	require.Equal(t, "b1c3a35e89037dea581ec5c2773c6635ae349e1f19e844870dd8a1f710ef7cb1", hex.EncodeToString(fvk.Ak[:]))
	require.Equal(t, "a4d5739a18df8165b839ace144149ae8317321d1fefa5641041cb2f9e4a4b2d2", hex.EncodeToString(fvk.Nk[:]))
	require.Equal(t, "d4b0accb06bfc263fb0c7fb61520f5f57e236070bbf979f3334fd94267cb1e5f", hex.EncodeToString(fvk.Ovk[:]))
	require.Equal(t, "173ac58112ea4f33bda7a1c14a1e71b5d39b98c2b9dbbef4a073487ec344e550", hex.EncodeToString(fvk.Dk[:]))

	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)
	ivkBytes := ivk.Bytes()
	require.Equal(t, "9022dacdf29c5ca1c3af4f5c03198854884947a2525cc708027a36976b4fb200", hex.EncodeToString(ivkBytes[:]))

	dec, err := bech32.Decode(knownAddress)
	require.NoError(t, err)
	require.True(t, dec.ChecksumValid())
	var d [DiversifierSize]byte
	copy(d[:], dec.Data)
	require.Equal(t, "0d1b8fe37ea876878af06d", hex.EncodeToString(d[:]))

	addr, err := ivk.Address(d)
	require.NoError(t, err)
	require.Equal(t, dec.Data[DiversifierSize:], addr.PkD[:])
	encoded, err := addr.Encode(constants.HRPPaymentAddress)
	require.NoError(t, err)
	require.Equal(t, knownAddress, encoded)
}

func findDiversifier(rng *rand.Rand) [DiversifierSize]byte {
	for {
		var d [DiversifierSize]byte
		rng.Read(d[:])
		if _, ok := DiversifyHash(d); ok {
			return d
		}
	}
}
