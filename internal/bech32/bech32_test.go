package bech32

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeVectors(t *testing.T) {
	tests := []struct {
		encoded string
		hrp     string
		variant Variant
		words   []byte
	}{
		{"A12UEL5L", "a", Bech32, []byte{}},
		{"a12uel5l", "a", Bech32, []byte{}},
		{"abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw", "abcdef", Bech32, seq(0, 32)},
		{"A1LQFN3A", "a", Bech32m, []byte{}},
		{"abcdef1l7aum6echk45nj3s0wdvt2fg8x9yrzpqzd3ryx", "abcdef", Bech32m, reverse(seq(0, 32))},
		{"A1G7SGD8", "a", Invalid, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.encoded, func(t *testing.T) {
			dec, err := Decode(tt.encoded)
			require.NoError(t, err)
			require.Equal(t, tt.hrp, dec.HRP)
			require.Equal(t, tt.variant, dec.Variant)
			require.Equal(t, tt.variant != Invalid, dec.ChecksumValid())
			require.Equal(t, tt.words, dec.Words)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		encoded string
		err     error
	}{
		{"a12UEL5L", ErrMixedCase},
		{"qpzry9x8gf2tvdw0s3jn54khce6mua7l", ErrNoSeparator},
		{"1nwldj5", ErrInvalidSeparator},
		{"abc1", ErrInvalidSeparator},
		{"li1dgmt3", ErrTooShort},
		{"x1b4n0q5v", ErrInvalidCharacter},
		{"a-b1qqqqqqqq", ErrInvalidHRP},
	}
	for _, tt := range tests {
		t.Run(tt.encoded, func(t *testing.T) {
			dec, err := Decode(tt.encoded)
			require.ErrorIs(t, err, tt.err)
			require.Nil(t, dec)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, variant := range []Variant{Bech32, Bech32m} {
		for n := 0; n <= 200; n += 13 {
			data := make([]byte, n)
			r.Read(data)

			encoded, err := Encode("zxviews", data, variant)
			require.NoError(t, err)

			dec, err := Decode(encoded)
			require.NoError(t, err)
			require.Equal(t, "zxviews", dec.HRP)
			require.Equal(t, variant, dec.Variant)
			require.Equal(t, data, dec.Data)
		}
	}
}

func TestDecodeLongString(t *testing.T) {
	data := make([]byte, 169)
	for i := range data {
		data[i] = byte(i)
	}
	encoded, err := Encode("zxviews", data, Bech32)
	require.NoError(t, err)
	require.Greater(t, len(encoded), 90)

	dec, err := Decode(strings.ToUpper(encoded))
	require.NoError(t, err)
	require.True(t, dec.ChecksumValid())
	require.Equal(t, data, dec.Data)
}

func TestDecodeChecksumFailureKeepsData(t *testing.T) {
	data := []byte("the wise act alone")
	encoded, err := Encode("zs", data, Bech32)
	require.NoError(t, err)

	// Swap the first data character for a different alphabet symbol.
	pos := strings.LastIndexByte(encoded, '1') + 1
	replacement := byte('q')
	if encoded[pos] == 'q' {
		replacement = 'p'
	}
	corrupted := encoded[:pos] + string(replacement) + encoded[pos+1:]

	dec, err := Decode(corrupted)
	require.NoError(t, err)
	require.False(t, dec.ChecksumValid())
	require.Equal(t, Invalid, dec.Variant)
	require.Len(t, dec.Data, len(data))
}

func TestWordsToBytesDropsPadding(t *testing.T) {
	// 0b11111 0b11111 packs into 0xff with two padding bits left over.
	require.Equal(t, []byte{0xff}, WordsToBytes([]byte{31, 31}))
	require.Empty(t, WordsToBytes([]byte{31}))
	require.Equal(t, []byte{0x00, 0x44, 0x32, 0x14, 0xc7},
		WordsToBytes([]byte{0, 1, 2, 3, 4, 5, 6, 7}))
}

func TestEncodeUnknownVariant(t *testing.T) {
	_, err := Encode("zs", []byte{1}, Invalid)
	require.ErrorIs(t, err, ErrUnknownVariant)
}

func seq(from, to int) []byte {
	out := make([]byte, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, byte(i))
	}
	return out
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
