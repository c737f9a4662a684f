// Package bech32 decodes bech32 and bech32m strings of any length.
//
// Unlike BIP-173 address decoders it enforces no 90 character ceiling, since
// Sapling viewing keys are far longer, and it reports a failed checksum
// through Decoded.Variant instead of discarding the data.
package bech32

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	charset     = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	checksumLen = 6

	bech32Const  = 1
	bech32mConst = 0x2bc830a3
)

var generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

// Variant is the checksum constant an encoding satisfied.
type Variant int

const (
	Invalid Variant = iota
	Bech32
	Bech32m
)

func (v Variant) String() string {
	switch v {
	case Bech32:
		return "bech32"
	case Bech32m:
		return "bech32m"
	default:
		return "invalid"
	}
}

var (
	ErrMixedCase        = errors.New("bech32: mixed case string")
	ErrNoSeparator      = errors.New("bech32: missing separator")
	ErrInvalidSeparator = errors.New("bech32: separator at invalid position")
	ErrInvalidHRP       = errors.New("bech32: invalid human readable part")
	ErrInvalidCharacter = errors.New("bech32: invalid data character")
	ErrTooShort         = errors.New("bech32: data part shorter than checksum")
	ErrUnknownVariant   = errors.New("bech32: unknown variant")
)

var charsetRev = func() [128]int8 {
	var rev [128]int8
	for i := range rev {
		rev[i] = -1
	}
	for i := 0; i < len(charset); i++ {
		rev[charset[i]] = int8(i)
	}
	return rev
}()

// Decoded is the result of Decode.
type Decoded struct {
	HRP string
	// Words holds the 5-bit payload words without the checksum.
	Words []byte
	// Data holds Words regrouped into bytes.
	Data    []byte
	Variant Variant
}

// ChecksumValid reports whether the checksum matched one of the known constants.
// Data must not be trusted when it returns false.
func (d *Decoded) ChecksumValid() bool {
	return d.Variant != Invalid
}

// Decode splits encoded at its last separator, validates the human readable
// part and the data alphabet, and verifies the checksum against both the
// bech32 and bech32m constants.
func Decode(encoded string) (*Decoded, error) {
	lower := strings.ToLower(encoded)
	if lower != encoded && strings.ToUpper(encoded) != encoded {
		return nil, ErrMixedCase
	}

	pos := strings.LastIndexByte(lower, '1')
	if pos == -1 {
		return nil, ErrNoSeparator
	}
	if pos == 0 || pos == len(lower)-1 {
		return nil, ErrInvalidSeparator
	}

	hrp := lower[:pos]
	for i := 0; i < len(hrp); i++ {
		c := hrp[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHRP, hrp)
		}
	}

	dataPart := lower[pos+1:]
	if len(dataPart) < checksumLen {
		return nil, ErrTooShort
	}
	words := make([]byte, len(dataPart))
	for i := 0; i < len(dataPart); i++ {
		c := dataPart[i]
		if c >= 128 || charsetRev[c] == -1 {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidCharacter, c, pos+1+i)
		}
		words[i] = byte(charsetRev[c])
	}

	payload := words[:len(words)-checksumLen]
	return &Decoded{
		HRP:     hrp,
		Words:   payload,
		Data:    WordsToBytes(payload),
		Variant: verifyChecksum(hrp, words),
	}, nil
}

// Encode regroups data into 5-bit words and appends the checksum of variant.
func Encode(hrp string, data []byte, variant Variant) (string, error) {
	words, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	switch variant {
	case Bech32:
		return bech32.Encode(hrp, words)
	case Bech32m:
		return bech32.EncodeM(hrp, words)
	default:
		return "", ErrUnknownVariant
	}
}

// WordsToBytes packs 5-bit words MSB-first into bytes. A trailing group of
// fewer than 8 bits is padding and is dropped.
func WordsToBytes(words []byte) []byte {
	out := make([]byte, 0, len(words)*5/8)
	acc := uint32(0)
	bits := uint(0)
	for _, w := range words {
		acc = acc<<5 | uint32(w&0x1f)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>bits))
		}
	}
	return out
}

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= generator[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&0x1f)
	}
	return out
}

func verifyChecksum(hrp string, words []byte) Variant {
	switch polymod(append(hrpExpand(hrp), words...)) {
	case bech32Const:
		return Bech32
	case bech32mConst:
		return Bech32m
	default:
		return Invalid
	}
}
