package sapling

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/internal/bech32"
)

const (
	// DiversifierSize is the length of a Sapling diversifier.
	DiversifierSize = 11

	fvkSize         = 96
	fvkWithDkSize   = 128
	extendedFvkSize = 169
	// extendedHeaderSize covers depth, parent tag, child index and chain code.
	extendedHeaderSize = extendedFvkSize - fvkWithDkSize
)

var (
	ErrInvalidViewingKey  = errors.New("sapling: invalid viewing key")
	ErrUnknownKeyPrefix   = errors.New("sapling: unknown viewing key prefix")
	ErrInvalidChecksum    = errors.New("sapling: viewing key checksum mismatch")
	ErrInvalidDiversifier = errors.New("sapling: diversifier has no base point")
)

// FullViewingKey holds the components of a Sapling full viewing key. Dk is
// only populated when the encoding carried it.
type FullViewingKey struct {
	Ak    [32]byte
	Nk    [32]byte
	Ovk   [32]byte
	Dk    [32]byte
	HasDk bool
}

// DecodeFullViewingKey parses a bech32 encoded viewing key with one of the
// zxviews/zviews prefixes.
func DecodeFullViewingKey(encoded string) (*FullViewingKey, error) {
	decoded, err := bech32.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidViewingKey, err)
	}
	if !decoded.ChecksumValid() {
		return nil, ErrInvalidChecksum
	}
	known := false
	for _, hrp := range constants.ViewingKeyHRPs {
		if decoded.HRP == hrp {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyPrefix, decoded.HRP)
	}
	return FullViewingKeyFromBytes(decoded.Data)
}

// FullViewingKeyFromBytes accepts the raw ak||nk||ovk[||dk] layout (96 to
// 128 bytes) or a 169 byte extended key.
func FullViewingKeyFromBytes(b []byte) (*FullViewingKey, error) {
	if len(b) == extendedFvkSize {
		b = b[extendedHeaderSize:]
	}
	if len(b) < fvkSize || len(b) > fvkWithDkSize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidViewingKey, len(b))
	}

	fvk := &FullViewingKey{}
	copy(fvk.Ak[:], b[0:32])
	copy(fvk.Nk[:], b[32:64])
	copy(fvk.Ovk[:], b[64:96])
	if len(b) >= fvkWithDkSize {
		copy(fvk.Dk[:], b[96:128])
		fvk.HasDk = true
	}

	if _, err := PointFromBytes(fvk.Ak[:]); err != nil {
		return nil, fmt.Errorf("%w: ak: %v", ErrInvalidViewingKey, err)
	}
	if _, err := PointFromBytes(fvk.Nk[:]); err != nil {
		return nil, fmt.Errorf("%w: nk: %v", ErrInvalidViewingKey, err)
	}
	return fvk, nil
}

// Bytes returns ak||nk||ovk, followed by dk when present.
func (fvk *FullViewingKey) Bytes() []byte {
	out := make([]byte, 0, fvkWithDkSize)
	out = append(out, fvk.Ak[:]...)
	out = append(out, fvk.Nk[:]...)
	out = append(out, fvk.Ovk[:]...)
	if fvk.HasDk {
		out = append(out, fvk.Dk[:]...)
	}
	return out
}

// Encode renders the key as bech32 under hrp.
func (fvk *FullViewingKey) Encode(hrp string) (string, error) {
	return bech32.Encode(hrp, fvk.Bytes(), bech32.Bech32)
}

// IncomingViewingKey derives ivk = CRH^ivk(ak, nk).
func (fvk *FullViewingKey) IncomingViewingKey() (*IncomingViewingKey, error) {
	b := crhIvk(fvk.Ak, fvk.Nk)
	scalar := leToBig(b[:])
	if scalar.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero ivk", ErrInvalidViewingKey)
	}
	return &IncomingViewingKey{scalar: scalar, bytes: b}, nil
}

// IncomingViewingKey is the 251 bit scalar used for trial decryption.
type IncomingViewingKey struct {
	scalar *big.Int
	bytes  [32]byte
}

// Bytes returns the little-endian encoding of ivk.
func (ivk *IncomingViewingKey) Bytes() [32]byte {
	return ivk.bytes
}

// Address returns the payment address (d, [ivk] g_d).
func (ivk *IncomingViewingKey) Address(d [DiversifierSize]byte) (*PaymentAddress, error) {
	gd, ok := DiversifyHash(d)
	if !ok {
		return nil, ErrInvalidDiversifier
	}
	var pkd Point
	pkd.Mul(gd, ivk.scalar)
	return &PaymentAddress{Diversifier: d, PkD: pkd.Bytes()}, nil
}

// PaymentAddress is a Sapling shielded address.
type PaymentAddress struct {
	Diversifier [DiversifierSize]byte
	PkD         [32]byte
}

// Encode renders d||pk_d as bech32 under hrp ("zs" or "ztestsapling").
func (addr *PaymentAddress) Encode(hrp string) (string, error) {
	raw := make([]byte, 0, DiversifierSize+32)
	raw = append(raw, addr.Diversifier[:]...)
	raw = append(raw, addr.PkD[:]...)
	return bech32.Encode(hrp, raw, bech32.Bech32)
}
