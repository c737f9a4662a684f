package sapling

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
)

// PointSize is the length of an encoded Jubjub point.
const PointSize = 32

var (
	ErrNonCanonicalPoint = errors.New("sapling: non-canonical point encoding")
	ErrNotOnCurve        = errors.New("sapling: point is not on the curve")
)

var (
	// rJ is the order of the prime-order Jubjub subgroup.
	rJ, _ = new(big.Int).SetString("0e7db4ea6533afa906673b0101343b00a6682093ccc81082d0970e5ed6f72cb7", 16)
	// q is the Jubjub base field modulus, the BLS12-381 scalar field.
	q = fr.Modulus()

	cofactor = big.NewInt(8)
	curve    = twistededwards.GetEdwardsCurve()
)

// Point is an affine point on Jubjub, u being the Edwards x coordinate and v
// the y coordinate.
type Point struct {
	p twistededwards.PointAffine
}

// Identity returns the neutral element (0, 1).
func Identity() *Point {
	var P Point
	P.p.X.SetZero()
	P.p.Y.SetOne()
	return &P
}

// Add sets P = a + b and returns P.
func (P *Point) Add(a, b *Point) *Point {
	P.p.Add(&a.p, &b.p)
	return P
}

// Mul sets P = [k] a and returns P. k must be non-negative.
func (P *Point) Mul(a *Point, k *big.Int) *Point {
	if k.Sign() == 0 {
		*P = *Identity()
		return P
	}
	P.p.ScalarMultiplication(&a.p, k)
	return P
}

// ClearCofactor sets P = [8] a and returns P.
func (P *Point) ClearCofactor(a *Point) *Point {
	return P.Mul(a, cofactor)
}

// IsIdentity reports whether P is the neutral element.
func (P *Point) IsIdentity() bool {
	var one fr.Element
	one.SetOne()
	return P.p.X.IsZero() && P.p.Y.Equal(&one)
}

// IsSmallOrder reports whether [8] P is the identity.
func (P *Point) IsSmallOrder() bool {
	var Q Point
	return Q.ClearCofactor(P).IsIdentity()
}

// InPrimeSubgroup reports whether [r_J] P is the identity.
func (P *Point) InPrimeSubgroup() bool {
	var Q Point
	return Q.Mul(P, rJ).IsIdentity()
}

// Equal reports whether P and Q are the same point.
func (P *Point) Equal(Q *Point) bool {
	return P.p.X.Equal(&Q.p.X) && P.p.Y.Equal(&Q.p.Y)
}

// Bytes returns repr_J(P): v little-endian with the parity of u in the top bit.
func (P *Point) Bytes() [PointSize]byte {
	out := leBytes32(P.p.Y.BigInt(new(big.Int)))
	if P.p.X.BigInt(new(big.Int)).Bit(0) == 1 {
		out[31] |= 0x80
	}
	return out
}

// U returns the u coordinate encoded as 32 little-endian bytes.
func (P *Point) U() [PointSize]byte {
	return leBytes32(P.p.X.BigInt(new(big.Int)))
}

// SetBytes decodes a canonical point encoding (abst_J with the ZIP 216
// rules) into P.
func (P *Point) SetBytes(b []byte) (*Point, error) {
	if len(b) != PointSize {
		return nil, ErrNonCanonicalPoint
	}
	var buf [PointSize]byte
	copy(buf[:], b)
	sign := uint(buf[31] >> 7)
	buf[31] &= 0x7f

	vInt := leToBig(buf[:])
	if vInt.Cmp(q) >= 0 {
		return nil, ErrNonCanonicalPoint
	}

	var v, v2, num, den, u2, u fr.Element
	v.SetBigInt(vInt)
	v2.Square(&v)

	// u^2 = (1 - v^2) / (a - d v^2) with a = -1.
	var one fr.Element
	one.SetOne()
	num.Sub(&one, &v2)
	den.Mul(&curve.D, &v2)
	den.Add(&den, &one)
	den.Neg(&den)
	if den.IsZero() {
		return nil, ErrNotOnCurve
	}
	den.Inverse(&den)
	u2.Mul(&num, &den)

	if u.Sqrt(&u2) == nil {
		return nil, ErrNotOnCurve
	}
	if uint(u.BigInt(new(big.Int)).Bit(0)) != sign {
		u.Neg(&u)
	}
	if u.IsZero() && sign == 1 {
		return nil, ErrNonCanonicalPoint
	}

	P.p.X = u
	P.p.Y = v
	if !P.p.IsOnCurve() {
		return nil, ErrNotOnCurve
	}
	return P, nil
}

// PointFromBytes decodes b into a new Point.
func PointFromBytes(b []byte) (*Point, error) {
	return new(Point).SetBytes(b)
}

// leToBig interprets b as a little-endian unsigned integer.
func leToBig(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}

// leBytes32 encodes x, which must be below 2^256, as 32 little-endian bytes.
func leBytes32(x *big.Int) [32]byte {
	var be, out [32]byte
	x.FillBytes(be[:])
	for i := range be {
		out[31-i] = be[i]
	}
	return out
}

// toScalar reduces a little-endian byte string modulo r_J.
func toScalar(b []byte) *big.Int {
	return new(big.Int).Mod(leToBig(b), rJ)
}
