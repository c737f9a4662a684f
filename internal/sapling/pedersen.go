package sapling

import (
	"encoding/binary"
	"math/big"
)

const (
	pedersenChunkBits = 3
	// pedersenChunksPerSegment is c in the Pedersen hash definition.
	pedersenChunksPerSegment = 63
)

// PedersenHashToPoint hashes a bit sequence under the "Zcash_PH" generators.
func PedersenHashToPoint(bits []bool) *Point {
	padded := bits
	if rem := len(bits) % pedersenChunkBits; rem != 0 {
		padded = make([]bool, len(bits)+pedersenChunkBits-rem)
		copy(padded, bits)
	}

	result := Identity()
	segmentBits := pedersenChunkBits * pedersenChunksPerSegment
	for seg := 0; seg*segmentBits < len(padded); seg++ {
		end := (seg + 1) * segmentBits
		if end > len(padded) {
			end = len(padded)
		}
		scalar := segmentScalar(padded[seg*segmentBits : end])
		var term Point
		term.Mul(pedersenGenerator(seg), scalar)
		result.Add(result, &term)
	}
	return result
}

// segmentScalar computes <M_i> = sum enc(m_j) * 2^(4(j-1)) mod r_J, with
// enc(s0, s1, s2) = (1 - 2 s2) * (1 + s0 + 2 s1).
func segmentScalar(bits []bool) *big.Int {
	sum := new(big.Int)
	shift := new(big.Int).SetInt64(1)
	for j := 0; j+pedersenChunkBits <= len(bits); j += pedersenChunkBits {
		enc := int64(1)
		if bits[j] {
			enc++
		}
		if bits[j+1] {
			enc += 2
		}
		if bits[j+2] {
			enc = -enc
		}
		term := new(big.Int).Mul(big.NewInt(enc), shift)
		sum.Add(sum, term)
		shift.Lsh(shift, 4)
	}
	return sum.Mod(sum, rJ)
}

// WindowedPedersenCommit returns PedersenHashToPoint(bits) + [r] R.
func WindowedPedersenCommit(r *big.Int, bits []bool) *Point {
	initPedersenGenerators()
	var blind Point
	blind.Mul(noteCommitR, new(big.Int).Mod(r, rJ))
	hashed := PedersenHashToPoint(bits)
	return hashed.Add(hashed, &blind)
}

// NoteCommitment computes the u coordinate of
// NoteCommit_rcm(g_d, pk_d, v) over 1^6 || I2LEBSP_64(v) || repr(g_d) || repr(pk_d).
func NoteCommitment(gd, pkd *Point, value uint64, rcm *big.Int) [32]byte {
	bits := make([]bool, 0, 6+64+2*8*PointSize)
	for i := 0; i < 6; i++ {
		bits = append(bits, true)
	}
	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], value)
	bits = appendBytesLE(bits, v[:])
	g := gd.Bytes()
	bits = appendBytesLE(bits, g[:])
	pk := pkd.Bytes()
	bits = appendBytesLE(bits, pk[:])

	return WindowedPedersenCommit(rcm, bits).U()
}

// appendBytesLE appends the bits of b, least significant bit of each byte first.
func appendBytesLE(bits []bool, b []byte) []bool {
	for _, c := range b {
		for i := 0; i < 8; i++ {
			bits = append(bits, (c>>uint(i))&1 == 1)
		}
	}
	return bits
}
