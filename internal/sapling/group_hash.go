package sapling

import (
	"encoding/binary"
	"sync"
)

// GroupHash maps (personalization, msg) to a point of the prime-order
// subgroup. ok is false when the hash is not a valid encoding or lands on a
// small-order point.
func GroupHash(personalization string, msg []byte) (P *Point, ok bool) {
	h := newBlake2s256(personalization)
	h.Write([]byte(urs))
	h.Write(msg)

	var candidate Point
	if _, err := candidate.SetBytes(h.Sum(nil)); err != nil {
		return nil, false
	}
	var Q Point
	Q.ClearCofactor(&candidate)
	if Q.IsIdentity() {
		return nil, false
	}
	return &Q, true
}

// FindGroupHash appends a one byte counter to msg and returns the first
// counter value whose GroupHash succeeds.
func FindGroupHash(personalization string, msg []byte) *Point {
	buf := make([]byte, len(msg)+1)
	copy(buf, msg)
	for i := 0; i < 256; i++ {
		buf[len(msg)] = byte(i)
		if P, ok := GroupHash(personalization, buf); ok {
			return P
		}
	}
	// Unreachable for the fixed personalizations used here.
	panic("sapling: no group hash found")
}

// DiversifyHash returns g_d for diversifier d, or ok=false if d has no
// associated base point.
func DiversifyHash(d [DiversifierSize]byte) (*Point, bool) {
	return GroupHash(personalizationDiversify, d[:])
}

var (
	pedersenOnce       sync.Once
	pedersenGenerators []*Point
	noteCommitR        *Point
)

// maxPedersenSegments covers the 582-bit note commitment input.
const maxPedersenSegments = 6

func initPedersenGenerators() {
	pedersenOnce.Do(func() {
		pedersenGenerators = make([]*Point, maxPedersenSegments)
		var idx [4]byte
		for i := range pedersenGenerators {
			binary.LittleEndian.PutUint32(idx[:], uint32(i))
			pedersenGenerators[i] = FindGroupHash(personalizationPedersen, idx[:])
		}
		noteCommitR = FindGroupHash(personalizationPedersen, []byte("r"))
	})
}

func pedersenGenerator(i int) *Point {
	initPedersenGenerators()
	if i < len(pedersenGenerators) {
		return pedersenGenerators[i]
	}
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], uint32(i))
	return FindGroupHash(personalizationPedersen, idx[:])
}
