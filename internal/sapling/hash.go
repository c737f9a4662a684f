package sapling

import (
	"hash"

	"github.com/dchest/blake2s"
	blake2b "github.com/minio/blake2b-simd"
)

const (
	personalizationIvk        = "Zcashivk"
	personalizationDiversify  = "Zcash_gd"
	personalizationPedersen   = "Zcash_PH"
	personalizationKDF        = "Zcash_SaplingKDF"
	personalizationExpandSeed = "Zcash_ExpandSeed"

	// urs is the uniform random string fed to every group hash.
	urs = "096b36a5804bfacef1691e173c366a47ff5ba84a44f26ddd7e8d9f79d5b42df0"
)

const (
	expandDomainRcm = 0x04
	expandDomainEsk = 0x05
)

func newBlake2s256(personalization string) hash.Hash {
	h, err := blake2s.New(&blake2s.Config{Size: 32, Person: []byte(personalization)})
	if err != nil {
		panic(err)
	}
	return h
}

func newBlake2b(size uint8, personalization string) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{Size: size, Person: []byte(personalization)})
	if err != nil {
		panic(err)
	}
	return h
}

// crhIvk computes CRH^ivk(ak, nk) truncated to 251 bits.
func crhIvk(ak, nk [32]byte) [32]byte {
	h := newBlake2s256(personalizationIvk)
	h.Write(ak[:])
	h.Write(nk[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	out[31] &= 0x07
	return out
}

// kdf derives the note encryption key from the shared secret and the
// ephemeral key bytes exactly as they appear in the output.
func kdf(sharedSecret *Point, ephemeralKey [32]byte) [32]byte {
	secret := sharedSecret.Bytes()
	h := newBlake2b(32, personalizationKDF)
	h.Write(secret[:])
	h.Write(ephemeralKey[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// prfExpand computes PRF^expand_sk(t) = BLAKE2b-512("Zcash_ExpandSeed", sk || t).
func prfExpand(sk []byte, t ...byte) []byte {
	h := newBlake2b(64, personalizationExpandSeed)
	h.Write(sk)
	h.Write(t)
	return h.Sum(nil)
}
