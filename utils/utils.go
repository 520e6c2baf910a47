package utils

import (
	crand "crypto/rand"
	"hash"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// FieldSize is the byte length of a canonical BN254 scalar.
const FieldSize = fr.Bytes

func MiMCHasher() hash.Hash {
	return bnmimc.NewMiMC()
}

// MiMCHash absorbs every input as a sequence of field elements.
// Each 32-byte chunk is reduced to its canonical form first; a trailing short
// chunk is read as a big-endian integer.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()

	blockSize := hasher.BlockSize()

	hasher.Reset()
	for _, in := range ins {
		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}

			// this value may be greater than the modulus; convert to fr.Element
			var elem fr.Element
			elem.SetBytes(in[i:end])
			chunk := elem.Marshal()

			if _, err := hasher.Write(chunk); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

// ToBigIntLE reads b as a little-endian unsigned integer.
func ToBigIntLE(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}

// FieldFromLE maps a little-endian byte string into the scalar field.
func FieldFromLE(b []byte) fr.Element {
	var elem fr.Element
	elem.SetBigInt(ToBigIntLE(b))
	return elem
}

// FieldBytesLE returns the canonical 32-byte big-endian encoding of the
// little-endian integer b, reduced into the field.
func FieldBytesLE(b []byte) []byte {
	elem := FieldFromLE(b)
	bz := elem.Bytes()
	return bz[:]
}

func RandBytes(n int) []byte {
	rbz := make([]byte, n)
	_, _ = crand.Read(rbz)
	return rbz
}
