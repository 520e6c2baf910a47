package types

import (
	"github.com/kysee/zkpool/utils"
)

// CommitHash is the collision-resistant primitive behind commitments and
// nullifier hashes. It must be deterministic and order-sensitive.
type CommitHash interface {
	Hash(ins ...[]byte) FieldElement
}

// MiMCCommitHash reads every input as a little-endian integer in the scalar
// field and absorbs it into MiMC-BN254, matching the withdrawal circuit.
type MiMCCommitHash struct{}

var DefaultCommitHash CommitHash = MiMCCommitHash{}

func (MiMCCommitHash) Hash(ins ...[]byte) FieldElement {
	elems := make([][]byte, len(ins))
	for i, in := range ins {
		elems[i] = utils.FieldBytesLE(in)
	}
	var ret FieldElement
	copy(ret[:], utils.MiMCHash(elems...))
	return ret
}

// MaxSecretSize keeps a secret strictly below the field modulus.
const MaxSecretSize = utils.FieldSize - 1

func ValidateSecret(secret []byte) bool {
	return len(secret) > 0 && len(secret) <= MaxSecretSize
}

func ComputeNullifierHash(h CommitHash, nullifier []byte) NullifierHash {
	return h.Hash(nullifier)
}

func ComputeCommitment(h CommitHash, nullifier, secret []byte) Commitment {
	return h.Hash(nullifier, secret)
}

// SecretField is the witness encoding of a secret.
func SecretField(secret []byte) FieldElement {
	return FieldFromElement(utils.FieldFromLE(secret))
}
