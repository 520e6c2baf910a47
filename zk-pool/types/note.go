package types

import (
	"fmt"
	"io"
	"math/big"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/kysee/zkpool/zk-pool/crypto"
)

const NoteVersion = 1

// DepositNote is the secret material a depositor needs to withdraw later.
// The pool stores it sealed to the depositor's identity key.
type DepositNote struct {
	Version      byte
	Identity     IdentityKey
	Denomination *uint256.Int
	Nullifier    []byte
	Secret       []byte
	LeafIndex    uint64
}

func (n *DepositNote) NullifierHash(h CommitHash) NullifierHash {
	return ComputeNullifierHash(h, n.Nullifier)
}

func (n *DepositNote) Commitment(h CommitHash) Commitment {
	return ComputeCommitment(h, n.Nullifier, n.Secret)
}

// Bytes returns the RLP encoding of the note. It panics if encoding fails.
func (n *DepositNote) Bytes() []byte {
	b, err := rlp.EncodeToBytes(n)
	if err != nil {
		panic(fmt.Sprintf("failed to RLP encode DepositNote: %v", err))
	}
	return b
}

// EncodeRLP implements rlp.Encoder.
func (n *DepositNote) EncodeRLP(w io.Writer) error {
	denom := new(big.Int)
	if n.Denomination != nil {
		denom = n.Denomination.ToBig()
	}
	return rlp.Encode(w, []interface{}{
		n.Version,
		string(n.Identity),
		denom,
		n.Nullifier,
		n.Secret,
		n.LeafIndex,
	})
}

// DecodeRLP implements rlp.Decoder.
func (n *DepositNote) DecodeRLP(s *rlp.Stream) error {
	var temp struct {
		Version      byte
		Identity     string
		Denomination *big.Int
		Nullifier    []byte
		Secret       []byte
		LeafIndex    uint64
	}
	if err := s.Decode(&temp); err != nil {
		return err
	}

	denom, overflow := uint256.FromBig(temp.Denomination)
	if overflow {
		return fmt.Errorf("denomination value overflows uint256")
	}

	n.Version = temp.Version
	n.Identity = IdentityKey(temp.Identity)
	n.Denomination = denom
	n.Nullifier = temp.Nullifier
	n.Secret = temp.Secret
	n.LeafIndex = temp.LeafIndex
	return nil
}

// SealDepositNote encrypts the note to the identity's public key.
func SealDepositNote(n *DepositNote, to *jubjub.PublicKey) ([]byte, error) {
	return crypto.Seal(to, n.Bytes())
}

// OpenDepositNote decrypts a sealed note. It fails for any key other than the
// one the note was sealed to.
func OpenDepositNote(sealed []byte, prv *jubjub.PrivateKey) (*DepositNote, error) {
	bz, err := crypto.Open(prv, sealed)
	if err != nil {
		return nil, err
	}
	return DecodeDepositNote(bz)
}

func DecodeDepositNote(bz []byte) (*DepositNote, error) {
	n := new(DepositNote)
	if err := rlp.DecodeBytes(bz, n); err != nil {
		return nil, err
	}
	return n, nil
}
