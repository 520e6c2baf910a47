package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// CommitmentRecord binds a commitment to the nullifier hash it was created
// with. It is written once and never changed.
type CommitmentRecord struct {
	Identity      string
	NullifierHash []byte
	CreatedAt     uint64
}

func (r *CommitmentRecord) Nullifier() NullifierHash {
	var nh NullifierHash
	copy(nh[:], r.NullifierHash)
	return nh
}

func (r *CommitmentRecord) Bytes() []byte {
	bz, err := rlp.EncodeToBytes(r)
	if err != nil {
		panic(fmt.Sprintf("failed to RLP encode CommitmentRecord: %v", err))
	}
	return bz
}

func DecodeCommitmentRecord(bz []byte) (*CommitmentRecord, error) {
	r := new(CommitmentRecord)
	if err := rlp.DecodeBytes(bz, r); err != nil {
		return nil, err
	}
	if len(r.NullifierHash) != len(NullifierHash{}) {
		return nil, fmt.Errorf("corrupt commitment record: nullifier hash size %d", len(r.NullifierHash))
	}
	return r, nil
}

// SpentRecord marks a commitment as withdrawn.
type SpentRecord struct {
	Root    []byte
	SpentAt uint64
}

func (r *SpentRecord) Bytes() []byte {
	bz, err := rlp.EncodeToBytes(r)
	if err != nil {
		panic(fmt.Sprintf("failed to RLP encode SpentRecord: %v", err))
	}
	return bz
}

func DecodeSpentRecord(bz []byte) (*SpentRecord, error) {
	r := new(SpentRecord)
	if err := rlp.DecodeBytes(bz, r); err != nil {
		return nil, err
	}
	return r, nil
}
