package zk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// WithdrawCircuit proves knowledge of (nullifier, secret) such that
// MiMC(nullifier, secret) is a leaf under Root and MiMC(nullifier) equals
// NullifierHash.
type WithdrawCircuit struct {
	Root          frontend.Variable `gnark:",public"`
	NullifierHash frontend.Variable `gnark:",public"`

	Secret       frontend.Variable
	Nullifier    frontend.Variable
	PathElements []frontend.Variable
	PathIndices  []frontend.Variable
}

func (cc *WithdrawCircuit) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	hasher.Write(cc.Nullifier)
	api.AssertIsEqual(cc.NullifierHash, hasher.Sum())

	hasher.Reset()
	hasher.Write(cc.Nullifier, cc.Secret)
	cur := hasher.Sum()

	for i := range cc.PathElements {
		api.AssertIsBoolean(cc.PathIndices[i])
		left := api.Select(cc.PathIndices[i], cc.PathElements[i], cur)
		right := api.Select(cc.PathIndices[i], cur, cc.PathElements[i])

		hasher.Reset()
		hasher.Write(left, right)
		cur = hasher.Sum()
	}

	api.AssertIsEqual(cc.Root, cur)
	return nil
}

// NewWithdrawCircuit allocates a circuit shape for a tree of the given depth.
func NewWithdrawCircuit(depth int) *WithdrawCircuit {
	return &WithdrawCircuit{
		PathElements: make([]frontend.Variable, depth),
		PathIndices:  make([]frontend.Variable, depth),
	}
}
