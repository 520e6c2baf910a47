package zk

import (
	"fmt"

	"github.com/kysee/zkpool/zk-pool/types"
)

// ProofData is a proof in the shape a verifier contract call expects.
type ProofData struct {
	Proof        []string `json:"proof"`        // hex encoded proof
	PublicInputs []string `json:"publicInputs"` // [root, nullifierHash]
}

func NewProofData(ret *types.ProofResult) (*ProofData, error) {
	root, nullifierHash, err := ret.PublicSignals.Parse()
	if err != nil {
		return nil, err
	}
	return &ProofData{
		Proof: []string{fmt.Sprintf("0x%x", []byte(ret.Proof))},
		PublicInputs: []string{
			"0x" + root.Hex(),
			"0x" + nullifierHash.Hex(),
		},
	}, nil
}
