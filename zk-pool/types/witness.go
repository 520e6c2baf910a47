package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Witness is the full input of the withdrawal circuit.
type Witness struct {
	Root          FieldElement
	NullifierHash FieldElement
	Secret        FieldElement
	Nullifier     FieldElement
	PathElements  []FieldElement
	PathIndices   []uint8
}

// positions of the public signals, in circuit order
const (
	SignalRoot = iota
	SignalNullifierHash
	NumPublicSignals
)

// PublicSignals are the decimal public inputs of a proof: [root, nullifierHash].
type PublicSignals []string

func NewPublicSignals(root, nullifierHash FieldElement) PublicSignals {
	return PublicSignals{root.String(), nullifierHash.String()}
}

// Parse returns the root and nullifier hash carried by the signals.
func (ps PublicSignals) Parse() (root, nullifierHash FieldElement, err error) {
	if len(ps) != NumPublicSignals {
		err = fmt.Errorf("wrong number of public signals: expected(%d), got(%d)", NumPublicSignals, len(ps))
		return
	}
	if root, err = FieldFromString(ps[SignalRoot]); err != nil {
		return
	}
	nullifierHash, err = FieldFromString(ps[SignalNullifierHash])
	return
}

// ProofResult is what a prover hands to a withdrawer.
type ProofResult struct {
	Proof         hexutil.Bytes `json:"proof"`
	PublicSignals PublicSignals `json:"publicSignals"`
}

type WithdrawRequest struct {
	Commitment    Commitment    `json:"commitment"`
	NullifierHash NullifierHash `json:"nullifierHash"`
	Proof         hexutil.Bytes `json:"proof"`
	PublicSignals PublicSignals `json:"publicSignals"`
}

// Receipt records a completed withdrawal.
type Receipt struct {
	Commitment    Commitment    `json:"commitment"`
	NullifierHash NullifierHash `json:"nullifierHash"`
	Root          FieldElement  `json:"root"`
	SpentAt       uint64        `json:"spentAt"`
}
