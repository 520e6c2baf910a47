package verifier

import (
	"errors"
	"fmt"
	"time"

	"github.com/kysee/zkpool/utils"
	"github.com/kysee/zkpool/zk-pool/registry"
	"github.com/kysee/zkpool/zk-pool/store"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/rs/zerolog"
)

type State int

const (
	Unknown State = iota
	Registered
	Spent
)

func (s State) String() string {
	switch s {
	case Registered:
		return "registered"
	case Spent:
		return "spent"
	default:
		return "unknown"
	}
}

// ProofVerifier checks a proof against the loaded verification key.
type ProofVerifier interface {
	Verify(signals types.PublicSignals, proof []byte) (bool, error)
}

// MembershipView is the read side of the membership tree the gate needs.
type MembershipView interface {
	IndexOf(leaf types.FieldElement) (uint64, bool)
	IsKnownRoot(root types.FieldElement) bool
}

// WithdrawalGate moves commitments from Registered to Spent.
type WithdrawalGate struct {
	st       *store.Store
	reg      *registry.Registry
	tree     MembershipView
	verifier ProofVerifier

	locks  *utils.KeyedMutex
	logger zerolog.Logger
}

type Option func(*WithdrawalGate)

func WithLogger(l zerolog.Logger) Option {
	return func(g *WithdrawalGate) {
		g.logger = l
	}
}

func New(st *store.Store, reg *registry.Registry, tree MembershipView, verifier ProofVerifier, opts ...Option) *WithdrawalGate {
	g := &WithdrawalGate{
		st:       st,
		reg:      reg,
		tree:     tree,
		verifier: verifier,
		locks:    reg.CommitmentLocks(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *WithdrawalGate) State(commitment types.Commitment) (State, error) {
	if ok, err := g.st.Has(store.SpentKey(commitment[:])); err != nil {
		return Unknown, err
	} else if ok {
		return Spent, nil
	}
	if ok, err := g.st.Has(store.CommitmentKey(commitment[:])); err != nil {
		return Unknown, err
	} else if ok {
		return Registered, nil
	}
	return Unknown, nil
}

// Withdraw marks req.Commitment spent if the request is backed by a valid
// proof. All cheap checks run under the commitment lock; proof verification
// runs without it.
func (g *WithdrawalGate) Withdraw(req *types.WithdrawRequest) (*types.Receipt, error) {
	root, err := g.precheck(req)
	if err != nil {
		return nil, err
	}

	ok, err := g.verifier.Verify(req.PublicSignals, req.Proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
	}
	if !ok {
		return nil, types.ErrInvalidProof
	}

	unlock := g.locks.Lock(req.Commitment.Hex())
	defer unlock()

	// another request may have won while the proof was being verified
	if spent, err := g.isSpent(req.Commitment); err != nil {
		return nil, err
	} else if spent {
		return nil, fmt.Errorf("%w: %s", types.ErrAlreadySpent, req.Commitment.Hex())
	}

	rcpt := &types.Receipt{
		Commitment:    req.Commitment,
		NullifierHash: req.NullifierHash,
		Root:          root,
		SpentAt:       uint64(time.Now().Unix()),
	}
	rec := &types.SpentRecord{Root: root[:], SpentAt: rcpt.SpentAt}
	if err := g.st.Put(store.SpentKey(req.Commitment[:]), rec.Bytes()); err != nil {
		return nil, err
	}

	g.logger.Info().Str("commitment", req.Commitment.Hex()).Str("nullifierHash", req.NullifierHash.Hex()).Msg("withdrawal accepted")
	return rcpt, nil
}

// precheck returns the root the proof claims to be made against.
func (g *WithdrawalGate) precheck(req *types.WithdrawRequest) (types.FieldElement, error) {
	unlock := g.locks.Lock(req.Commitment.Hex())
	defer unlock()

	rec, err := g.reg.Lookup(req.Commitment)
	if err != nil {
		return types.FieldElement{}, err
	}

	if spent, err := g.isSpent(req.Commitment); err != nil {
		return types.FieldElement{}, err
	} else if spent {
		return types.FieldElement{}, fmt.Errorf("%w: %s", types.ErrAlreadySpent, req.Commitment.Hex())
	}

	if rec.Nullifier() != req.NullifierHash {
		return types.FieldElement{}, fmt.Errorf("%w: commitment %s", types.ErrNullifierMismatch, req.Commitment.Hex())
	}
	root, signalNH, err := req.PublicSignals.Parse()
	if err != nil {
		return types.FieldElement{}, fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
	}
	if signalNH != req.NullifierHash {
		return types.FieldElement{}, fmt.Errorf("%w: public signals carry %s", types.ErrNullifierMismatch, signalNH.Hex())
	}

	if _, ok := g.tree.IndexOf(req.Commitment); !ok {
		return types.FieldElement{}, fmt.Errorf("%w: %s", types.ErrNotInTree, req.Commitment.Hex())
	}
	if !g.tree.IsKnownRoot(root) {
		return types.FieldElement{}, fmt.Errorf("%w: unknown root %s", types.ErrInvalidProof, root.Hex())
	}
	return root, nil
}

func (g *WithdrawalGate) isSpent(commitment types.Commitment) (bool, error) {
	return g.st.Has(store.SpentKey(commitment[:]))
}

// Spent returns the spent record of commitment or types.ErrNotFound.
func (g *WithdrawalGate) Spent(commitment types.Commitment) (*types.SpentRecord, error) {
	bz, err := g.st.Get(store.SpentKey(commitment[:]))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s is not spent", types.ErrNotFound, commitment.Hex())
	} else if err != nil {
		return nil, err
	}
	return types.DecodeSpentRecord(bz)
}

func (g *WithdrawalGate) SpentCount() (int, error) {
	return g.st.Count([]byte(store.PrefixSpent))
}
