package zk_pool

import (
	"errors"
	"fmt"
	"sync"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/holiman/uint256"
	"github.com/kysee/zkpool/zk-pool/crypto"
	"github.com/kysee/zkpool/zk-pool/merkle"
	"github.com/kysee/zkpool/zk-pool/prover"
	"github.com/kysee/zkpool/zk-pool/registry"
	"github.com/kysee/zkpool/zk-pool/store"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/kysee/zkpool/zk-pool/verifier"
	"github.com/kysee/zkpool/zk-pool/zk"
	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
)

// Pool wires the registry, the membership tree, the proof orchestrator and
// the withdrawal gate over one store.
type Pool struct {
	cfg          *Config
	denomination *uint256.Int

	st   *store.Store
	tree *merkle.Tree
	reg  *registry.Registry
	orch *prover.Orchestrator
	gate *verifier.WithdrawalGate

	// serializes tree insertion with persisting the leaf
	treeMtx sync.Mutex

	logger zerolog.Logger
}

// Open loads the verification key, opens the store and rebuilds the tree
// from the persisted leaves. Any configuration problem is an ErrConfig.
func Open(cfg *Config, backend zk.ProveBackend, logger zerolog.Logger) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	denom, err := cfg.DenominationValue()
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: no proving backend", types.ErrConfig)
	}
	if backend.Protocol() != cfg.ProvingScheme || backend.Depth() != cfg.TreeDepth {
		return nil, fmt.Errorf("%w: backend (%s, depth %d) does not match config (%s, depth %d)",
			types.ErrConfig, backend.Protocol(), backend.Depth(), cfg.ProvingScheme, cfg.TreeDepth)
	}

	orch, err := prover.NewFromFile(cfg.VerificationKeyPath, backend, prover.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	tree, err := merkle.New(cfg.TreeDepth, cfg.RootHistory)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConfig, err)
	}

	var st *store.Store
	if cfg.DataDir == "" {
		st, err = store.OpenMemory()
	} else {
		st, err = store.Open(cfg.DataDir)
	}
	if err != nil {
		return nil, err
	}

	if err := replayLeaves(st, tree); err != nil {
		_ = st.Close()
		return nil, err
	}

	reg := registry.New(st, registry.WithLogger(logger))
	p := &Pool{
		cfg:          cfg,
		denomination: denom,
		st:           st,
		tree:         tree,
		reg:          reg,
		orch:         orch,
		gate:         verifier.New(st, reg, tree, orch, verifier.WithLogger(logger)),
		logger:       logger,
	}

	logger.Info().Int("depth", cfg.TreeDepth).Uint64("leaves", tree.Len()).
		Str("root", tree.Root().Hex()).Str("scheme", cfg.ProvingScheme).Msg("pool opened")
	return p, nil
}

func replayLeaves(st *store.Store, tree *merkle.Tree) error {
	return st.Iterate([]byte(store.PrefixLeaf), func(key, value []byte) error {
		idx, err := store.ParseIndexKey(store.PrefixLeaf, key)
		if err != nil {
			return err
		}
		leaf, err := types.FieldFromBytes(value)
		if err != nil {
			return fmt.Errorf("corrupt leaf %d: %w", idx, err)
		}
		got, err := tree.Insert(leaf)
		if err != nil {
			return err
		}
		if got != idx {
			return fmt.Errorf("leaf %d replayed at index %d", idx, got)
		}
		return nil
	})
}

func (p *Pool) Close() error {
	return p.st.Close()
}

func (p *Pool) Denomination() *uint256.Int {
	return p.denomination.Clone()
}

func (p *Pool) Root() types.FieldElement {
	return p.tree.Root()
}

func (p *Pool) Registry() *registry.Registry {
	return p.reg
}

func (p *Pool) Tree() *merkle.Tree {
	return p.tree
}

func (p *Pool) Orchestrator() *prover.Orchestrator {
	return p.orch
}

func (p *Pool) Gate() *verifier.WithdrawalGate {
	return p.gate
}

// Insert appends leaf to the membership tree and persists it.
func (p *Pool) Insert(leaf types.FieldElement) (uint64, error) {
	p.treeMtx.Lock()
	defer p.treeMtx.Unlock()

	idx, err := p.nextLeafIndex()
	if err != nil {
		return 0, err
	}

	batch := p.st.NewBatch()
	batch.Put(store.LeafKey(idx), leaf[:])
	if err := p.appendLeaf(idx, leaf, batch); err != nil {
		return 0, err
	}
	return idx, nil
}

// nextLeafIndex returns the index the next leaf will take. Callers hold treeMtx.
func (p *Pool) nextLeafIndex() (uint64, error) {
	idx := p.tree.Len()
	if idx >= uint64(1)<<p.tree.Depth() {
		return 0, fmt.Errorf("%w: capacity %d", types.ErrTreeFull, uint64(1)<<p.tree.Depth())
	}
	return idx, nil
}

// appendLeaf writes batch, then adds leaf to the in-memory tree at idx.
// The tree never holds a leaf the store does not.
func (p *Pool) appendLeaf(idx uint64, leaf types.FieldElement, batch *leveldb.Batch) error {
	if err := p.st.Write(batch); err != nil {
		return err
	}
	got, err := p.tree.Insert(leaf)
	if err != nil {
		return err
	}
	if got != idx {
		return fmt.Errorf("leaf stored at %d but inserted at %d", idx, got)
	}
	return nil
}

// Deposit registers a commitment under the identity of to, inserts it into
// the tree and stores the deposit note sealed to to.
func (p *Pool) Deposit(to *jubjub.PublicKey, nullifier, secret []byte) (*types.DepositNote, error) {
	if to == nil || !to.A.IsOnCurve() {
		return nil, errors.New("deposit key is not on curve")
	}
	identity := types.Pub2Identity(to)

	p.treeMtx.Lock()
	defer p.treeMtx.Unlock()

	idx, err := p.nextLeafIndex()
	if err != nil {
		return nil, err
	}

	commitment, err := p.reg.Register(identity, nullifier, secret)
	if err != nil {
		return nil, err
	}

	note := &types.DepositNote{
		Version:      types.NoteVersion,
		Identity:     identity,
		Denomination: p.Denomination(),
		Nullifier:    nullifier,
		Secret:       secret,
		LeafIndex:    idx,
	}
	sealed, err := types.SealDepositNote(note, to)
	if err != nil {
		return nil, err
	}

	batch := p.st.NewBatch()
	batch.Put(store.LeafKey(idx), commitment[:])
	batch.Put(store.NoteKey(idx), sealed)
	if err := p.appendLeaf(idx, commitment, batch); err != nil {
		return nil, err
	}

	p.logger.Info().Str("identity", string(identity)).Uint64("index", idx).
		Str("commitment", commitment.Hex()).Msg("deposit")
	return note, nil
}

// Prove builds a withdrawal proof for note against the current root.
func (p *Pool) Prove(note *types.DepositNote) (*types.ProofResult, error) {
	mp, err := p.tree.Proof(note.LeafIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProving, err)
	}
	nh := note.NullifierHash(p.reg.CommitHash())
	return p.orch.BuildAndProve(mp, note.Secret, note.Nullifier, nh, nil)
}

func (p *Pool) Withdraw(req *types.WithdrawRequest) (*types.Receipt, error) {
	return p.gate.Withdraw(req)
}

// WithdrawNote proves note and withdraws it in one step.
func (p *Pool) WithdrawNote(note *types.DepositNote) (*types.Receipt, error) {
	ret, err := p.Prove(note)
	if err != nil {
		return nil, err
	}
	return p.Withdraw(&types.WithdrawRequest{
		Commitment:    note.Commitment(p.reg.CommitHash()),
		NullifierHash: note.NullifierHash(p.reg.CommitHash()),
		Proof:         ret.Proof,
		PublicSignals: ret.PublicSignals,
	})
}

func (p *Pool) Status(commitment types.Commitment) (verifier.State, error) {
	return p.gate.State(commitment)
}

// ScanNotes returns every stored deposit note prv can open, in leaf order.
// Notes sealed to other keys are skipped; a note that decrypts but does not
// decode is an error.
func (p *Pool) ScanNotes(prv *jubjub.PrivateKey) ([]*types.DepositNote, error) {
	var notes []*types.DepositNote
	err := p.st.Iterate([]byte(store.PrefixNote), func(key, value []byte) error {
		bz, err := crypto.Open(prv, value)
		if err != nil {
			// sealed to someone else
			return nil
		}
		note, err := types.DecodeDepositNote(bz)
		if err != nil {
			return fmt.Errorf("corrupt deposit note %s: %w", key, err)
		}
		notes = append(notes, note)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}
