package prover

import (
	"fmt"

	"github.com/kysee/zkpool/zk-pool/merkle"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/kysee/zkpool/zk-pool/zk"
	"github.com/rs/zerolog"
)

// Orchestrator assembles withdrawal witnesses, hands them to a proving
// backend and verifies proofs against the verification key it was built with.
type Orchestrator struct {
	vk      *zk.VerificationKey
	backend zk.ProveBackend
	hasher  types.CommitHash
	logger  zerolog.Logger
}

type Option func(*Orchestrator)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

func WithCommitHash(h types.CommitHash) Option {
	return func(o *Orchestrator) {
		o.hasher = h
	}
}

func New(vk *zk.VerificationKey, backend zk.ProveBackend, opts ...Option) (*Orchestrator, error) {
	if vk == nil {
		return nil, fmt.Errorf("%w: no verification key", types.ErrConfig)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: no proving backend", types.ErrConfig)
	}
	if err := checkBackend(vk, backend); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConfig, err)
	}

	o := &Orchestrator{
		vk:      vk,
		backend: backend,
		hasher:  types.DefaultCommitHash,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// checkBackend rejects a backend whose proofs vk could never accept.
func checkBackend(vk *zk.VerificationKey, backend zk.ProveBackend) error {
	if vk.Protocol != backend.Protocol() || vk.Depth != backend.Depth() {
		return fmt.Errorf("verification key (%s, depth %d) does not match backend (%s, depth %d)",
			vk.Protocol, vk.Depth, backend.Protocol(), backend.Depth())
	}
	return nil
}

// NewFromFile loads the verification key once and keeps it for the
// lifetime of the orchestrator.
func NewFromFile(vkPath string, backend zk.ProveBackend, opts ...Option) (*Orchestrator, error) {
	vk, err := zk.LoadVerificationKey(vkPath)
	if err != nil {
		return nil, err
	}
	return New(vk, backend, opts...)
}

func (o *Orchestrator) VerificationKey() *zk.VerificationKey {
	return o.vk
}

// BuildAndProve proves that the leaf hash(secretNullifier, secretOwner) sits
// under mp.Root. A nil backend means the orchestrator's own.
func (o *Orchestrator) BuildAndProve(
	mp *types.MerkleProof,
	secretOwner, secretNullifier []byte,
	nullifierHash types.NullifierHash,
	backend zk.ProveBackend,
) (*types.ProofResult, error) {
	if backend == nil {
		backend = o.backend
	} else if err := checkBackend(o.vk, backend); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProving, err)
	}

	w, err := o.buildWitness(mp, secretOwner, secretNullifier, nullifierHash, backend.Depth())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProving, err)
	}

	ret, err := backend.FullProve(w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProving, err)
	}

	o.logger.Debug().Str("root", w.Root.Hex()).Str("nullifierHash", w.NullifierHash.Hex()).Msg("withdrawal proof built")
	return ret, nil
}

func (o *Orchestrator) buildWitness(
	mp *types.MerkleProof,
	secretOwner, secretNullifier []byte,
	nullifierHash types.NullifierHash,
	depth int,
) (*types.Witness, error) {
	if mp == nil {
		return nil, fmt.Errorf("no membership proof")
	}
	if !types.ValidateSecret(secretOwner) || !types.ValidateSecret(secretNullifier) {
		return nil, fmt.Errorf("%w: secrets must be 1..%d bytes", types.ErrInvalidSecret, types.MaxSecretSize)
	}
	if len(mp.PathElements) != depth || len(mp.PathIndices) != depth {
		return nil, fmt.Errorf("path length mismatch: tree depth %d, got %d elements and %d indices",
			depth, len(mp.PathElements), len(mp.PathIndices))
	}
	if nh := types.ComputeNullifierHash(o.hasher, secretNullifier); nh != nullifierHash {
		return nil, fmt.Errorf("nullifier hash %s is not derived from the nullifier secret", nullifierHash.Hex())
	}

	// the circuit would reject it anyway; fail before paying for the prover
	leaf := types.ComputeCommitment(o.hasher, secretNullifier, secretOwner)
	if !merkle.VerifyProof(leaf, mp) {
		return nil, fmt.Errorf("commitment %s does not fold to root %s", leaf.Hex(), mp.Root.Hex())
	}

	return &types.Witness{
		Root:          mp.Root,
		NullifierHash: nullifierHash,
		Secret:        types.SecretField(secretOwner),
		Nullifier:     types.SecretField(secretNullifier),
		PathElements:  mp.PathElements,
		PathIndices:   mp.PathIndices,
	}, nil
}

// Verify reports whether proof is valid for signals. It errors only on
// malformed input; a proof that simply does not verify returns false.
func (o *Orchestrator) Verify(signals types.PublicSignals, proof []byte) (bool, error) {
	return o.backend.Verify(o.vk, signals, proof)
}
