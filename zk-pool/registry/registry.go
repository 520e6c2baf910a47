package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/kysee/zkpool/utils"
	"github.com/kysee/zkpool/zk-pool/store"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/rs/zerolog"
)

// Registry issues commitments bound to identity keys. It keeps the
// per-identity nullifier sets and the commitment -> nullifier hash table.
type Registry struct {
	st     *store.Store
	hasher types.CommitHash

	identityLocks   *utils.KeyedMutex
	commitmentLocks *utils.KeyedMutex

	logger zerolog.Logger
}

type Option func(*Registry)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

func WithCommitHash(h types.CommitHash) Option {
	return func(r *Registry) {
		r.hasher = h
	}
}

func New(st *store.Store, opts ...Option) *Registry {
	r := &Registry{
		st:              st,
		hasher:          types.DefaultCommitHash,
		identityLocks:   utils.NewKeyedMutex(),
		commitmentLocks: utils.NewKeyedMutex(),
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates the commitment of (nullifierSecret, ownerSecret) under
// identity. A rejected call leaves no trace in the store.
func (r *Registry) Register(identity types.IdentityKey, nullifierSecret, ownerSecret []byte) (types.Commitment, error) {
	if identity == "" {
		return types.Commitment{}, errors.New("empty identity key")
	}
	if !types.ValidateSecret(nullifierSecret) {
		return types.Commitment{}, fmt.Errorf("%w: nullifier secret must be 1..%d bytes", types.ErrInvalidSecret, types.MaxSecretSize)
	}
	if !types.ValidateSecret(ownerSecret) {
		return types.Commitment{}, fmt.Errorf("%w: owner secret must be 1..%d bytes", types.ErrInvalidSecret, types.MaxSecretSize)
	}

	nh := types.ComputeNullifierHash(r.hasher, nullifierSecret)
	commitment := types.ComputeCommitment(r.hasher, nullifierSecret, ownerSecret)

	unlockID := r.identityLocks.Lock(string(identity))
	defer unlockID()

	nfKey := store.NullifierKey(string(identity), nh[:])
	if ok, err := r.st.Has(nfKey); err != nil {
		return types.Commitment{}, err
	} else if ok {
		return types.Commitment{}, fmt.Errorf("%w: identity %s, nullifier hash %s", types.ErrDuplicateNullifier, identity, nh.Hex())
	}

	unlockCM := r.commitmentLocks.Lock(commitment.Hex())
	defer unlockCM()

	cmKey := store.CommitmentKey(commitment[:])
	if ok, err := r.st.Has(cmKey); err != nil {
		return types.Commitment{}, err
	} else if ok {
		return types.Commitment{}, fmt.Errorf("%w: %s", types.ErrDuplicateCommitment, commitment.Hex())
	}

	rec := &types.CommitmentRecord{
		Identity:      string(identity),
		NullifierHash: nh[:],
		CreatedAt:     uint64(time.Now().Unix()),
	}

	batch := r.st.NewBatch()
	batch.Put(nfKey, []byte{1})
	batch.Put(cmKey, rec.Bytes())
	if err := r.st.Write(batch); err != nil {
		return types.Commitment{}, err
	}

	r.logger.Debug().Str("identity", string(identity)).Str("commitment", commitment.Hex()).Msg("commitment registered")
	return commitment, nil
}

// Lookup returns the record of commitment or types.ErrNotFound.
func (r *Registry) Lookup(commitment types.Commitment) (*types.CommitmentRecord, error) {
	bz, err := r.st.Get(store.CommitmentKey(commitment[:]))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, commitment.Hex())
	} else if err != nil {
		return nil, err
	}
	return types.DecodeCommitmentRecord(bz)
}

func (r *Registry) HasNullifier(identity types.IdentityKey, nh types.NullifierHash) (bool, error) {
	return r.st.Has(store.NullifierKey(string(identity), nh[:]))
}

func (r *Registry) NullifierCount(identity types.IdentityKey) (int, error) {
	return r.st.Count(store.NullifierSetPrefix(string(identity)))
}

func (r *Registry) CommitmentCount() (int, error) {
	return r.st.Count([]byte(store.PrefixCommitment))
}

// CommitmentLocks is the per-commitment mutex set. The withdrawal gate must
// share it so a commitment is never created and spent concurrently.
func (r *Registry) CommitmentLocks() *utils.KeyedMutex {
	return r.commitmentLocks
}

func (r *Registry) CommitHash() types.CommitHash {
	return r.hasher
}
