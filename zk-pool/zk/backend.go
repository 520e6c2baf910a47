package zk

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/rs/zerolog"
)

const (
	ProtocolGroth16 = "groth16"
	ProtocolPlonk   = "plonk"
	CurveBN254      = "bn254"
)

// ProveBackend turns a witness into a proof and checks proofs against a
// verification key. Verify returns (false, nil) for a well-formed but
// invalid proof and an error only for malformed input.
type ProveBackend interface {
	Protocol() string
	Depth() int
	FullProve(w *types.Witness) (*types.ProofResult, error)
	Verify(vk *VerificationKey, signals types.PublicSignals, proof []byte) (bool, error)
}

type Option func(*Backend)

// WithLogger routes the gnark solver logs to l.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// Backend is the gnark implementation of ProveBackend over BN254.
type Backend struct {
	protocol string
	depth    int
	ccs      constraint.ConstraintSystem

	groth16PK groth16.ProvingKey
	plonkPK   plonk.ProvingKey

	logger zerolog.Logger
}

var _ ProveBackend = (*Backend)(nil)

func CompileCircuit(protocol string, depth int) (constraint.ConstraintSystem, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("invalid circuit depth: %d", depth)
	}
	switch protocol {
	case ProtocolGroth16:
		return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, NewWithdrawCircuit(depth))
	case ProtocolPlonk:
		return frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, NewWithdrawCircuit(depth))
	default:
		return nil, fmt.Errorf("unknown proving protocol: %q", protocol)
	}
}

// Setup compiles the circuit and runs a fresh trusted setup.
// The PLONK SRS comes from unsafekzg and is only fit for testing.
func Setup(protocol string, depth int, opts ...Option) (*Backend, *VerificationKey, error) {
	ccs, err := CompileCircuit(protocol, depth)
	if err != nil {
		return nil, nil, err
	}
	b := newBackend(protocol, depth, ccs, opts)

	var vk io.WriterTo
	switch protocol {
	case ProtocolGroth16:
		pk, _vk, err := groth16.Setup(ccs)
		if err != nil {
			return nil, nil, err
		}
		b.groth16PK, vk = pk, _vk
	case ProtocolPlonk:
		srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
		if err != nil {
			return nil, nil, err
		}
		pk, _vk, err := plonk.Setup(ccs, srs, srsLagrange)
		if err != nil {
			return nil, nil, err
		}
		b.plonkPK, vk = pk, _vk
	}

	vkey, err := NewVerificationKey(protocol, depth, vk)
	if err != nil {
		return nil, nil, err
	}
	b.logger.Info().Str("protocol", protocol).Int("depth", depth).
		Int("constraints", ccs.GetNbConstraints()).Msg("circuit setup done")
	return b, vkey, nil
}

// Load recompiles the circuit and reads the proving key written by
// WriteProvingKey. Compilation is deterministic, so the key matches.
func Load(protocol string, depth int, pkPath string, opts ...Option) (*Backend, error) {
	ccs, err := CompileCircuit(protocol, depth)
	if err != nil {
		return nil, err
	}
	b := newBackend(protocol, depth, ccs, opts)

	f, err := os.Open(pkPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch protocol {
	case ProtocolGroth16:
		b.groth16PK = groth16.NewProvingKey(ecc.BN254)
		_, err = b.groth16PK.ReadFrom(f)
	case ProtocolPlonk:
		b.plonkPK = plonk.NewProvingKey(ecc.BN254)
		_, err = b.plonkPK.ReadFrom(f)
	}
	if err != nil {
		return nil, fmt.Errorf("read proving key %s: %w", pkPath, err)
	}
	return b, nil
}

func newBackend(protocol string, depth int, ccs constraint.ConstraintSystem, opts []Option) *Backend {
	b := &Backend{
		protocol: protocol,
		depth:    depth,
		ccs:      ccs,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Protocol() string {
	return b.protocol
}

func (b *Backend) Depth() int {
	return b.depth
}

func (b *Backend) WriteProvingKey(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch b.protocol {
	case ProtocolGroth16:
		_, err = b.groth16PK.WriteTo(f)
	case ProtocolPlonk:
		_, err = b.plonkPK.WriteTo(f)
	}
	return err
}

func (b *Backend) FullProve(w *types.Witness) (*types.ProofResult, error) {
	if len(w.PathElements) != b.depth || len(w.PathIndices) != b.depth {
		return nil, fmt.Errorf("path length mismatch: circuit depth %d, got %d elements and %d indices",
			b.depth, len(w.PathElements), len(w.PathIndices))
	}

	wtn, err := frontend.NewWitness(Assign(w), ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	opt := backend.WithSolverOptions(solver.WithLogger(b.logger))

	var proof io.WriterTo
	switch b.protocol {
	case ProtocolGroth16:
		proof, err = groth16.Prove(b.ccs, b.groth16PK, wtn, opt)
	case ProtocolPlonk:
		proof, err = plonk.Prove(b.ccs, b.plonkPK, wtn, opt)
	default:
		err = fmt.Errorf("unknown proving protocol: %q", b.protocol)
	}
	if err != nil {
		return nil, err
	}

	bufProof := bytes.NewBuffer(nil)
	if _, err := proof.WriteTo(bufProof); err != nil {
		return nil, err
	}

	return &types.ProofResult{
		Proof:         bufProof.Bytes(),
		PublicSignals: types.NewPublicSignals(w.Root, w.NullifierHash),
	}, nil
}

func (b *Backend) Verify(vk *VerificationKey, signals types.PublicSignals, proof []byte) (bool, error) {
	if vk.Protocol != b.protocol {
		return false, fmt.Errorf("verification key protocol %q does not match backend %q", vk.Protocol, b.protocol)
	}
	return vk.Verify(signals, proof)
}

// Assign maps a witness onto the circuit's variables.
func Assign(w *types.Witness) *WithdrawCircuit {
	cc := NewWithdrawCircuit(len(w.PathElements))
	cc.Root = w.Root.BigInt()
	cc.NullifierHash = w.NullifierHash.BigInt()
	cc.Secret = w.Secret.BigInt()
	cc.Nullifier = w.Nullifier.BigInt()
	for i, e := range w.PathElements {
		cc.PathElements[i] = e.BigInt()
	}
	cc.PathIndices = make([]frontend.Variable, len(w.PathIndices))
	for i, bit := range w.PathIndices {
		cc.PathIndices[i] = uint64(bit)
	}
	return cc
}

func publicAssignment(depth int, root, nullifierHash types.FieldElement) *WithdrawCircuit {
	cc := NewWithdrawCircuit(depth)
	cc.Root = root.BigInt()
	cc.NullifierHash = nullifierHash.BigInt()
	cc.Secret, cc.Nullifier = big.NewInt(0), big.NewInt(0)
	for i := 0; i < depth; i++ {
		cc.PathElements[i], cc.PathIndices[i] = big.NewInt(0), big.NewInt(0)
	}
	return cc
}
