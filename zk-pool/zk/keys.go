package zk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zkpool/zk-pool/types"
)

// VerificationKey is the persisted form of a gnark verifying key.
type VerificationKey struct {
	Protocol string        `json:"protocol"`
	Curve    string        `json:"curve"`
	Depth    int           `json:"depth"`
	NPublic  int           `json:"nPublic"`
	Key      hexutil.Bytes `json:"key"`

	groth16VK groth16.VerifyingKey
	plonkVK   plonk.VerifyingKey
}

func NewVerificationKey(protocol string, depth int, vk io.WriterTo) (*VerificationKey, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := vk.WriteTo(buf); err != nil {
		return nil, err
	}
	ret := &VerificationKey{
		Protocol: protocol,
		Curve:    CurveBN254,
		Depth:    depth,
		NPublic:  types.NumPublicSignals,
		Key:      buf.Bytes(),
	}
	if err := ret.init(); err != nil {
		return nil, err
	}
	return ret, nil
}

// ParseVerificationKey decodes the JSON form and the embedded gnark key.
func ParseVerificationKey(bz []byte) (*VerificationKey, error) {
	vk := &VerificationKey{}
	if err := json.Unmarshal(bz, vk); err != nil {
		return nil, fmt.Errorf("%w: verification key: %v", types.ErrConfig, err)
	}
	if err := vk.init(); err != nil {
		return nil, fmt.Errorf("%w: verification key: %v", types.ErrConfig, err)
	}
	return vk, nil
}

func LoadVerificationKey(path string) (*VerificationKey, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: verification key: %v", types.ErrConfig, err)
	}
	return ParseVerificationKey(bz)
}

func (vk *VerificationKey) Save(path string) error {
	bz, err := json.MarshalIndent(vk, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0o644)
}

func (vk *VerificationKey) init() error {
	if vk.Curve != CurveBN254 {
		return fmt.Errorf("unsupported curve: %q", vk.Curve)
	}
	if vk.NPublic != types.NumPublicSignals {
		return fmt.Errorf("wrong number of public inputs: expected(%d), got(%d)", types.NumPublicSignals, vk.NPublic)
	}
	if vk.Depth <= 0 {
		return fmt.Errorf("invalid depth: %d", vk.Depth)
	}
	if len(vk.Key) == 0 {
		return fmt.Errorf("empty key")
	}

	var err error
	switch vk.Protocol {
	case ProtocolGroth16:
		vk.groth16VK = groth16.NewVerifyingKey(ecc.BN254)
		_, err = vk.groth16VK.ReadFrom(bytes.NewReader(vk.Key))
	case ProtocolPlonk:
		vk.plonkVK = plonk.NewVerifyingKey(ecc.BN254)
		_, err = vk.plonkVK.ReadFrom(bytes.NewReader(vk.Key))
	default:
		err = fmt.Errorf("unknown proving protocol: %q", vk.Protocol)
	}
	return err
}

// Verify checks proof against the public signals. A proof that does not
// verify yields (false, nil); unreadable signals or proof bytes yield an error.
func (vk *VerificationKey) Verify(signals types.PublicSignals, proof []byte) (bool, error) {
	root, nullifierHash, err := signals.Parse()
	if err != nil {
		return false, err
	}

	pubWtn, err := frontend.NewWitness(publicAssignment(vk.Depth, root, nullifierHash), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, err
	}

	switch vk.Protocol {
	case ProtocolGroth16:
		p := groth16.NewProof(ecc.BN254)
		if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
			return false, fmt.Errorf("malformed proof: %w", err)
		}
		if err := groth16.Verify(p, vk.groth16VK, pubWtn); err != nil {
			return false, nil
		}
	case ProtocolPlonk:
		p := plonk.NewProof(ecc.BN254)
		if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
			return false, fmt.Errorf("malformed proof: %w", err)
		}
		if err := plonk.Verify(p, vk.plonkVK, pubWtn); err != nil {
			return false, nil
		}
	default:
		return false, fmt.Errorf("unknown proving protocol: %q", vk.Protocol)
	}
	return true, nil
}

// ExportSolidity writes an on-chain verifier contract for this key.
func (vk *VerificationKey) ExportSolidity(w io.Writer) error {
	switch vk.Protocol {
	case ProtocolGroth16:
		return vk.groth16VK.ExportSolidity(w)
	case ProtocolPlonk:
		return vk.plonkVK.ExportSolidity(w)
	}
	return fmt.Errorf("unknown proving protocol: %q", vk.Protocol)
}
