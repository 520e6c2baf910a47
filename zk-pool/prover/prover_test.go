package prover_test

import (
	"path/filepath"
	"testing"

	"github.com/kysee/zkpool/zk-pool/merkle"
	"github.com/kysee/zkpool/zk-pool/prover"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/kysee/zkpool/zk-pool/zk"
	"github.com/stretchr/testify/require"
)

const treeDepth = 4

var (
	backend *zk.Backend
	vkey    *zk.VerificationKey

	nullifier = []byte("N1")
	secret    = []byte("S1")
)

func init() {
	var err error
	backend, vkey, err = zk.Setup(zk.ProtocolGroth16, treeDepth)
	if err != nil {
		panic(err)
	}
}

func membership(t *testing.T) (*types.MerkleProof, types.NullifierHash) {
	c := types.ComputeCommitment(types.DefaultCommitHash, nullifier, secret)
	tree, err := merkle.NewWithLeaves(treeDepth, []types.FieldElement{
		types.MustField("123"), types.MustField("456"), c, types.MustField("789"),
	})
	require.NoError(t, err)

	idx, ok := tree.IndexOf(c)
	require.True(t, ok)
	require.Equal(t, uint64(2), idx)

	mp, err := tree.Proof(idx)
	require.NoError(t, err)
	return mp, types.ComputeNullifierHash(types.DefaultCommitHash, nullifier)
}

func TestBuildAndProveRoundTrip(t *testing.T) {
	o, err := prover.New(vkey, backend)
	require.NoError(t, err)

	mp, nh := membership(t)
	ret, err := o.BuildAndProve(mp, secret, nullifier, nh, nil)
	require.NoError(t, err)
	require.Equal(t, types.NewPublicSignals(mp.Root, nh), ret.PublicSignals)

	ok, err := o.Verify(ret.PublicSignals, ret.Proof)
	require.NoError(t, err)
	require.True(t, ok)

	// corrupted root
	ok, err = o.Verify(types.NewPublicSignals(types.MustField("1"), nh), ret.Proof)
	require.NoError(t, err)
	require.False(t, ok)

	// corrupted nullifier hash
	ok, err = o.Verify(types.NewPublicSignals(mp.Root, types.MustField("1")), ret.Proof)
	require.NoError(t, err)
	require.False(t, ok)

	// a second proof of the same statement verifies too
	other, err := o.BuildAndProve(mp, secret, nullifier, nh, backend)
	require.NoError(t, err)
	ok, err = o.Verify(ret.PublicSignals, other.Proof)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBuildAndProveRejectsBadWitness(t *testing.T) {
	o, err := prover.New(vkey, backend)
	require.NoError(t, err)

	mp, nh := membership(t)

	// corrupted path element
	bad := *mp
	bad.PathElements = append([]types.FieldElement{}, mp.PathElements...)
	bad.PathElements[1] = types.MustField("42")
	_, err = o.BuildAndProve(&bad, secret, nullifier, nh, nil)
	require.ErrorIs(t, err, types.ErrProving)

	// path shorter than the tree
	bad = *mp
	bad.PathElements = mp.PathElements[:treeDepth-1]
	bad.PathIndices = mp.PathIndices[:treeDepth-1]
	_, err = o.BuildAndProve(&bad, secret, nullifier, nh, nil)
	require.ErrorIs(t, err, types.ErrProving)

	// wrong owner secret
	_, err = o.BuildAndProve(mp, []byte("S2"), nullifier, nh, nil)
	require.ErrorIs(t, err, types.ErrProving)

	// nullifier hash of another secret
	_, err = o.BuildAndProve(mp, secret, nullifier, types.ComputeNullifierHash(types.DefaultCommitHash, []byte("N2")), nil)
	require.ErrorIs(t, err, types.ErrProving)

	_, err = o.BuildAndProve(nil, secret, nullifier, nh, nil)
	require.ErrorIs(t, err, types.ErrProving)
}

func TestVerifyMalformed(t *testing.T) {
	o, err := prover.New(vkey, backend)
	require.NoError(t, err)

	mp, nh := membership(t)
	ret, err := o.BuildAndProve(mp, secret, nullifier, nh, nil)
	require.NoError(t, err)

	_, err = o.Verify(types.PublicSignals{mp.Root.String()}, ret.Proof)
	require.Error(t, err)
	_, err = o.Verify(ret.PublicSignals, []byte("garbage"))
	require.Error(t, err)
}

func TestNewConfigErrors(t *testing.T) {
	_, err := prover.New(nil, backend)
	require.ErrorIs(t, err, types.ErrConfig)

	_, err = prover.NewFromFile(filepath.Join(t.TempDir(), "missing.json"), backend)
	require.ErrorIs(t, err, types.ErrConfig)

	other, otherVK, err := zk.Setup(zk.ProtocolGroth16, treeDepth+1)
	require.NoError(t, err)
	_, err = prover.New(otherVK, backend)
	require.ErrorIs(t, err, types.ErrConfig)
	_, err = prover.New(vkey, other)
	require.ErrorIs(t, err, types.ErrConfig)

	path := filepath.Join(t.TempDir(), "vk.json")
	require.NoError(t, vkey.Save(path))
	o, err := prover.NewFromFile(path, backend)
	require.NoError(t, err)
	require.Equal(t, vkey.Key, o.VerificationKey().Key)
}

func TestBuildAndProveForeignBackend(t *testing.T) {
	o, err := prover.New(vkey, backend)
	require.NoError(t, err)
	mp, nh := membership(t)

	// same depth, other scheme
	plonkBackend, _, err := zk.Setup(zk.ProtocolPlonk, treeDepth)
	require.NoError(t, err)
	_, err = o.BuildAndProve(mp, secret, nullifier, nh, plonkBackend)
	require.ErrorIs(t, err, types.ErrProving)

	// same scheme, other depth
	deeper, _, err := zk.Setup(zk.ProtocolGroth16, treeDepth+1)
	require.NoError(t, err)
	_, err = o.BuildAndProve(mp, secret, nullifier, nh, deeper)
	require.ErrorIs(t, err, types.ErrProving)
	require.ErrorContains(t, err, "does not match backend")
}
