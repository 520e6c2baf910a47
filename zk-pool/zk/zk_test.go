package zk_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	"github.com/kysee/zkpool/zk-pool/merkle"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/kysee/zkpool/zk-pool/zk"
	"github.com/stretchr/testify/require"
)

const testDepth = 4

func testWitness(t *testing.T) *types.Witness {
	nullifier, secret := []byte("nullifier-1"), []byte("secret-1")
	c := types.ComputeCommitment(types.DefaultCommitHash, nullifier, secret)

	tree, err := merkle.NewWithLeaves(testDepth, []types.FieldElement{
		types.MustField("123"), types.MustField("456"), c, types.MustField("789"),
	})
	require.NoError(t, err)

	mp, err := tree.Proof(2)
	require.NoError(t, err)

	return &types.Witness{
		Root:          mp.Root,
		NullifierHash: types.ComputeNullifierHash(types.DefaultCommitHash, nullifier),
		Secret:        types.SecretField(secret),
		Nullifier:     types.SecretField(nullifier),
		PathElements:  mp.PathElements,
		PathIndices:   mp.PathIndices,
	}
}

func TestCircuitSolved(t *testing.T) {
	w := testWitness(t)
	require.NoError(t, test.IsSolved(zk.NewWithdrawCircuit(testDepth), zk.Assign(w), ecc.BN254.ScalarField()))

	// wrong nullifier hash
	bad := *w
	bad.NullifierHash = types.MustField("1")
	require.Error(t, test.IsSolved(zk.NewWithdrawCircuit(testDepth), zk.Assign(&bad), ecc.BN254.ScalarField()))

	// wrong root
	bad = *w
	bad.Root = types.MustField("1")
	require.Error(t, test.IsSolved(zk.NewWithdrawCircuit(testDepth), zk.Assign(&bad), ecc.BN254.ScalarField()))

	// path index that is not a bit
	bad = *w
	bad.PathIndices = append([]uint8{}, w.PathIndices...)
	bad.PathIndices[0] = 2
	require.Error(t, test.IsSolved(zk.NewWithdrawCircuit(testDepth), zk.Assign(&bad), ecc.BN254.ScalarField()))
}

func TestProveVerify(t *testing.T) {
	for _, protocol := range []string{zk.ProtocolGroth16, zk.ProtocolPlonk} {
		t.Run(protocol, func(t *testing.T) {
			backend, vk, err := zk.Setup(protocol, testDepth)
			require.NoError(t, err)
			require.Equal(t, protocol, backend.Protocol())
			require.Equal(t, testDepth, backend.Depth())

			w := testWitness(t)
			ret, err := backend.FullProve(w)
			require.NoError(t, err)
			require.Equal(t, types.NewPublicSignals(w.Root, w.NullifierHash), ret.PublicSignals)

			ok, err := backend.Verify(vk, ret.PublicSignals, ret.Proof)
			require.NoError(t, err)
			require.True(t, ok)

			// another nullifier hash in the signals
			ok, err = backend.Verify(vk, types.NewPublicSignals(w.Root, types.MustField("7")), ret.Proof)
			require.NoError(t, err)
			require.False(t, ok)

			// another root
			ok, err = backend.Verify(vk, types.NewPublicSignals(types.MustField("7"), w.NullifierHash), ret.Proof)
			require.NoError(t, err)
			require.False(t, ok)

			// malformed input
			_, err = backend.Verify(vk, types.PublicSignals{"1"}, ret.Proof)
			require.Error(t, err)
			_, err = backend.Verify(vk, types.PublicSignals{"x", "y"}, ret.Proof)
			require.Error(t, err)
			_, err = backend.Verify(vk, ret.PublicSignals, []byte{0x1, 0x2, 0x3})
			require.Error(t, err)
		})
	}
}

func TestProveWrongDepth(t *testing.T) {
	backend, _, err := zk.Setup(zk.ProtocolGroth16, testDepth+1)
	require.NoError(t, err)

	_, err = backend.FullProve(testWitness(t))
	require.ErrorContains(t, err, "path length mismatch")
}

func TestKeyPersistence(t *testing.T) {
	dir := t.TempDir()
	pkPath := filepath.Join(dir, "withdraw.pk")
	vkPath := filepath.Join(dir, "withdraw.vk.json")

	backend, vk, err := zk.Setup(zk.ProtocolGroth16, testDepth)
	require.NoError(t, err)
	require.NoError(t, backend.WriteProvingKey(pkPath))
	require.NoError(t, vk.Save(vkPath))

	loadedVK, err := zk.LoadVerificationKey(vkPath)
	require.NoError(t, err)
	require.Equal(t, zk.ProtocolGroth16, loadedVK.Protocol)
	require.Equal(t, zk.CurveBN254, loadedVK.Curve)
	require.Equal(t, testDepth, loadedVK.Depth)
	require.Equal(t, types.NumPublicSignals, loadedVK.NPublic)
	require.Equal(t, vk.Key, loadedVK.Key)

	loaded, err := zk.Load(zk.ProtocolGroth16, testDepth, pkPath)
	require.NoError(t, err)

	ret, err := loaded.FullProve(testWitness(t))
	require.NoError(t, err)
	ok, err := loaded.Verify(loadedVK, ret.PublicSignals, ret.Proof)
	require.NoError(t, err)
	require.True(t, ok)

	var sol strings.Builder
	require.NoError(t, loadedVK.ExportSolidity(&sol))
	require.Contains(t, sol.String(), "pragma solidity")
}

func TestLoadVerificationKeyErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := zk.LoadVerificationKey(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, types.ErrConfig)

	cases := map[string]string{
		"garbage":  `{not json`,
		"protocol": `{"protocol":"stark","curve":"bn254","depth":4,"nPublic":2,"key":"0x01"}`,
		"curve":    `{"protocol":"groth16","curve":"bls12-381","depth":4,"nPublic":2,"key":"0x01"}`,
		"npublic":  `{"protocol":"groth16","curve":"bn254","depth":4,"nPublic":3,"key":"0x01"}`,
		"depth":    `{"protocol":"groth16","curve":"bn254","depth":0,"nPublic":2,"key":"0x01"}`,
		"key":      `{"protocol":"groth16","curve":"bn254","depth":4,"nPublic":2,"key":"0x0102"}`,
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		_, err := zk.LoadVerificationKey(path)
		require.ErrorIs(t, err, types.ErrConfig, name)
	}
}

func TestProofData(t *testing.T) {
	w := testWitness(t)
	ret := &types.ProofResult{
		Proof:         []byte{0xde, 0xad},
		PublicSignals: types.NewPublicSignals(w.Root, w.NullifierHash),
	}

	pd, err := zk.NewProofData(ret)
	require.NoError(t, err)
	require.Equal(t, []string{"0xdead"}, pd.Proof)
	require.Equal(t, []string{"0x" + w.Root.Hex(), "0x" + w.NullifierHash.Hex()}, pd.PublicInputs)

	_, err = zk.NewProofData(&types.ProofResult{PublicSignals: types.PublicSignals{"1"}})
	require.Error(t, err)
}
