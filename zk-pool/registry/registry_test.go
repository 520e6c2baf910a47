package registry_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kysee/zkpool/zk-pool/registry"
	"github.com/kysee/zkpool/zk-pool/store"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *registry.Registry {
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return registry.New(st)
}

func TestRegister(t *testing.T) {
	reg := newRegistry(t)
	idA := types.IdentityKey("identity-A")

	c1, err := reg.Register(idA, []byte("N1"), []byte("S1"))
	require.NoError(t, err)
	require.Equal(t, types.ComputeCommitment(types.DefaultCommitHash, []byte("N1"), []byte("S1")), c1)

	rec, err := reg.Lookup(c1)
	require.NoError(t, err)
	require.Equal(t, string(idA), rec.Identity)
	require.Equal(t, types.ComputeNullifierHash(types.DefaultCommitHash, []byte("N1")), rec.Nullifier())

	ok, err := reg.HasNullifier(idA, rec.Nullifier())
	require.NoError(t, err)
	require.True(t, ok)

	// the same nullifier secret again, with another owner secret
	_, err = reg.Register(idA, []byte("N1"), []byte("S2"))
	require.ErrorIs(t, err, types.ErrDuplicateNullifier)

	cnt, err := reg.CommitmentCount()
	require.NoError(t, err)
	require.Equal(t, 1, cnt)
	cnt, err = reg.NullifierCount(idA)
	require.NoError(t, err)
	require.Equal(t, 1, cnt)

	// rejected call left nothing behind
	_, err = reg.Lookup(types.ComputeCommitment(types.DefaultCommitHash, []byte("N1"), []byte("S2")))
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestRegisterReplayEveryIdentity(t *testing.T) {
	reg := newRegistry(t)

	for i := 0; i < 10; i++ {
		id := types.IdentityKey(fmt.Sprintf("identity-%d", i))
		n := []byte(fmt.Sprintf("nullifier-%d", i))

		_, err := reg.Register(id, n, []byte("secret"))
		require.NoError(t, err)
		_, err = reg.Register(id, n, []byte("secret"))
		require.ErrorIs(t, err, types.ErrDuplicateNullifier)
	}

	cnt, err := reg.CommitmentCount()
	require.NoError(t, err)
	require.Equal(t, 10, cnt)
}

func TestRegisterAcrossIdentities(t *testing.T) {
	reg := newRegistry(t)

	// colliding nullifiers are fine across identities
	cA, err := reg.Register("A", []byte("N1"), []byte("S1"))
	require.NoError(t, err)
	cB, err := reg.Register("B", []byte("N1"), []byte("S2"))
	require.NoError(t, err)
	require.NotEqual(t, cA, cB)

	// but one commitment value is never created twice
	_, err = reg.Register("C", []byte("N1"), []byte("S1"))
	require.ErrorIs(t, err, types.ErrDuplicateCommitment)

	cnt, err := reg.NullifierCount("C")
	require.NoError(t, err)
	require.Equal(t, 0, cnt)
	cnt, err = reg.CommitmentCount()
	require.NoError(t, err)
	require.Equal(t, 2, cnt)
}

func TestRegisterInvalidInput(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Register("A", nil, []byte("S1"))
	require.ErrorIs(t, err, types.ErrInvalidSecret)
	_, err = reg.Register("A", []byte("N1"), make([]byte, types.MaxSecretSize+1))
	require.ErrorIs(t, err, types.ErrInvalidSecret)
	_, err = reg.Register("", []byte("N1"), []byte("S1"))
	require.Error(t, err)

	cnt, err := reg.CommitmentCount()
	require.NoError(t, err)
	require.Equal(t, 0, cnt)
}

func TestRegisterConcurrent(t *testing.T) {
	reg := newRegistry(t)

	var wg sync.WaitGroup
	var okCnt, dupCnt int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Register("A", []byte("N1"), []byte(fmt.Sprintf("S%d", i)))
			switch {
			case err == nil:
				atomic.AddInt32(&okCnt, 1)
			case errors.Is(err, types.ErrDuplicateNullifier):
				atomic.AddInt32(&dupCnt, 1)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), okCnt)
	require.Equal(t, int32(15), dupCnt)
	require.Equal(t, 0, reg.CommitmentLocks().Len())

	cnt, err := reg.CommitmentCount()
	require.NoError(t, err)
	require.Equal(t, 1, cnt)
}
