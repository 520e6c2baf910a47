package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	ok, err := s.Has([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBatchAndPrefix(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	b := s.NewBatch()
	b.Put(NullifierKey("alice", []byte{1}), []byte{})
	b.Put(NullifierKey("alice", []byte{2}), []byte{})
	b.Put(NullifierKey("bob", []byte{1}), []byte{})
	b.Put(CommitmentKey([]byte{0xaa}), []byte("rec"))
	require.NoError(t, s.Write(b))

	n, err := s.Count(NullifierSetPrefix("alice"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = s.Count([]byte(PrefixNullifier))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = s.Count([]byte(PrefixCommitment))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestIndexKeysSortInOrder(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	for _, i := range []uint64{10, 2, 1, 100} {
		require.NoError(t, s.Put(LeafKey(i), []byte{byte(i)}))
	}

	var got []uint64
	err = s.Iterate([]byte(PrefixLeaf), func(k, _ []byte) error {
		i, err := ParseIndexKey(PrefixLeaf, k)
		got = append(got, i)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 10, 100}, got)

	_, err = ParseIndexKey(PrefixLeaf, NoteKey(1))
	require.ErrorContains(t, err, "invalid lf key")
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(SpentKey([]byte{1}), []byte("x")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(SpentKey([]byte{1}))
	require.NoError(t, err)
	require.Equal(t, []byte("x"), v)
}
