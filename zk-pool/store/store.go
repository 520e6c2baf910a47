package store

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("not found")

// Store is the durable key-value collaborator of the pool. Reads observe all
// completed writes (leveldb gives read-your-writes within one process).
type Store struct {
	db *leveldb.DB
}

// Open opens or creates a store on disk.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open pool store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory returns a store backed by leveldb's in-memory storage.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *Store) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value, &opt.WriteOptions{Sync: true})
}

func (s *Store) NewBatch() *leveldb.Batch {
	return new(leveldb.Batch)
}

// Write applies the batch atomically: all of its writes land or none do.
func (s *Store) Write(batch *leveldb.Batch) error {
	return s.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// Iterate calls fn for every entry under prefix in key order.
func (s *Store) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *Store) Count(prefix []byte) (int, error) {
	cnt := 0
	err := s.Iterate(prefix, func(_, _ []byte) error {
		cnt++
		return nil
	})
	return cnt, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
