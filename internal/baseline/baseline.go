// Package baseline persists per-position evaluation scores so a later
// run can detect regressions after quantisation or kernel changes.
package baseline

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
)

// Record is one stored evaluation.
type Record struct {
	Network string `json:"network"`
	Score   int32  `json:"score"`
}

// Store wraps BadgerDB keyed by FEN.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores the score for a position.
func (s *Store) Put(fen string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fen), data)
	})
}

// Get returns the stored record for a position, or ok=false when the
// position has no baseline yet.
func (s *Store) Get(fen string) (Record, bool, error) {
	var rec Record
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fen))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, found, err
}

// ForEach visits every stored position.
func (s *Store) ForEach(fn func(fen string, rec Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			fen := string(item.Key())
			var rec Record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if err := fn(fen, rec); err != nil {
				return err
			}
		}
		return nil
	})
}
