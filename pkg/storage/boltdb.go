package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// One bucket per function, nested under a root bucket; keys sort by
// timestamp so cursors iterate in dispatch order.
var bucketInvocations = []byte("invocations")

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the invocation database at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketInvocations)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveInvocation appends a record to the function's bucket
func (s *BoltStore) SaveInvocation(rec *types.InvocationRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketInvocations)
		b, err := root.CreateBucketIfNotExists([]byte(rec.Function))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", rec.Function, err)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal invocation: %w", err)
		}

		key := fmt.Sprintf("%020d-%s", rec.Timestamp.UnixNano(), rec.Container)
		return b.Put([]byte(key), data)
	})
}

// ListInvocations returns up to limit records for a function, newest first
func (s *BoltStore) ListInvocations(function string, limit int) ([]*types.InvocationRecord, error) {
	var records []*types.InvocationRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInvocations).Bucket([]byte(function))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec types.InvocationRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal invocation %s: %w", k, err)
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

var _ Store = (*BoltStore)(nil)
