// Package bolt provides an alternative embedded engine behind the same
// KvEngine surface, backed by bbolt's B+tree instead of an append-only log.
package bolt

import (
	"fmt"
	"os"
	"path"

	"BitcaskDB/internal/domain"

	bolt "go.etcd.io/bbolt"
)

const dbFileName = "bolt.db"

var entriesBucket = []byte("entries")

type BoltEngine struct {
	db *bolt.DB
}

// Open creates or opens a bbolt database file inside dir.
func Open(dir string) (*BoltEngine, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	db, err := bolt.Open(path.Join(dir, dbFileName), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt database in %s: %w", dir, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltEngine{db: db}, nil
}

func (e *BoltEngine) Set(key, value string) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Put([]byte(key), []byte(value))
	})
}

func (e *BoltEngine) Get(key string) (string, bool, error) {
	var value string
	var found bool
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(entriesBucket).Get([]byte(key))
		if data != nil {
			value = string(data)
			found = true
		}
		return nil
	})
	return value, found, err
}

func (e *BoltEngine) Remove(key string) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)
		if bucket.Get([]byte(key)) == nil {
			return domain.ErrKeyNotFound
		}
		return bucket.Delete([]byte(key))
	})
}

func (e *BoltEngine) Close() error {
	return e.db.Close()
}
