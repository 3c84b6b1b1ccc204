package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Adda-Baaj/north-relay/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const assetBucket = "asset_tracking"

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(assetBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// LoadTuples returns every stored tuple. Entries that fail to decode are skipped.
func (b *boltStore) LoadTuples() ([]domain.AssetTuple, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	var out []domain.AssetTuple
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(assetBucket))
		if bucket == nil {
			return fmt.Errorf("asset bucket missing")
		}
		return bucket.ForEach(func(_, v []byte) error {
			var t domain.AssetTuple
			if err := json.Unmarshal(v, &t); err != nil {
				return nil
			}
			out = append(out, t)
			return nil
		})
	})
	return out, err
}

// SaveTuple stores the tuple under its identity key, replacing any previous value.
func (b *boltStore) SaveTuple(t domain.AssetTuple) error {
	if b == nil || b.db == nil {
		return nil
	}

	value, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tuple: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(assetBucket))
		if bucket == nil {
			return fmt.Errorf("asset bucket missing")
		}
		return bucket.Put([]byte(t.Key()), value)
	})
}
