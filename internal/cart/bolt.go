package cart

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("storefront")

// BoltStorage persists the cart in a local bbolt file, the server-side
// counterpart of a browser profile's local storage.
type BoltStorage struct {
	db *bolt.DB
}

// OpenBoltStorage opens (or creates) the bolt file at path.
func OpenBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cart bolt file: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cart bucket: %w", err)
	}
	return &BoltStorage{db: db}, nil
}

func (b *BoltStorage) Read(context.Context) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(StorageKey))
		if v == nil {
			return ErrNoCart
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	return out, err
}

func (b *BoltStorage) Write(_ context.Context, raw []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(StorageKey), raw)
	})
}

func (b *BoltStorage) Delete(context.Context) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(StorageKey))
	})
}

// Ping reports whether the bolt file is still open.
func (b *BoltStorage) Ping(context.Context) error {
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(boltBucket) == nil {
			return fmt.Errorf("cart bucket missing")
		}
		return nil
	})
}

func (b *BoltStorage) Close() error {
	return b.db.Close()
}
