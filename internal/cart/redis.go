package cart

import (
	"context"
	"errors"

	"github.com/shambadirect/storefront/pkg/redis"
)

type blobStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, blob []byte) error
	Drop(ctx context.Context, key string) error
}

// RedisStorage persists the cart under a namespaced redis key with no expiry.
type RedisStorage struct {
	blobs blobStore
	key   string
}

func NewRedisStorage(blobs blobStore) (*RedisStorage, error) {
	if blobs == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStorage{blobs: blobs, key: redis.Key("cart", StorageKey)}, nil
}

func (r *RedisStorage) Read(ctx context.Context) ([]byte, error) {
	raw, found, err := r.blobs.Load(ctx, r.key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoCart
	}
	return raw, nil
}

func (r *RedisStorage) Write(ctx context.Context, raw []byte) error {
	return r.blobs.Store(ctx, r.key, raw)
}

func (r *RedisStorage) Delete(ctx context.Context) error {
	return r.blobs.Drop(ctx, r.key)
}
