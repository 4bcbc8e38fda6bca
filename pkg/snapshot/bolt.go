package snapshot

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("cart_snapshots")

// BoltBackend keeps snapshots in a single bbolt file on local disk, the closest
// server-side analogue of the browser storage the storefront uses.
type BoltBackend struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the snapshot file at path.
func OpenBolt(path string) (*BoltBackend, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt file %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Get(ctx context.Context, scope, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var payload string
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(boltKey(scope, key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction
		payload = string(v)
		return nil
	})
	return payload, err
}

func (b *BoltBackend) Put(ctx context.Context, scope, key, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(boltKey(scope, key), []byte(payload))
	})
}

func (b *BoltBackend) Delete(ctx context.Context, scope, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(boltKey(scope, key))
	})
}

func (b *BoltBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(boltBucket) == nil {
			return fmt.Errorf("bolt bucket %q missing", boltBucket)
		}
		return nil
	})
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}

func boltKey(scope, key string) []byte {
	return []byte(scope + "\x00" + key)
}
