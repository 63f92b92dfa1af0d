// Package metadata is a durable key/value table in the local store. It holds
// non-secret bookkeeping such as cached salts and the store key verifier.
package metadata

import (
	"context"
)

// Repository reads and writes metadata entries. Get returns (nil, nil)
// when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
