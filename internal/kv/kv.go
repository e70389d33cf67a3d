// server/internal/kv/kv.go
package kv

import "context"

// Store is the durable key-value record store behind the delivery state.
// Writes replace the whole value for a key (last write wins); there are
// no transactions.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
