package persist

import "context"

// Backend is a small durable key/value store. Implementations report a
// missing key as (nil, false, nil).
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
