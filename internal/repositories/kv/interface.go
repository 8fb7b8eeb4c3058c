package kv

import "context"

// Repository is a byte-valued key/value area.
type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set inserts or overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every key/value pair.
	List(ctx context.Context) (map[string][]byte, error)
	// Clear removes every key.
	Clear(ctx context.Context) error
}

// QuotaSetter is implemented by areas that can check a total byte quota and
// write atomically. limit is the maximum sum of value sizes across all keys
// once value is stored under key.
type QuotaSetter interface {
	SetWithinQuota(ctx context.Context, key string, value []byte, limit int64) error
}
