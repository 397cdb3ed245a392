// Package metadata persists the CLI's session values (token, cached user)
// as key/value rows in the local SQLite database.
package metadata

import "context"

// Repository is a small key/value store. Get returns common.ErrorNotFound
// for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
