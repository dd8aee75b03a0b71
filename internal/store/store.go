// Package store holds the persistence backends for activity records: a JSON
// file per key on disk, redis, and an in-memory map for tests and throwaway
// runs. Every backend stores opaque bytes; encoding is the caller's concern.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultKeyPrefix is prepended to every derived record key.
const DefaultKeyPrefix = "activity-"

// Backend is a key/value store holding one blob per key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Watchable is implemented by backends that can report changes made by other
// processes.
type Watchable interface {
	Watch(ctx context.Context) (*Watcher, error)
}

// Key derives the store key for a user. The user ID is folded into a
// name-based UUID so arbitrary IDs yield keys that are safe as file names.
func Key(prefix, userID string) string {
	return prefix + uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID)).String()
}

// KeyFunc returns Key bound to prefix, falling back to DefaultKeyPrefix.
func KeyFunc(prefix string) func(userID string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return func(userID string) string { return Key(prefix, userID) }
}

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Dir      string
	RedisURL string
}

// Open constructs the backend named by opts.Backend. An empty name selects
// the file backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFile(opts.Dir)
	case BackendRedis:
		return NewRedis(ctx, opts.RedisURL)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
