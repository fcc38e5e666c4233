// Package storage is the client's durable key/value store: the place the
// bearer credential and the locally selected subscription tier live between
// runs.
//
// Keys are plain strings and values are not schema-versioned. Two
// implementations exist: SQLite (on disk, migrated with goose) and Memory
// (tests and throwaway sessions).
package storage

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyToken            = "token"
	KeySubscriptionTier = "subscription_tier"
)

// ErrClosed is returned by Memory after Close.
var ErrClosed = errors.New("storage closed")

// Storage is a durable string key/value store.
//
// Get reports ok=false for a missing key; that is not an error. Delete of a
// missing key is a no-op.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
