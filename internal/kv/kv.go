// Package kv is the named-key state store shared between the agent and the
// settings UI. The agent only ever sees get/set/delete over string keys; the
// backing store is injected so components stay testable with the in-memory
// implementation.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a minimal string key-value store. All writes are last-write-wins;
// callers must not assume any cross-key atomicity.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
