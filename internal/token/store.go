// Package token persists the single cached backend credential together with
// its issuance timestamp.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marksync/agent/internal/kv"
)

const (
	// KeyToken and KeyIssuedAt are the state-store keys owned by this package.
	KeyToken    = "auth_token"
	KeyIssuedAt = "auth_token_timestamp"

	// Expiry is how long an issued token is trusted before a new one is
	// fetched. The backend does not communicate a lifetime, so the window is
	// fixed client-side.
	Expiry = 7 * 24 * time.Hour
)

// Store owns the persisted copy of the auth token. Exactly one token is
// cached at a time; Put overwrites any previous one.
type Store struct {
	kv  kv.Store
	now func() time.Time
}

// New creates a token store over the given key-value backend.
func New(store kv.Store) *Store {
	return &Store{kv: store, now: time.Now}
}

// NewWithClock is like New with an injectable clock for tests.
func NewWithClock(store kv.Store, now func() time.Time) *Store {
	return &Store{kv: store, now: now}
}

// Get returns the cached token, or "" when none is stored.
func (s *Store) Get(ctx context.Context) (string, error) {
	value, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return value, nil
}

// Put stores a freshly issued token and records the issuance time.
func (s *Store) Put(ctx context.Context, value string) error {
	if err := s.kv.Set(ctx, KeyToken, value); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	issuedAt := s.now().UTC().Format(time.RFC3339)
	if err := s.kv.Set(ctx, KeyIssuedAt, issuedAt); err != nil {
		return fmt.Errorf("failed to store token timestamp: %w", err)
	}
	return nil
}

// IsExpired reports whether the cached token must be refreshed. A missing or
// unreadable issuance timestamp counts as expired. This is a pure clock
// comparison; no network access happens here.
func (s *Store) IsExpired(ctx context.Context) (bool, error) {
	raw, err := s.kv.Get(ctx, KeyIssuedAt)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return true, nil
		}
		return true, fmt.Errorf("failed to read token timestamp: %w", err)
	}

	issuedAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Unparseable timestamp: treat as absent and force a refresh.
		return true, nil
	}

	return s.now().Sub(issuedAt) > Expiry, nil
}

// Invalidate drops the cached token and its timestamp. Safe to call when no
// token is stored.
func (s *Store) Invalidate(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyToken); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if err := s.kv.Delete(ctx, KeyIssuedAt); err != nil {
		return fmt.Errorf("failed to delete token timestamp: %w", err)
	}
	return nil
}
