// Package settings reads and writes the agent's persisted preferences: the
// sync metadata identity, the auto-sync schedule and the last sync outcome.
// The settings UI writes the same keys from outside the process; every read
// here goes back to the store.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/kv"
	"github.com/marksync/agent/internal/logger"
)

// State-store keys shared with the settings UI.
const (
	KeyBrowserName = "browser_name"
	KeyDeviceName  = "device_name"
	KeyProfileName = "profile_name"
	KeyAutoEnabled = "auto_sync_enabled"
	KeyAutoMinutes = "auto_sync_interval"

	KeyLastSyncAt       = "last_sync_at"
	KeyLastSyncInserted = "last_sync_inserted"
	KeyLastSyncUpdated  = "last_sync_updated"
	KeyLastSyncError    = "last_sync_error"
)

// LastSync is the recorded result of the most recent sync attempt.
type LastSync struct {
	At       time.Time
	Inserted int
	Updated  int
	Error    string
}

// Store reads and writes preferences over the shared key-value store.
type Store struct {
	kv     kv.Store
	logger logger.Logger
	now    func() time.Time
}

// New creates a settings store.
func New(store kv.Store, log logger.Logger) *Store {
	return &Store{kv: store, logger: log, now: time.Now}
}

// Sync returns the stored auto-sync settings. A missing enabled flag means
// disabled; a missing or invalid interval is coerced to the default.
func (s *Store) Sync(ctx context.Context) (domain.SyncSettings, error) {
	settings := domain.SyncSettings{IntervalMinutes: domain.DefaultIntervalMinutes}

	raw, err := s.kv.Get(ctx, KeyAutoEnabled)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		// default: disabled
	case err != nil:
		return settings, fmt.Errorf("failed to read auto-sync flag: %w", err)
	default:
		if enabled, parseErr := strconv.ParseBool(raw); parseErr == nil {
			settings.Enabled = enabled
		}
	}

	raw, err = s.kv.Get(ctx, KeyAutoMinutes)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		// default interval
	case err != nil:
		return settings, fmt.Errorf("failed to read auto-sync interval: %w", err)
	default:
		if minutes, parseErr := strconv.Atoi(raw); parseErr == nil && minutes > 0 {
			settings.IntervalMinutes = minutes
		}
	}

	return settings, nil
}

// Metadata returns the stored batch identity. Reads are best effort: a store
// failure falls back to defaults so a sync can still identify itself.
func (s *Store) Metadata(ctx context.Context) domain.SyncMetadata {
	meta := domain.SyncMetadata{
		BrowserName: s.read(ctx, KeyBrowserName),
		DeviceName:  s.read(ctx, KeyDeviceName),
		ProfileName: s.read(ctx, KeyProfileName),
	}
	meta.ApplyDefaults(s.FallbackDevice(ctx))
	return meta
}

// FallbackDevice names this machine when no device name is stored: the
// hostname, or a generated identity persisted on first use so the backend
// sees a stable device across runs.
func (s *Store) FallbackDevice(ctx context.Context) string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}

	if id := s.read(ctx, KeyDeviceName); id != "" {
		return id
	}

	generated := "device-" + uuid.NewString()[:8]
	if err := s.kv.Set(ctx, KeyDeviceName, generated); err != nil {
		s.logger.Warn("failed to persist generated device name", logger.Error(err))
	}
	return generated
}

// RecordOutcome stores the result of a sync attempt for the status endpoint.
// Best effort; failures are logged and swallowed.
func (s *Store) RecordOutcome(ctx context.Context, outcome domain.SyncOutcome, syncErr error) {
	s.write(ctx, KeyLastSyncAt, s.now().UTC().Format(time.RFC3339))
	if syncErr != nil {
		s.write(ctx, KeyLastSyncError, syncErr.Error())
		return
	}
	s.write(ctx, KeyLastSyncInserted, strconv.Itoa(outcome.Inserted))
	s.write(ctx, KeyLastSyncUpdated, strconv.Itoa(outcome.Updated))
	if err := s.kv.Delete(ctx, KeyLastSyncError); err != nil {
		s.logger.Debug("failed to clear last sync error", logger.Error(err))
	}
}

// LastSync returns the recorded result of the most recent attempt, or false
// when no sync has run yet.
func (s *Store) LastSync(ctx context.Context) (LastSync, bool) {
	raw := s.read(ctx, KeyLastSyncAt)
	if raw == "" {
		return LastSync{}, false
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return LastSync{}, false
	}

	last := LastSync{At: at, Error: s.read(ctx, KeyLastSyncError)}
	last.Inserted, _ = strconv.Atoi(s.read(ctx, KeyLastSyncInserted))
	last.Updated, _ = strconv.Atoi(s.read(ctx, KeyLastSyncUpdated))
	return last, true
}

func (s *Store) read(ctx context.Context, key string) string {
	value, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("failed to read setting",
				logger.String("key", key),
				logger.Error(err))
		}
		return ""
	}
	return value
}

func (s *Store) write(ctx context.Context, key, value string) {
	if err := s.kv.Set(ctx, key, value); err != nil {
		s.logger.Warn("failed to write setting",
			logger.String("key", key),
			logger.Error(err))
	}
}
