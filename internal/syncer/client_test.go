package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/marksync/agent/internal/auth"
	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/kv"
	"github.com/marksync/agent/internal/logger"
	"github.com/marksync/agent/internal/token"
)

type stubSource struct {
	records []domain.BookmarkRecord
	err     error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Collect(ctx context.Context) ([]domain.BookmarkRecord, error) {
	return s.records, s.err
}

type backend struct {
	srv        *httptest.Server
	authCalls  atomic.Int32
	syncCalls  atomic.Int32
	syncStatus int
	syncBody   string
	lastAuth   string
	lastBody   []byte
}

func newBackend(t *testing.T, syncStatus int, syncBody string) *backend {
	t.Helper()
	b := &backend{syncStatus: syncStatus, syncBody: syncBody}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/token", func(w http.ResponseWriter, r *http.Request) {
		b.authCalls.Add(1)
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	})
	mux.HandleFunc("/api/sync/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		b.syncCalls.Add(1)
		b.lastAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		b.lastBody = body
		w.WriteHeader(b.syncStatus)
		_, _ = w.Write([]byte(b.syncBody))
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func newClient(b *backend, source *stubSource, store kv.Store) (*Client, *token.Store) {
	log := logger.New("error", false)
	tokens := token.New(store)
	broker := auth.NewBroker(tokens, b.srv.Client(), b.srv.URL, log)
	client := NewClient(source, broker, tokens, b.srv.Client(), b.srv.URL, "laptop", log)
	return client, tokens
}

func TestSyncFullExchange(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, http.StatusOK, `{"status":"ok","inserted":3,"updated":1,"browser_id":7}`)

	source := &stubSource{records: []domain.BookmarkRecord{
		{Title: "Blog", URL: "http://x", FolderPath: ""},
		{Title: "A", URL: "http://y", FolderPath: "Work"},
	}}
	client, tokens := newClient(b, source, kv.NewMemory())

	outcome, err := client.Sync(ctx, domain.SyncMetadata{BrowserName: "firefox"})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if outcome.Inserted != 3 || outcome.Updated != 1 {
		t.Errorf("Sync() = %+v, want inserted 3 updated 1", outcome)
	}

	if b.authCalls.Load() != 1 {
		t.Errorf("auth calls = %d, want 1", b.authCalls.Load())
	}
	if b.syncCalls.Load() != 1 {
		t.Errorf("sync calls = %d, want 1", b.syncCalls.Load())
	}
	if b.lastAuth != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", b.lastAuth)
	}

	stored, err := tokens.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored != "abc" {
		t.Errorf("stored token = %q, want abc", stored)
	}

	var payload struct {
		BrowserName string                  `json:"browser_name"`
		DeviceName  string                  `json:"device_name"`
		ProfileName string                  `json:"profile_name"`
		Bookmarks   []domain.BookmarkRecord `json:"bookmarks"`
	}
	if err := json.Unmarshal(b.lastBody, &payload); err != nil {
		t.Fatalf("failed to decode sync payload: %v", err)
	}
	if payload.BrowserName != "firefox" {
		t.Errorf("browser_name = %q, want firefox", payload.BrowserName)
	}
	if payload.DeviceName != "laptop" || payload.ProfileName != "Default" {
		t.Errorf("metadata defaults not applied: %+v", payload)
	}
	if len(payload.Bookmarks) != 2 || payload.Bookmarks[1].FolderPath != "Work" {
		t.Errorf("bookmarks payload = %+v", payload.Bookmarks)
	}
}

func TestSyncCachedTokenSkipsIssuance(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, http.StatusOK, `{"inserted":0,"updated":0}`)

	client, tokens := newClient(b, &stubSource{}, kv.NewMemory())
	if err := tokens.Put(ctx, "cached"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := client.Sync(ctx, domain.SyncMetadata{}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if b.authCalls.Load() != 0 {
		t.Errorf("auth calls = %d, want 0", b.authCalls.Load())
	}
	if b.lastAuth != "Bearer cached" {
		t.Errorf("Authorization = %q, want Bearer cached", b.lastAuth)
	}
}

func TestSyncStaleCredentialEvictsToken(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, http.StatusUnauthorized, `{"detail":"invalid token"}`)

	store := kv.NewMemory()
	client, tokens := newClient(b, &stubSource{}, store)
	if err := tokens.Put(ctx, "cached"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	_, err := client.Sync(ctx, domain.SyncMetadata{})
	if !errors.Is(err, ErrStaleCredential) {
		t.Fatalf("Sync() error = %v, want ErrStaleCredential", err)
	}

	// Distinct from the generic failure type.
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		t.Errorf("401 surfaced as RequestError: %v", err)
	}

	if b.authCalls.Load() != 0 {
		t.Errorf("auth calls = %d, want 0 (no auto-retry)", b.authCalls.Load())
	}
	if b.syncCalls.Load() != 1 {
		t.Errorf("sync calls = %d, want 1 (single attempt)", b.syncCalls.Load())
	}

	stored, err := tokens.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored != "" {
		t.Errorf("token still cached after 401: %q", stored)
	}
}

func TestSyncBackendFailure(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, http.StatusInternalServerError, "boom")

	client, tokens := newClient(b, &stubSource{}, kv.NewMemory())
	if err := tokens.Put(ctx, "cached"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	_, err := client.Sync(ctx, domain.SyncMetadata{})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Sync() error = %v, want RequestError", err)
	}
	if reqErr.Status != http.StatusInternalServerError || reqErr.Body != "boom" {
		t.Errorf("RequestError = %+v, want 500/boom", reqErr)
	}

	// A generic failure does not evict the token.
	stored, err := tokens.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored != "cached" {
		t.Errorf("token = %q, want cached", stored)
	}
}

func TestSyncCollectionFailure(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, http.StatusOK, `{"inserted":0,"updated":0}`)

	hostErr := errors.New("host tree unavailable")
	client, _ := newClient(b, &stubSource{err: hostErr}, kv.NewMemory())

	_, err := client.Sync(ctx, domain.SyncMetadata{})
	var collErr *CollectionError
	if !errors.As(err, &collErr) {
		t.Fatalf("Sync() error = %v, want CollectionError", err)
	}
	if !errors.Is(err, hostErr) {
		t.Errorf("CollectionError does not wrap the host error: %v", err)
	}

	if b.authCalls.Load() != 0 || b.syncCalls.Load() != 0 {
		t.Error("network calls made despite collection failure")
	}
}

func TestSyncAuthUnavailable(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	log := logger.New("error", false)
	tokens := token.New(kv.NewMemory())
	broker := auth.NewBroker(tokens, srv.Client(), srv.URL, log)
	client := NewClient(&stubSource{}, broker, tokens, srv.Client(), srv.URL, "laptop", log)

	_, err := client.Sync(ctx, domain.SyncMetadata{})
	var unavailable *auth.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Sync() error = %v, want auth.UnavailableError", err)
	}
}
