package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/httpserver/deps"
	"github.com/marksync/agent/internal/kv"
	"github.com/marksync/agent/internal/logger"
	"github.com/marksync/agent/internal/scheduler"
	"github.com/marksync/agent/internal/settings"
)

type stubSyncer struct {
	meta    domain.SyncMetadata
	outcome domain.SyncOutcome
	err     error
	calls   int
}

func (s *stubSyncer) Sync(ctx context.Context, meta domain.SyncMetadata) (domain.SyncOutcome, error) {
	s.calls++
	s.meta = meta
	return s.outcome, s.err
}

type stubScheduler struct {
	applied int
	err     error
}

func (s *stubScheduler) Apply(ctx context.Context) error { s.applied++; return s.err }

func (s *stubScheduler) State() (bool, time.Duration) { return s.applied > 0, 15 * time.Minute }

func newDeps(syncer *stubSyncer, scheduler *stubScheduler) deps.Deps {
	log := logger.New("error", false)
	return deps.Deps{
		Logger:    log,
		StartTime: time.Now(),
		Settings:  settings.New(kv.NewMemory(), log),
		Syncer:    syncer,
		Scheduler: scheduler,
	}
}

func postCommand(t *testing.T, d deps.Deps, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Command(d)(rec, req)
	return rec
}

func TestCommandSyncBookmarks(t *testing.T) {
	syncer := &stubSyncer{outcome: domain.SyncOutcome{Inserted: 3, Updated: 1}}
	d := newDeps(syncer, &stubScheduler{})

	rec := postCommand(t, d, `{"type":"SYNC_BOOKMARKS","meta":{"browser_name":"firefox"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		OK     bool
		Result *domain.SyncOutcome
		Error  string
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Result == nil {
		t.Fatalf("response = %+v, want ok with result", resp)
	}
	if resp.Result.Inserted != 3 || resp.Result.Updated != 1 {
		t.Errorf("result = %+v, want 3/1", resp.Result)
	}

	if syncer.calls != 1 {
		t.Errorf("sync calls = %d, want 1", syncer.calls)
	}
	if syncer.meta.BrowserName != "firefox" {
		t.Errorf("request meta not applied: %+v", syncer.meta)
	}
}

func TestCommandSyncBookmarksFailure(t *testing.T) {
	syncer := &stubSyncer{err: errors.New("backend returned 500")}
	d := newDeps(syncer, &stubScheduler{})

	rec := postCommand(t, d, `{"type":"SYNC_BOOKMARKS"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (errors are carried in the body)", rec.Code)
	}

	var resp struct {
		OK    bool
		Error string
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OK {
		t.Error("response ok = true, want false")
	}
	if !strings.Contains(resp.Error, "backend returned 500") {
		t.Errorf("error = %q, want the sync failure message", resp.Error)
	}
}

func TestCommandUpdateSettings(t *testing.T) {
	scheduler := &stubScheduler{}
	d := newDeps(&stubSyncer{}, scheduler)

	rec := postCommand(t, d, `{"type":"UPDATE_SETTINGS"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct{ OK bool }
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK {
		t.Error("response ok = false, want true")
	}
	if scheduler.applied != 1 {
		t.Errorf("Apply calls = %d, want 1", scheduler.applied)
	}
}

func TestCommandUpdateSettingsOutlivesRequest(t *testing.T) {
	log := logger.New("error", false)
	mem := kv.NewMemory()
	prefs := settings.New(mem, log)
	ctrl := scheduler.NewController(prefs, &stubSyncer{}, log)
	t.Cleanup(ctrl.Stop)

	ctx := context.Background()
	if err := mem.Set(ctx, settings.KeyAutoEnabled, "true"); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set(ctx, settings.KeyAutoMinutes, "15"); err != nil {
		t.Fatal(err)
	}

	d := deps.Deps{
		Logger:    log,
		StartTime: time.Now(),
		Settings:  prefs,
		Syncer:    &stubSyncer{},
		Scheduler: ctrl,
	}

	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/command",
		strings.NewReader(`{"type":"UPDATE_SETTINGS"}`)).WithContext(reqCtx)
	rec := httptest.NewRecorder()
	Command(d)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// net/http cancels the request context as soon as the handler returns;
	// the timer it armed must not go down with it.
	cancel()
	time.Sleep(50 * time.Millisecond)

	armed, interval := ctrl.State()
	if !armed || interval != 15*time.Minute {
		t.Fatalf("State() after request teardown = %v/%v, want armed at 15m", armed, interval)
	}
}

func TestCommandUnknownTypeIgnored(t *testing.T) {
	syncer := &stubSyncer{}
	scheduler := &stubScheduler{}
	d := newDeps(syncer, scheduler)

	rec := postCommand(t, d, `{"type":"EXPORT_HISTORY"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("unknown command produced a body: %q", rec.Body.String())
	}
	if syncer.calls != 0 || scheduler.applied != 0 {
		t.Error("unknown command reached a collaborator")
	}
}

func TestCommandInvalidBody(t *testing.T) {
	d := newDeps(&stubSyncer{}, &stubScheduler{})

	rec := postCommand(t, d, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
