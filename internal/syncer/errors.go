package syncer

import (
	"errors"
	"fmt"
)

// ErrStaleCredential reports that the backend rejected the bearer token with
// HTTP 401. The cached token has been evicted as a side effect; the next sync
// attempt will obtain a fresh one. No automatic retry happens within the call.
var ErrStaleCredential = errors.New("sync rejected: stale credential, please retry")

// CollectionError wraps a host bookmark-tree read failure. The underlying
// error is surfaced unchanged and never retried by this layer.
type CollectionError struct {
	Err error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("failed to collect bookmarks: %v", e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// RequestError carries a non-success sync response verbatim for diagnostics.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("sync failed: backend returned %d: %s", e.Status, e.Body)
}
