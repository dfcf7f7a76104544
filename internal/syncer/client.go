// Package syncer executes one bookmark synchronization exchange with the
// backend: collect, authenticate, transmit, interpret.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/marksync/agent/internal/auth"
	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/logger"
	"github.com/marksync/agent/internal/sources"
	"github.com/marksync/agent/internal/token"
	"github.com/marksync/agent/internal/utils"
)

// syncPayload is the request body of POST /api/sync/bookmarks.
type syncPayload struct {
	BrowserName string                  `json:"browser_name"`
	DeviceName  string                  `json:"device_name"`
	ProfileName string                  `json:"profile_name"`
	Bookmarks   []domain.BookmarkRecord `json:"bookmarks"`
}

// Client performs sync exchanges. Each Sync call makes exactly one request to
// the sync endpoint, plus at most one token issuance when the cached
// credential needs refreshing.
type Client struct {
	source         sources.Source
	broker         *auth.Broker
	tokens         *token.Store
	http           *http.Client
	baseURL        string
	fallbackDevice string
	logger         logger.Logger
}

// NewClient wires a sync client. fallbackDevice fills a blank device name in
// the metadata (typically the hostname).
func NewClient(
	source sources.Source,
	broker *auth.Broker,
	tokens *token.Store,
	httpClient *http.Client,
	baseURL string,
	fallbackDevice string,
	log logger.Logger,
) *Client {
	return &Client{
		source:         source,
		broker:         broker,
		tokens:         tokens,
		http:           httpClient,
		baseURL:        baseURL,
		fallbackDevice: fallbackDevice,
		logger:         log,
	}
}

// Sync collects the bookmark tree and pushes it to the backend.
//
// A 401 response evicts the cached token and returns ErrStaleCredential
// without retrying; the next invocation picks up a fresh token. Any other
// non-success response becomes a RequestError with the status and body
// verbatim.
func (c *Client) Sync(ctx context.Context, meta domain.SyncMetadata) (domain.SyncOutcome, error) {
	records, err := c.source.Collect(ctx)
	if err != nil {
		return domain.SyncOutcome{}, &CollectionError{Err: err}
	}

	meta.ApplyDefaults(c.fallbackDevice)

	c.logger.Info("starting bookmark sync",
		logger.String("source", c.source.Name()),
		logger.String("browser", meta.BrowserName),
		logger.String("device", meta.DeviceName),
		logger.String("profile", meta.ProfileName),
		logger.Int("bookmarks", len(records)))

	bearer, err := c.broker.EnsureValidToken(ctx)
	if err != nil {
		return domain.SyncOutcome{}, err
	}

	payload := syncPayload{
		BrowserName: meta.BrowserName,
		DeviceName:  meta.DeviceName,
		ProfileName: meta.ProfileName,
		Bookmarks:   records,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.SyncOutcome{}, fmt.Errorf("failed to encode sync payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sync/bookmarks", bytes.NewReader(body))
	if err != nil {
		return domain.SyncOutcome{}, fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.SyncOutcome{}, fmt.Errorf("sync request failed: %w", err)
	}
	defer utils.Close(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SyncOutcome{}, fmt.Errorf("failed to read sync response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("backend rejected token, evicting cached credential")
		if err := c.tokens.Invalidate(ctx); err != nil {
			c.logger.Error("failed to evict stale token", logger.Error(err))
		}
		return domain.SyncOutcome{}, ErrStaleCredential
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.SyncOutcome{}, &RequestError{Status: resp.StatusCode, Body: string(respBody)}
	}

	// The backend reports extra fields (status, browser_id); only the counts
	// matter here.
	var outcome domain.SyncOutcome
	if err := json.Unmarshal(respBody, &outcome); err != nil {
		return domain.SyncOutcome{}, fmt.Errorf("invalid sync response: %w", err)
	}

	c.logger.Info("bookmark sync completed",
		logger.Int("inserted", outcome.Inserted),
		logger.Int("updated", outcome.Updated))

	return outcome, nil
}
