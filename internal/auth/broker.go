// Package auth repairs a missing or stale backend credential. It is the only
// place a token is ever fetched from the network.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/marksync/agent/internal/logger"
	"github.com/marksync/agent/internal/token"
	"github.com/marksync/agent/internal/utils"
)

// UnavailableError reports that the issuance endpoint could not provide a
// token. Status is 0 when the request itself failed before a response.
type UnavailableError struct {
	Status int
	Body   string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth unavailable: %v", e.Err)
	}
	return fmt.Sprintf("auth unavailable: token endpoint returned %d: %s", e.Status, e.Body)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

type tokenResponse struct {
	Token string `json:"token"`
}

type issuance struct {
	done  chan struct{}
	token string
	err   error
}

// Broker guarantees a valid credential before a sync.
type Broker struct {
	tokens  *token.Store
	client  *http.Client
	baseURL string
	logger  logger.Logger

	mu       sync.Mutex
	inflight *issuance
}

// NewBroker creates a broker that issues tokens from baseURL using client.
func NewBroker(tokens *token.Store, client *http.Client, baseURL string, log logger.Logger) *Broker {
	return &Broker{
		tokens:  tokens,
		client:  client,
		baseURL: baseURL,
		logger:  log,
	}
}

// EnsureValidToken returns the cached token when it is present and fresh, and
// otherwise fetches, caches and returns a new one. Concurrent callers share a
// single in-flight issuance instead of each starting their own; the overwrite
// in the store is safe either way.
func (b *Broker) EnsureValidToken(ctx context.Context) (string, error) {
	cached, err := b.tokens.Get(ctx)
	if err != nil {
		return "", err
	}
	if cached != "" {
		expired, err := b.tokens.IsExpired(ctx)
		if err != nil {
			return "", err
		}
		if !expired {
			return cached, nil
		}
		b.logger.Info("cached token expired, requesting a new one")
	} else {
		b.logger.Info("no cached token, requesting a new one")
	}

	b.mu.Lock()
	if b.inflight != nil {
		pending := b.inflight
		b.mu.Unlock()
		select {
		case <-pending.done:
			return pending.token, pending.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	pending := &issuance{done: make(chan struct{})}
	b.inflight = pending
	b.mu.Unlock()

	pending.token, pending.err = b.issue(ctx)
	close(pending.done)

	b.mu.Lock()
	b.inflight = nil
	b.mu.Unlock()

	return pending.token, pending.err
}

// issue performs one POST to the token endpoint and persists the result.
func (b *Broker) issue(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/auth/token", nil)
	if err != nil {
		return "", &UnavailableError{Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &UnavailableError{Err: err}
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UnavailableError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.logger.Warn("token issuance rejected",
			logger.Int("status", resp.StatusCode))
		return "", &UnavailableError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &UnavailableError{Status: resp.StatusCode, Err: fmt.Errorf("invalid token response: %w", err)}
	}
	if parsed.Token == "" {
		return "", &UnavailableError{Status: resp.StatusCode, Body: string(body), Err: fmt.Errorf("token response missing token")}
	}

	if err := b.tokens.Put(ctx, parsed.Token); err != nil {
		return "", err
	}

	b.logger.Info("obtained new auth token")
	return parsed.Token, nil
}
