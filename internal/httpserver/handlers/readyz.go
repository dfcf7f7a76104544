package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marksync/agent/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz reports whether the state store is reachable. The agent can serve
// commands without it only in a degraded way, so readiness tracks redis.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.RedisClient == nil {
			respondJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: "state store not initialized"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := d.RedisClient.Ping(ctx).Err(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: "state store unreachable"})
			return
		}

		respondJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
