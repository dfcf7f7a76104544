package handlers

import (
	"net/http"
	"time"

	"github.com/marksync/agent/internal/httpserver/deps"
)

type lastSyncStatus struct {
	At       string `json:"at"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Error    string `json:"error,omitempty"`
}

type statusResponse struct {
	Armed           bool            `json:"armed"`
	IntervalMinutes int             `json:"interval_minutes,omitempty"`
	LastSync        *lastSyncStatus `json:"last_sync,omitempty"`
}

// Status reports the scheduler state and the most recent sync outcome.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		armed, interval := d.Scheduler.State()

		resp := statusResponse{
			Armed:           armed,
			IntervalMinutes: int(interval / time.Minute),
		}

		if last, ok := d.Settings.LastSync(r.Context()); ok {
			resp.LastSync = &lastSyncStatus{
				At:       last.At.Format(time.RFC3339),
				Inserted: last.Inserted,
				Updated:  last.Updated,
				Error:    last.Error,
			}
		}

		respondJSON(w, http.StatusOK, resp)
	}
}
