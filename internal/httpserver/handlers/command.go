package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/httpserver/deps"
	"github.com/marksync/agent/internal/logger"
)

// Command kinds accepted from the settings UI.
const (
	CommandSyncBookmarks  = "SYNC_BOOKMARKS"
	CommandUpdateSettings = "UPDATE_SETTINGS"
)

type commandMeta struct {
	BrowserName string `json:"browser_name"`
	DeviceName  string `json:"device_name"`
	ProfileName string `json:"profile_name"`
}

type commandRequest struct {
	Type string       `json:"type"`
	Meta *commandMeta `json:"meta"`
}

type commandResponse struct {
	OK     bool                `json:"ok"`
	Result *domain.SyncOutcome `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Command dispatches externally-arriving commands. Sync failures come back as
// {ok:false, error} rather than HTTP errors; unknown command kinds are
// ignored with an empty 204 so newer UIs can ship commands an older agent
// does not know yet.
func Command(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var cmd commandRequest
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			respondJSON(w, http.StatusBadRequest, commandResponse{OK: false, Error: "invalid command body"})
			return
		}

		switch cmd.Type {
		case CommandSyncBookmarks:
			meta := d.Settings.Metadata(ctx)
			if cmd.Meta != nil {
				overlayMeta(&meta, *cmd.Meta)
			}

			d.Logger.Info("manual sync requested", logger.String("browser", meta.BrowserName))

			outcome, err := d.Syncer.Sync(ctx, meta)
			d.Settings.RecordOutcome(ctx, outcome, err)
			if err != nil {
				d.Logger.Error("manual sync failed", logger.Error(err))
				respondJSON(w, http.StatusOK, commandResponse{OK: false, Error: err.Error()})
				return
			}
			respondJSON(w, http.StatusOK, commandResponse{OK: true, Result: &outcome})

		case CommandUpdateSettings:
			d.Logger.Info("settings change notified, re-evaluating schedule")
			if err := d.Scheduler.Apply(ctx); err != nil {
				d.Logger.Error("failed to apply settings", logger.Error(err))
				respondJSON(w, http.StatusOK, commandResponse{OK: false, Error: err.Error()})
				return
			}
			respondJSON(w, http.StatusOK, commandResponse{OK: true})

		default:
			// Unknown commands are silently ignored.
			d.Logger.Debug("ignoring unknown command", logger.String("type", cmd.Type))
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func overlayMeta(meta *domain.SyncMetadata, override commandMeta) {
	if override.BrowserName != "" {
		meta.BrowserName = override.BrowserName
	}
	if override.DeviceName != "" {
		meta.DeviceName = override.DeviceName
	}
	if override.ProfileName != "" {
		meta.ProfileName = override.ProfileName
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
