package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/marksync/agent/internal/httpserver/deps"
	"github.com/marksync/agent/internal/httpserver/handlers"
	"github.com/marksync/agent/internal/httpserver/mw"
)

func init() { Register(registerStatus) }

func registerStatus(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.Logger)).Get("/api/status", handlers.Status(d))
}
