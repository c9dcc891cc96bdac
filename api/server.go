/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Lightweight, context-based, RESTful route patterns.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/items                    Item master list (for the item picker)
  /api/facilities               Facility list (for the facility filter)
  /api/ledger                   Reconstructed ledger for one item
  /api/ledger/export            Ledger workbook download
  /api/ledger/purge-check       Safety report before a receive purge
  /api/ledger/purge             Purge a transaction (admin only)

AUTH:
  Read endpoints are open. The purge endpoints sit behind the JWT
  middleware and require the System Administrator role; the engine
  re-verifies through the PurgeAuthorization capability.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: JWT middleware and role gate
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stockroom/supply-engine/ledger"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, auth *Auth) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", h.ListItems)
		r.Get("/facilities", h.ListFacilities)

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", h.GetLedger)
			r.Get("/export", h.ExportLedger)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)
				r.Use(auth.RequireRole(ledger.RoleSystemAdministrator))
				r.Get("/purge-check", h.CheckPurge)
				r.Post("/purge", h.Purge)
			})
		})
	})

	return r
}
