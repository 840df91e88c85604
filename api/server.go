/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the chat frontend

ROUTE GROUPS:
  /api/actors/*     Actor directory, balances, histories
  /api/bank/*       Transfers and document requests
  /api/hospital/*   Consultations and rancho heal
  /api/tavern/*     Menu and orders
  /api/roulette/*   Daily spin
  /api/access/*     Role elevation
  /api/requests/*   Review panel (capability token required)

AUTHENTICATION:
  Player-facing endpoints are open; the server is authoritative over every
  balance mutation regardless of caller. Review endpoints require a
  capability token from POST /api/access/elevate presented as
  "Authorization: Bearer <token>".

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yunhopapisaoko-dot/township/access"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Actor routes
		r.Route("/actors", func(r chi.Router) {
			r.Get("/", h.ListActors)
			r.Post("/", h.CreateActor)
			r.Get("/{id}", h.GetActor)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Get("/{id}/requests", h.GetActorRequests)
		})

		// Bank routes
		r.Route("/bank", func(r chi.Router) {
			r.Post("/transfer", h.Transfer)
			r.Post("/documents", h.RequestDocument)
		})

		// Hospital routes
		r.Route("/hospital", func(r chi.Router) {
			r.Post("/consultations", h.RequestConsultation)
			r.Get("/rancho", h.RanchoStatus)
			r.Post("/rancho", h.RanchoHeal)
		})

		// Tavern routes
		r.Route("/tavern", func(r chi.Router) {
			r.Get("/menu", h.GetMenu)
			r.Post("/orders", h.OrderDish)
		})

		// Roulette routes
		r.Route("/roulette", func(r chi.Router) {
			r.Get("/status", h.SpinStatus)
			r.Post("/spin", h.Spin)
			r.Get("/spins", h.SpinHistory)
		})

		// Access routes
		r.Route("/access", func(r chi.Router) {
			r.Post("/elevate", h.Elevate)
		})

		// Review panel routes (capability token required)
		r.Route("/requests", func(r chi.Router) {
			r.Use(requireRole(h.Keeper, access.RoleEmployee))
			r.Get("/pending", h.ListPendingRequests)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
		})
	})

	return r
}

// requireRole verifies the bearer capability token and stores its claims in
// the request context. The role must meet the required rank.
func requireRole(keeper *access.Keeper, required access.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Capability token required", nil)
				return
			}

			claims, err := keeper.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid capability token", nil)
				return
			}
			if !claims.Role.AtLeast(required) {
				writeError(w, http.StatusForbidden, "Insufficient role", nil)
				return
			}

			ctx := contextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
