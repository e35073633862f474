// ABOUTME: HTTP server struct, constructor, and handler wiring for Congregate.
// ABOUTME: Holds the store, config, and rate limiter used by middleware and handlers.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/scarson/congregate/internal/access"
	"github.com/scarson/congregate/internal/config"
	"github.com/scarson/congregate/internal/store"
)

// Store is the persistence surface the HTTP layer depends on.
// *store.Store satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	GetMember(ctx context.Context, orgID, userID uuid.UUID) (*store.Member, error)
	ListOrgMembers(ctx context.Context, orgID uuid.UUID, roles ...access.Role) ([]store.Member, error)
	UpdateMemberRole(ctx context.Context, orgID, userID, changedBy uuid.UUID, role access.Role) (*store.Member, error)
	SetMemberOverrides(ctx context.Context, orgID, userID, changedBy uuid.UUID, o *access.VisibilityOverrides) (*store.Member, error)
	ListVisibilityChanges(ctx context.Context, orgID, userID uuid.UUID, limit int) ([]store.VisibilityChange, error)
}

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store       Store // nil only in tests; /healthz reports degraded
	cfg         *config.Config
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server. s may be nil in tests that never touch org routes.
func NewServer(s Store, cfg *config.Config) (*Server, error) {
	evictTTL := cfg.RateLimitEvictTTL
	if evictTTL == 0 {
		evictTTL = 15 * time.Minute
	}
	perMinute := cfg.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 300
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newIPRateLimiter(rate.Limit(float64(perMinute)/60), burst, evictTTL)
	return &Server{
		store:       s,
		cfg:         cfg,
		rateLimiter: rl,
	}, nil
}

// Close stops the rate limiter's background cleanup.
func (srv *Server) Close() {
	srv.rateLimiter.Stop()
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// ── Security headers ─────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// 1 MB global body limit.
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", healthzHandler(srv.store))
	r.Handle("/metrics", promhttp.Handler())

	// ── API v1 sub-router with huma (OpenAPI 3.1) ────────────────────────────
	apiRouter := chi.NewRouter()
	apiRouter.Use(srv.rateLimit())
	humaConfig := huma.DefaultConfig("Congregate API", "0.1.0")
	humaConfig.Info.Description = "Role and visibility resolution for church organizations"
	api := humachi.New(apiRouter, humaConfig)
	registerPolicyRoutes(api)

	// ── Org routes (chi, not huma, for per-section guard middleware) ─────────
	apiRouter.Route("/orgs/{org_id}", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Use(srv.LoadOrgAccess())

		// Caller's own visibility.
		r.Get("/access", srv.getAccessHandler)
		r.Get("/access/{section}", srv.probeSectionHandler)
		r.Get("/access/{section}/{child}", srv.probeChildHandler)

		// Attendance roster: names only, for members who take attendance
		// without seeing the rest of people.
		r.With(srv.RequireChild(access.SectionPeople, access.ChildAttendance)).
			Get("/attendance/roster", srv.attendanceRosterHandler)

		// Member management.
		r.Route("/members", func(r chi.Router) {
			r.Use(srv.RequireSection(access.SectionUserManagement))
			r.Get("/", srv.listMembersHandler)
			r.Route("/{user_id}", func(r chi.Router) {
				r.With(srv.RequireVisibilityManager()).Patch("/", srv.updateMemberRoleHandler)
				r.Get("/visibility", srv.getMemberVisibilityHandler)
				r.With(srv.RequireVisibilityManager()).Put("/visibility", srv.putMemberVisibilityHandler)
				r.With(srv.RequireVisibilityManager()).Delete("/visibility", srv.deleteMemberVisibilityHandler)
				r.Get("/visibility/history", srv.listVisibilityHistoryHandler)
			})
		})
	})

	r.Mount("/api/v1", apiRouter)

	return r
}

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler returns 200 {"status":"ok"} when the DB is reachable,
// or 503 {"status":"degraded","db":"unavailable"} when it is not.
func healthzHandler(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		statusCode := http.StatusOK

		if db == nil {
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		} else if err := db.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.ErrorContext(r.Context(), "healthz: failed to encode response", "error", err)
		}
	}
}
