// Package api exposes the field catalog, criteria validation and saved
// targeting definitions over HTTP.
package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/hopekit/targeting/internal/audit"
	"github.com/hopekit/targeting/internal/auth"
	"github.com/hopekit/targeting/internal/events"
	"github.com/hopekit/targeting/internal/logging"
	"github.com/hopekit/targeting/internal/snapshot"
	"github.com/hopekit/targeting/internal/store"
	"github.com/hopekit/targeting/internal/telemetry"
)

// Deps are the collaborators of a Server. Store and Catalog are required;
// the rest fall back to inert defaults.
type Deps struct {
	Store     store.Store
	Catalog   *snapshot.Holder
	Publisher events.Publisher
	Audit     *audit.Service
	Logger    zerolog.Logger

	AdminAPIKey string
	APIKeys     []auth.KeyEntry

	HouseholdIDPattern  *regexp.Regexp
	IndividualIDPattern *regexp.Regexp

	RateLimitPerIP     int
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	store     store.Store
	catalog   *snapshot.Holder
	publisher events.Publisher
	audit     *audit.Service
	auth      *auth.Authenticator
	logger    zerolog.Logger

	householdIDPattern  *regexp.Regexp
	individualIDPattern *regexp.Regexp

	rateLimit      int
	requestTimeout time.Duration
	corsOrigins    []string
}

// NewServer creates a server from deps.
func NewServer(deps Deps) *Server {
	s := &Server{
		store:               deps.Store,
		catalog:             deps.Catalog,
		publisher:           deps.Publisher,
		audit:               deps.Audit,
		logger:              deps.Logger,
		householdIDPattern:  deps.HouseholdIDPattern,
		individualIDPattern: deps.IndividualIDPattern,
		rateLimit:           deps.RateLimitPerIP,
		requestTimeout:      deps.RequestTimeout,
		corsOrigins:         deps.CORSAllowedOrigins,
	}
	if s.publisher == nil {
		s.publisher = events.LogPublisher{Logger: deps.Logger}
	}
	if s.rateLimit <= 0 {
		s.rateLimit = 100
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = 30 * time.Second
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"*"}
	}
	s.auth = auth.NewAuthenticator(deps.APIKeys, deps.AdminAPIKey, authError)
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(httprate.Limit(
		s.rateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(RateLimitedError),
	))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// long-lived; must not sit behind the request timeout
	r.Get("/v1/catalog/stream", s.handleCatalogStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout))

		r.Get("/v1/catalog/fields", s.handleListFields)
		r.Get("/v1/catalog/payment-channels", s.handlePaymentChannels)

		r.Post("/v1/criteria/validate", s.handleValidateCriteria)
		r.Post("/v1/criteria/compile", s.handleCompileCriteria)
		r.Post("/v1/criteria/preview", s.handlePreviewCriteria)

		r.Route("/v1/targetings", func(r chi.Router) {
			r.With(s.auth.RequireAuth(auth.RoleReadonly)).Get("/", s.handleListTargetings)
			r.With(s.auth.RequireAuth(auth.RoleAdmin)).Post("/", s.handleUpsertTargeting)
			r.Route("/{id}", func(r chi.Router) {
				r.With(s.auth.RequireAuth(auth.RoleReadonly)).Get("/", s.handleGetTargeting)
				r.With(s.auth.RequireAuth(auth.RoleAdmin)).Put("/", s.handleUpsertTargeting)
				r.With(s.auth.RequireAuth(auth.RoleAdmin)).Delete("/", s.handleDeleteTargeting)
				r.With(s.auth.RequireAuth(auth.RoleReadonly)).Post("/preview", s.handlePreviewTargeting)
			})
		})
	})

	return r
}
