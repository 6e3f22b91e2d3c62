// Package restapi implements the Snowflake-shaped REST wire surface:
// login/query/abort/session endpoints, cookie-propagated sessions,
// JWT re-auth, and the gzip codec, per spec §4.7.
package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/Embucket/embucket-sub001/internal/config"
	"github.com/Embucket/embucket-sub001/internal/embucketlog"
	"github.com/Embucket/embucket-sub001/internal/executor"
	"github.com/Embucket/embucket-sub001/internal/restapi/auth"
	"github.com/Embucket/embucket-sub001/internal/session"
)

// Server holds the REST surface's dependencies and its chi router.
type Server struct {
	Router *chi.Mux

	cfg       *config.Config
	sessions  *session.Store
	executor  *executor.Executor
	validator *auth.Validator
	log       *embucketlog.Logger
}

// NewServer builds the router with the middleware chain of spec §4.7,
// grounded on wisbric-nightowl/internal/httpserver/server.go's
// ordering: RequestID → Logger → Recoverer → CORS → gzip-decompress →
// session-cookie → (protected routes only) require_auth →
// gzip-compress.
func NewServer(cfg *config.Config, sessions *session.Store, exec *executor.Executor, log *embucketlog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		executor:  exec,
		validator: auth.NewValidator(cfg.JWTSecret),
		log:       log,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(log))
	r.Use(Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(GzipRequest(log))
	r.Use(GzipResponse)
	r.Use(SessionCookie(sessions))

	r.Post("/session/v1/login-request", s.handleLogin)
	r.Post("/session", s.handleSession)

	r.Group(func(protected chi.Router) {
		protected.Use(RequireAuth(s.validator, sessions, log))
		protected.Post("/queries/v1/query-request", s.handleQuery)
		protected.Post("/queries/v1/abort-request", s.handleAbort)
	})

	s.Router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
