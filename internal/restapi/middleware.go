package restapi

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kgzip "github.com/klauspost/compress/gzip"

	"github.com/Embucket/embucket-sub001/internal/apierr"
	"github.com/Embucket/embucket-sub001/internal/embucketlog"
	"github.com/Embucket/embucket-sub001/internal/restapi/auth"
	"github.com/Embucket/embucket-sub001/internal/session"
)

type contextKey string

const (
	sessionIDKey     contextKey = "session_id"
	authenticatedKey contextKey = "authenticated"
)

// SessionIDFromContext returns the session id the cookie/auth
// middleware resolved for this request.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

func withSessionID(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), sessionIDKey, id))
}

// authenticated reports whether this request was resolved against a
// real, registered session — either an Authorization token RequireAuth
// validated, or a session_id cookie matching an existing store entry.
// A freshly minted cookie (SessionCookie's fallback for a missing or
// unknown cookie) never sets this: it only gives a handler somewhere
// to write a new session, not proof of one.
func authenticated(ctx context.Context) bool {
	v, _ := ctx.Value(authenticatedKey).(bool)
	return v
}

func withAuthenticated(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authenticatedKey, true))
}

// RequestID injects X-Request-ID into the request context and
// response header, grounded on wisbric-nightowl's httpserver.RequestID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs method/path/status/duration at DEBUG, grounded
// on wisbric-nightowl's httpserver.Logger but adapted to the
// process-global embucketlog.Logger instead of slog.
func RequestLogger(log *embucketlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Debug(r.Method, r.URL.Path, sw.status, time.Since(start).String())
		})
	}
}

// GzipRequest transparently decompresses a gzip-encoded request body
// (Content-Encoding: gzip), per spec §4.7.
func GzipRequest(log *embucketlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Encoding") == "gzip" {
				gr, err := gzip.NewReader(r.Body)
				if err != nil {
					RespondError(w, apierr.Wrap(apierr.KindGZipDecompress, "invalid gzip request body", err), log)
					return
				}
				defer gr.Close()
				r.Body = io.NopCloser(gr)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gw *kgzip.Writer
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) { return g.gw.Write(b) }

// GzipResponse compresses the response body when the client advertises
// gzip support, via klauspost/compress (teacher's existing dep).
func GzipResponse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsGzip(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gw := kgzip.NewWriter(w)
		defer gw.Close()
		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, gw: gw}, r)
	})
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range r.Header.Values("Accept-Encoding") {
		if enc == "gzip" || enc == "*" {
			return true
		}
	}
	return false
}

// SessionCookie implements the cookie-propagation algorithm of spec
// §4.7, grounded on the source system's propagate_session_cookie: a
// missing or expired session_id cookie gets a fresh session id minted,
// injected into the request context, and reflected back via
// Set-Cookie; a valid one is passed through unchanged.
func SessionCookie(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok, ok := auth.ExtractTokenFromCookie(r); ok {
				if _, exists := store.Get(tok); exists {
					next.ServeHTTP(w, withAuthenticated(withSessionID(r, tok)))
					return
				}
			}

			newID := uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     auth.SessionCookieName,
				Value:    newID,
				HttpOnly: true,
				Secure:   true,
				SameSite: http.SameSiteStrictMode,
				Path:     "/",
			})
			next.ServeHTTP(w, withSessionID(r, newID))
		})
	}
}

// RequireAuth implements the protected-route auth model of spec §4.7:
// the Authorization header (JWT or opaque UUID token) takes priority
// over whatever the cookie middleware resolved; a JWT's `aud` must
// equal the request Host.
func RequireAuth(validator *auth.Validator, store *session.Store, log *embucketlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.ExtractTokenFromAuth(r.Header)
			if !ok {
				if authenticated(r.Context()) {
					next.ServeHTTP(w, r)
					return
				}
				RespondError(w, apierr.New(apierr.KindMissingAuthToken, "missing Authorization header or session cookie"), log)
				return
			}

			if auth.IsJWT(token) {
				if r.Host == "" {
					RespondError(w, apierr.New(apierr.KindInvalidAuthToken, "missing Host header"), log)
					return
				}
				claims, err := validator.Validate(token, r.Host)
				if err != nil {
					RespondError(w, apierr.Wrap(apierr.KindInvalidAuthToken, "invalid or expired auth token", err), log)
					return
				}
				next.ServeHTTP(w, withAuthenticated(withSessionID(r, claims.SessionID)))
				return
			}

			// Opaque UUID session token: it IS the session id.
			if _, exists := store.Get(token); !exists {
				RespondError(w, apierr.New(apierr.KindInvalidAuthToken, "unknown or expired session token"), log)
				return
			}
			next.ServeHTTP(w, withAuthenticated(withSessionID(r, token)))
		})
	}
}

// Recoverer wraps chi's panic-recovery middleware, matching the
// Recoverer position in wisbric-nightowl's middleware chain.
var Recoverer = chimw.Recoverer
