package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type sessionKey struct{}

// SessionIDFromContext returns the session ID from context, if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionKey{}).(string)
	return sessionID, ok
}

// SessionMiddleware extracts Mcp-Session-Id and stores it in context.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get("Mcp-Session-Id")
		if sessionID != "" {
			ctx := context.WithValue(r.Context(), sessionKey{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestObserver records completed HTTP requests.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

// RequestLogger logs and observes each request once it completes. The route
// label is the matched chi pattern so path parameters do not explode
// cardinality.
func RequestLogger(logger *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			if observer != nil {
				observer.ObserveRequest(r.Method, route, status, elapsed)
			}
			if logger != nil {
				sessionID, _ := SessionIDFromContext(r.Context())
				actorID, _ := ActorFromContext(r.Context())
				logger.Debug("http request",
					"method", r.Method,
					"route", route,
					"status", status,
					"duration", elapsed,
					"session_id", sessionID,
					"actor_id", actorID,
					"request_id", middleware.GetReqID(r.Context()))
			}
		})
	}
}
