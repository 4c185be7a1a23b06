package middleware

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// identityHolder carries the authenticated user back up to the request
// logger; the auth middleware only sees a derived request.
type identityHolder struct {
	userID string
}

type holderKey struct{}

func contextWithHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

func recordIdentity(ctx context.Context, userID string) {
	if h, ok := ctx.Value(holderKey{}).(*identityHolder); ok {
		h.userID = userID
	}
}

func LoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			holder := &identityHolder{}
			r = r.WithContext(contextWithHolder(r.Context(), holder))

			next.ServeHTTP(rw, r)

			userID := holder.userID
			if userID == "" {
				userID = "anonymous"
			}

			event := log.Info()
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				event = log.Error()
			case rw.statusCode >= http.StatusBadRequest:
				event = log.Warn()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", rw.statusCode).
				Dur("duration", time.Since(start)).
				Str("user_id", userID).
				Msg("request")
		})
	}
}
