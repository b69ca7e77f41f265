package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
)

// Recover recovers from panics, logs the error and reports it to Sentry when configured
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				m.log.Error().
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("request_id", GetRequestID(r.Context())).
					Msg("panic recovered")

				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(r)
				hub.Scope().SetTag("request_id", GetRequestID(r.Context()))
				hub.RecoverWithContext(r.Context(), fmt.Errorf("panic: %v", err))

				writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
