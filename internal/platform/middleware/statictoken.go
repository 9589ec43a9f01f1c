package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/httputil"
	"scrip/pkg/requestcontext"
)

// Header names for the privileged surfaces. The executor token gates
// reservation and registry writes, the governor token gates ledger
// administration.
const (
	ExecutorTokenHeader = "X-Executor-Token"
	GovernorTokenHeader = "X-Governor-Token"
)

// RequireStaticToken gates a route group behind a shared-secret header.
func RequireStaticToken(header, expectedToken, role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(header)
			// Use constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "static token mismatch",
					slog.String("request_id", requestcontext.RequestID(ctx)),
					slog.String("role", role),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, role+" token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
