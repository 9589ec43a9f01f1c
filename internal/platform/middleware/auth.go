package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/httputil"
	"scrip/pkg/requestcontext"
)

// PartyClaims is the subset of access-token claims the middleware needs.
type PartyClaims struct {
	PartyID string
}

// TokenValidator validates a bearer token and extracts its claims.
type TokenValidator interface {
	ValidateToken(token string) (*PartyClaims, error)
}

// RequireParty authenticates the caller from the Authorization header and
// stores the party id on the request context.
func RequireParty(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing authorization header"))
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authorization header must be a bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "token validation failed",
					slog.String("request_id", requestID),
					slog.String("error", err.Error()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			party, err := id.ParsePartyID(claims.PartyID)
			if err != nil {
				logger.WarnContext(ctx, "token carries malformed party id",
					slog.String("request_id", requestID),
					slog.String("error", err.Error()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithParty(ctx, party)))
		})
	}
}
