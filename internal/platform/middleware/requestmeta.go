// Package middleware carries the HTTP middleware chain: request metadata,
// party authentication, and the static-token gates for the executor and
// governor surfaces.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"scrip/pkg/requestcontext"
)

// requestIDHeader is honored when the caller supplies one, so ids follow a
// request across services.
const requestIDHeader = "X-Request-Id"

// RequestID assigns every request an id and echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" || len(reqID) > 64 {
			reqID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		w.Header().Set(requestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime captures the current time at the start of the request so every
// time comparison within it sees the same instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
