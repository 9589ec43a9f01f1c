// Package httputil writes wire responses and decodes request bodies the same
// way for every handler. Error bodies carry the domain error code so callers
// can branch on the failure kind without parsing prose.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "scrip/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; every request in this API is small.
const maxBodyBytes = 1 << 20

// ErrorResponse is the wire shape for failures.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto an HTTP response. Internal failures
// omit the description so store and gateway details never reach callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	resp := ErrorResponse{Error: string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message()
		}
	}
	WriteJSON(w, status, resp)
}

// Validatable is implemented by request types that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// validatablePtr constrains PT to be *T implementing Validatable, so callers
// name only the request type: DecodeAndPrepare[ReserveRequest](w, r, ...).
type validatablePtr[T any] interface {
	*T
	Validatable
}

// DecodeAndPrepare decodes the JSON request body into T and runs its
// Validate. On any failure it writes the error response itself and returns
// ok=false, so handlers can bail with a bare return.
func DecodeAndPrepare[T any, PT validatablePtr[T]](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	var payload T
	pv := PT(&payload)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(pv); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request body decode failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return nil, false
	}

	if err := pv.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return pv, true
}

// statusFor maps domain error codes to HTTP statuses. Unknown codes are
// treated as internal so new codes fail safe.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput,
		dErrors.CodeValidation,
		dErrors.CodeBadRequest,
		dErrors.CodeLabelTooLarge,
		dErrors.CodeRevocationUnsupported,
		dErrors.CodeDelegationUnsupported,
		dErrors.CodeNotValueBacked:
		return http.StatusBadRequest

	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized

	case dErrors.CodeForbidden,
		dErrors.CodeAttestationRevoked,
		dErrors.CodeAttestationExpired,
		dErrors.CodeSchemaMismatch,
		dErrors.CodeRecipientMismatch,
		dErrors.CodeIssuerMismatch,
		dErrors.CodeDocumentMismatch,
		dErrors.CodePayloadMalformed,
		dErrors.CodeInsufficientCapability,
		dErrors.CodeNotReservedForCaller,
		dErrors.CodeOnlyIssuerMayReserve,
		dErrors.CodeOnlyIssuerMayCancel,
		dErrors.CodeNotAuthorized,
		dErrors.CodeTokenLocked,
		dErrors.CodeInsufficientAllowance,
		dErrors.CodeInvalidDelegationSignature:
		return http.StatusForbidden

	case dErrors.CodeNotFound,
		dErrors.CodeAttestationNotFound,
		dErrors.CodeTokenNotFound,
		dErrors.CodeIssuerNotRegistered:
		return http.StatusNotFound

	case dErrors.CodeConflict,
		dErrors.CodeAlreadyReserved,
		dErrors.CodeAlreadyClaimed,
		dErrors.CodeAlreadyRevoked,
		dErrors.CodeTokenNotClaimed,
		dErrors.CodeSlotMismatch,
		dErrors.CodeInsufficientValue,
		dErrors.CodeIssuerAlreadyRegistered:
		return http.StatusConflict

	case dErrors.CodeUnavailable,
		dErrors.CodeAttestationUnavailable,
		dErrors.CodeLedgerPaused:
		return http.StatusServiceUnavailable

	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
