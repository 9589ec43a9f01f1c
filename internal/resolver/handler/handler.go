// Package handler exposes the token lifecycle over HTTP. Every route sits
// behind the party-JWT middleware; the caller identity comes from the
// request context, never from the body.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scrip/internal/capability"
	"scrip/internal/token"
	"scrip/internal/verifier"
	id "scrip/pkg/domain"
	"scrip/pkg/platform/httputil"
	"scrip/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler dispatches to.
type Service interface {
	Reserve(ctx context.Context, caller id.PartyID, doc id.DocumentID, recipient id.PartyID, slot id.SlotID, value uint64, label string) (token.Record, error)
	ReserveAnonymous(ctx context.Context, caller id.PartyID, doc id.DocumentID, slot id.SlotID, value uint64, label string) (token.Record, error)
	Claim(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID, attID id.AttestationID) (token.Record, error)
	Cancel(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID) error
	Transfer(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID, to id.PartyID) (token.Record, error)
	Revoke(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID) (token.Record, error)
	Delegate(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID, delegate id.PartyID, expiresAt time.Time, permit string) (token.Record, error)
	Get(ctx context.Context, doc id.DocumentID, tokenID id.TokenID) (token.Record, error)
	List(ctx context.Context, doc id.DocumentID) ([]token.Record, error)
}

// Checker runs the pure capability check for GET /capability/check.
type Checker interface {
	Check(ctx context.Context, caller id.PartyID, doc id.DocumentID, required capability.Mask, attID id.AttestationID) (verifier.Decision, error)
}

// Handler wires lifecycle endpoints to the resolver engine.
type Handler struct {
	service Service
	checker Checker
	logger  *slog.Logger
}

// New constructs a lifecycle handler with its dependencies.
func New(service Service, checker Checker, logger *slog.Logger) *Handler {
	return &Handler{service: service, checker: checker, logger: logger}
}

// Register mounts lifecycle endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents/{documentID}/reservations", h.HandleReserve)
	r.Get("/documents/{documentID}/tokens", h.HandleList)
	r.Get("/documents/{documentID}/tokens/{tokenID}", h.HandleGet)
	r.Delete("/documents/{documentID}/tokens/{tokenID}", h.HandleCancel)
	r.Post("/documents/{documentID}/tokens/{tokenID}/claim", h.HandleClaim)
	r.Post("/documents/{documentID}/tokens/{tokenID}/transfer", h.HandleTransfer)
	r.Post("/documents/{documentID}/tokens/{tokenID}/revoke", h.HandleRevoke)
	r.Post("/documents/{documentID}/tokens/{tokenID}/delegate", h.HandleDelegate)
	r.Get("/capability/check", h.HandleCheck)
}

// HandleReserve handles POST /documents/{documentID}/reservations.
func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	doc, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReserveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Party(ctx)
	var rec token.Record
	if req.Anonymous() {
		rec, err = h.service.ReserveAnonymous(ctx, caller, doc, id.SlotID(req.Slot), req.Value, req.Label)
	} else {
		rec, err = h.service.Reserve(ctx, caller, doc, req.ParsedRecipient(), id.SlotID(req.Slot), req.Value, req.Label)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "reservation failed",
			"request_id", requestID,
			"document_id", doc.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "token reserved",
		"request_id", requestID,
		"document_id", doc.String(),
		"token_id", rec.TokenID.String(),
		"anonymous", rec.Anonymous(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec, requestcontext.Now(ctx)))
}

// HandleClaim handles POST /documents/{documentID}/tokens/{tokenID}/claim.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	doc, tokenID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Claim(ctx, requestcontext.Party(ctx), doc, tokenID, req.ParsedAttestationID())
	if err != nil {
		h.logger.ErrorContext(ctx, "claim failed",
			"request_id", requestID,
			"document_id", doc.String(),
			"token_id", tokenID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "token claimed",
		"request_id", requestID,
		"document_id", doc.String(),
		"token_id", tokenID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, requestcontext.Now(ctx)))
}

// HandleCancel handles DELETE /documents/{documentID}/tokens/{tokenID}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	doc, tokenID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Cancel(ctx, requestcontext.Party(ctx), doc, tokenID); err != nil {
		h.logger.ErrorContext(ctx, "cancellation failed",
			"request_id", requestID,
			"document_id", doc.String(),
			"token_id", tokenID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reservation cancelled",
		"request_id", requestID,
		"document_id", doc.String(),
		"token_id", tokenID.String(),
	)

	w.WriteHeader(http.StatusNoContent)
}

// HandleTransfer handles POST /documents/{documentID}/tokens/{tokenID}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	doc, tokenID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Transfer(ctx, requestcontext.Party(ctx), doc, tokenID, req.ParsedTo())
	if err != nil {
		h.logger.ErrorContext(ctx, "transfer failed",
			"request_id", requestID,
			"document_id", doc.String(),
			"token_id", tokenID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, requestcontext.Now(ctx)))
}

// HandleRevoke handles POST /documents/{documentID}/tokens/{tokenID}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	doc, tokenID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Revoke(ctx, requestcontext.Party(ctx), doc, tokenID)
	if err != nil {
		h.logger.ErrorContext(ctx, "revocation failed",
			"request_id", requestID,
			"document_id", doc.String(),
			"token_id", tokenID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "token revoked",
		"request_id", requestID,
		"document_id", doc.String(),
		"token_id", tokenID.String(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, requestcontext.Now(ctx)))
}

// HandleDelegate handles POST /documents/{documentID}/tokens/{tokenID}/delegate.
func (h *Handler) HandleDelegate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	doc, tokenID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DelegateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Delegate(ctx, requestcontext.Party(ctx), doc, tokenID,
		req.ParsedDelegate(), req.ParsedExpiresAt(), req.Permit)
	if err != nil {
		h.logger.ErrorContext(ctx, "delegation failed",
			"request_id", requestID,
			"document_id", doc.String(),
			"token_id", tokenID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, requestcontext.Now(ctx)))
}

// HandleGet handles GET /documents/{documentID}/tokens/{tokenID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, tokenID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Get(ctx, doc, tokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, requestcontext.Now(ctx)))
}

// HandleList handles GET /documents/{documentID}/tokens.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.List(ctx, doc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecords(records, requestcontext.Now(ctx)))
}

// HandleCheck handles GET /capability/check. The check is pure: a denial is
// a 200 with granted false, not an error.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	doc, err := id.ParseDocumentID(query.Get("document_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	attID, err := id.ParseAttestationID(query.Get("attestation_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	required, err := capability.Parse(query.Get("capability"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.checker.Check(ctx, requestcontext.Party(ctx), doc, required, attID)
	if err != nil {
		h.logger.ErrorContext(ctx, "capability check failed",
			"request_id", requestcontext.RequestID(ctx),
			"document_id", doc.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

func pathIDs(r *http.Request) (id.DocumentID, id.TokenID, error) {
	doc, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		return id.DocumentID{}, 0, err
	}
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		return id.DocumentID{}, 0, err
	}
	return doc, tokenID, nil
}
