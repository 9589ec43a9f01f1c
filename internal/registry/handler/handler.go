package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scrip/internal/registry"
	id "scrip/pkg/domain"
	"scrip/pkg/platform/httputil"
	"scrip/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	SetIssuer(ctx context.Context, doc id.DocumentID, issuer id.PartyID, variant id.Variant) (registry.Assignment, error)
	AssignmentOf(ctx context.Context, doc id.DocumentID) (registry.Assignment, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router. The write route must sit
// behind the executor-token middleware; the caller owns that grouping.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registry/documents", h.HandleSetIssuer)
	r.Get("/registry/documents/{documentID}", h.HandleGetAssignment)
}

// HandleSetIssuer handles POST /registry/documents.
func (h *Handler) HandleSetIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SetIssuerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	assignment, err := h.service.SetIssuer(ctx, req.ParsedDocumentID(), req.ParsedIssuer(), req.ParsedVariant())
	if err != nil {
		h.logger.ErrorContext(ctx, "issuer registration failed",
			"request_id", requestID,
			"document_id", req.DocumentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "issuer registered",
		"request_id", requestID,
		"document_id", req.DocumentID,
		"variant", req.Variant,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromAssignment(assignment))
}

// HandleGetAssignment handles GET /registry/documents/{documentID}.
func (h *Handler) HandleGetAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	assignment, err := h.service.AssignmentOf(ctx, doc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromAssignment(assignment))
}
