// Package handler exposes governance operations over HTTP. Every route sits
// behind the governor-token middleware; the caller owns that grouping.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"scrip/internal/admin"
	"scrip/internal/audit"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/httputil"
	"scrip/pkg/requestcontext"
)

// Service defines the governance operations the handler dispatches to.
type Service interface {
	Pause(ctx context.Context) error
	Unpause(ctx context.Context) error
	SetSchema(ctx context.Context, schema id.SchemaID) error
	AuthorizeUpgrade(ctx context.Context, version string) (admin.Upgrade, error)
}

// Handler wires governance endpoints to the admin service. The audit store
// is optional: without one the events endpoint is not mounted.
type Handler struct {
	service    Service
	auditStore audit.Store
	logger     *slog.Logger
}

// New constructs a governance handler with its dependencies.
func New(service Service, auditStore audit.Store, logger *slog.Logger) *Handler {
	return &Handler{service: service, auditStore: auditStore, logger: logger}
}

// Register mounts governance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/pause", h.HandlePause)
	r.Post("/admin/unpause", h.HandleUnpause)
	r.Put("/admin/schema", h.HandleSetSchema)
	r.Post("/admin/upgrades", h.HandleAuthorizeUpgrade)
	if h.auditStore != nil {
		r.Get("/audit/events", h.HandleAuditEvents)
	}
}

// HandlePause handles POST /admin/pause.
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// HandleUnpause handles POST /admin/unpause.
func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *Handler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var err error
	if paused {
		err = h.service.Pause(ctx)
	} else {
		err = h.service.Unpause(ctx)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "pause state change failed",
			"request_id", requestID,
			"paused", paused,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

// SetSchemaRequest is the HTTP request body for PUT /admin/schema.
type SetSchemaRequest struct {
	SchemaID string `json:"schema_id"`

	parsedSchemaID id.SchemaID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SetSchemaRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	schema, err := id.ParseSchemaID(strings.TrimSpace(r.SchemaID))
	if err != nil {
		return err
	}
	r.parsedSchemaID = schema
	return nil
}

// HandleSetSchema handles PUT /admin/schema.
func (h *Handler) HandleSetSchema(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetSchemaRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SetSchema(ctx, req.parsedSchemaID); err != nil {
		h.logger.ErrorContext(ctx, "schema update failed",
			"request_id", requestID,
			"schema_id", req.SchemaID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "capability schema updated",
		"request_id", requestID,
		"schema_id", req.SchemaID,
	)

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"schema_id": req.SchemaID})
}

// AuthorizeUpgradeRequest is the HTTP request body for POST /admin/upgrades.
type AuthorizeUpgradeRequest struct {
	Version string `json:"version"`
}

// Validate validates the request.
func (r *AuthorizeUpgradeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Version) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "version is required")
	}
	return nil
}

// UpgradeResponse is the HTTP shape of an upgrade authorization.
type UpgradeResponse struct {
	Version      string    `json:"version"`
	AuthorizedAt time.Time `json:"authorized_at"`
}

// HandleAuthorizeUpgrade handles POST /admin/upgrades.
func (h *Handler) HandleAuthorizeUpgrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AuthorizeUpgradeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	upgrade, err := h.service.AuthorizeUpgrade(ctx, strings.TrimSpace(req.Version))
	if err != nil {
		h.logger.ErrorContext(ctx, "upgrade authorization failed",
			"request_id", requestID,
			"version", req.Version,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &UpgradeResponse{
		Version:      upgrade.Version,
		AuthorizedAt: upgrade.AuthorizedAt,
	})
}

// EventResponse is the HTTP shape of one audit event.
type EventResponse struct {
	Time          time.Time `json:"time"`
	Category      string    `json:"category"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor,omitempty"`
	DocumentID    string    `json:"document_id,omitempty"`
	TokenID       *uint64   `json:"token_id,omitempty"`
	Slot          *uint64   `json:"slot,omitempty"`
	AttestationID string    `json:"attestation_id,omitempty"`
	Capabilities  []string  `json:"capabilities,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
}

// EventListResponse wraps a page of audit events, newest first.
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
}

// HandleAuditEvents handles GET /audit/events?document_id=&action=&limit=.
func (h *Handler) HandleAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := audit.Filter{
		DocumentID: strings.TrimSpace(query.Get("document_id")),
		Action:     audit.Action(strings.TrimSpace(query.Get("action"))),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	events, err := h.auditStore.List(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := &EventListResponse{Events: make([]*EventResponse, 0, len(events))}
	for _, event := range events {
		resp.Events = append(resp.Events, fromEvent(event))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func fromEvent(event audit.Event) *EventResponse {
	resp := &EventResponse{
		Time:      event.Time,
		Category:  string(event.Category),
		Action:    string(event.Action),
		Detail:    event.Detail,
		RequestID: event.RequestID,
	}
	if !event.Actor.IsNil() {
		resp.Actor = event.Actor.String()
	}
	if !event.DocumentID.IsNil() {
		resp.DocumentID = event.DocumentID.String()
	}
	if event.TokenID != nil {
		tokenID := uint64(*event.TokenID)
		resp.TokenID = &tokenID
	}
	if event.Slot != nil {
		slot := uint64(*event.Slot)
		resp.Slot = &slot
	}
	if !event.AttestationID.IsNil() {
		resp.AttestationID = event.AttestationID.String()
	}
	if event.Capabilities != 0 {
		resp.Capabilities = event.Capabilities.Names()
	}
	return resp
}
