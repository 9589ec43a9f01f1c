// Package handler exposes value movement and the approval model over HTTP.
// All routes sit behind the party-JWT middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scrip/internal/token"
	"scrip/internal/valueledger"
	id "scrip/pkg/domain"
	"scrip/pkg/platform/httputil"
	"scrip/pkg/requestcontext"
)

// Service defines the value ledger operations the handler dispatches to.
type Service interface {
	TransferValue(ctx context.Context, caller id.PartyID, fromToken, toToken id.TokenID, amount uint64) error
	TransferToNewRecord(ctx context.Context, caller id.PartyID, fromToken id.TokenID, to id.PartyID, amount uint64) (token.Record, error)
	Approve(ctx context.Context, caller id.PartyID, tokenID id.TokenID, operator id.PartyID) error
	SetSlotApproval(ctx context.Context, caller id.PartyID, slot id.SlotID, operator id.PartyID, approved bool) error
	SetAllowance(ctx context.Context, caller id.PartyID, tokenID id.TokenID, spender id.PartyID, amount uint64) error
	BalanceOf(ctx context.Context, party id.PartyID, slot id.SlotID) (uint64, error)
	AllowanceOf(ctx context.Context, tokenID id.TokenID, spender id.PartyID) (uint64, error)
	SlotInfoOf(ctx context.Context, slot id.SlotID) (valueledger.SlotInfo, error)
}

// Handler wires value ledger endpoints to the valueledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a value ledger handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts value ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/value/transfers", h.HandleTransferValue)
	r.Post("/value/splits", h.HandleSplit)
	r.Post("/value/approvals/record", h.HandleRecordApproval)
	r.Post("/value/approvals/slot", h.HandleSlotApproval)
	r.Post("/value/approvals/allowance", h.HandleAllowance)
	r.Get("/value/balances/{partyID}", h.HandleBalance)
	r.Get("/value/slots/{slot}", h.HandleSlotInfo)
	r.Get("/value/tokens/{tokenID}/allowance", h.HandleAllowanceOf)
}

// HandleTransferValue handles POST /value/transfers.
func (h *Handler) HandleTransferValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[TransferValueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Party(ctx)
	err := h.service.TransferValue(ctx, caller, id.TokenID(req.FromToken), id.TokenID(req.ToToken), req.Amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "value transfer failed",
			"request_id", requestID,
			"from_token", req.FromToken,
			"to_token", req.ToToken,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "value transferred",
		"request_id", requestID,
		"from_token", req.FromToken,
		"to_token", req.ToToken,
		"amount", req.Amount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	w.WriteHeader(http.StatusNoContent)
}

// HandleSplit handles POST /value/splits.
func (h *Handler) HandleSplit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SplitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Party(ctx)
	minted, err := h.service.TransferToNewRecord(ctx, caller, id.TokenID(req.FromToken), req.ParsedTo(), req.Amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "record split failed",
			"request_id", requestID,
			"from_token", req.FromToken,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "record split",
		"request_id", requestID,
		"from_token", req.FromToken,
		"minted_token", minted.TokenID.String(),
		"amount", req.Amount,
	)

	httputil.WriteJSON(w, http.StatusCreated,
		mintedResponse(minted.TokenID, minted.DocumentID, minted.Slot, minted.Value, minted.Owner))
}

// HandleRecordApproval handles POST /value/approvals/record.
func (h *Handler) HandleRecordApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RecordApprovalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Party(ctx)
	if err := h.service.Approve(ctx, caller, id.TokenID(req.Token), req.ParsedOperator()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSlotApproval handles POST /value/approvals/slot.
func (h *Handler) HandleSlotApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SlotApprovalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Party(ctx)
	if err := h.service.SetSlotApproval(ctx, caller, id.SlotID(req.Slot), req.ParsedOperator(), req.Approved); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAllowance handles POST /value/approvals/allowance.
func (h *Handler) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AllowanceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Party(ctx)
	if err := h.service.SetAllowance(ctx, caller, id.TokenID(req.Token), req.ParsedSpender(), req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBalance handles GET /value/balances/{partyID}?slot=.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	party, err := id.ParsePartyID(chi.URLParam(r, "partyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	slot, err := id.ParseSlotID(r.URL.Query().Get("slot"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	balance, err := h.service.BalanceOf(ctx, party, slot)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &BalanceResponse{
		Party:   party.String(),
		Slot:    uint64(slot),
		Balance: balance,
	})
}

// HandleSlotInfo handles GET /value/slots/{slot}.
func (h *Handler) HandleSlotInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slot, err := id.ParseSlotID(chi.URLParam(r, "slot"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	info, err := h.service.SlotInfoOf(ctx, slot)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSlotInfo(info))
}

// HandleAllowanceOf handles GET /value/tokens/{tokenID}/allowance?spender=.
func (h *Handler) HandleAllowanceOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	spender, err := id.ParsePartyID(r.URL.Query().Get("spender"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	allowance, err := h.service.AllowanceOf(ctx, tokenID, spender)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &AllowanceResponse{
		Token:     uint64(tokenID),
		Spender:   spender.String(),
		Allowance: allowance,
	})
}
