package handler

import (
	"strings"

	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
)

// TransferValueRequest is the HTTP request body for POST /value/transfers.
type TransferValueRequest struct {
	FromToken uint64 `json:"from_token"`
	ToToken   uint64 `json:"to_token"`
	Amount    uint64 `json:"amount"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *TransferValueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be at least 1")
	}
	return nil
}

// SplitRequest is the HTTP request body for POST /value/splits.
type SplitRequest struct {
	FromToken uint64 `json:"from_token"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`

	parsedTo id.PartyID
}

// Validate validates and parses the request.
func (r *SplitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	to, err := id.ParsePartyID(strings.TrimSpace(r.To))
	if err != nil {
		return err
	}
	r.parsedTo = to
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be at least 1")
	}
	return nil
}

// ParsedTo returns the validated target party.
func (r *SplitRequest) ParsedTo() id.PartyID {
	return r.parsedTo
}

// RecordApprovalRequest is the HTTP request body for
// POST /value/approvals/record. An empty operator clears the approval.
type RecordApprovalRequest struct {
	Token    uint64 `json:"token"`
	Operator string `json:"operator,omitempty"`

	parsedOperator id.PartyID
}

// Validate validates and parses the request.
func (r *RecordApprovalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if operator := strings.TrimSpace(r.Operator); operator != "" {
		parsed, err := id.ParsePartyID(operator)
		if err != nil {
			return err
		}
		r.parsedOperator = parsed
	}
	return nil
}

// ParsedOperator returns the validated operator, or the nil party to clear.
func (r *RecordApprovalRequest) ParsedOperator() id.PartyID {
	return r.parsedOperator
}

// SlotApprovalRequest is the HTTP request body for POST /value/approvals/slot.
type SlotApprovalRequest struct {
	Slot     uint64 `json:"slot"`
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`

	parsedOperator id.PartyID
}

// Validate validates and parses the request.
func (r *SlotApprovalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	operator, err := id.ParsePartyID(strings.TrimSpace(r.Operator))
	if err != nil {
		return err
	}
	r.parsedOperator = operator
	return nil
}

// ParsedOperator returns the validated operator.
func (r *SlotApprovalRequest) ParsedOperator() id.PartyID {
	return r.parsedOperator
}

// AllowanceRequest is the HTTP request body for
// POST /value/approvals/allowance. A zero amount clears the allowance.
type AllowanceRequest struct {
	Token   uint64 `json:"token"`
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`

	parsedSpender id.PartyID
}

// Validate validates and parses the request.
func (r *AllowanceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	spender, err := id.ParsePartyID(strings.TrimSpace(r.Spender))
	if err != nil {
		return err
	}
	r.parsedSpender = spender
	return nil
}

// ParsedSpender returns the validated spender.
func (r *AllowanceRequest) ParsedSpender() id.PartyID {
	return r.parsedSpender
}
