package handler

import (
	"time"

	"scrip/internal/token"
	"scrip/internal/verifier"
)

// RecordResponse is the HTTP shape of a token record. The delegate fields
// reflect the role as of the request time, so an expired role reads empty.
type RecordResponse struct {
	TokenID     uint64     `json:"token_id"`
	DocumentID  string     `json:"document_id"`
	Slot        uint64     `json:"slot"`
	Value       uint64     `json:"value"`
	ReservedFor string     `json:"reserved_for,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	Claimed     bool       `json:"claimed"`
	Valid       bool       `json:"valid"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	Delegate    string     `json:"delegate,omitempty"`
	DelegateExp *time.Time `json:"delegate_expires_at,omitempty"`
	Label       string     `json:"label,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
}

// FromRecord converts a record to its HTTP response as of now.
func FromRecord(rec token.Record, now time.Time) *RecordResponse {
	resp := &RecordResponse{
		TokenID:    uint64(rec.TokenID),
		DocumentID: rec.DocumentID.String(),
		Slot:       uint64(rec.Slot),
		Value:      rec.Value,
		Claimed:    rec.Claimed,
		Valid:      rec.Valid,
		Label:      rec.Label,
		CreatedAt:  rec.CreatedAt,
	}
	if !rec.ReservedFor.IsNil() {
		resp.ReservedFor = rec.ReservedFor.String()
	}
	if !rec.Owner.IsNil() {
		resp.Owner = rec.Owner.String()
	}
	if !rec.RevokedAt.IsZero() {
		revokedAt := rec.RevokedAt
		resp.RevokedAt = &revokedAt
	}
	if delegate, exp := rec.CurrentDelegate(now); !delegate.IsNil() {
		resp.Delegate = delegate.String()
		resp.DelegateExp = &exp
	}
	if !rec.ClaimedAt.IsZero() {
		claimedAt := rec.ClaimedAt
		resp.ClaimedAt = &claimedAt
	}
	return resp
}

// RecordListResponse wraps the records of one document.
type RecordListResponse struct {
	Records []*RecordResponse `json:"records"`
}

// FromRecords converts a record list to its HTTP response.
func FromRecords(records []token.Record, now time.Time) *RecordListResponse {
	out := &RecordListResponse{Records: make([]*RecordResponse, 0, len(records))}
	for _, rec := range records {
		out.Records = append(out.Records, FromRecord(rec, now))
	}
	return out
}

// DecisionResponse is the HTTP shape of a pure capability check.
type DecisionResponse struct {
	Granted      bool     `json:"granted"`
	Denial       string   `json:"denial,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// FromDecision converts a verifier decision to its HTTP response.
func FromDecision(d verifier.Decision) *DecisionResponse {
	resp := &DecisionResponse{Granted: d.Granted}
	if !d.Granted {
		resp.Denial = string(d.Denial)
		return resp
	}
	resp.Capabilities = d.Capabilities.Names()
	return resp
}
