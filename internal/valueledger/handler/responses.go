package handler

import (
	"scrip/internal/valueledger"
	id "scrip/pkg/domain"
)

// BalanceResponse is the HTTP shape of a party's slot balance.
type BalanceResponse struct {
	Party   string `json:"party"`
	Slot    uint64 `json:"slot"`
	Balance uint64 `json:"balance"`
}

// AllowanceResponse is the HTTP shape of a spender's remaining allowance.
type AllowanceResponse struct {
	Token     uint64 `json:"token"`
	Spender   string `json:"spender"`
	Allowance uint64 `json:"allowance"`
}

// SlotInfoResponse is the HTTP shape of a slot's aggregates and holders.
type SlotInfoResponse struct {
	Slot          uint64   `json:"slot"`
	TotalReserved uint64   `json:"total_reserved"`
	TotalMinted   uint64   `json:"total_minted"`
	Holders       []string `json:"holders"`
}

// FromSlotInfo converts slot info to its HTTP response.
func FromSlotInfo(info valueledger.SlotInfo) *SlotInfoResponse {
	resp := &SlotInfoResponse{
		Slot:          uint64(info.Slot),
		TotalReserved: info.TotalReserved,
		TotalMinted:   info.TotalMinted,
		Holders:       make([]string, 0, len(info.Holders)),
	}
	for _, holder := range info.Holders {
		resp.Holders = append(resp.Holders, holder.String())
	}
	return resp
}

// MintedResponse is the HTTP shape of a split's freshly minted record.
type MintedResponse struct {
	TokenID    uint64 `json:"token_id"`
	DocumentID string `json:"document_id"`
	Slot       uint64 `json:"slot"`
	Value      uint64 `json:"value"`
	Owner      string `json:"owner"`
}

func mintedResponse(tokenID id.TokenID, doc id.DocumentID, slot id.SlotID, value uint64, owner id.PartyID) *MintedResponse {
	return &MintedResponse{
		TokenID:    uint64(tokenID),
		DocumentID: doc.String(),
		Slot:       uint64(slot),
		Value:      value,
		Owner:      owner.String(),
	}
}
