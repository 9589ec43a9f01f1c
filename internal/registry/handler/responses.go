package handler

import (
	"time"

	"scrip/internal/registry"
)

// AssignmentResponse is the HTTP shape of an assignment.
type AssignmentResponse struct {
	DocumentID string    `json:"document_id"`
	Issuer     string    `json:"issuer"`
	Variant    string    `json:"variant"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromAssignment converts a domain assignment to its HTTP response.
func FromAssignment(a registry.Assignment) *AssignmentResponse {
	return &AssignmentResponse{
		DocumentID: a.DocumentID.String(),
		Issuer:     a.Issuer.String(),
		Variant:    string(a.Variant),
		CreatedAt:  a.CreatedAt,
	}
}
