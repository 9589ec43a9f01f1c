package handler

import (
	"strings"

	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
)

// SetIssuerRequest is the HTTP request body for POST /registry/documents.
type SetIssuerRequest struct {
	DocumentID string `json:"document_id"`
	Issuer     string `json:"issuer"`
	Variant    string `json:"variant"`

	// Parsed values (populated by Validate)
	parsedDocumentID id.DocumentID
	parsedIssuer     id.PartyID
	parsedVariant    id.Variant
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SetIssuerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	doc, err := id.ParseDocumentID(strings.TrimSpace(r.DocumentID))
	if err != nil {
		return err
	}
	r.parsedDocumentID = doc

	issuer, err := id.ParsePartyID(strings.TrimSpace(r.Issuer))
	if err != nil {
		return err
	}
	r.parsedIssuer = issuer

	variant, err := id.ParseVariant(strings.TrimSpace(r.Variant))
	if err != nil {
		return err
	}
	r.parsedVariant = variant

	return nil
}

// ParsedDocumentID returns the validated document id.
func (r *SetIssuerRequest) ParsedDocumentID() id.DocumentID {
	return r.parsedDocumentID
}

// ParsedIssuer returns the validated issuer id.
func (r *SetIssuerRequest) ParsedIssuer() id.PartyID {
	return r.parsedIssuer
}

// ParsedVariant returns the validated variant.
func (r *SetIssuerRequest) ParsedVariant() id.Variant {
	return r.parsedVariant
}
