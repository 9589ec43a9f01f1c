package attestation

import (
	"encoding/json"
	"time"

	"scrip/internal/capability"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
)

// payloadVersion is the only payload layout this build understands. The
// format evolves additively: new fields may appear under the same version
// tag and are ignored by older readers, while layout changes bump the tag.
const payloadVersion = 1

// Payload is the decoded nine-field attestation payload. The document id is
// the binding field; the token id is an advisory pointer recorded at issue
// time and never trusted for enforcement.
type Payload struct {
	Version            int
	DocumentID         id.DocumentID
	TokenID            id.TokenID
	Capabilities       capability.Mask
	VerifiedIdentity   string
	VerificationMethod string
	VerificationDate   time.Time
	ContractRole       string
	LegalEntityType    string
	Notes              string
}

type payloadDTO struct {
	Version            int    `json:"v"`
	DocumentID         string `json:"documentId"`
	TokenID            uint64 `json:"tokenId"`
	Capabilities       uint8  `json:"capabilities"`
	VerifiedIdentity   string `json:"verifiedIdentity"`
	VerificationMethod string `json:"verificationMethod"`
	VerificationDate   int64  `json:"verificationDate"`
	ContractRole       string `json:"contractRole"`
	LegalEntityType    string `json:"legalEntityType"`
	Notes              string `json:"notes"`
}

// DecodePayload parses the versioned payload JSON. A missing version tag
// decodes as version 1; unknown field names are ignored so newer issuers
// stay readable; anything else malformed is rejected.
func DecodePayload(raw []byte) (Payload, error) {
	if len(raw) == 0 {
		return Payload{}, dErrors.New(dErrors.CodePayloadMalformed, "payload is empty")
	}

	var dto payloadDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return Payload{}, dErrors.Wrap(err, dErrors.CodePayloadMalformed, "payload is not valid JSON")
	}

	version := dto.Version
	if version == 0 {
		version = payloadVersion
	}
	if version != payloadVersion {
		return Payload{}, dErrors.Newf(dErrors.CodePayloadMalformed, "unsupported payload version %d", version)
	}

	doc, err := id.ParseDocumentID(dto.DocumentID)
	if err != nil {
		return Payload{}, dErrors.Wrap(err, dErrors.CodePayloadMalformed, "payload document id is invalid")
	}

	var verifiedAt time.Time
	if dto.VerificationDate != 0 {
		verifiedAt = time.Unix(dto.VerificationDate, 0).UTC()
	}

	return Payload{
		Version:            version,
		DocumentID:         doc,
		TokenID:            id.TokenID(dto.TokenID),
		Capabilities:       capability.Mask(dto.Capabilities),
		VerifiedIdentity:   dto.VerifiedIdentity,
		VerificationMethod: dto.VerificationMethod,
		VerificationDate:   verifiedAt,
		ContractRole:       dto.ContractRole,
		LegalEntityType:    dto.LegalEntityType,
		Notes:              dto.Notes,
	}, nil
}

// EncodePayload renders a payload back to its wire form. Used by the
// in-memory gateway and tests; the production payloads arrive pre-encoded
// from the attestation service.
func EncodePayload(p Payload) ([]byte, error) {
	version := p.Version
	if version == 0 {
		version = payloadVersion
	}

	var verificationDate int64
	if !p.VerificationDate.IsZero() {
		verificationDate = p.VerificationDate.Unix()
	}

	raw, err := json.Marshal(payloadDTO{
		Version:            version,
		DocumentID:         p.DocumentID.String(),
		TokenID:            uint64(p.TokenID),
		Capabilities:       uint8(p.Capabilities),
		VerifiedIdentity:   p.VerifiedIdentity,
		VerificationMethod: p.VerificationMethod,
		VerificationDate:   verificationDate,
		ContractRole:       p.ContractRole,
		LegalEntityType:    p.LegalEntityType,
		Notes:              p.Notes,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode payload")
	}
	return raw, nil
}
