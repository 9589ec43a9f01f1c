package attestation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrip/internal/capability"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
)

func TestDecodePayload(t *testing.T) {
	docID := uuid.NewString()

	t.Run("decodes a full v1 payload", func(t *testing.T) {
		raw := []byte(`{
			"v": 1,
			"documentId": "` + docID + `",
			"tokenId": 7,
			"capabilities": 3,
			"verifiedIdentity": "Acme Holdings Ltd",
			"verificationMethod": "notarized",
			"verificationDate": 1700000000,
			"contractRole": "lessee",
			"legalEntityType": "llc",
			"notes": "renewal pending"
		}`)

		p, err := DecodePayload(raw)
		require.NoError(t, err)

		assert.Equal(t, 1, p.Version)
		assert.Equal(t, docID, p.DocumentID.String())
		assert.Equal(t, id.TokenID(7), p.TokenID)
		assert.Equal(t, capability.Claim|capability.Transfer, p.Capabilities)
		assert.Equal(t, "Acme Holdings Ltd", p.VerifiedIdentity)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), p.VerificationDate)
		assert.Equal(t, "lessee", p.ContractRole)
	})

	t.Run("missing version tag decodes as v1", func(t *testing.T) {
		raw := []byte(`{"documentId":"` + docID + `","capabilities":1}`)

		p, err := DecodePayload(raw)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Version)
		assert.True(t, p.Capabilities.Has(capability.Claim))
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		raw := []byte(`{"v":1,"documentId":"` + docID + `","capabilities":1,"futureField":"x"}`)

		_, err := DecodePayload(raw)
		require.NoError(t, err)
	})

	t.Run("unsupported version is rejected", func(t *testing.T) {
		raw := []byte(`{"v":2,"documentId":"` + docID + `"}`)

		_, err := DecodePayload(raw)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePayloadMalformed))
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		_, err := DecodePayload([]byte(`{"v":1,`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePayloadMalformed))
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		_, err := DecodePayload(nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePayloadMalformed))
	})

	t.Run("rejects invalid document id", func(t *testing.T) {
		_, err := DecodePayload([]byte(`{"v":1,"documentId":"not-a-uuid","capabilities":1}`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePayloadMalformed))
	})

	t.Run("zero verification date stays zero", func(t *testing.T) {
		p, err := DecodePayload([]byte(`{"v":1,"documentId":"` + docID + `","capabilities":1}`))
		require.NoError(t, err)
		assert.True(t, p.VerificationDate.IsZero())
	})
}

func TestEncodePayload_RoundTrip(t *testing.T) {
	doc, err := id.ParseDocumentID(uuid.NewString())
	require.NoError(t, err)

	original := Payload{
		DocumentID:         doc,
		TokenID:            42,
		Capabilities:       capability.Claim | capability.RequestPayment,
		VerifiedIdentity:   "Beta GmbH",
		VerificationMethod: "registry-extract",
		VerificationDate:   time.Unix(1720000000, 0).UTC(),
		ContractRole:       "lessor",
		LegalEntityType:    "gmbh",
	}

	raw, err := EncodePayload(original)
	require.NoError(t, err)

	decoded, err := DecodePayload(raw)
	require.NoError(t, err)

	original.Version = 1
	assert.Equal(t, original, decoded)
}
