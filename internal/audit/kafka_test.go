package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrip/internal/capability"
	id "scrip/pkg/domain"
)

func TestToWireEvent(t *testing.T) {
	doc := mustDocumentID(t)
	actor, err := id.ParsePartyID(uuid.NewString())
	require.NoError(t, err)

	tokenID := id.TokenID(0)
	slot := id.SlotID(3)

	t.Run("full event keeps token id zero", func(t *testing.T) {
		event := Event{
			Time:         time.Unix(1700000000, 0).UTC(),
			Category:     CategoryCompliance,
			Action:       ActionTokenClaimed,
			Actor:        actor,
			DocumentID:   doc,
			TokenID:      &tokenID,
			Slot:         &slot,
			Capabilities: capability.Claim,
			RequestID:    "req-1",
		}

		raw, err := json.Marshal(toWireEvent(event))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))

		// Token id 0 is a real token; it must survive serialization.
		assert.Equal(t, float64(0), decoded["token_id"])
		assert.Equal(t, float64(3), decoded["slot"])
		assert.Equal(t, doc.String(), decoded["document_id"])
		assert.Equal(t, actor.String(), decoded["actor"])
	})

	t.Run("absent dimensions are omitted", func(t *testing.T) {
		event := Event{
			Time:     time.Now(),
			Category: CategorySecurity,
			Action:   ActionLedgerPaused,
		}

		raw, err := json.Marshal(toWireEvent(event))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))

		assert.NotContains(t, decoded, "token_id")
		assert.NotContains(t, decoded, "slot")
		assert.NotContains(t, decoded, "document_id")
		assert.NotContains(t, decoded, "actor")
		assert.NotContains(t, decoded, "attestation_id")
	})
}

func TestRecordKey(t *testing.T) {
	doc := mustDocumentID(t)

	assert.Equal(t, []byte(doc.String()), recordKey(Event{DocumentID: doc}))
	assert.Equal(t, []byte(ActionLedgerPaused), recordKey(Event{Action: ActionLedgerPaused}))
}
