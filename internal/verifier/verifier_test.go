package verifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"scrip/internal/attestation"
	"scrip/internal/attestation/mocks"
	"scrip/internal/audit"
	"scrip/internal/capability"
	"scrip/internal/registry"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/sentinel"
	"scrip/pkg/requestcontext"
)

type staticSchema struct {
	schema id.SchemaID
}

func (s staticSchema) CurrentSchema(context.Context) (id.SchemaID, error) {
	return s.schema, nil
}

type openGuard struct{}

func (openGuard) Ensure(context.Context) error { return nil }

// fixture carries one fully-registered document with one valid attestation
// granting CLAIM|TRANSFER to the caller.
type fixture struct {
	service    *Service
	gateway    *attestation.InMemoryGateway
	auditStore *audit.MemoryStore

	now    time.Time
	caller id.PartyID
	issuer id.PartyID
	doc    id.DocumentID
	schema id.SchemaID
	attID  id.AttestationID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		gateway:    attestation.NewInMemoryGateway(),
		auditStore: audit.NewMemoryStore(64),
		now:        time.Now(),
		caller:     newParty(t),
		issuer:     newParty(t),
	}

	doc, err := id.ParseDocumentID(uuid.NewString())
	require.NoError(t, err)
	f.doc = doc

	schema, err := id.ParseSchemaID(uuid.NewString())
	require.NoError(t, err)
	f.schema = schema

	registryStore := registry.NewInMemoryStore()
	require.NoError(t, registryStore.Create(context.Background(), registry.Assignment{
		DocumentID: f.doc,
		Issuer:     f.issuer,
		Variant:    id.VariantValue,
		CreatedAt:  f.now,
	}))

	f.attID = f.seedAttestation(t, attestation.Attestation{}, capability.Claim|capability.Transfer)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewService(
		f.gateway,
		registry.NewService(registryStore, openGuard{}, registry.WithLogger(logger)),
		staticSchema{schema: f.schema},
		WithLogger(logger),
		WithAuditPublisher(audit.NewStorePublisher(f.auditStore)),
	)
	return f
}

// seedAttestation stores an attestation for the fixture document; zero
// fields on the override take fixture defaults.
func (f *fixture) seedAttestation(t *testing.T, override attestation.Attestation, caps capability.Mask) id.AttestationID {
	t.Helper()

	att := override
	if att.ID.IsNil() {
		attID, err := id.ParseAttestationID(uuid.NewString())
		require.NoError(t, err)
		att.ID = attID
	}
	if att.SchemaID.IsNil() {
		att.SchemaID = f.schema
	}
	if att.Recipient.IsNil() {
		att.Recipient = f.caller
	}
	if att.Issuer.IsNil() {
		att.Issuer = f.issuer
	}
	if att.IssuedAt.IsZero() {
		att.IssuedAt = f.now.Add(-time.Hour)
	}
	if att.Payload == nil {
		payload, err := attestation.EncodePayload(attestation.Payload{
			DocumentID:   f.doc,
			Capabilities: caps,
		})
		require.NoError(t, err)
		att.Payload = payload
	}

	f.gateway.Seed(att)
	return att.ID
}

func (f *fixture) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), f.now)
}

func newParty(t *testing.T) id.PartyID {
	t.Helper()
	party, err := id.ParsePartyID(uuid.NewString())
	require.NoError(t, err)
	return party
}

func (f *fixture) check(t *testing.T, attID id.AttestationID, required capability.Mask) Decision {
	t.Helper()
	decision, err := f.service.Check(f.ctx(), f.caller, f.doc, required, attID)
	require.NoError(t, err)
	return decision
}

func TestCheck_Granted(t *testing.T) {
	f := newFixture(t)

	decision := f.check(t, f.attID, capability.Claim)

	assert.True(t, decision.Granted)
	assert.Empty(t, decision.Denial)
	// The decision carries the full granted mask, not just what was asked.
	assert.Equal(t, capability.Claim|capability.Transfer, decision.Capabilities)
	require.NotNil(t, decision.Payload)
	assert.Equal(t, f.doc, decision.Payload.DocumentID)
}

func TestCheck_DenialChain(t *testing.T) {
	t.Run("unknown attestation", func(t *testing.T) {
		f := newFixture(t)
		unknown, err := id.ParseAttestationID(uuid.NewString())
		require.NoError(t, err)

		decision := f.check(t, unknown, capability.Claim)
		assert.False(t, decision.Granted)
		assert.Equal(t, dErrors.CodeAttestationNotFound, decision.Denial)
	})

	t.Run("revoked attestation", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.Revoke(f.attID, f.now.Add(-time.Minute))

		decision := f.check(t, f.attID, capability.Claim)
		assert.Equal(t, dErrors.CodeAttestationRevoked, decision.Denial)
	})

	t.Run("expired attestation", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.SetExpiry(f.attID, f.now.Add(-time.Second))

		decision := f.check(t, f.attID, capability.Claim)
		assert.Equal(t, dErrors.CodeAttestationExpired, decision.Denial)
	})

	t.Run("wrong schema", func(t *testing.T) {
		f := newFixture(t)
		otherSchema, err := id.ParseSchemaID(uuid.NewString())
		require.NoError(t, err)
		attID := f.seedAttestation(t, attestation.Attestation{SchemaID: otherSchema}, capability.Claim)

		decision := f.check(t, attID, capability.Claim)
		assert.Equal(t, dErrors.CodeSchemaMismatch, decision.Denial)
	})

	t.Run("attestation issued to someone else", func(t *testing.T) {
		f := newFixture(t)
		attID := f.seedAttestation(t, attestation.Attestation{Recipient: newParty(t)}, capability.Claim)

		decision := f.check(t, attID, capability.Claim)
		assert.Equal(t, dErrors.CodeRecipientMismatch, decision.Denial)
	})

	t.Run("unregistered document", func(t *testing.T) {
		f := newFixture(t)
		otherDoc, err := id.ParseDocumentID(uuid.NewString())
		require.NoError(t, err)

		payload, err := attestation.EncodePayload(attestation.Payload{
			DocumentID:   otherDoc,
			Capabilities: capability.Claim,
		})
		require.NoError(t, err)
		attID := f.seedAttestation(t, attestation.Attestation{Payload: payload}, 0)

		decision, err := f.service.Check(f.ctx(), f.caller, otherDoc, capability.Claim, attID)
		require.NoError(t, err)
		assert.Equal(t, dErrors.CodeIssuerNotRegistered, decision.Denial)
	})

	t.Run("attestation from a different issuer", func(t *testing.T) {
		f := newFixture(t)
		attID := f.seedAttestation(t, attestation.Attestation{Issuer: newParty(t)}, capability.Claim)

		decision := f.check(t, attID, capability.Claim)
		assert.Equal(t, dErrors.CodeIssuerMismatch, decision.Denial)
	})

	t.Run("malformed payload", func(t *testing.T) {
		f := newFixture(t)
		attID := f.seedAttestation(t, attestation.Attestation{Payload: []byte("not json")}, 0)

		decision := f.check(t, attID, capability.Claim)
		assert.Equal(t, dErrors.CodePayloadMalformed, decision.Denial)
	})

	t.Run("payload bound to another document", func(t *testing.T) {
		f := newFixture(t)
		otherDoc, err := id.ParseDocumentID(uuid.NewString())
		require.NoError(t, err)

		payload, err := attestation.EncodePayload(attestation.Payload{
			DocumentID:   otherDoc,
			Capabilities: capability.Claim,
		})
		require.NoError(t, err)
		attID := f.seedAttestation(t, attestation.Attestation{Payload: payload}, 0)

		decision := f.check(t, attID, capability.Claim)
		assert.Equal(t, dErrors.CodeDocumentMismatch, decision.Denial)
	})

	t.Run("missing capability", func(t *testing.T) {
		f := newFixture(t)

		decision := f.check(t, f.attID, capability.RevokeAccess)
		assert.Equal(t, dErrors.CodeInsufficientCapability, decision.Denial)
	})

	t.Run("admin capability implies everything", func(t *testing.T) {
		f := newFixture(t)
		attID := f.seedAttestation(t, attestation.Attestation{}, capability.Admin)

		decision := f.check(t, attID, capability.Claim|capability.RevokeAccess|capability.DelegateRights)
		assert.True(t, decision.Granted)
	})
}

// The expiry boundary: an attestation expiring at instant T is usable at
// T-1 and at T, and unusable at T+1.
func TestCheck_ExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	expiry := f.now.Add(time.Hour)
	f.gateway.SetExpiry(f.attID, expiry)

	checkAt := func(at time.Time) Decision {
		ctx := requestcontext.WithTime(context.Background(), at)
		decision, err := f.service.Check(ctx, f.caller, f.doc, capability.Claim, f.attID)
		require.NoError(t, err)
		return decision
	}

	assert.True(t, checkAt(expiry.Add(-time.Second)).Granted)
	assert.True(t, checkAt(expiry).Granted)

	late := checkAt(expiry.Add(time.Second))
	assert.False(t, late.Granted)
	assert.Equal(t, dErrors.CodeAttestationExpired, late.Denial)
}

func TestCheck_EmitsNoAuditEvents(t *testing.T) {
	f := newFixture(t)

	_ = f.check(t, f.attID, capability.Claim)
	_ = f.check(t, f.attID, capability.Admin)

	events, err := f.auditStore.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestVerify_GrantAndDenialAudit(t *testing.T) {
	t.Run("grant returns the full mask and audits it", func(t *testing.T) {
		f := newFixture(t)

		granted, err := f.service.Verify(f.ctx(), f.caller, f.doc, capability.Claim, f.attID)
		require.NoError(t, err)
		assert.Equal(t, capability.Claim|capability.Transfer, granted)

		events, err := f.auditStore.List(context.Background(), audit.Filter{Action: audit.ActionCapabilityVerified})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, capability.Claim|capability.Transfer, events[0].Capabilities)
		assert.Equal(t, audit.CategoryOperations, events[0].Category)
	})

	t.Run("denial returns the coded error and audits the code", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.Revoke(f.attID, f.now)

		_, err := f.service.Verify(f.ctx(), f.caller, f.doc, capability.Claim, f.attID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAttestationRevoked))

		events, listErr := f.auditStore.List(context.Background(), audit.Filter{Action: audit.ActionCapabilityDenied})
		require.NoError(t, listErr)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategorySecurity, events[0].Category)
		assert.Equal(t, string(dErrors.CodeAttestationRevoked), events[0].Detail)
	})
}

func TestCheck_GatewayOutageIsAnError(t *testing.T) {
	f := newFixture(t)

	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	gateway.EXPECT().
		Lookup(gomock.Any(), gomock.Any()).
		Return(attestation.Attestation{}, sentinel.ErrUnavailable).
		Times(2)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registryStore := registry.NewInMemoryStore()
	svc := NewService(
		gateway,
		registry.NewService(registryStore, openGuard{}, registry.WithLogger(logger)),
		staticSchema{schema: f.schema},
		WithLogger(logger),
		WithAuditPublisher(audit.NewStorePublisher(f.auditStore)),
	)

	_, err := svc.Check(f.ctx(), f.caller, f.doc, capability.Claim, f.attID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAttestationUnavailable))
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))

	// Verify propagates the infra error without a denial audit event.
	_, err = svc.Verify(f.ctx(), f.caller, f.doc, capability.Claim, f.attID)
	require.Error(t, err)

	events, listErr := f.auditStore.List(context.Background(), audit.Filter{Action: audit.ActionCapabilityDenied})
	require.NoError(t, listErr)
	assert.Empty(t, events)
}
