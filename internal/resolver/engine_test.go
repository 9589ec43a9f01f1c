package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrip/internal/admin"
	"scrip/internal/attestation"
	"scrip/internal/audit"
	"scrip/internal/capability"
	"scrip/internal/credential"
	"scrip/internal/registry"
	"scrip/internal/token"
	"scrip/internal/verifier"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/requestcontext"
)

// fixture wires the engine against real in-memory collaborators so the
// lifecycle runs exactly as it does in the binary.
type fixture struct {
	engine     *Engine
	store      *token.InMemoryStore
	gateway    *attestation.InMemoryGateway
	registry   *registry.Service
	admin      *admin.Service
	auditStore *audit.MemoryStore
	issued     []credential.ClaimEvent

	now    time.Time
	schema id.SchemaID
	issuer id.PartyID
}

type fixtureIssuer struct {
	f *fixture
}

func (i *fixtureIssuer) Issue(_ context.Context, event credential.ClaimEvent) {
	i.f.issued = append(i.f.issued, event)
}

type staticPermits struct {
	claims *PermitClaims
	err    error
}

func (p staticPermits) ValidateDelegationPermit(string) (*PermitClaims, error) {
	return p.claims, p.err
}

func newParty(t *testing.T) id.PartyID {
	t.Helper()
	party, err := id.ParsePartyID(uuid.NewString())
	require.NoError(t, err)
	return party
}

func newDoc(t *testing.T) id.DocumentID {
	t.Helper()
	doc, err := id.ParseDocumentID(uuid.NewString())
	require.NoError(t, err)
	return doc
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store:      token.NewInMemoryStore(),
		gateway:    attestation.NewInMemoryGateway(),
		auditStore: audit.NewMemoryStore(256),
		now:        time.Now(),
		issuer:     newParty(t),
	}

	schema, err := id.ParseSchemaID(uuid.NewString())
	require.NoError(t, err)
	f.schema = schema

	publisher := audit.NewStorePublisher(f.auditStore)
	f.admin, err = admin.NewService(context.Background(), admin.NewInMemoryStore(), schema,
		admin.WithAuditPublisher(publisher))
	require.NoError(t, err)

	f.registry = registry.NewService(registry.NewInMemoryStore(), f.admin, registry.WithAuditPublisher(publisher))

	verify := verifier.NewService(f.gateway, f.registry, f.admin,
		verifier.WithAuditPublisher(publisher))

	opts = append([]Option{
		WithAuditPublisher(publisher),
		WithCredentialIssuer(&fixtureIssuer{f: f}),
	}, opts...)
	f.engine = NewEngine(f.store, f.registry, verify, f.admin, opts...)
	return f
}

func (f *fixture) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), f.now)
}

func (f *fixture) registerDocument(t *testing.T, variant id.Variant) id.DocumentID {
	t.Helper()
	doc := newDoc(t)
	_, err := f.registry.SetIssuer(f.ctx(), doc, f.issuer, variant)
	require.NoError(t, err)
	return doc
}

// grantClaim seeds an attestation letting recipient claim under doc.
func (f *fixture) grantClaim(t *testing.T, doc id.DocumentID, recipient id.PartyID) id.AttestationID {
	t.Helper()
	return f.grant(t, doc, recipient, capability.Claim)
}

func (f *fixture) grant(t *testing.T, doc id.DocumentID, recipient id.PartyID, caps capability.Mask) id.AttestationID {
	t.Helper()

	payload, err := attestation.EncodePayload(attestation.Payload{
		DocumentID:   doc,
		Capabilities: caps,
	})
	require.NoError(t, err)

	attID, err := id.ParseAttestationID(uuid.NewString())
	require.NoError(t, err)

	f.gateway.Seed(attestation.Attestation{
		ID:        attID,
		SchemaID:  f.schema,
		Recipient: recipient,
		Issuer:    f.issuer,
		IssuedAt:  f.now.Add(-time.Hour),
		Payload:   payload,
	})
	return attID
}

func TestEngine_AnonymousReserveAndClaim(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantValue)
	claimant := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 5, 100, "series-A")
	require.NoError(t, err)
	assert.Equal(t, id.TokenID(0), rec.TokenID)
	assert.True(t, rec.Anonymous())
	assert.False(t, rec.Claimed)

	attID := f.grantClaim(t, doc, claimant)
	claimed, err := f.engine.Claim(f.ctx(), claimant, doc, rec.TokenID, attID)
	require.NoError(t, err)
	assert.True(t, claimed.Claimed)
	assert.True(t, claimed.Valid)
	assert.Equal(t, claimant, claimed.Owner)
	assert.True(t, claimed.ReservedFor.IsNil())
	assert.Equal(t, uint64(100), claimed.Value)

	// The credential side effect fired with the claim's facts.
	require.Len(t, f.issued, 1)
	assert.Equal(t, claimant, f.issued[0].Owner)
	assert.Equal(t, uint64(100), f.issued[0].Value)

	events, err := f.auditStore.List(f.ctx(), audit.Filter{Action: audit.ActionTokenClaimed})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEngine_SecondClaimFailsAlreadyClaimed(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantValue)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 5, 100, "")
	require.NoError(t, err)

	first := newParty(t)
	_, err = f.engine.Claim(f.ctx(), first, doc, rec.TokenID, f.grantClaim(t, doc, first))
	require.NoError(t, err)

	// A second claim loses regardless of how valid its attestation is.
	second := newParty(t)
	_, err = f.engine.Claim(f.ctx(), second, doc, rec.TokenID, f.grantClaim(t, doc, second))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyClaimed))
}

func TestEngine_TargetedReservation(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantRevocable)
	intended := newParty(t)

	rec, err := f.engine.Reserve(f.ctx(), f.issuer, doc, intended, 0, 1, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Value) // single-token variants fix value

	t.Run("someone else cannot claim it", func(t *testing.T) {
		other := newParty(t)
		_, err := f.engine.Claim(f.ctx(), other, doc, rec.TokenID, f.grantClaim(t, doc, other))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotReservedForCaller))
	})

	t.Run("an invalid attestation blocks even the intended recipient", func(t *testing.T) {
		attID := f.grant(t, doc, intended, capability.Transfer) // no CLAIM bit
		_, err := f.engine.Claim(f.ctx(), intended, doc, rec.TokenID, attID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientCapability))
	})

	t.Run("the intended recipient claims", func(t *testing.T) {
		claimed, err := f.engine.Claim(f.ctx(), intended, doc, rec.TokenID, f.grantClaim(t, doc, intended))
		require.NoError(t, err)
		assert.Equal(t, intended, claimed.Owner)
	})
}

func TestEngine_ReserveRules(t *testing.T) {
	f := newFixture(t)

	t.Run("only the issuer may reserve", func(t *testing.T) {
		doc := f.registerDocument(t, id.VariantValue)
		_, err := f.engine.ReserveAnonymous(f.ctx(), newParty(t), doc, 0, 10, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeOnlyIssuerMayReserve))
	})

	t.Run("unregistered document", func(t *testing.T) {
		_, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, newDoc(t), 0, 10, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIssuerNotRegistered))
	})

	t.Run("oversized label", func(t *testing.T) {
		doc := f.registerDocument(t, id.VariantValue)
		label := make([]byte, DefaultMaxLabelBytes+1)
		_, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 10, string(label))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeLabelTooLarge))
	})

	t.Run("identical reservation is idempotent", func(t *testing.T) {
		doc := f.registerDocument(t, id.VariantValue)
		first, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 3, 50, "x")
		require.NoError(t, err)
		again, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 3, 50, "x")
		require.NoError(t, err)
		assert.Equal(t, first.TokenID, again.TokenID)
	})

	t.Run("conflicting reservation fails already_reserved", func(t *testing.T) {
		doc := f.registerDocument(t, id.VariantValue)
		_, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 3, 50, "")
		require.NoError(t, err)
		_, err = f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 3, 60, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyReserved))
	})

	t.Run("value variant allows a second slot", func(t *testing.T) {
		doc := f.registerDocument(t, id.VariantValue)
		_, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 1, 50, "")
		require.NoError(t, err)
		_, err = f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 2, 50, "")
		require.NoError(t, err)
	})

	t.Run("single-token variant blocks after a claim", func(t *testing.T) {
		doc := f.registerDocument(t, id.VariantLocked)
		rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 1, "")
		require.NoError(t, err)
		holder := newParty(t)
		_, err = f.engine.Claim(f.ctx(), holder, doc, rec.TokenID, f.grantClaim(t, doc, holder))
		require.NoError(t, err)

		_, err = f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 1, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyClaimed))
	})
}

func TestEngine_Cancel(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantValue)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 4, 25, "")
	require.NoError(t, err)

	t.Run("only the issuer may cancel", func(t *testing.T) {
		err := f.engine.Cancel(f.ctx(), newParty(t), doc, rec.TokenID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeOnlyIssuerMayCancel))
	})

	t.Run("cancel removes the record and its reserved value", func(t *testing.T) {
		require.NoError(t, f.engine.Cancel(f.ctx(), f.issuer, doc, rec.TokenID))

		_, err := f.engine.Get(f.ctx(), doc, rec.TokenID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenNotFound))

		require.NoError(t, f.store.View(f.ctx(), func(tx token.Tx) error {
			agg, aggErr := tx.Aggregate(4)
			require.NoError(t, aggErr)
			assert.Zero(t, agg.TotalReserved)
			return nil
		}))
	})

	t.Run("claimed records cannot be cancelled", func(t *testing.T) {
		claimedRec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 4, 25, "")
		require.NoError(t, err)
		holder := newParty(t)
		_, err = f.engine.Claim(f.ctx(), holder, doc, claimedRec.TokenID, f.grantClaim(t, doc, holder))
		require.NoError(t, err)

		err = f.engine.Cancel(f.ctx(), f.issuer, doc, claimedRec.TokenID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyClaimed))
	})
}

func TestEngine_LockedVariantNeverTransfers(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantLocked)
	holder := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 1, "")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx(), holder, doc, rec.TokenID, f.grantClaim(t, doc, holder))
	require.NoError(t, err)

	_, err = f.engine.Transfer(f.ctx(), holder, doc, rec.TokenID, newParty(t))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenLocked))

	// Still locked after any number of attempts; there is no unlock path.
	_, err = f.engine.Transfer(f.ctx(), holder, doc, rec.TokenID, newParty(t))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenLocked))
}

func TestEngine_RevocableVariant(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantRevocable)
	holder := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 1, "")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx(), holder, doc, rec.TokenID, f.grantClaim(t, doc, holder))
	require.NoError(t, err)

	validCount := func() uint64 {
		var count uint64
		require.NoError(t, f.store.View(f.ctx(), func(tx token.Tx) error {
			var txErr error
			count, txErr = tx.ValidCount(holder)
			return txErr
		}))
		return count
	}
	require.Equal(t, uint64(1), validCount())

	t.Run("a stranger may not revoke", func(t *testing.T) {
		_, err := f.engine.Revoke(f.ctx(), newParty(t), doc, rec.TokenID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	t.Run("issuer revoke invalidates but preserves the record", func(t *testing.T) {
		revoked, err := f.engine.Revoke(f.ctx(), f.issuer, doc, rec.TokenID)
		require.NoError(t, err)
		assert.False(t, revoked.Valid)
		assert.False(t, revoked.RevokedAt.IsZero())
		assert.Equal(t, holder, revoked.Owner) // history preserved

		assert.Equal(t, uint64(0), validCount())

		// Historical query still returns it.
		got, err := f.engine.Get(f.ctx(), doc, rec.TokenID)
		require.NoError(t, err)
		assert.Equal(t, holder, got.Owner)
	})

	t.Run("second revoke fails and decrements nothing", func(t *testing.T) {
		_, err := f.engine.Revoke(f.ctx(), f.issuer, doc, rec.TokenID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))
		assert.Equal(t, uint64(0), validCount())
	})
}

func TestEngine_RevokeUnsupportedOnValueVariant(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantValue)
	holder := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 10, "")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx(), holder, doc, rec.TokenID, f.grantClaim(t, doc, holder))
	require.NoError(t, err)

	_, err = f.engine.Revoke(f.ctx(), f.issuer, doc, rec.TokenID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRevocationUnsupported))
}

func TestEngine_AdminMayRevoke(t *testing.T) {
	operator := newParty(t)
	f := newFixture(t, WithAdmins([]id.PartyID{operator}))
	doc := f.registerDocument(t, id.VariantRevocable)
	holder := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 1, "")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx(), holder, doc, rec.TokenID, f.grantClaim(t, doc, holder))
	require.NoError(t, err)

	revoked, err := f.engine.Revoke(f.ctx(), operator, doc, rec.TokenID)
	require.NoError(t, err)
	assert.False(t, revoked.Valid)
}

func TestEngine_DelegatedVariant(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantDelegated)
	owner := newParty(t)
	delegate := newParty(t)
	expiry := f.now.Add(24 * time.Hour)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 1, "")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx(), owner, doc, rec.TokenID, f.grantClaim(t, doc, owner))
	require.NoError(t, err)

	t.Run("owner delegates directly", func(t *testing.T) {
		_, err := f.engine.Delegate(f.ctx(), owner, doc, rec.TokenID, delegate, expiry, "")
		require.NoError(t, err)

		got, gotExp, err := f.engine.DelegateOf(f.ctx(), doc, rec.TokenID)
		require.NoError(t, err)
		assert.Equal(t, delegate, got)
		assert.Equal(t, expiry, gotExp)
	})

	t.Run("role reads empty after expiry with no transaction", func(t *testing.T) {
		later := requestcontext.WithTime(context.Background(), expiry.Add(time.Second))
		got, _, err := f.engine.DelegateOf(later, doc, rec.TokenID)
		require.NoError(t, err)
		assert.True(t, got.IsNil())
	})

	t.Run("transfer clears the role unconditionally", func(t *testing.T) {
		next := newParty(t)
		moved, err := f.engine.Transfer(f.ctx(), owner, doc, rec.TokenID, next)
		require.NoError(t, err)
		assert.True(t, moved.Delegate.IsNil())
		assert.True(t, moved.DelegateExp.IsZero())
	})

	t.Run("expiry in the past is rejected", func(t *testing.T) {
		_, err := f.engine.Delegate(f.ctx(), owner, doc, rec.TokenID, delegate, f.now.Add(-time.Second), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestEngine_DelegationPermit(t *testing.T) {
	doc := id.DocumentID{}
	owner := newParty(t)
	delegate := newParty(t)
	submitter := newParty(t)

	setup := func(t *testing.T, permits PermitValidator) (*fixture, id.DocumentID, token.Record, time.Time) {
		f := newFixture(t, WithPermitValidator(permits))
		doc = f.registerDocument(t, id.VariantDelegated)
		rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 1, "")
		require.NoError(t, err)
		_, err = f.engine.Claim(f.ctx(), owner, doc, rec.TokenID, f.grantClaim(t, doc, owner))
		require.NoError(t, err)
		rec, err = f.engine.Get(f.ctx(), doc, rec.TokenID)
		require.NoError(t, err)
		return f, doc, rec, f.now.Add(time.Hour)
	}

	t.Run("matching permit authorizes a third party", func(t *testing.T) {
		var f *fixture
		var rec token.Record
		var expiry time.Time
		permits := &staticPermits{}
		f, doc, rec, expiry = setup(t, permits)
		permits.claims = &PermitClaims{
			Owner:         owner.String(),
			Delegate:      delegate.String(),
			DocumentID:    doc.String(),
			TokenID:       rec.TokenID.String(),
			RoleExpiresAt: expiry.Unix(),
		}

		updated, err := f.engine.Delegate(f.ctx(), submitter, doc, rec.TokenID, delegate, expiry, "permit")
		require.NoError(t, err)
		assert.Equal(t, delegate, updated.Delegate)
	})

	t.Run("permit bound to a different delegate is rejected", func(t *testing.T) {
		var f *fixture
		var rec token.Record
		var expiry time.Time
		permits := &staticPermits{}
		f, doc, rec, expiry = setup(t, permits)
		permits.claims = &PermitClaims{
			Owner:         owner.String(),
			Delegate:      newParty(t).String(),
			DocumentID:    doc.String(),
			TokenID:       rec.TokenID.String(),
			RoleExpiresAt: expiry.Unix(),
		}

		_, err := f.engine.Delegate(f.ctx(), submitter, doc, rec.TokenID, delegate, expiry, "permit")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidDelegationSignature))
	})

	t.Run("missing permit is rejected", func(t *testing.T) {
		f, doc, rec, expiry := setup(t, &staticPermits{})
		_, err := f.engine.Delegate(f.ctx(), submitter, doc, rec.TokenID, delegate, expiry, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidDelegationSignature))
	})
}

func TestEngine_DelegationUnsupportedElsewhere(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantValue)
	holder := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 10, "")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx(), holder, doc, rec.TokenID, f.grantClaim(t, doc, holder))
	require.NoError(t, err)

	_, err = f.engine.Delegate(f.ctx(), holder, doc, rec.TokenID, newParty(t), f.now.Add(time.Hour), "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDelegationUnsupported))
}

func TestEngine_PauseBlocksMutations(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantValue)
	require.NoError(t, f.admin.Pause(f.ctx()))

	_, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 10, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerPaused))

	// Reads stay available while paused.
	_, err = f.engine.List(f.ctx(), doc)
	require.NoError(t, err)

	require.NoError(t, f.admin.Unpause(f.ctx()))
	_, err = f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 10, "")
	require.NoError(t, err)
}

func TestEngine_SchemaSwapInvalidatesOldAttestations(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantValue)
	claimant := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 10, "")
	require.NoError(t, err)
	attID := f.grantClaim(t, doc, claimant)

	newSchema, err := id.ParseSchemaID(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, f.admin.SetSchema(f.ctx(), newSchema))

	_, err = f.engine.Claim(f.ctx(), claimant, doc, rec.TokenID, attID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSchemaMismatch))
}

func TestEngine_FailedClaimLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantValue)
	claimant := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 9, 40, "")
	require.NoError(t, err)

	// Revoked attestation: the claim aborts after the record lookup.
	attID := f.grantClaim(t, doc, claimant)
	f.gateway.Revoke(attID, f.now)

	_, err = f.engine.Claim(f.ctx(), claimant, doc, rec.TokenID, attID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAttestationRevoked))

	// Nothing moved: the reservation is intact and aggregates unchanged.
	got, err := f.engine.Get(f.ctx(), doc, rec.TokenID)
	require.NoError(t, err)
	assert.False(t, got.Claimed)
	require.NoError(t, f.store.View(f.ctx(), func(tx token.Tx) error {
		agg, aggErr := tx.Aggregate(9)
		require.NoError(t, aggErr)
		assert.Equal(t, uint64(40), agg.TotalReserved)
		assert.Zero(t, agg.TotalMinted)
		return nil
	}))
	assert.Empty(t, f.issued)
}

func TestEngine_TransferMovesValidCount(t *testing.T) {
	f := newFixture(t)
	doc := f.registerDocument(t, id.VariantRevocable)
	first := newParty(t)
	second := newParty(t)

	rec, err := f.engine.ReserveAnonymous(f.ctx(), f.issuer, doc, 0, 1, "")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx(), first, doc, rec.TokenID, f.grantClaim(t, doc, first))
	require.NoError(t, err)

	_, err = f.engine.Transfer(f.ctx(), first, doc, rec.TokenID, second)
	require.NoError(t, err)

	require.NoError(t, f.store.View(f.ctx(), func(tx token.Tx) error {
		firstCount, txErr := tx.ValidCount(first)
		require.NoError(t, txErr)
		assert.Zero(t, firstCount)

		secondCount, txErr := tx.ValidCount(second)
		require.NoError(t, txErr)
		assert.Equal(t, uint64(1), secondCount)
		return nil
	}))

	t.Run("only the owner transfers", func(t *testing.T) {
		_, err := f.engine.Transfer(f.ctx(), first, doc, rec.TokenID, newParty(t))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}
