package attestation

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustAttestationID(t *testing.T) id.AttestationID {
	t.Helper()
	attID, err := id.ParseAttestationID(uuid.NewString())
	require.NoError(t, err)
	return attID
}

func TestHTTPGateway_Lookup(t *testing.T) {
	attID := mustAttestationID(t)
	schemaID := uuid.NewString()
	recipient := uuid.NewString()
	issuer := uuid.NewString()

	t.Run("maps the wire DTO onto the model", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/attestations/"+attID.String(), r.URL.Path)
			assert.Equal(t, "secret-key", r.Header.Get("X-Api-Key"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "` + attID.String() + `",
				"schemaId": "` + schemaID + `",
				"recipient": "` + recipient + `",
				"issuer": "` + issuer + `",
				"issuedAt": 1700000000,
				"expiresAt": 1800000000,
				"revokedAt": 0,
				"payload": {"v":1,"documentId":"` + uuid.NewString() + `","capabilities":1}
			}`))
		}))
		defer srv.Close()

		gw := NewHTTPGateway(srv.URL, "secret-key", 2*time.Second, testLogger())

		att, err := gw.Lookup(context.Background(), attID)
		require.NoError(t, err)

		assert.Equal(t, attID, att.ID)
		assert.Equal(t, schemaID, att.SchemaID.String())
		assert.Equal(t, recipient, att.Recipient.String())
		assert.Equal(t, issuer, att.Issuer.String())
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), att.IssuedAt)
		assert.Equal(t, time.Unix(1800000000, 0).UTC(), att.ExpiresAt)
		assert.True(t, att.RevokedAt.IsZero())
		assert.NotEmpty(t, att.Payload)
	})

	t.Run("404 maps to ErrNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		gw := NewHTTPGateway(srv.URL, "", 2*time.Second, testLogger())

		_, err := gw.Lookup(context.Background(), attID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("5xx maps to ErrUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		gw := NewHTTPGateway(srv.URL, "", 2*time.Second, testLogger())

		_, err := gw.Lookup(context.Background(), attID)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("unreachable service maps to ErrUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close() // deliberately closed before use

		gw := NewHTTPGateway(srv.URL, "", time.Second, testLogger())

		_, err := gw.Lookup(context.Background(), attID)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("garbled response maps to ErrUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		gw := NewHTTPGateway(srv.URL, "", 2*time.Second, testLogger())

		_, err := gw.Lookup(context.Background(), attID)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestInMemoryGateway(t *testing.T) {
	ctx := context.Background()
	attID := mustAttestationID(t)

	gw := NewInMemoryGateway()

	t.Run("lookup of unknown id returns ErrNotFound", func(t *testing.T) {
		_, err := gw.Lookup(ctx, attID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("seeded attestation is returned", func(t *testing.T) {
		gw.Seed(Attestation{ID: attID, IssuedAt: time.Now()})

		att, err := gw.Lookup(ctx, attID)
		require.NoError(t, err)
		assert.Equal(t, attID, att.ID)
	})

	t.Run("revocations land between lookups", func(t *testing.T) {
		revokedAt := time.Now()
		gw.Revoke(attID, revokedAt)

		att, err := gw.Lookup(ctx, attID)
		require.NoError(t, err)
		assert.True(t, att.Revoked())
		assert.WithinDuration(t, revokedAt, att.RevokedAt, time.Second)
	})

	t.Run("expiry edits land between lookups", func(t *testing.T) {
		expiry := time.Now().Add(-time.Minute)
		gw.SetExpiry(attID, expiry)

		att, err := gw.Lookup(ctx, attID)
		require.NoError(t, err)
		assert.True(t, att.Expired(time.Now()))
	})
}

func TestAttestation_Expired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "zero expiry never expires", expiresAt: time.Time{}, want: false},
		{name: "future expiry is live", expiresAt: now.Add(time.Hour), want: false},
		{name: "expiry exactly now still passes", expiresAt: now, want: false},
		{name: "past expiry is expired", expiresAt: now.Add(-time.Second), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := Attestation{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, att.Expired(now))
		})
	}
}
