package attestation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

const apiKeyHeader = "X-Api-Key"

// HTTPGateway is the REST client for the attestation service.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// attestationDTO is the service's wire shape. Timestamps travel as unix
// seconds with zero meaning unset.
type attestationDTO struct {
	ID        string          `json:"id"`
	SchemaID  string          `json:"schemaId"`
	Recipient string          `json:"recipient"`
	Issuer    string          `json:"issuer"`
	IssuedAt  int64           `json:"issuedAt"`
	ExpiresAt int64           `json:"expiresAt"`
	RevokedAt int64           `json:"revokedAt"`
	Payload   json.RawMessage `json:"payload"`
}

func (g *HTTPGateway) Lookup(ctx context.Context, attID id.AttestationID) (Attestation, error) {
	url := fmt.Sprintf("%s/attestations/%s", g.baseURL, attID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Attestation{}, fmt.Errorf("build attestation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set(apiKeyHeader, g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WarnContext(ctx, "attestation service unreachable",
			slog.String("attestation_id", attID.String()),
			slog.String("error", err.Error()),
		)
		return Attestation{}, fmt.Errorf("attestation service unreachable: %w", sentinel.ErrUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// decoded below
	case resp.StatusCode == http.StatusNotFound:
		return Attestation{}, sentinel.ErrNotFound
	default:
		g.logger.WarnContext(ctx, "attestation service returned unexpected status",
			slog.String("attestation_id", attID.String()),
			slog.Int("status", resp.StatusCode),
		)
		return Attestation{}, fmt.Errorf("attestation service status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Attestation{}, fmt.Errorf("read attestation response: %w", sentinel.ErrUnavailable)
	}

	var dto attestationDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return Attestation{}, fmt.Errorf("decode attestation response: %w", sentinel.ErrUnavailable)
	}

	return dto.toAttestation()
}

func (d attestationDTO) toAttestation() (Attestation, error) {
	attID, err := id.ParseAttestationID(d.ID)
	if err != nil {
		return Attestation{}, fmt.Errorf("attestation id in response: %w", sentinel.ErrUnavailable)
	}
	schemaID, err := id.ParseSchemaID(d.SchemaID)
	if err != nil {
		return Attestation{}, fmt.Errorf("schema id in response: %w", sentinel.ErrUnavailable)
	}
	recipient, err := id.ParsePartyID(d.Recipient)
	if err != nil {
		return Attestation{}, fmt.Errorf("recipient in response: %w", sentinel.ErrUnavailable)
	}
	issuer, err := id.ParsePartyID(d.Issuer)
	if err != nil {
		return Attestation{}, fmt.Errorf("issuer in response: %w", sentinel.ErrUnavailable)
	}

	return Attestation{
		ID:        attID,
		SchemaID:  schemaID,
		Recipient: recipient,
		Issuer:    issuer,
		IssuedAt:  unixOrZero(d.IssuedAt),
		ExpiresAt: unixOrZero(d.ExpiresAt),
		RevokedAt: unixOrZero(d.RevokedAt),
		Payload:   []byte(d.Payload),
	}, nil
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
