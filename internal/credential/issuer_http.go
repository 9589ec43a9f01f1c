package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"scrip/pkg/platform/sentinel"
)

const defaultTimeout = 3 * time.Second

// HTTPIssuer posts claim credentials to the external credential service.
type HTTPIssuer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPIssuer(baseURL string, timeout time.Duration) *HTTPIssuer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPIssuer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type claimCredentialDTO struct {
	DocumentID    string `json:"document_id"`
	TokenID       uint64 `json:"token_id"`
	Slot          uint64 `json:"slot"`
	Value         uint64 `json:"value"`
	Owner         string `json:"owner"`
	AttestationID string `json:"attestation_id"`
	ClaimedAt     int64  `json:"claimed_at"`
}

func (i *HTTPIssuer) IssueClaimCredential(ctx context.Context, event ClaimEvent) error {
	body, err := json.Marshal(claimCredentialDTO{
		DocumentID:    event.DocumentID.String(),
		TokenID:       uint64(event.TokenID),
		Slot:          uint64(event.Slot),
		Value:         event.Value,
		Owner:         event.Owner.String(),
		AttestationID: event.AttestationID.String(),
		ClaimedAt:     event.ClaimedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode claim credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/credentials", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build credential request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("credential service: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("credential service returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("credential service rejected the event with %d", resp.StatusCode)
	}
	return nil
}
