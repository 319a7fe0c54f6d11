// Package rail is the HTTP client for the external payment-rail
// capability. The rail's internals are opaque: this client only posts a
// payout instruction and maps the coarse outcome (success / failure /
// pending) back into the port contract.
package rail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
)

type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

type executeRequest struct {
	Destination      domain.PayoutDestination `json:"destination"`
	AmountCents      int64                    `json:"amountCents"`
	IdempotencyToken string                   `json:"idempotencyToken"`
}

type executeResponse struct {
	Status     string `json:"status"`
	ExternalID string `json:"externalId"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

// Execute posts one payout. The idempotency token makes retries of the
// same logical payout safe on the rail side.
func (c *Client) Execute(ctx context.Context, dest domain.PayoutDestination, amountCents int64, idempotencyToken string) (*port.RailResult, error) {
	body, err := json.Marshal(executeRequest{
		Destination:      dest,
		AmountCents:      amountCents,
		IdempotencyToken: idempotencyToken,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/payouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyToken)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out executeResponse
	raw := &bytes.Buffer{}
	if err := json.NewDecoder(io.TeeReader(resp.Body, raw)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding rail response: %w", err)
	}

	result := &port.RailResult{
		ExternalID:  out.ExternalID,
		Message:     out.Message,
		Retryable:   out.Retryable,
		RawResponse: raw.String(),
	}
	switch out.Status {
	case "success":
		result.Status = port.RailSuccess
	case "failure":
		result.Status = port.RailFailure
	default:
		result.Status = port.RailPending
	}
	return result, nil
}
