package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"staymarket/internal/app/policies"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/money"
)

// Client is the HTTP payment collaborator. Charges and refunds are executed
// elsewhere; this adapter only relays the intent and the processor reference.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Timeout time.Duration
}

type chargeRequest struct {
	ReservationID string `json:"reservation_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type chargeResponse struct {
	PaymentRef string `json:"payment_ref"`
}

func (c *Client) Charge(ctx context.Context, reservationID string, amount money.Money) (string, error) {
	var resp chargeResponse
	if err := c.post(ctx, "/v1/charges", chargeRequest{ReservationID: reservationID, Amount: amount.Amount, Currency: amount.Currency}, &resp); err != nil {
		return "", err
	}
	if resp.PaymentRef == "" {
		return "", fault.New(fault.ExternalAdapterFailure, "payment processor returned no reference")
	}
	return resp.PaymentRef, nil
}

func (c *Client) Refund(ctx context.Context, reservationID string, amount money.Money) error {
	return c.post(ctx, "/v1/refunds", chargeRequest{ReservationID: reservationID, Amount: amount.Amount, Currency: amount.Currency}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if c == nil || c.HTTP == nil || c.BaseURL == "" {
		return fault.New(fault.ExternalAdapterFailure, "payments client not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	callCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fault.Wrap(fault.ExternalAdapterFailure, "payment request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fault.Wrap(fault.ExternalAdapterFailure, "payment request rejected",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(snippet)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ policies.PaymentsPort = (*Client)(nil)
