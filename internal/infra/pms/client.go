package pms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"staymarket/internal/app/policies"
	domainpricing "staymarket/internal/domain/pricing"
	domainrange "staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/money"
)

const (
	maxServerErrorRetries = 2
	retryBackoffStep      = 200 * time.Millisecond
	// tokenRefreshMargin renews the cached token before it actually expires
	// so in-flight calls do not race the expiry.
	tokenRefreshMargin = 30 * time.Second
)

// Client talks to the external property management system. It implements the
// ExternalRatesPort: an explicit "unavailable" answer is authoritative, any
// transport or server failure surfaces as an adapter error that callers
// treat as "fall back to internal pricing".
type Client struct {
	HTTP         *http.Client
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Logger       *slog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

type ratesRequest struct {
	UnitID   string `json:"unit_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests"`
}

type ratesResponse struct {
	Available    bool    `json:"available"`
	Currency     string  `json:"currency"`
	NightlyRates []int64 `json:"nightly_rates"`
	CleaningFee  int64   `json:"cleaning_fee"`
	Taxes        int64   `json:"taxes"`
	Total        int64   `json:"total"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) FetchRates(ctx context.Context, externalID string, dr domainrange.DateRange, guests int) (policies.RateQuote, error) {
	var zero policies.RateQuote
	if c == nil || c.HTTP == nil || c.BaseURL == "" {
		return zero, fault.New(fault.ExternalAdapterFailure, "pms client not configured")
	}

	body, err := json.Marshal(ratesRequest{
		UnitID:   externalID,
		CheckIn:  dr.CheckIn.Format(time.DateOnly),
		CheckOut: dr.CheckOut.Format(time.DateOnly),
		Guests:   guests,
	})
	if err != nil {
		return zero, err
	}

	resp, err := c.doWithAuth(ctx, body)
	if err != nil {
		c.logError("pms rates request failed", externalID, err)
		return zero, fault.Wrap(fault.ExternalAdapterFailure, "pms did not respond usefully", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("pms returned status %d: %s", resp.StatusCode, string(snippet))
		c.logError("pms returned error", externalID, err)
		return zero, fault.Wrap(fault.ExternalAdapterFailure, "pms request rejected", err)
	}

	var rates ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		c.logError("pms decode failed", externalID, err)
		return zero, fault.Wrap(fault.ExternalAdapterFailure, "pms response malformed", err)
	}
	if !rates.Available {
		return policies.RateQuote{Available: false}, nil
	}
	breakdown, err := toBreakdown(rates, dr)
	if err != nil {
		return zero, fault.Wrap(fault.ExternalAdapterFailure, "pms rates inconsistent", err)
	}
	return policies.RateQuote{Available: true, Price: breakdown}, nil
}

// doWithAuth sends the rates call with a bearer token, refreshing and
// retrying once on 401 and up to twice on 5xx with linear backoff.
func (c *Client) doWithAuth(ctx context.Context, body []byte) (*http.Response, error) {
	refreshed := false
	attempts := 0
	for {
		token, err := c.bearerToken(ctx, false)
		if err != nil {
			return nil, err
		}
		resp, err := c.send(ctx, token, body)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusUnauthorized && !refreshed:
			resp.Body.Close()
			refreshed = true
			if _, err := c.bearerToken(ctx, true); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode >= http.StatusInternalServerError && attempts < maxServerErrorRetries:
			resp.Body.Close()
			attempts++
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempts) * retryBackoffStep):
			}
			continue
		default:
			return resp, nil
		}
	}
}

func (c *Client) send(ctx context.Context, token string, body []byte) (*http.Response, error) {
	callCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/v1/rates"
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.HTTP.Do(req)
}

// bearerToken returns the cached token, fetching a fresh one when forced,
// missing, or close to expiry. One goroutine refreshes at a time; the rest
// wait on the mutex and reuse the result.
func (c *Client) bearerToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !force && c.token != "" && time.Now().Before(c.expires.Add(-tokenRefreshMargin)) {
		return c.token, nil
	}
	if c.TokenURL == "" {
		return "", errors.New("pms: token url not configured")
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	callCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pms token endpoint returned status %d: %s", resp.StatusCode, string(snippet))
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("pms: empty access token")
	}
	c.token = tok.AccessToken
	c.expires = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func toBreakdown(rates ratesResponse, dr domainrange.DateRange) (domainpricing.Breakdown, error) {
	nights := dr.Nights()
	if len(rates.NightlyRates) != nights {
		return domainpricing.Breakdown{}, fmt.Errorf("expected %d nightly rates, got %d", nights, len(rates.NightlyRates))
	}
	if rates.Currency == "" {
		return domainpricing.Breakdown{}, errors.New("missing currency")
	}
	b := domainpricing.Breakdown{
		Nights:        nights,
		CleaningFee:   money.Money{Amount: rates.CleaningFee, Currency: rates.Currency},
		ServiceFee:    money.Money{Currency: rates.Currency},
		TaxableAmount: money.Money{Currency: rates.Currency},
		Taxes:         money.Money{Amount: rates.Taxes, Currency: rates.Currency},
		GrandTotal:    money.Money{Amount: rates.Total, Currency: rates.Currency},
		Currency:      rates.Currency,
	}
	accommodation := int64(0)
	for _, rate := range rates.NightlyRates {
		b.NightlyRates = append(b.NightlyRates, money.Money{Amount: rate, Currency: rates.Currency})
		accommodation += rate
	}
	b.AccommodationTotal = money.Money{Amount: accommodation, Currency: rates.Currency}
	b.TaxableAmount = money.Money{Amount: rates.Total - rates.Taxes, Currency: rates.Currency}
	return b, nil
}

func (c *Client) logError(msg, externalID string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error(msg, "external_id", externalID, "error", err)
}

var _ policies.ExternalRatesPort = (*Client)(nil)
