package pms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
)

func testRange(t *testing.T) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(
		time.Date(2030, 4, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 4, 13, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return dr
}

func tokenServer(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("grant_type") != "client_credentials" {
			t.Errorf("grant_type: got %q", r.FormValue("grant_type"))
		}
		n := atomic.AddInt64(calls, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("tok-%d", n),
			"expires_in":   3600,
		})
	}))
}

func okRates() map[string]any {
	return map[string]any{
		"available":     true,
		"currency":      "USD",
		"nightly_rates": []int64{500, 600, 600},
		"cleaning_fee":  150,
		"taxes":         343,
		"total":         2363,
	}
}

func newClient(baseURL, tokenURL string) *Client {
	return &Client{
		HTTP:         http.DefaultClient,
		BaseURL:      baseURL,
		TokenURL:     tokenURL,
		ClientID:     "client-1",
		ClientSecret: "secret",
	}
}

func TestFetchRatesTokenIsCached(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	var rateCalls int64
	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&rateCalls, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization: got %q", got)
		}
		json.NewEncoder(w).Encode(okRates())
	}))
	defer rates.Close()

	c := newClient(rates.URL, tokens.URL)
	for i := 0; i < 3; i++ {
		rq, err := c.FetchRates(context.Background(), "ext-1", testRange(t), 2)
		if err != nil {
			t.Fatalf("FetchRates %d: %v", i, err)
		}
		if !rq.Available {
			t.Fatalf("FetchRates %d: unexpectedly unavailable", i)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("token calls: got %d, want 1", tokenCalls)
	}
	if rateCalls != 3 {
		t.Errorf("rate calls: got %d, want 3", rateCalls)
	}
}

func TestFetchRatesMapsResponseToBreakdown(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ratesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.UnitID != "ext-1" || req.CheckIn != "2030-04-10" || req.CheckOut != "2030-04-13" || req.Guests != 2 {
			t.Errorf("request payload: %+v", req)
		}
		json.NewEncoder(w).Encode(okRates())
	}))
	defer rates.Close()

	rq, err := newClient(rates.URL, tokens.URL).FetchRates(context.Background(), "ext-1", testRange(t), 2)
	if err != nil {
		t.Fatalf("FetchRates: %v", err)
	}
	b := rq.Price
	if b.Nights != 3 || len(b.NightlyRates) != 3 {
		t.Fatalf("nights: %d, rates: %d", b.Nights, len(b.NightlyRates))
	}
	if b.AccommodationTotal.Amount != 1700 {
		t.Errorf("accommodation: got %d", b.AccommodationTotal.Amount)
	}
	if b.TaxableAmount.Amount != 2020 {
		t.Errorf("taxable: got %d", b.TaxableAmount.Amount)
	}
	if b.GrandTotal.Amount != 2363 || b.Currency != "USD" {
		t.Errorf("total: %d %s", b.GrandTotal.Amount, b.Currency)
	}
}

func TestFetchRatesRefreshesTokenOn401(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	var rateCalls int64
	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&rateCalls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-2" {
			t.Errorf("retry authorization: got %q", got)
		}
		json.NewEncoder(w).Encode(okRates())
	}))
	defer rates.Close()

	rq, err := newClient(rates.URL, tokens.URL).FetchRates(context.Background(), "ext-1", testRange(t), 2)
	if err != nil {
		t.Fatalf("FetchRates: %v", err)
	}
	if !rq.Available {
		t.Fatal("expected available after token refresh")
	}
	if tokenCalls != 2 {
		t.Errorf("token calls: got %d, want 2", tokenCalls)
	}
	if rateCalls != 2 {
		t.Errorf("rate calls: got %d, want 2", rateCalls)
	}
}

func TestFetchRatesSecond401Fails(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer rates.Close()

	_, err := newClient(rates.URL, tokens.URL).FetchRates(context.Background(), "ext-1", testRange(t), 2)
	if !fault.IsKind(err, fault.ExternalAdapterFailure) {
		t.Fatalf("persistent 401: got %v", err)
	}
	if tokenCalls != 2 {
		t.Errorf("token calls: got %d, want 2 (initial plus one refresh)", tokenCalls)
	}
}

func TestFetchRatesRetriesServerErrors(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	var rateCalls int64
	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&rateCalls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(okRates())
	}))
	defer rates.Close()

	rq, err := newClient(rates.URL, tokens.URL).FetchRates(context.Background(), "ext-1", testRange(t), 2)
	if err != nil {
		t.Fatalf("FetchRates: %v", err)
	}
	if !rq.Available {
		t.Fatal("expected available after retries")
	}
	if rateCalls != 3 {
		t.Errorf("rate calls: got %d, want 3", rateCalls)
	}
}

func TestFetchRatesGivesUpAfterServerErrorRetries(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	var rateCalls int64
	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&rateCalls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer rates.Close()

	_, err := newClient(rates.URL, tokens.URL).FetchRates(context.Background(), "ext-1", testRange(t), 2)
	if !fault.IsKind(err, fault.ExternalAdapterFailure) {
		t.Fatalf("persistent 500: got %v", err)
	}
	if rateCalls != int64(1+maxServerErrorRetries) {
		t.Errorf("rate calls: got %d, want %d", rateCalls, 1+maxServerErrorRetries)
	}
}

func TestFetchRatesExplicitUnavailableIsNotAnError(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"available": false})
	}))
	defer rates.Close()

	rq, err := newClient(rates.URL, tokens.URL).FetchRates(context.Background(), "ext-1", testRange(t), 2)
	if err != nil {
		t.Fatalf("an explicit denial is an answer, not a failure: %v", err)
	}
	if rq.Available {
		t.Fatal("expected unavailable")
	}
}

func TestFetchRatesRejectsInconsistentPayload(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := okRates()
		payload["nightly_rates"] = []int64{500} // three nights requested
		json.NewEncoder(w).Encode(payload)
	}))
	defer rates.Close()

	_, err := newClient(rates.URL, tokens.URL).FetchRates(context.Background(), "ext-1", testRange(t), 2)
	if !fault.IsKind(err, fault.ExternalAdapterFailure) {
		t.Fatalf("inconsistent payload: got %v", err)
	}
}

func TestFetchRatesUnreachableServer(t *testing.T) {
	var tokenCalls int64
	tokens := tokenServer(t, &tokenCalls)
	defer tokens.Close()

	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rates.Close() // connection refused from here on

	_, err := newClient(rates.URL, tokens.URL).FetchRates(context.Background(), "ext-1", testRange(t), 2)
	if !fault.IsKind(err, fault.ExternalAdapterFailure) {
		t.Fatalf("unreachable server: got %v", err)
	}
}
