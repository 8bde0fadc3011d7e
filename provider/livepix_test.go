package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newLivePixTestServer(t *testing.T, paymentStatus string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "access-abc"})
	})
	mux.HandleFunc("/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "15.00", body["amount"])
		assert.Equal(t, "Maria", body["payer_name"])
		json.NewEncoder(w).Encode(map[string]string{
			"id":           "pay_123",
			"checkout_url": "https://pay.example/checkout/pay_123",
		})
	})
	mux.HandleFunc("/v1/payments/pay_123", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": paymentStatus})
	})
	return httptest.NewServer(mux)
}

func testLivePix(srvURL string) *LivePixClient {
	return NewLivePix(LivePixOptions{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		APIBase:       srvURL,
		WebhookSecret: "hook-secret",
	})
}

func TestLivePixCreateCharge(t *testing.T) {
	srv := newLivePixTestServer(t, "pending")
	defer srv.Close()
	l := testLivePix(srv.URL)

	charge, err := l.CreateCharge(context.Background(), ChargeRequest{Nome: "Maria", AmountCents: 1500})
	assert.NoError(t, err)
	assert.Equal(t, "pay_123", charge.ProviderPaymentID)
	assert.Equal(t, "https://pay.example/checkout/pay_123", charge.RedirectURL)
	assert.Empty(t, charge.Emv)
}

func TestLivePixCreateChargeBelowMinimum(t *testing.T) {
	l := testLivePix("http://unused.invalid")
	_, err := l.CreateCharge(context.Background(), ChargeRequest{Nome: "Maria", AmountCents: 999})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLivePixNotConfigured(t *testing.T) {
	l := NewLivePix(LivePixOptions{})
	_, err := l.CreateCharge(context.Background(), ChargeRequest{Nome: "Maria", AmountCents: 1500})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = l.GetStatus(context.Background(), "pay_123")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLivePixCreateChargeProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := testLivePix(srv.URL)
	_, err := l.CreateCharge(context.Background(), ChargeRequest{Nome: "Maria", AmountCents: 1500})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestLivePixGetStatus(t *testing.T) {
	for status, want := range map[string]Status{
		"paid":      StatusPaid,
		"succeeded": StatusPaid,
		"pending":   StatusPending,
	} {
		srv := newLivePixTestServer(t, status)
		l := testLivePix(srv.URL)
		got, err := l.GetStatus(context.Background(), "pay_123")
		assert.NoError(t, err)
		assert.Equal(t, want, got, "provider status %q", status)
		srv.Close()
	}
}

func TestLivePixVerifyEvent(t *testing.T) {
	l := testLivePix("http://unused.invalid")

	t.Run("valid paid event", func(t *testing.T) {
		body := []byte(`{"data":{"id":"pay_9","status":"paid","amount":"15.00","payer_name":"Maria","metadata":{"tipo":"email","chave":"m@x.com"}}}`)
		header := http.Header{"X-Livepix-Signature": {sign("hook-secret", body)}}

		ev, err := l.VerifyEvent(body, header, "1.2.3.4")
		assert.NoError(t, err)
		assert.Equal(t, "pay_9", ev.ProviderPaymentID)
		assert.Equal(t, int64(1500), ev.AmountCents)
		assert.Equal(t, "Maria", ev.Nome)
		assert.Equal(t, "email", *ev.PixType)
		assert.Equal(t, "m@x.com", *ev.PixKey)
	})

	t.Run("amount_cents field wins", func(t *testing.T) {
		body := []byte(`{"id":"pay_9","paid":true,"amount_cents":2000}`)
		header := http.Header{"X-Signature": {sign("hook-secret", body)}}

		ev, err := l.VerifyEvent(body, header, "")
		assert.NoError(t, err)
		assert.Equal(t, int64(2000), ev.AmountCents)
	})

	t.Run("missing name falls back", func(t *testing.T) {
		body := []byte(`{"id":"pay_9","status":"paid","value":10}`)
		header := http.Header{"X-Signature": {sign("hook-secret", body)}}

		ev, err := l.VerifyEvent(body, header, "")
		assert.NoError(t, err)
		assert.Equal(t, "Contribuinte", ev.Nome)
		assert.Equal(t, int64(1000), ev.AmountCents)
	})

	t.Run("bad signature", func(t *testing.T) {
		body := []byte(`{"status":"paid","amount":"15.00"}`)
		header := http.Header{"X-Signature": {sign("wrong-secret", body)}}

		_, err := l.VerifyEvent(body, header, "")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := l.VerifyEvent([]byte(`{}`), http.Header{}, "")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("non-paid event ignored", func(t *testing.T) {
		body := []byte(`{"id":"pay_9","status":"created","amount":"15.00"}`)
		header := http.Header{"X-Signature": {sign("hook-secret", body)}}

		_, err := l.VerifyEvent(body, header, "")
		assert.ErrorIs(t, err, ErrEventIgnored)
	})

	t.Run("paid with zero amount rejected", func(t *testing.T) {
		body := []byte(`{"id":"pay_9","status":"paid"}`)
		header := http.Header{"X-Signature": {sign("hook-secret", body)}}

		_, err := l.VerifyEvent(body, header, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestLivePixVerifyEventAllowlist(t *testing.T) {
	l := NewLivePix(LivePixOptions{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		APIBase:       "http://unused.invalid",
		WebhookSecret: "hook-secret",
		Allowlist:     []string{"10.0.0.1"},
	})

	body := []byte(`{"status":"paid","amount":"15.00","id":"pay_9"}`)
	header := http.Header{"X-Signature": {sign("hook-secret", body)}}

	_, err := l.VerifyEvent(body, header, "8.8.8.8")
	assert.ErrorIs(t, err, ErrIPNotAllowed)

	ev, err := l.VerifyEvent(body, header, "10.0.0.1")
	assert.NoError(t, err)
	assert.Equal(t, "pay_9", ev.ProviderPaymentID)
}
