// Package provider abstracts the external PIX payment provider. Exactly one
// variant is selected at startup; handlers never branch on the provider name.
package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// MinAmountCents is the authoritative minimum charge (R$ 10,00). The form
// enforces it informationally; the server enforces it before any provider
// call.
const MinAmountCents = 1000

var (
	// ErrNotConfigured means the selected variant is missing credentials;
	// callers answer {notAvailable:true} so the client can fall back.
	ErrNotConfigured = errors.New("pix provider not configured")
	// ErrProviderUnavailable covers network failures and provider 5xx.
	ErrProviderUnavailable = errors.New("pix provider unavailable")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrIPNotAllowed        = errors.New("webhook source ip not allowed")
	// ErrEventIgnored marks a verified event that does not report a paid
	// state. Not an error condition for the caller, just no ledger effect.
	ErrEventIgnored = errors.New("event ignored")
)

type Status string

const (
	StatusPending Status = "PENDENTE"
	StatusPaid    Status = "CONCLUIDA"
)

// ChargeRequest is the server-side deposit intent. PixType and PixKey are
// operator bookkeeping carried as opaque metadata; the provider never needs
// them and their absence never blocks the charge.
type ChargeRequest struct {
	Nome        string
	AmountCents int64
	PixType     *string
	PixKey      *string
}

// Charge is the provider's answer. The redirect variant fills RedirectURL;
// the QR variant fills Emv and QRImageURL.
type Charge struct {
	ProviderPaymentID string
	RedirectURL       string
	Emv               string
	QRImageURL        string
}

// PaidEvent is a normalized, verified "payment confirmed" notification.
type PaidEvent struct {
	ProviderPaymentID string
	Nome              string
	AmountCents       int64
	PixType           *string
	PixKey            *string
	EventType         string
	Raw               []byte
}

// PixProvider is the capability set every variant implements. VerifyEvent
// exists on both variants even though only LivePix currently delivers
// webhooks, so adding one to the QR variant needs no interface change.
type PixProvider interface {
	Name() string
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetStatus(ctx context.Context, providerPaymentID string) (Status, error)
	VerifyEvent(raw []byte, header http.Header, remoteIP string) (*PaidEvent, error)
}

// verifySignature compares an HMAC-SHA256 hex digest of raw against the
// header-supplied signature in constant time.
func verifySignature(secret string, raw []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func ipAllowed(allowlist []string, remoteIP string) bool {
	if len(allowlist) == 0 {
		return true
	}
	for _, ip := range allowlist {
		if ip == remoteIP {
			return true
		}
	}
	return false
}

// centsFromAmount turns a provider amount ("10.00", 10.5, "1050" cents never
// appear here) into integer cents, rounding like the reais value it is.
func centsFromAmount(s string) int64 {
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// formatAmount renders cents as the "10.00" string provider APIs expect.
func formatAmount(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
