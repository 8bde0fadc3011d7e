package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EfiOptions carries credentials for the QR variant. PixKey is the receiving
// account's own key (the charge destination), unrelated to the payer's
// declared key.
type EfiOptions struct {
	ClientID      string
	ClientSecret  string
	APIBase       string
	PixKey        string
	WebhookSecret string

	HTTPClient *http.Client
}

// EfiClient implements the QR variant: a server-created immediate charge
// returns the copia-e-cola code and a renderable QR image, and the client
// polls by token until the charge reports CONCLUIDA.
type EfiClient struct {
	opts   EfiOptions
	client *http.Client
}

func NewEfi(opts EfiOptions) *EfiClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &EfiClient{opts: opts, client: client}
}

func (e *EfiClient) Name() string { return "efi" }

func (e *EfiClient) Configured() bool {
	return e.opts.ClientID != "" && e.opts.ClientSecret != "" &&
		e.opts.APIBase != "" && e.opts.PixKey != ""
}

func (e *EfiClient) base() string {
	return strings.TrimRight(e.opts.APIBase, "/")
}

func (e *EfiClient) accessToken(ctx context.Context) (string, error) {
	buf, _ := json.Marshal(map[string]string{"grant_type": "client_credentials"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.base()+"/oauth/token", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(e.opts.ClientID, e.opts.ClientSecret)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: oauth token: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: oauth token status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
		return "", fmt.Errorf("%w: oauth token decode", ErrProviderUnavailable)
	}
	return body.AccessToken, nil
}

func (e *EfiClient) doJSON(ctx context.Context, access, method, path string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.base()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s %s status %d", ErrProviderUnavailable, method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s rejected: status %d", method, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (e *EfiClient) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if !e.Configured() {
		return nil, ErrNotConfigured
	}
	if req.AmountCents < MinAmountCents {
		return nil, ErrInvalidAmount
	}

	access, err := e.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	// Charge expiry tracks the token TTL so a scanned-late QR cannot outlive
	// the polling window.
	payload := map[string]any{
		"calendario":         map[string]any{"expiracao": 1800},
		"valor":              map[string]any{"original": formatAmount(req.AmountCents)},
		"chave":              e.opts.PixKey,
		"solicitacaoPagador": "Depósito via site",
	}
	// Devedor is optional and only forwarded when the payer declared a CPF.
	if req.PixType != nil && *req.PixType == "cpf" && req.PixKey != nil && *req.PixKey != "" {
		payload["devedor"] = map[string]any{
			"cpf":  strings.NewReplacer(".", "", "-", "").Replace(*req.PixKey),
			"nome": req.Nome,
		}
	}

	var cob struct {
		Txid string `json:"txid"`
		Loc  struct {
			ID int `json:"id"`
		} `json:"loc"`
	}
	if err := e.doJSON(ctx, access, http.MethodPost, "/v2/cob", payload, &cob); err != nil {
		return nil, err
	}

	var qr struct {
		Qrcode       string `json:"qrcode"`
		ImagemQrcode string `json:"imagemQrcode"`
	}
	if err := e.doJSON(ctx, access, http.MethodGet, fmt.Sprintf("/v2/loc/%d/qrcode", cob.Loc.ID), nil, &qr); err != nil {
		return nil, err
	}

	zap.L().Info("efi charge created",
		zap.String("txid", cob.Txid),
		zap.Int64("amount_cents", req.AmountCents))

	return &Charge{
		ProviderPaymentID: cob.Txid,
		Emv:               qr.Qrcode,
		QRImageURL:        qr.ImagemQrcode,
	}, nil
}

func (e *EfiClient) GetStatus(ctx context.Context, providerPaymentID string) (Status, error) {
	if !e.Configured() {
		return "", ErrNotConfigured
	}
	access, err := e.accessToken(ctx)
	if err != nil {
		return "", err
	}

	var cob struct {
		Status string `json:"status"`
	}
	if err := e.doJSON(ctx, access, http.MethodGet, "/v2/cob/"+url.PathEscape(providerPaymentID), nil, &cob); err != nil {
		return "", err
	}
	if cob.Status == "CONCLUIDA" {
		return StatusPaid, nil
	}
	return StatusPending, nil
}

// VerifyEvent handles the Efí pix callback shape ({"pix":[{txid,valor}]}).
// No webhook is registered for this variant today; the implementation keeps
// the door open without special-casing the reconciler.
func (e *EfiClient) VerifyEvent(raw []byte, header http.Header, remoteIP string) (*PaidEvent, error) {
	if e.opts.WebhookSecret != "" {
		signature := header.Get("X-Signature")
		if signature == "" || !verifySignature(e.opts.WebhookSecret, raw, signature) {
			return nil, ErrInvalidSignature
		}
	}

	var body struct {
		Pix []struct {
			Txid  string `json:"txid"`
			Valor string `json:"valor"`
		} `json:"pix"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Pix) == 0 {
		return nil, ErrEventIgnored
	}

	p := body.Pix[0]
	cents := centsFromAmount(p.Valor)
	if cents < 1 {
		return nil, ErrInvalidAmount
	}

	return &PaidEvent{
		ProviderPaymentID: p.Txid,
		Nome:              "Contribuinte",
		AmountCents:       cents,
		EventType:         "pix",
		Raw:               raw,
	}, nil
}
