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

// LivePixOptions carries the credentials and webhook policy for the
// redirect-checkout variant.
type LivePixOptions struct {
	ClientID      string
	ClientSecret  string
	APIBase       string
	RedirectURL   string
	WebhookSecret string
	// Allowlist of webhook source IPs; empty disables the check.
	Allowlist []string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// LivePixClient implements the redirect variant: the charge returns a hosted
// checkout URL and the webhook is the authoritative confirmation source.
type LivePixClient struct {
	opts   LivePixOptions
	client *http.Client
}

func NewLivePix(opts LivePixOptions) *LivePixClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &LivePixClient{opts: opts, client: client}
}

func (l *LivePixClient) Name() string { return "livepix" }

// Configured reports whether the deployment carries LivePix credentials.
func (l *LivePixClient) Configured() bool {
	return l.opts.ClientID != "" && l.opts.ClientSecret != "" && l.opts.APIBase != ""
}

func (l *LivePixClient) base() string {
	return strings.TrimRight(l.opts.APIBase, "/")
}

// accessToken runs the OAuth2 client-credentials exchange. Tokens are cheap
// and short-lived; fetching one per operation avoids refresh bookkeeping.
func (l *LivePixClient) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.base()+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(l.opts.ClientID, l.opts.ClientSecret)

	resp, err := l.client.Do(req)
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

func (l *LivePixClient) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if !l.Configured() {
		return nil, ErrNotConfigured
	}
	if req.AmountCents < MinAmountCents {
		return nil, ErrInvalidAmount
	}

	access, err := l.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	// Only name and amount reach the provider; the pix key rides along as
	// metadata so the webhook can hand it back for bookkeeping.
	payload := map[string]any{
		"amount":      formatAmount(req.AmountCents),
		"currency":    "BRL",
		"payer_name":  req.Nome,
		"description": "Depósito via site",
		"metadata": map[string]any{
			"tipo":  req.PixType,
			"chave": req.PixKey,
		},
	}
	if l.opts.RedirectURL != "" {
		payload["success_url"] = l.opts.RedirectURL
		payload["cancel_url"] = l.opts.RedirectURL
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.base()+"/v1/payments", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+access)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: create payment status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("create payment rejected: status %d", resp.StatusCode)
	}

	var body struct {
		ID          string `json:"id"`
		CheckoutURL string `json:"checkout_url"`
		URL         string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: create payment decode", ErrProviderUnavailable)
	}

	redirect := body.CheckoutURL
	if redirect == "" {
		redirect = body.URL
	}
	zap.L().Info("livepix charge created",
		zap.String("payment_id", body.ID),
		zap.Int64("amount_cents", req.AmountCents))

	return &Charge{ProviderPaymentID: body.ID, RedirectURL: redirect}, nil
}

// GetStatus asks the provider directly. The webhook remains the source of
// truth; polling only accelerates the client's feedback.
func (l *LivePixClient) GetStatus(ctx context.Context, providerPaymentID string) (Status, error) {
	if !l.Configured() {
		return "", ErrNotConfigured
	}
	access, err := l.accessToken(ctx)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		l.base()+"/v1/payments/"+url.PathEscape(providerPaymentID), nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+access)

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: get payment: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: get payment status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Paid   bool   `json:"paid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: get payment decode", ErrProviderUnavailable)
	}
	if body.Status == "paid" || body.Status == "succeeded" || body.Paid {
		return StatusPaid, nil
	}
	return StatusPending, nil
}

// livepixEvent tolerates the payload envelope variants LivePix has shipped:
// the object may sit at the root, under "data" or under "object", and the
// amount may be integer cents or a decimal string/number.
type livepixEvent struct {
	Data   json.RawMessage `json:"data"`
	Object json.RawMessage `json:"object"`
}

type livepixEventData struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Paid         bool            `json:"paid"`
	AmountCents  *int64          `json:"amount_cents"`
	Amount       json.RawMessage `json:"amount"`
	Value        json.RawMessage `json:"value"`
	PayerName    string          `json:"payer_name"`
	CustomerName string          `json:"customer_name"`
	Name         string          `json:"name"`
	Metadata     struct {
		Tipo  *string `json:"tipo"`
		Chave *string `json:"chave"`
	} `json:"metadata"`
}

func (l *LivePixClient) VerifyEvent(raw []byte, header http.Header, remoteIP string) (*PaidEvent, error) {
	if !ipAllowed(l.opts.Allowlist, remoteIP) {
		return nil, ErrIPNotAllowed
	}

	if l.opts.WebhookSecret != "" {
		signature := header.Get("X-LivePix-Signature")
		if signature == "" {
			signature = header.Get("X-Signature")
		}
		if signature == "" || !verifySignature(l.opts.WebhookSecret, raw, signature) {
			return nil, ErrInvalidSignature
		}
	}

	var envelope livepixEvent
	_ = json.Unmarshal(raw, &envelope)
	obj := envelope.Data
	if len(obj) == 0 {
		obj = envelope.Object
	}
	if len(obj) == 0 {
		obj = raw
	}

	var data livepixEventData
	if err := json.Unmarshal(obj, &data); err != nil {
		return nil, ErrEventIgnored
	}

	paid := data.Status == "paid" || data.Status == "succeeded" || data.Paid
	if !paid {
		return nil, ErrEventIgnored
	}

	var cents int64
	if data.AmountCents != nil {
		cents = *data.AmountCents
	} else if len(data.Amount) > 0 {
		cents = centsFromAmount(string(data.Amount))
	} else if len(data.Value) > 0 {
		cents = centsFromAmount(string(data.Value))
	}
	if cents < 1 {
		return nil, ErrInvalidAmount
	}

	nome := data.PayerName
	if nome == "" {
		nome = data.CustomerName
	}
	if nome == "" {
		nome = data.Name
	}
	if nome == "" {
		nome = "Contribuinte"
	}

	return &PaidEvent{
		ProviderPaymentID: data.ID,
		Nome:              nome,
		AmountCents:       cents,
		PixType:           data.Metadata.Tipo,
		PixKey:            data.Metadata.Chave,
		EventType:         data.Type,
		Raw:               raw,
	}, nil
}
