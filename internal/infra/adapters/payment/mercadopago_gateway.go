// File: internal/infra/adapters/payment/mercadopago_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"realestate-payments/internal/config"
	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/ports/adapter"
	"realestate-payments/internal/infra/metrics"
)

var _ adapter.PreferenceGateway = (*MercadoPagoGateway)(nil)

const mpTimeLayout = "2006-01-02T15:04:05.000-07:00"

// MercadoPagoGateway implements adapter.PreferenceGateway against the Checkout Pro REST API.
type MercadoPagoGateway struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewMercadoPagoGateway refuses to build without an access token.
func NewMercadoPagoGateway(cfg config.MercadoPagoConfig) (*MercadoPagoGateway, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("%w: mercadopago access token empty", domain.ErrConfiguration)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.mercadopago.com"
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: invalid mercadopago base url: %v", domain.ErrConfiguration, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MercadoPagoGateway{
		baseURL:     base,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

type mpItem struct {
	ID         string      `json:"id,omitempty"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type mpPreferenceRequest struct {
	Items []mpItem `json:"items"`
	Payer struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email"`
	} `json:"payer"`
	BackURLs struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Pending string `json:"pending"`
	} `json:"back_urls"`
	AutoReturn         string `json:"auto_return,omitempty"`
	NotificationURL    string `json:"notification_url"`
	ExternalReference  string `json:"external_reference"`
	Expires            bool   `json:"expires"`
	ExpirationDateFrom string `json:"expiration_date_from,omitempty"`
	ExpirationDateTo   string `json:"expiration_date_to,omitempty"`
}

// CreatePreference calls POST /checkout/preferences.
func (g *MercadoPagoGateway) CreatePreference(ctx context.Context, req adapter.PreferenceRequest) (*adapter.Preference, error) {
	var payload mpPreferenceRequest
	for _, it := range req.Items {
		payload.Items = append(payload.Items, mpItem{
			ID:         it.ID,
			Title:      it.Title,
			Quantity:   it.Quantity,
			UnitPrice:  json.Number(it.UnitPrice.StringFixed(2)),
			CurrencyID: it.CurrencyID,
		})
	}
	payload.Payer.Name = req.Payer.Name
	payload.Payer.Email = req.Payer.Email
	payload.BackURLs.Success = req.BackURLs.Success
	payload.BackURLs.Failure = req.BackURLs.Failure
	payload.BackURLs.Pending = req.BackURLs.Pending
	if req.BackURLs.Success != "" {
		payload.AutoReturn = "approved"
	}
	payload.NotificationURL = req.NotificationURL
	payload.ExternalReference = req.ExternalReference
	if !req.ExpiresTo.IsZero() {
		payload.Expires = true
		payload.ExpirationDateFrom = req.ExpiresFrom.Format(mpTimeLayout)
		payload.ExpirationDateTo = req.ExpiresTo.Format(mpTimeLayout)
	}

	var out struct {
		ID               string `json:"id"`
		InitPoint        string `json:"init_point"`
		SandboxInitPoint string `json:"sandbox_init_point"`
	}
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["X-Idempotency-Key"] = req.IdempotencyKey
	}
	if err := g.do(ctx, "create_preference", http.MethodPost, "/checkout/preferences", headers, payload, &out); err != nil {
		return nil, err
	}
	if out.ID == "" || out.InitPoint == "" {
		metrics.ObserveGatewayCall(g.Name(), "create_preference", "decode_error", 0)
		return nil, fmt.Errorf("%w: mercadopago preference response missing id or init_point", domain.ErrUpstream)
	}
	return &adapter.Preference{ID: out.ID, InitPoint: out.InitPoint, SandboxInitPoint: out.SandboxInitPoint}, nil
}

// GetPayment calls GET /v1/payments/{id}. The numeric provider id is returned as a string.
func (g *MercadoPagoGateway) GetPayment(ctx context.Context, paymentID string) (*adapter.ProviderPayment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: empty provider payment id", domain.ErrInvalidArgument)
	}
	var out struct {
		ID                json.Number     `json:"id"`
		Status            string          `json:"status"`
		StatusDetail      string          `json:"status_detail"`
		PreferenceID      string          `json:"preference_id"`
		ExternalReference string          `json:"external_reference"`
		TransactionAmount decimal.Decimal `json:"transaction_amount"`
		CurrencyID        string          `json:"currency_id"`
		Metadata          struct {
			PreferenceID string `json:"preference_id"`
		} `json:"metadata"`
	}
	if err := g.do(ctx, "get_payment", http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, nil, &out); err != nil {
		return nil, err
	}
	pref := out.PreferenceID
	if pref == "" {
		pref = out.Metadata.PreferenceID
	}
	return &adapter.ProviderPayment{
		ID:                out.ID.String(),
		Status:            out.Status,
		StatusDetail:      out.StatusDetail,
		PreferenceID:      pref,
		ExternalReference: out.ExternalReference,
		TransactionAmount: out.TransactionAmount,
		CurrencyID:        out.CurrencyID,
	}, nil
}

func (g *MercadoPagoGateway) do(ctx context.Context, op, method, path string, headers map[string]string, in, out any) error {
	start := time.Now()
	result := "ok"
	defer func() { metrics.ObserveGatewayCall(g.Name(), op, result, time.Since(start)) }()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			result = "encode_error"
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		result = "encode_error"
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		result = "transport_error"
		return fmt.Errorf("%w: mercadopago %s: %v", domain.ErrUpstream, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		result = "not_found"
		return fmt.Errorf("mercadopago %s: %w", op, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result = "http_error"
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: mercadopago %s http %d: %s", domain.ErrUpstream, op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		result = "decode_error"
		return fmt.Errorf("%w: mercadopago %s decode: %v", domain.ErrUpstream, op, err)
	}
	return nil
}
