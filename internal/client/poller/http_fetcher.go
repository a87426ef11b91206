package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher reads payment state from GET /payments/status.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFetcher(baseURL string, timeout time.Duration) (*HTTPFetcher, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("poller: invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{baseURL: u.String(), client: &http.Client{Timeout: timeout}}, nil
}

type statusResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Payment *PaymentState `json:"payment"`
}

func (f *HTTPFetcher) FetchStatus(ctx context.Context, paymentID, preferenceID string) (*PaymentState, error) {
	q := url.Values{}
	if paymentID != "" {
		q.Set("paymentId", paymentID)
	}
	if preferenceID != "" {
		q.Set("preferenceId", preferenceID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/payments/status?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poller: status request: %w", err)
	}
	defer resp.Body.Close()

	var body statusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("poller: decode status (http %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success || body.Payment == nil {
		return nil, fmt.Errorf("poller: status http %d: %s", resp.StatusCode, body.Error)
	}
	return body.Payment, nil
}
