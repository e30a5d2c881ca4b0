package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/pkg/upstream"
)

const serviceName = "paystack"

var ErrNotConfigured = errors.New("paystack secret key is not configured")

// Transaction is the subset of /transaction/verify data the API relies on.
type Transaction struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	// Amount is in the minor unit (pesewas / kobo).
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	PaidAt   string `json:"paid_at"`
}

// MajorAmount converts the minor-unit amount to the account currency.
func (t Transaction) MajorAmount() decimal.Decimal {
	return decimal.New(t.Amount, -2)
}

// IsSuccessful reports whether Paystack considers the charge settled.
func (t Transaction) IsSuccessful() bool {
	return strings.EqualFold(t.Status, "success")
}

type verifyResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    Transaction `json:"data"`
}

// Client talks to the Paystack REST API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a Paystack client. A zero timeout uses the upstream default.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: upstream.NewHTTPClient(timeout),
	}
}

// Configured reports whether the secret key is present.
func (c *Client) Configured() bool {
	return c != nil && c.secretKey != ""
}

// SecretKey returns the key used both for API calls and webhook HMAC.
func (c *Client) SecretKey() string {
	if c == nil {
		return ""
	}
	return c.secretKey
}

// VerifyTransaction fetches the transaction by reference.
// A 404 from Paystack is returned as (nil, nil).
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("paystack: empty reference")
	}

	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstream.Classify(ctx, serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, upstream.Classify(ctx, serviceName, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstream.StatusError(serviceName, resp.StatusCode, body)
	}

	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", serviceName, upstream.ErrMalformed, err)
	}
	if !out.Status {
		return nil, nil
	}
	return &out.Data, nil
}
