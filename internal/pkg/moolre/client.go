// Package moolre is a small client for the Moolre mobile money open API.
package moolre

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/pkg/upstream"
)

const serviceName = "moolre"

var (
	ErrNotConfigured = errors.New("moolre credentials are not configured")
	ErrNoEndpoint    = errors.New("moolre: no transactions endpoint answered")
)

// Status is the normalised Moolre transaction status.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Config holds Moolre credentials and endpoints.
type Config struct {
	BaseURL       string
	APIUser       string
	APIKey        string
	AccountNumber string
	// TransactionEndpoints are tried in order for the listing call.
	TransactionEndpoints []string
	Timeout              time.Duration
}

// StatusResult is the outcome of a status lookup.
type StatusResult struct {
	Status    Status
	Reference string
	Amount    decimal.Decimal
	Message   string
	Raw       json.RawMessage
}

// Transaction is one row of the account transaction listing.
type Transaction struct {
	ID          string          `json:"id"`
	Reference   string          `json:"externalref"`
	Amount      decimal.Decimal `json:"amount"`
	Status      Status          `json:"status"`
	Payer       string          `json:"payer,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

type envelope struct {
	Status  json.Number     `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the Moolre API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu              sync.RWMutex
	listingEndpoint string
}

// NewClient creates a Moolre client.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.moolre.com"
	}
	return &Client{
		cfg:        cfg,
		httpClient: upstream.NewHTTPClient(cfg.Timeout),
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIUser != "" && c.cfg.APIKey != ""
}

// CheckStatus looks up a collection by our external reference.
func (c *Client) CheckStatus(ctx context.Context, reference string) (*StatusResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	payload := map[string]interface{}{
		"type":          1,
		"idtype":        1,
		"id":            reference,
		"accountnumber": c.cfg.AccountNumber,
	}

	env, err := c.post(ctx, c.cfg.BaseURL+"/open/transact/status", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		TxStatus    json.Number     `json:"txstatus"`
		ExternalRef string          `json:"externalref"`
		Amount      decimal.Decimal `json:"amount"`
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", serviceName, upstream.ErrMalformed, err)
		}
	}

	result := &StatusResult{
		Status:    parseTxStatus(data.TxStatus.String()),
		Reference: data.ExternalRef,
		Amount:    data.Amount,
		Message:   env.Message,
		Raw:       env.Data,
	}
	if result.Reference == "" {
		result.Reference = reference
	}
	return result, nil
}

// ListTransactions returns recent account transactions. The first configured
// endpoint that returns a well-formed listing is remembered for the process.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	payload := map[string]interface{}{"accountnumber": c.cfg.AccountNumber}

	c.mu.RLock()
	known := c.listingEndpoint
	c.mu.RUnlock()

	if known != "" {
		txs, err := c.list(ctx, known, payload)
		if err == nil {
			return txs, nil
		}
		if errors.Is(err, upstream.ErrTimeout) {
			return nil, err
		}
		log.Warn().Err(err).Str("endpoint", known).Msg("Remembered moolre endpoint failed, trying candidates again")
	}

	var lastErr error
	for _, path := range c.cfg.TransactionEndpoints {
		endpoint := c.resolve(path)
		if endpoint == known {
			continue
		}
		txs, err := c.list(ctx, endpoint, payload)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, upstream.Classify(ctx, serviceName, ctx.Err())
			}
			continue
		}
		c.mu.Lock()
		c.listingEndpoint = endpoint
		c.mu.Unlock()
		log.Info().Str("endpoint", endpoint).Msg("Moolre transactions endpoint discovered")
		return txs, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEndpoint, lastErr)
	}
	return nil, ErrNoEndpoint
}

func (c *Client) list(ctx context.Context, endpoint string, payload interface{}) ([]Transaction, error) {
	env, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID          json.Number     `json:"id"`
		TxID        string          `json:"transactionid"`
		ExternalRef string          `json:"externalref"`
		Amount      decimal.Decimal `json:"amount"`
		TxStatus    json.Number     `json:"txstatus"`
		Payer       string          `json:"payer"`
		Description string          `json:"description"`
		CreatedAt   string          `json:"created_at"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", serviceName, upstream.ErrMalformed, err)
	}

	out := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		id := r.TxID
		if id == "" {
			id = r.ID.String()
		}
		out = append(out, Transaction{
			ID:          id,
			Reference:   r.ExternalRef,
			Amount:      r.Amount,
			Status:      parseTxStatus(r.TxStatus.String()),
			Payer:       r.Payer,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal moolre payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create moolre request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-USER", c.cfg.APIUser)
	req.Header.Set("X-API-PUBKEY", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstream.Classify(ctx, serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, upstream.Classify(ctx, serviceName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstream.StatusError(serviceName, resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", serviceName, upstream.ErrMalformed, err)
	}
	if env.Status.String() == "0" && len(env.Data) == 0 {
		return nil, fmt.Errorf("%s: %w: %s", serviceName, upstream.ErrMalformed, env.Message)
	}
	return &env, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// parseTxStatus maps Moolre's numeric txstatus: 1 success, 2 failed,
// anything else still pending.
func parseTxStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "success", "successful", "completed":
		return StatusSuccess
	case "2", "3", "failed", "cancelled", "canceled", "rejected":
		return StatusFailed
	default:
		return StatusPending
	}
}
