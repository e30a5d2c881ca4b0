// Package smm talks to Perfect Panel compatible SMM provider APIs and maps
// their order status vocabulary to the canonical status set.
package smm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/pkg/cache"
	"github.com/boostsocial/boost-api/internal/pkg/upstream"
)

var (
	ErrNotConfigured    = errors.New("smm provider is not configured")
	ErrUnknownProvider  = errors.New("unknown smm provider")
	ErrNoEndpoint       = errors.New("smm provider: no endpoint answered")
	ErrProviderRejected = errors.New("smm provider rejected the request")

	ErrUpstreamTimeout = upstream.ErrTimeout
	ErrUpstreamStatus  = upstream.ErrStatus
)

// Config configures one provider.
type Config struct {
	Provider Provider
	APIKey   string
	// URLs are candidate API endpoints tried in order until one returns a
	// well-formed answer. Configure a single URL once the right one is known.
	// Orders are only ever placed on the resolved or first URL.
	URLs     []string
	Timeout  time.Duration
	Cache    cache.Cache
	CacheTTL time.Duration
}

// OrderStatus is a provider's answer for one order.
type OrderStatus struct {
	Provider   Provider        `json:"provider"`
	OrderID    string          `json:"order_id"`
	Raw        string          `json:"raw"`
	Status     Status          `json:"status"`
	Charge     decimal.Decimal `json:"charge"`
	StartCount string          `json:"start_count,omitempty"`
	Remains    string          `json:"remains,omitempty"`
}

// AddOrderRequest places an order upstream.
type AddOrderRequest struct {
	ServiceID string
	Link      string
	Quantity  int
}

type statusResponse struct {
	Charge     flexString `json:"charge"`
	StartCount flexString `json:"start_count"`
	Status     flexString `json:"status"`
	Remains    flexString `json:"remains"`
	Currency   string     `json:"currency"`
	Error      string     `json:"error"`
}

type addResponse struct {
	Order flexString `json:"order"`
	Error string     `json:"error"`
}

// flexString accepts JSON strings, numbers and null. Panels disagree on
// whether ids and counters are quoted.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	*f = flexString(s)
	return nil
}

// Client is a single provider's API client.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.RWMutex
	resolved string
}

// NewClient creates a provider client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: upstream.NewHTTPClient(cfg.Timeout),
	}
}

// Provider returns the provider this client talks to.
func (c *Client) Provider() Provider { return c.cfg.Provider }

// Configured reports whether the client has a key and at least one URL.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && len(c.cfg.URLs) > 0
}

// Status fetches an order's status. Answers are cached for CacheTTL.
func (c *Client) Status(ctx context.Context, orderID string) (*OrderStatus, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%s: %w", c.cfg.Provider, ErrNotConfigured)
	}

	key := fmt.Sprintf("smm:status:%s:%s", c.cfg.Provider, orderID)
	var cached OrderStatus
	if cache.GetJSON(ctx, c.cfg.Cache, key, &cached) {
		return &cached, nil
	}

	form := url.Values{}
	form.Set("action", "status")
	form.Set("order", orderID)

	raw, err := c.call(ctx, form)
	if err != nil {
		return nil, err
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.cfg.Provider, upstream.ErrMalformed, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%s order %s: %w: %s", c.cfg.Provider, orderID, ErrProviderRejected, resp.Error)
	}

	out := &OrderStatus{
		Provider:   c.cfg.Provider,
		OrderID:    orderID,
		Raw:        string(resp.Status),
		Status:     MapStatus(c.cfg.Provider, string(resp.Status)),
		StartCount: string(resp.StartCount),
		Remains:    string(resp.Remains),
	}
	if charge, err := decimal.NewFromString(string(resp.Charge)); err == nil {
		out.Charge = charge
	}

	if err := cache.SetJSON(ctx, c.cfg.Cache, key, out, c.cfg.CacheTTL); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Failed to cache smm status")
	}
	return out, nil
}

// AddOrder places an order and returns the provider's order id. The request
// goes to exactly one endpoint: a failure may still have created the order,
// so it is never replayed against another candidate.
func (c *Client) AddOrder(ctx context.Context, req AddOrderRequest) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%s: %w", c.cfg.Provider, ErrNotConfigured)
	}

	form := url.Values{}
	form.Set("action", "add")
	form.Set("service", req.ServiceID)
	form.Set("link", req.Link)
	form.Set("quantity", strconv.Itoa(req.Quantity))

	raw, err := c.callOnce(ctx, form)
	if err != nil {
		return "", err
	}

	var resp addResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%s: %w: %v", c.cfg.Provider, upstream.ErrMalformed, err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%s: %w: %s", c.cfg.Provider, ErrProviderRejected, resp.Error)
	}
	if resp.Order == "" {
		return "", fmt.Errorf("%s: %w: missing order id", c.cfg.Provider, upstream.ErrMalformed)
	}
	return string(resp.Order), nil
}

// call posts form to the remembered endpoint, falling back to trying the
// configured candidates. Only read actions go through here. A candidate wins when it answers 2xx with a JSON
// object, even if that object carries a provider error.
func (c *Client) call(ctx context.Context, form url.Values) ([]byte, error) {
	form.Set("key", c.cfg.APIKey)

	c.mu.RLock()
	known := c.resolved
	c.mu.RUnlock()

	if known != "" {
		raw, err := c.post(ctx, known, form)
		if err == nil || errors.Is(err, upstream.ErrTimeout) {
			return raw, err
		}
		log.Warn().Err(err).Str("provider", string(c.cfg.Provider)).Str("endpoint", known).
			Msg("Remembered smm endpoint failed, trying candidates again")
	}

	var lastErr error
	for _, endpoint := range c.cfg.URLs {
		if endpoint == known {
			continue
		}
		raw, err := c.post(ctx, endpoint, form)
		if err != nil {
			lastErr = err
			if errors.Is(err, upstream.ErrTimeout) || ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		c.mu.Lock()
		c.resolved = endpoint
		c.mu.Unlock()
		log.Info().Str("provider", string(c.cfg.Provider)).Str("endpoint", endpoint).
			Msg("SMM endpoint resolved")
		return raw, nil
	}

	if lastErr == nil {
		return nil, ErrNoEndpoint
	}
	return nil, fmt.Errorf("%w: %w", ErrNoEndpoint, lastErr)
}

// callOnce posts form to the remembered endpoint, or the first configured
// one when nothing has resolved yet.
func (c *Client) callOnce(ctx context.Context, form url.Values) ([]byte, error) {
	form.Set("key", c.cfg.APIKey)

	c.mu.RLock()
	endpoint := c.resolved
	c.mu.RUnlock()
	if endpoint == "" {
		endpoint = c.cfg.URLs[0]
	}
	return c.post(ctx, endpoint, form)
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	service := string(c.cfg.Provider)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstream.Classify(ctx, service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, upstream.Classify(ctx, service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstream.StatusError(service, resp.StatusCode, body)
	}

	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") || !json.Valid(body) {
		return nil, fmt.Errorf("%s: %w: not a json object", service, upstream.ErrMalformed)
	}
	return body, nil
}

// Registry holds one client per provider.
type Registry struct {
	clients map[Provider]*Client
}

// NewRegistry builds a registry from provider configs. Unconfigured providers
// are still registered so callers get ErrNotConfigured rather than
// ErrUnknownProvider.
func NewRegistry(cfgs ...Config) *Registry {
	r := &Registry{clients: make(map[Provider]*Client, len(cfgs))}
	for _, cfg := range cfgs {
		r.clients[cfg.Provider] = NewClient(cfg)
	}
	return r
}

// Client returns the client for p.
func (r *Registry) Client(p Provider) (*Client, error) {
	c, ok := r.clients[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	return c, nil
}

// Status fetches an order status from the given provider.
func (r *Registry) Status(ctx context.Context, p Provider, orderID string) (*OrderStatus, error) {
	c, err := r.Client(p)
	if err != nil {
		return nil, err
	}
	return c.Status(ctx, orderID)
}

// AddOrder places an order with the given provider.
func (r *Registry) AddOrder(ctx context.Context, p Provider, req AddOrderRequest) (string, error) {
	c, err := r.Client(p)
	if err != nil {
		return "", err
	}
	return c.AddOrder(ctx, req)
}
