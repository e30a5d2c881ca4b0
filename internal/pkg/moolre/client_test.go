package moolre

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, endpoints ...string) *Client {
	t.Helper()
	c := NewClient(Config{
		BaseURL:              "https://moolre.test",
		APIUser:              "user",
		APIKey:               "pub",
		AccountNumber:        "10001",
		TransactionEndpoints: endpoints,
	})
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name     string
		txstatus interface{}
		want     Status
	}{
		{"success", 1, StatusSuccess},
		{"failed", 2, StatusFailed},
		{"pending", 0, StatusPending},
		{"string success", "1", StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			httpmock.RegisterResponder("POST", "https://moolre.test/open/transact/status",
				func(req *http.Request) (*http.Response, error) {
					if req.Header.Get("X-API-USER") != "user" || req.Header.Get("X-API-PUBKEY") != "pub" {
						t.Errorf("missing credential headers")
					}
					return httpmock.NewJsonResponse(200, map[string]interface{}{
						"status":  1,
						"code":    "TP14",
						"message": "ok",
						"data": map[string]interface{}{
							"txstatus":    tt.txstatus,
							"externalref": "dep_1",
							"amount":      "12.50",
						},
					})
				})

			res, err := c.CheckStatus(context.Background(), "dep_1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, res.Status)
			}
			if !res.Amount.Equal(decimal.RequireFromString("12.5")) {
				t.Fatalf("unexpected amount %s", res.Amount)
			}
		})
	}
}

func TestCheckStatusNotConfigured(t *testing.T) {
	c := NewClient(Config{})
	if _, err := c.CheckStatus(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestListTransactionsTriesAndRemembers(t *testing.T) {
	c := newTestClient(t, "/open/transact/list", "/open/transactions")

	httpmock.RegisterResponder("POST", "https://moolre.test/open/transact/list",
		httpmock.NewStringResponder(404, `not found`))
	httpmock.RegisterResponder("POST", "https://moolre.test/open/transactions",
		httpmock.NewStringResponder(200, `{"status":1,"message":"ok","data":[
			{"transactionid":"m-1","externalref":"dep_1","amount":10,"txstatus":1},
			{"transactionid":"m-2","externalref":"dep_2","amount":"5.25","txstatus":0}
		]}`))

	txs, err := c.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Status != StatusSuccess || txs[1].Status != StatusPending {
		t.Fatalf("unexpected statuses %+v", txs)
	}

	if _, err := c.ListTransactions(context.Background()); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}

	info := httpmock.GetCallCountInfo()
	if got := info["POST https://moolre.test/open/transact/list"]; got != 1 {
		t.Fatalf("expected failing endpoint tried once, got %d", got)
	}
	if got := info["POST https://moolre.test/open/transactions"]; got != 2 {
		t.Fatalf("expected remembered endpoint used twice, got %d", got)
	}
}

func TestListTransactionsNoEndpoint(t *testing.T) {
	c := newTestClient(t, "/a", "/b")
	httpmock.RegisterResponder("POST", "https://moolre.test/a", httpmock.NewStringResponder(500, `boom`))
	httpmock.RegisterResponder("POST", "https://moolre.test/b", httpmock.NewStringResponder(200, `<html>`))

	_, err := c.ListTransactions(context.Background())
	if !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}
