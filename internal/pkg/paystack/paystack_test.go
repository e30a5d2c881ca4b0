package paystack

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/pkg/upstream"
)

func TestSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_123","amount":1500}}`)
	secret := "sk_test_secret"

	sig := Sign(body, secret)
	if len(sig) != 128 {
		t.Fatalf("expected 128 hex chars, got %d", len(sig))
	}
	if !VerifySignature(body, sig, secret) {
		t.Fatal("expected signature to verify")
	}
}

func TestSignatureRejectsSingleByteMutation(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_123","amount":1500}}`)
	secret := "sk_test_secret"
	sig := Sign(body, secret)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		if VerifySignature(mutated, sig, secret) {
			t.Fatalf("mutation at byte %d still verified", i)
		}
	}
}

func TestVerifySignatureEdgeCases(t *testing.T) {
	body := []byte(`{}`)
	sig := Sign(body, "secret")

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{"valid", sig, "secret", true},
		{"wrong secret", sig, "other", false},
		{"empty secret", sig, "", false},
		{"empty signature", "", "secret", false},
		{"not hex", "zz-not-hex", "secret", false},
		{"truncated", sig[:64], "secret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(body, tt.signature, tt.secret); got != tt.want {
				t.Fatalf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowlistContains(t *testing.T) {
	a := NewAllowlist([]string{"52.31.139.75", " 52.49.173.169 ", "bogus"})

	if a.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", a.Len())
	}
	if !a.Contains("52.31.139.75") {
		t.Fatal("expected plain IP to match")
	}
	if !a.Contains("52.49.173.169:44321") {
		t.Fatal("expected host:port to match")
	}
	if a.Contains("10.0.0.1") {
		t.Fatal("unexpected match")
	}
	if a.Contains("") {
		t.Fatal("empty address must not match")
	}

	var nilList *Allowlist
	if nilList.Contains("52.31.139.75") {
		t.Fatal("nil allowlist must not match")
	}
}

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient("https://api.paystack.test", "sk_test", 0)
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestVerifyTransactionSuccess(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder("GET", "https://api.paystack.test/transaction/verify/ref_ok",
		func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("Authorization"); got != "Bearer sk_test" {
				t.Errorf("unexpected authorization header %q", got)
			}
			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"status":  true,
				"message": "Verification successful",
				"data": map[string]interface{}{
					"id":        42,
					"status":    "success",
					"reference": "ref_ok",
					"amount":    2550,
					"currency":  "GHS",
				},
			})
		})

	tx, err := c.VerifyTransaction(context.Background(), "ref_ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx == nil || !tx.IsSuccessful() {
		t.Fatalf("expected successful transaction, got %+v", tx)
	}
	if !tx.MajorAmount().Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("expected 25.50, got %s", tx.MajorAmount())
	}
}

func TestVerifyTransactionNotFound(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder("GET", "https://api.paystack.test/transaction/verify/missing",
		httpmock.NewStringResponder(404, `{"status":false,"message":"Transaction reference not found"}`))

	tx, err := c.VerifyTransaction(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx != nil {
		t.Fatalf("expected nil transaction, got %+v", tx)
	}
}

func TestVerifyTransactionUpstreamError(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder("GET", "https://api.paystack.test/transaction/verify/ref_err",
		httpmock.NewStringResponder(502, `bad gateway`))

	_, err := c.VerifyTransaction(context.Background(), "ref_err")
	if !errors.Is(err, upstream.ErrStatus) {
		t.Fatalf("expected ErrStatus, got %v", err)
	}
}

func TestVerifyTransactionNotConfigured(t *testing.T) {
	c := NewClient("", "", 0)
	_, err := c.VerifyTransaction(context.Background(), "ref")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
