package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/boostsocial/boost-api/internal/middleware"
)

func tagged(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Route", name)
		w.WriteHeader(http.StatusOK)
	})
}

func testRoutes() routes {
	sub := func(name string) http.Handler {
		r := chi.NewRouter()
		r.Handle("/*", tagged(name))
		return r
	}
	return routes{
		Auth:            sub("auth"),
		Deposits:        sub("deposits"),
		Orders:          sub("orders"),
		Services:        sub("services"),
		User:            sub("user"),
		Rewards:         sub("rewards"),
		Admin:           sub("admin"),
		PaystackWebhook: tagged("webhook").ServeHTTP,
		WebSocket:       tagged("ws").ServeHTTP,
	}
}

func TestRouterMountsEveryArea(t *testing.T) {
	r := newRouter([]string{"http://localhost:3000"}, nil, testRoutes())

	cases := []struct {
		method, path, route string
	}{
		{http.MethodPost, "/api/v1/auth/login", "auth"},
		{http.MethodGet, "/api/v1/deposits/status", "deposits"},
		{http.MethodPost, "/api/v1/orders/check-status", "orders"},
		{http.MethodGet, "/api/v1/services/platforms", "services"},
		{http.MethodGet, "/api/v1/user/balance", "user"},
		{http.MethodGet, "/api/v1/rewards/", "rewards"},
		{http.MethodGet, "/api/admin/stats", "admin"},
		{http.MethodPost, "/webhooks/paystack", "webhook"},
		{http.MethodGet, "/ws", "ws"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			if got := rr.Header().Get("X-Route"); got != tc.route {
				t.Fatalf("expected route %q, got %q", tc.route, got)
			}
		})
	}
}

func TestRouterHealthAndRequestID(t *testing.T) {
	r := newRouter(nil, nil, testRoutes())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}

	// The webhook handler owns its method check.
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhooks/paystack", nil))
	if got := rr.Header().Get("X-Route"); got != "webhook" {
		t.Fatalf("GET must reach the webhook handler, got route %q", got)
	}
}

func TestRouterKeepsSocketAddressForDirectCallers(t *testing.T) {
	var seen string
	rt := testRoutes()
	rt.PaystackWebhook = func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}

	trusted, err := middleware.ParseTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatal(err)
	}
	r := newRouter(nil, trusted, rt)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	req.Header.Set("X-Forwarded-For", "52.31.139.75")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "203.0.113.9:4242" {
		t.Fatalf("untrusted caller rewrote its address to %q", seen)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhooks/paystack", nil)
	req.RemoteAddr = "10.1.2.3:5000"
	req.Header.Set("X-Forwarded-For", "52.31.139.75")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "52.31.139.75:0" {
		t.Fatalf("trusted proxy hop not honored, got %q", seen)
	}
}

func TestChainRunsInOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := chain(mw("auth"), mw("admin"))(tagged("x"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 2 || order[0] != "auth" || order[1] != "admin" {
		t.Fatalf("unexpected order %v", order)
	}
}
