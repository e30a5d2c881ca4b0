package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/boostsocial/boost-api/internal/middleware"
	pkgresponse "github.com/boostsocial/boost-api/internal/pkg/response"
)

// routes holds the mounted sub-routers so the tree can be built without a
// database behind it.
type routes struct {
	Auth     http.Handler
	Deposits http.Handler
	Orders   http.Handler
	Services http.Handler
	User     http.Handler
	Rewards  http.Handler
	Admin    http.Handler

	PaystackWebhook http.HandlerFunc
	WebSocket       http.HandlerFunc
}

func newRouter(allowedOrigins []string, trusted *middleware.TrustedProxies, rt routes) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP(trusted))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(allowedOrigins))

	// WebSocket authenticates with ?token= since browsers cannot set headers.
	r.Get("/ws", rt.WebSocket)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/auth", rt.Auth)
		r.Mount("/deposits", rt.Deposits)
		r.Mount("/orders", rt.Orders)
		r.Mount("/services", rt.Services)
		r.Mount("/user", rt.User)
		r.Mount("/rewards", rt.Rewards)
	})

	// Paystack signs the raw body, so the webhook sits outside /api/v1. Every
	// method reaches the handler so non-POST gets its JSON 405.
	r.HandleFunc("/webhooks/paystack", rt.PaystackWebhook)

	r.Mount("/api/admin", rt.Admin)

	return r
}
