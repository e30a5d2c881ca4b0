package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/config"
	"github.com/boostsocial/boost-api/internal/domain/admin"
	"github.com/boostsocial/boost-api/internal/domain/auth"
	"github.com/boostsocial/boost-api/internal/domain/catalog"
	"github.com/boostsocial/boost-api/internal/domain/deposit"
	"github.com/boostsocial/boost-api/internal/domain/order"
	"github.com/boostsocial/boost-api/internal/domain/profile"
	"github.com/boostsocial/boost-api/internal/domain/realtime"
	"github.com/boostsocial/boost-api/internal/domain/reward"
	"github.com/boostsocial/boost-api/internal/domain/transaction"
	"github.com/boostsocial/boost-api/internal/domain/wallet"
	"github.com/boostsocial/boost-api/internal/jobs"
	"github.com/boostsocial/boost-api/internal/middleware"
	"github.com/boostsocial/boost-api/internal/pkg/cache"
	"github.com/boostsocial/boost-api/internal/pkg/database"
	"github.com/boostsocial/boost-api/internal/pkg/jwt"
	"github.com/boostsocial/boost-api/internal/pkg/logger"
	"github.com/boostsocial/boost-api/internal/pkg/moolre"
	"github.com/boostsocial/boost-api/internal/pkg/paystack"
	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Boost API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancelMigrate()
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	cancelMigrate()

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	responseCache := cache.New(rdb, "boost:cache:")
	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- WebSocket hub ----------
	hub := realtime.NewHub(rdb)
	go hub.Run()

	// ---------- Upstream clients ----------
	paystackClient := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.UpstreamTimeout)
	moolreClient := moolre.NewClient(moolre.Config{
		BaseURL:              cfg.MoolreBaseURL,
		APIUser:              cfg.MoolreAPIUser,
		APIKey:               cfg.MoolreAPIKey,
		AccountNumber:        cfg.MoolreAccountNumber,
		TransactionEndpoints: cfg.MoolreTransactionsEndpoints,
		Timeout:              cfg.UpstreamTimeout,
	})
	providers := smm.NewRegistry(
		smmConfig(cfg, smm.ProviderSMMGen, cfg.SMMGenAPIKey, cfg.SMMGenStatusURLs, responseCache),
		smmConfig(cfg, smm.ProviderSMMCost, cfg.SMMCostAPIKey, cfg.SMMCostStatusURLs, responseCache),
		smmConfig(cfg, smm.ProviderJBSMMPanel, cfg.JBSMMPanelAPIKey, cfg.JBSMMPanelStatusURLs, responseCache),
	)

	// ---------- Repositories ----------
	txRepo := transaction.NewRepository(db)
	profileRepo := profile.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	orderRepo := order.NewRepository(db)
	rewardRepo := reward.NewRepository(db)
	adminRepo := admin.NewRepository(db)

	// ---------- Services ----------
	walletService := wallet.NewService(walletRepo)
	balanceReconciler := profile.NewBalanceReconciler(profileRepo)

	depositNotifier := deposit.NewHubNotifier(hub)
	verifier := deposit.NewVerifier(cfg.PaystackSecretKey, paystack.NewAllowlist(cfg.PaystackAllowedIPs), paystackClient)
	webhookService := deposit.NewWebhookService(txRepo, depositNotifier)
	statusService := deposit.NewStatusService(txRepo, profileRepo, moolreClient, depositNotifier)
	poller := deposit.NewPoller(deposit.PollerConfig{
		Interval:    cfg.DepositPollInterval,
		MaxAttempts: cfg.DepositPollMaxAttempts,
		MaxDuration: cfg.DepositPollMaxDuration,
	}, statusService, txRepo, profileRepo, depositNotifier)
	watcher := deposit.NewWatcher(poller)
	depositService := deposit.NewService(txRepo, watcher, depositNotifier)

	catalogService := catalog.NewService(catalogRepo, responseCache, cfg.CacheTTL)

	reconciler := order.NewReconciler(providers, orderRepo, order.NewHubListener(hub))
	orderService := order.NewService(orderRepo, catalogService, walletService, providers, reconciler, order.Options{
		Concurrency: cfg.OrderCheckConcurrency,
		MinInterval: cfg.OrderCheckMinInterval,
	})

	rewardService := reward.NewService(rewardRepo, walletService)
	authService := auth.NewService(profileRepo, jwtService)

	var lister admin.TransactionLister
	if cfg.MoolreConfigured() {
		lister = moolreClient
	}
	adminService := admin.NewService(adminRepo, lister, responseCache, cfg.CacheTTL)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	depositHandler := deposit.NewHandler(verifier, webhookService, statusService, depositService)
	catalogHandler := catalog.NewHandler(catalogService)
	orderHandler := order.NewHandler(orderService)
	profileHandler := profile.NewHandler(profileRepo, balanceReconciler)
	rewardHandler := reward.NewHandler(rewardService)
	adminHandler := admin.NewHandler(adminService)
	wsHandler := realtime.NewHandler(hub, jwtService, cfg.AllowedOrigins)

	roles := roleLookup(profileRepo)
	authMiddleware := middleware.Auth(jwtService)
	resolveRole := middleware.ResolveRole(roles)
	adminGuard := chain(authMiddleware, middleware.RequireAdmin(roles))

	catalogAdmin := chi.NewRouter()
	catalogAdmin.Post("/", catalogHandler.Create)

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid TRUSTED_PROXIES")
	}

	r := newRouter(cfg.AllowedOrigins, trusted, routes{
		Auth:     authHandler.Routes(authMiddleware),
		Deposits: depositHandler.Routes(authMiddleware, resolveRole),
		Orders:   orderHandler.Routes(authMiddleware, resolveRole),
		Services: catalogHandler.Routes(),
		User:     profileHandler.Routes(authMiddleware),
		Rewards:  rewardHandler.Routes(authMiddleware),
		Admin: adminHandler.Routes(adminGuard,
			admin.Mount{Path: "/deposits", Router: depositHandler.AdminRoutes()},
			admin.Mount{Path: "/services", Router: catalogAdmin},
			admin.Mount{Path: "/rewards", Router: rewardHandler.AdminRoutes()},
			admin.Mount{Path: "/balances", Router: profileHandler.AdminRoutes()},
			admin.Mount{Path: "/orders", Router: orderHandler.AdminRoutes()},
			admin.Mount{Path: "/users", Router: profileHandler.AdminUserRoutes()},
		),
		PaystackWebhook: depositHandler.PaystackWebhook,
		WebSocket:       wsHandler.ServeWS,
	})

	// ---------- Background jobs ----------
	var scheduler *jobs.Scheduler
	if cfg.JobsEnabled {
		scheduler = jobs.NewScheduler(jobs.NewLocker(rdb))
		mustSchedule(scheduler.Every("order-status-sweep", cfg.OrderCheckSchedule,
			jobs.OrderStatusSweep(orderService, order.MaxCheckBatch)))
		mustSchedule(scheduler.Every("stale-deposit-sweep", cfg.DepositSweepSchedule,
			jobs.StaleDepositSweep(depositService, cfg.DepositExpiry, 500)))
		mustSchedule(scheduler.Every("balance-drift-check", cfg.BalanceCheckSchedule,
			jobs.BalanceDriftCheck(balanceReconciler, cfg.BalanceAutoCorrect)))
		scheduler.Start()
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}
	watcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Shutdown()

	log.Info().Msg("Server exited properly")
}

func smmConfig(cfg *config.Config, p smm.Provider, key string, urls []string, c cache.Cache) smm.Config {
	return smm.Config{
		Provider: p,
		APIKey:   key,
		URLs:     urls,
		Timeout:  cfg.UpstreamTimeout,
		Cache:    c,
		CacheTTL: cfg.CacheTTL,
	}
}

func mustSchedule(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule job")
	}
}

// roleLookup reads the stored role so admin checks never trust the token.
func roleLookup(repo profile.Repository) middleware.RoleLookup {
	return func(ctx context.Context, id uuid.UUID) (string, error) {
		role, err := repo.GetRole(ctx, id)
		if err != nil {
			return "", err
		}
		return string(role), nil
	}
}

func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
