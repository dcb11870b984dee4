package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/config"
	"github.com/mmynk/tripsplit/internal/live"
	"github.com/mmynk/tripsplit/internal/metrics"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/service"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/internal/storage/mongo"
	"github.com/mmynk/tripsplit/internal/storage/sqlite"
	"github.com/mmynk/tripsplit/pkg/api"
)

const (
	shutdownTimeout = 10 * time.Second
	// limiterIdle is how long a client's join limiter is kept unused.
	limiterIdle = 30 * time.Minute
)

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		return mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

// app holds everything the router serves.
type app struct {
	cfg          *config.Config
	registry     *prometheus.Registry
	authSvc      *service.AuthService
	groupSvc     *service.GroupService
	expenseSvc   *service.ExpenseService
	balanceSvc   *service.BalanceService
	google       *service.GoogleHandler
	googleActive bool
	handlerOpts  []connect.HandlerOption

	revoked *auth.RevocationList
	limiter *middleware.RateLimiter
}

func newApp(ctx context.Context, cfg *config.Config, store storage.Store) (*app, error) {
	hub := live.NewHub()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry, hub.Subscribers)

	revoked, err := auth.LoadRevocationList(ctx, store)
	if err != nil {
		return nil, err
	}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL, revoked)
	sessions := auth.NewSessionManager(cfg.SessionKey, cfg.SecureCookies())
	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, slog.Default())

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.JoinRateLimitRPS,
		Burst:             cfg.JoinRateLimitBurst,
	}, api.GroupServiceJoinGroupProcedure)

	a := &app{
		cfg:        cfg,
		registry:   registry,
		authSvc:    authSvc,
		groupSvc:   service.NewGroupService(store, hub, m, cfg.JoinCodeMaxAttempts),
		expenseSvc: service.NewExpenseService(store, hub, m),
		balanceSvc: service.NewBalanceService(store, hub),
		revoked:    revoked,
		limiter:    limiter,
		handlerOpts: []connect.HandlerOption{
			// Auth runs before logging and rate limiting so both see the caller.
			connect.WithInterceptors(
				middleware.MetricsInterceptor(m),
				middleware.NewAuthInterceptor(jwtManager, sessions, service.PublicProcedures...),
				middleware.LoggingInterceptor(),
				limiter.Interceptor(),
			),
		},
	}

	var provider service.IdentityProvider
	if cfg.GoogleEnabled() {
		redirectURL := strings.TrimRight(cfg.BaseURL, "/") + "/auth/google/callback"
		google, err := auth.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, redirectURL)
		if err != nil {
			return nil, fmt.Errorf("google sign-in: %w", err)
		}
		provider = google
		a.googleActive = true
	}
	a.google = service.NewGoogleHandler(provider, sessions, authSvc, jwtManager, cfg.FrontendURL)

	return a, nil
}

// housekeeping drops expired revocations and idle rate limiters.
func (a *app) housekeeping() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pruned, err := a.revoked.Prune(ctx, time.Now())
	if err != nil {
		slog.Warn("Failed to prune revoked tokens", "error", err)
	}
	swept := a.limiter.Sweep(limiterIdle)
	slog.Debug("Housekeeping done", "revocations_pruned", pruned, "limiters_swept", swept)
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.StorageDriver)

	a, err := newApp(ctx, cfg, store)
	if err != nil {
		return err
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 10m", a.housekeeping); err != nil {
		return fmt.Errorf("schedule housekeeping: %w", err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		// h2c serves HTTP/2 without TLS, which Connect streaming clients use.
		Handler:           h2c.NewHandler(a.router(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx, so open watch streams return on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "address", cfg.ListenAddr, "url", cfg.BaseURL, "google_sign_in", a.googleActive)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
