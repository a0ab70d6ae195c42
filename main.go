package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/ecobuddy/locator/auth"
	"github.com/ecobuddy/locator/config"
	"github.com/ecobuddy/locator/facilities"
	"github.com/ecobuddy/locator/httpx"
	"github.com/ecobuddy/locator/logging"
	"github.com/ecobuddy/locator/metrics"
	"github.com/ecobuddy/locator/rbac"
	"github.com/ecobuddy/locator/storage"
	"github.com/ecobuddy/locator/storage/memory"
	"github.com/ecobuddy/locator/storage/postgres"
)

// store is everything the HTTP layer needs from persistence.
type store interface {
	storage.FacilityStore
	storage.UserStore
}

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Admin.Username != "" {
		if err := auth.Bootstrap(ctx, st, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		logger.Info().Str("username", cfg.Admin.Username).Msg("admin account ensured")
	}

	if cfg.UsesDevSecret() {
		logger.Warn().Msg("SESSION_SECRET not set, using development fallback")
	}
	sessions, err := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.Lifetime, cfg.Session.CookieSecure)
	if err != nil {
		return fmt.Errorf("configure sessions: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           newRouter(cfg, logger, st, sessions),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Str("db", cfg.DB.Driver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore connects the configured driver, prepares the schema and seeds the
// demo directory when enabled.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store, func(), error) {
	var (
		st      store
		closeFn = func() {}
	)

	switch cfg.DB.Driver {
	case "memory":
		st = memory.New(storage.SeedCategories)
	default:
		pg, err := postgres.New(ctx, cfg.DB.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx, storage.SeedCategories); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		st, closeFn = pg, pg.Close
	}

	if cfg.DB.Seed {
		n, err := storage.SeedDirectory(ctx, st)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("seed directory: %w", err)
		}
		if n > 0 {
			logger.Info().Int("facilities", n).Msg("seeded demo directory")
		}
	}
	return st, closeFn, nil
}

func newRouter(cfg *config.Config, logger zerolog.Logger, st store, sessions *auth.SessionManager) http.Handler {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		metrics.Middleware,
		middleware.Recoverer,
		middleware.Timeout(cfg.HTTP.RequestTimeout),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(sessions.Middleware)

	router.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := st.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/api/client-config", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]int64{
			"debounce_ms":      cfg.Client.Debounce.Milliseconds(),
			"fetch_timeout_ms": cfg.Client.FetchTimeout.Milliseconds(),
		})
	})
	router.Handle("/metrics", metrics.Handler())

	searchLimit := httprate.Limit(
		cfg.RateLimit.Requests,
		cfg.RateLimit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httpx.Error(w, http.StatusTooManyRequests, "too many search requests")
		}),
	)

	enforcer := rbac.NewEnforcer(auth.RequestRoles)
	fh := facilities.NewHandler(st)

	router.Mount("/api/auth", auth.NewHandler(st, sessions).Routes())
	router.Mount("/api/facilities", fh.Routes(searchLimit))
	router.Mount("/api/dashboard", fh.DashboardRoutes())
	router.Mount("/api/admin/facilities", fh.AdminRoutes(enforcer))
	router.Mount("/api/rbac", rbac.NewHandler(enforcer).Routes())

	return router
}
