package biomservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mybiom/biom/internal/api"
	"github.com/mybiom/biom/internal/chat"
	"github.com/mybiom/biom/internal/config"
	"github.com/mybiom/biom/internal/factory"
	"github.com/mybiom/biom/internal/health"
	"github.com/mybiom/biom/internal/logger"
	"github.com/mybiom/biom/internal/services"
	"github.com/mybiom/biom/internal/store"
	"github.com/mybiom/biom/internal/store/sqlstore"
)

// Run starts the biom HTTP server and blocks until shutdown or error.
func Run() error {
	cfg, err := config.New()
	if err != nil {
		log := logger.New("biom-service", "info")
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log := logger.New("biom-service", cfg.LogLevel)

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("time_zone", cfg.TimeZone).
		Str("ollama_url", cfg.OllamaURL).
		Str("chat_model", cfg.ChatModel).
		Msg("Biom service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, relay, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error().Stack().Err(cerr).Msg("Store close failed")
		}
	}()

	svcHealth := startHealthCheckers(ctx, cfg, log, st, relay)

	// Block startup until required dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	router := buildRouter(st, relay, svcHealth, cfg, log)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies opens the store and builds the chat relay.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sqlstore.Store, *chat.Relay, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, nil, err
	}
	var relay *chat.Relay
	if cfg.OllamaURL != "" {
		relay = chat.NewRelay(cfg.OllamaURL, cfg.ChatModel)
	}
	return st, relay, nil
}

func serviceOptions(cfg *config.Config) services.Options {
	return services.Options{
		StoreTimeout:      cfg.StoreTimeout,
		Location:          cfg.Location(),
		DefaultWindowDays: cfg.DefaultWindowDays,
	}
}

// buildRouter wires services into the HTTP layer.
func buildRouter(st store.Store, relay *chat.Relay, svcHealth api.HealthReporter, cfg *config.Config, log zerolog.Logger) http.Handler {
	opts := serviceOptions(cfg)
	return api.NewRouter(api.Deps{
		Users:          services.NewUserService(st, opts),
		Attributes:     services.NewAttributeService(st, opts),
		Entries:        services.NewEntryService(st, opts),
		Graphs:         services.NewGraphService(st, opts),
		Chat:           services.NewChatService(st, opts),
		Relay:          relay,
		Health:         svcHealth,
		AllowedOrigins: cfg.AllowedOrigins(),
		Log:            log,
	})
}

// startHealthCheckers starts component checkers and the service-level aggregator.
// The chat model server is optional: losing it degrades /api/chat only.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store, relay *chat.Relay) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	if relay != nil {
		chatChecker := health.NewPingChecker("chat", relay, log, probeTimeout)
		go chatChecker.Start(ctx, interval)
		svcHealth.WithOptional(chatChecker)
	}
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

// newHTTPServer leaves WriteTimeout unset: chat streams are bounded by the
// request context instead.
func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

type healthFlag interface{ IsHealthy() bool }

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth healthFlag) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
