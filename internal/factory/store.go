package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/mybiom/biom/internal/config"
	"github.com/mybiom/biom/internal/store/postgres"
	"github.com/mybiom/biom/internal/store/sqlite"
	"github.com/mybiom/biom/internal/store/sqlstore"
)

// NewStore opens the configured store and applies its schema. Connection
// failures are retried with exponential backoff for up to BootstrapTimeoutSeconds.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sqlstore.Store, error) {
	var open func(ctx context.Context) (*sqlstore.Store, error)
	switch cfg.DBDriver {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("BIOM_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		open = func(ctx context.Context) (*sqlstore.Store, error) { return postgres.Bootstrap(ctx, cfg.PostgresDSN) }
	case "sqlite":
		open = func(ctx context.Context) (*sqlstore.Store, error) { return sqlite.Bootstrap(ctx, cfg.SQLitePath) }
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}

	timeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = timeout

	var st *sqlstore.Store
	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		s, err := open(actx)
		if err != nil {
			return err
		}
		st = s
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("driver", cfg.DBDriver).Int("attempt", attempt).Dur("retry_in", wait).Msg("store not ready")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(exp, ctx), notify); err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	log.Info().Str("driver", cfg.DBDriver).Int("attempts", attempt).Msg("store ready")
	return st, nil
}
