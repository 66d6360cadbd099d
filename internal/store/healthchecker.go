package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mybiom/biom/internal/health"
)

// storePinger adapts a Store without a HealthPing method to a cheap read.
type storePinger struct{ s Store }

func (p storePinger) HealthPing(ctx context.Context) error {
	_, err := p.s.Users().List(ctx)
	return err
}

// NewStoreHealthChecker monitors store health, preferring the store's own HealthPing.
func NewStoreHealthChecker(s Store, log zerolog.Logger, probeTimeout time.Duration) *health.PingChecker {
	pinger, ok := s.(health.HealthPinger)
	if !ok {
		pinger = storePinger{s}
	}
	return health.NewPingChecker("store", pinger, log, probeTimeout)
}
