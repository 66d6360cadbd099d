package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by component checkers (store, chat upstream).
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// HealthPinger can be implemented by components to expose a specialized
// health check. HealthPing must return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// Snapshot is the last evaluated health of the service and each component.
type Snapshot struct {
	Healthy    bool            `json:"healthy"`
	Components map[string]bool `json:"components"`
	CheckedAt  time.Time       `json:"checkedAt"`
}

// ServiceHealthChecker folds component checkers into one service flag.
// Optional components are reported but never take the service down.
type ServiceHealthChecker struct {
	healthy  atomic.Int32
	required []HealthChecker
	optional []HealthChecker
	log      zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func NewServiceHealthChecker(log zerolog.Logger, required ...HealthChecker) *ServiceHealthChecker {
	h := &ServiceHealthChecker{required: required, log: log}
	h.snap = Snapshot{Components: map[string]bool{}}
	return h
}

// WithOptional registers checkers whose state is reported but not required.
func (h *ServiceHealthChecker) WithOptional(checkers ...HealthChecker) *ServiceHealthChecker {
	h.optional = append(h.optional, checkers...)
	return h
}

// IsHealthy returns cached service health.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() == 1 }

// Snapshot returns a copy of the last evaluation.
func (h *ServiceHealthChecker) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := Snapshot{Healthy: h.snap.Healthy, CheckedAt: h.snap.CheckedAt, Components: make(map[string]bool, len(h.snap.Components))}
	for k, v := range h.snap.Components {
		out.Components[k] = v
	}
	return out
}

// Evaluate recomputes the service flag once and logs UP/DOWN transitions.
func (h *ServiceHealthChecker) Evaluate() bool {
	comps := make(map[string]bool, len(h.required)+len(h.optional))
	all := true
	for _, c := range h.required {
		ok := c.IsHealthy()
		comps[c.Name()] = ok
		if !ok {
			all = false
		}
	}
	for _, c := range h.optional {
		comps[c.Name()] = c.IsHealthy()
	}

	var cur int32
	if all {
		cur = 1
	}
	if prev := h.healthy.Swap(cur); prev != cur {
		if cur == 1 {
			h.log.Info().Interface("components", comps).Msg("service health: UP")
		} else {
			h.log.Error().Stack().Interface("components", comps).Msg("service health: DOWN")
		}
	}

	h.mu.Lock()
	h.snap = Snapshot{Healthy: all, Components: comps, CheckedAt: time.Now().UTC()}
	h.mu.Unlock()
	return all
}

// Start periodically evaluates dependency health until ctx is done.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Evaluate()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Evaluate()
		}
	}
}

// PingChecker probes a HealthPinger on an interval and caches the result.
type PingChecker struct {
	name         string
	pinger       HealthPinger
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewPingChecker creates a checker that starts unhealthy until its first successful probe.
func NewPingChecker(name string, pinger HealthPinger, log zerolog.Logger, probeTimeout time.Duration) *PingChecker {
	return &PingChecker{name: name, pinger: pinger, log: log, probeTimeout: probeTimeout}
}

func (c *PingChecker) Name() string { return c.name }

// IsHealthy returns the cached health status (non-blocking).
func (c *PingChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Probe runs one ping and updates the cached status.
func (c *PingChecker) Probe(ctx context.Context) bool {
	to := c.probeTimeout
	if to <= 0 {
		to = 2 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	if err := c.pinger.HealthPing(pctx); err != nil {
		c.log.Error().Stack().Str("checker", c.name).Err(err).Msg("health check failed")
		c.healthy.Store(0)
		return false
	}
	c.healthy.Store(1)
	return true
}

// Start begins periodic probing.
func (c *PingChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Probe(ctx)
		}
	}
}
