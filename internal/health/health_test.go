package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeChecker struct {
	name    string
	healthy atomic.Int32
}

func (f *fakeChecker) Name() string                               { return f.name }
func (f *fakeChecker) IsHealthy() bool                            { return f.healthy.Load() == 1 }
func (f *fakeChecker) Start(ctx context.Context, _ time.Duration) {}

type fakePinger struct{ err atomic.Value }

func (p *fakePinger) HealthPing(context.Context) error {
	if v := p.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func TestServiceHealthChecker_Transitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeChecker{name: "store"}
	store.healthy.Store(1)

	svc := NewServiceHealthChecker(zerolog.Nop(), store)
	go svc.Start(ctx, 10*time.Millisecond)

	waitTrue(t, func() bool { return svc.IsHealthy() })

	store.healthy.Store(0)
	waitTrue(t, func() bool { return !svc.IsHealthy() })

	store.healthy.Store(1)
	waitTrue(t, func() bool { return svc.IsHealthy() })
}

func TestServiceHealthChecker_OptionalDoesNotGate(t *testing.T) {
	store := &fakeChecker{name: "store"}
	store.healthy.Store(1)
	chat := &fakeChecker{name: "chat"}

	svc := NewServiceHealthChecker(zerolog.Nop(), store).WithOptional(chat)
	assert.True(t, svc.Evaluate())

	snap := svc.Snapshot()
	assert.True(t, snap.Healthy)
	assert.Equal(t, map[string]bool{"store": true, "chat": false}, snap.Components)
	assert.False(t, snap.CheckedAt.IsZero())
}

func TestPingChecker_Probe(t *testing.T) {
	p := &fakePinger{}
	c := NewPingChecker("store", p, zerolog.Nop(), 0)
	assert.False(t, c.IsHealthy(), "starts unhealthy")

	assert.True(t, c.Probe(context.Background()))
	assert.True(t, c.IsHealthy())

	p.err.Store(errors.New("connection refused"))
	assert.False(t, c.Probe(context.Background()))
	assert.False(t, c.IsHealthy())
	assert.Equal(t, "store", c.Name())
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}
