package biomservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybiom/biom/internal/config"
	"github.com/mybiom/biom/internal/factory"
)

func TestCalculateStartupHealthTimeout(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		expected int
	}{
		{"default interval uses floor", 30, 60},
		{"small interval uses floor", 1, 60},
		{"large interval doubles", 45, 90},
		{"very large interval", 300, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateStartupHealthTimeout(tt.interval))
		})
	}
}

type flipFlag struct{ calls atomic.Int32 }

func (f *flipFlag) IsHealthy() bool { return f.calls.Add(1) > 2 }

func TestWaitUntilHealthy_ReturnsOnceHealthy(t *testing.T) {
	cfg := config.NewForTesting()
	flag := &flipFlag{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, waitUntilHealthy(ctx, cfg, flag))
	assert.GreaterOrEqual(t, flag.calls.Load(), int32(3))
}

type downFlag struct{}

func (downFlag) IsHealthy() bool { return false }

func TestWaitUntilHealthy_StopsOnCancel(t *testing.T) {
	cfg := config.NewForTesting()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := waitUntilHealthy(ctx, cfg, downFlag{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBootstrapServesHealthyRouter(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "biom.db")
	cfg.OllamaURL = ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, relay, err := initDependencies(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	assert.Nil(t, relay)

	svcHealth := startHealthCheckers(ctx, cfg, zerolog.Nop(), st, relay)
	require.NoError(t, waitUntilHealthy(ctx, cfg, svcHealth))

	srv := httptest.NewServer(buildRouter(st, relay, svcHealth, cfg, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])

	resp2, err := http.Post(srv.URL+"/api/users", "application/json", strings.NewReader(`{"userId":"u1","name":"Ada"}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusCreated, resp2.StatusCode)

	// chat streaming is not routed without a relay
	resp3, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp3.StatusCode)
}

func TestInitDependencies_FailsForBadDriver(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "oracle"
	_, err := factory.NewStore(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)

	_, _, err = initDependencies(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewHTTPServer_UsesConfiguredPort(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.HTTPPort = 8123
	srv := newHTTPServer(context.Background(), cfg, http.NotFoundHandler())
	assert.Equal(t, ":8123", srv.Addr)
	assert.Zero(t, srv.WriteTimeout)
}
