package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad_Defaults(t *testing.T) {
	t.Setenv("BIOM_DB_DRIVER", "")
	t.Setenv("BIOM_TIME_ZONE", "")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, 100, cfg.DefaultWindowDays)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("BIOM_DB_DRIVER", "SQLite")
	t.Setenv("BIOM_TIME_ZONE", "Asia/Kolkata")
	t.Setenv("BIOM_STORE_TIMEOUT", "750ms")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
}

func TestResolveDefaults(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "testing config is valid", mutate: func(c *Config) {}},
		{name: "auto driver resolves to postgres", mutate: func(c *Config) { c.DBDriver = "auto" }},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "spanner" }, wantErr: true},
		{name: "bad zone", mutate: func(c *Config) { c.TimeZone = "Mars/Olympus" }, wantErr: true},
		{name: "zero window", mutate: func(c *Config) { c.DefaultWindowDays = 0 }, wantErr: true},
		{name: "zero store timeout", mutate: func(c *Config) { c.StoreTimeout = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewForTesting()
			tt.mutate(cfg)
			err := cfg.ResolveDefaults()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := NewForTesting()
	cfg.CORSOrigins = "http://localhost:5173, https://biom.app,,"
	assert.Equal(t, []string{"http://localhost:5173", "https://biom.app"}, cfg.AllowedOrigins())
}
