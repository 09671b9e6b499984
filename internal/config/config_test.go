package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
api:
  base_url: ${PORTAL_TEST_API_URL}
  cache_ttl_seconds: 30
session:
  backend: memory
booking:
  min_advance_minutes: 120
  duration_choices: [30, 60]
`

func TestParse(t *testing.T) {
	t.Setenv("PORTAL_TEST_API_URL", "https://school.example/api")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://school.example/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Booking.MinAdvance())
	assert.Equal(t, []int{30, 60}, cfg.Booking.DurationChoices)

	// defaults
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.APITimeout())
	assert.Equal(t, 8090, cfg.Monitoring.HealthCheckPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 60*24*time.Hour, cfg.Booking.MaxAdvance())
	assert.Equal(t, 24*time.Hour, cfg.Backup.Interval())
	assert.Equal(t, "backups", cfg.Backup.StoragePath())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("api: [unterminated"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  backend: memory\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchBookingRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("booking:\n  min_advance_minutes: 10\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got atomic.Int64
	err := WatchBookingRules(ctx, path, 10*time.Millisecond, func(r BookingRules) {
		got.Store(int64(r.MinAdvanceMinutes))
	})
	require.NoError(t, err)

	future := time.Now().Add(time.Second)
	require.NoError(t, os.WriteFile(path, []byte("booking:\n  min_advance_minutes: 45\n"), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool { return got.Load() == 45 }, 2*time.Second, 10*time.Millisecond)
}
