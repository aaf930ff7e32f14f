package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
site:
  name: Ananta
  latitude: 23.0318078
  longitude: 72.6732641
  radius_meters: 100
location:
  provider: static
  static_latitude: 23.0318078
  static_longitude: 72.6732641
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Tracking.Period)
	assert.Equal(t, 15000, cfg.Tracking.CaptureTimeoutMs)
	assert.Equal(t, 10000, cfg.Tracking.MaxAgeMs)
	require.NotNil(t, cfg.Tracking.HighAccuracy)
	assert.True(t, *cfg.Tracking.HighAccuracy)
	assert.Equal(t, time.UTC, cfg.Tracking.Location)
	assert.Equal(t, 15, cfg.Background.PeriodMinutes)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "tracker.db", cfg.Database.DSN)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_RejectsInvalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "missing radius",
			body: "site: {latitude: 1, longitude: 2}\nlocation: {provider: static}\n",
		},
		{
			name: "http provider without url",
			body: "site: {latitude: 1, longitude: 2, radius_meters: 50}\n",
		},
		{
			name: "unknown provider",
			body: "site: {latitude: 1, longitude: 2, radius_meters: 50}\nlocation: {provider: gps}\n",
		},
		{
			name: "bad timezone",
			body: "site: {latitude: 1, longitude: 2, radius_meters: 50}\nlocation: {provider: static}\ntracking: {timezone: Mars/Olympus}\n",
		},
		{
			name: "postgres without dsn",
			body: "site: {latitude: 1, longitude: 2, radius_meters: 50}\nlocation: {provider: static}\ndatabase: {driver: postgres}\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
