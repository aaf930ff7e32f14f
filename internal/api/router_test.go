package api

import (
	"net/http"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shift-tracker-backend/config"
	"shift-tracker-backend/internal/geofence"
)

func TestRouter_RoutesAndLimits(t *testing.T) {
	cfg := &config.ServerConfig{RateLimitPerSec: 0.01, RateLimitBurst: 3, CacheTTLSeconds: 60}
	ft := &fakeTracker{site: geofence.Site{Name: "Head office", Latitude: 23.0318078, Longitude: 72.6732641, RadiusMeters: 100}}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("tracker_tracking_active 0\n"))
	})
	r := NewRouter(cfg, NewHandler(ft, nil, &webpush.Options{VAPIDPublicKey: "public-key"}), metrics)

	w := serve(r, http.MethodGet, "/api/vapid_public_key")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/api/geofence?position=23.0318078,72.6732641")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = serve(r, http.MethodGet, "/api/geofence?position=23.0318078,72.6732641")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	// Burst of three is spent.
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/api/tracking/status").Code)

	// Metrics are not rate limited.
	w = serve(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tracker_tracking_active")
}

func TestGetVAPIDPublicKey_NotConfigured(t *testing.T) {
	r := NewRouter(&config.ServerConfig{RateLimitPerSec: 10, RateLimitBurst: 5, CacheTTLSeconds: 60}, NewHandler(&fakeTracker{}, nil, nil), nil)

	w := serve(r, http.MethodGet, "/api/vapid_public_key")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/metrics").Code)
}
