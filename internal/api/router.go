package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"shift-tracker-backend/config"
	"shift-tracker-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. metricsHandler may be
// nil.
func NewRouter(cfg *config.ServerConfig, handler *Handler, metricsHandler http.Handler) *gin.Engine {
	r := gin.Default()

	limiters := mw.NewClientLimiters(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, 10*time.Minute)
	rateLimiter := mw.RateLimiter(limiters, mw.ClientKey(cfg.RequestIPHeader))

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/tracking/start", handler.StartTracking)
		api.POST("/tracking/stop", handler.StopTracking)
		api.GET("/tracking/status", handler.GetStatus)
		api.GET("/history", handler.GetHistory)

		api.GET("/geofence", caching, handler.CheckGeofence)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return r
}
