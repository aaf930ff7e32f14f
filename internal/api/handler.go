package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/model"
	"shift-tracker-backend/internal/store"
	"shift-tracker-backend/internal/tracker"
)

// Tracker is the part of tracker.Service the HTTP layer drives.
type Tracker interface {
	Start(ctx context.Context) (time.Time, error)
	Stop(ctx context.Context, clearHistory bool) error
	Status() model.TrackingStatus
	History() []model.LocationFix
	Site() geofence.Site
	LastEvaluation() (tracker.Evaluation, bool)
	NextFetchAt() (time.Time, bool)
	BackgroundError() error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	tracker Tracker
	store   store.DBStore
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(t Tracker, s store.DBStore, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		tracker: t,
		store:   s,
		webpush: webpushOptions,
	}
}
