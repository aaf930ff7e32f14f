package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"shift-tracker-backend/config"
	"shift-tracker-backend/internal/background"
	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/history"
	"shift-tracker-backend/internal/location"
	"shift-tracker-backend/internal/metrics"
	"shift-tracker-backend/internal/model"
	"shift-tracker-backend/internal/store"
)

// ErrAlreadyTracking is returned by Start while a shift is in progress.
var ErrAlreadyTracking = errors.New("already tracking")

// Notifier is told when a fix lands outside the work site after the previous
// one was inside (or there was none yet).
type Notifier interface {
	GeofenceExit(fix model.LocationFix, result geofence.Result)
}

// Deps are the collaborators of a Service. Trigger, Notifier, Metrics and
// Clock are optional.
type Deps struct {
	Store    store.Store
	History  *history.Log
	Locator  location.Locator
	Trigger  background.Trigger
	Notifier Notifier
	Metrics  metrics.Recorder
	Clock    clockwork.Clock
}

// Service owns the clock-in state and the fetch schedule of the single
// tracked shift. All transitions and capture cycles are serialised on mu.
type Service struct {
	cfg      *config.Config
	site     geofence.Site
	store    store.Store
	history  *history.Log
	locator  location.Locator
	trigger  background.Trigger
	notifier Notifier
	metrics  metrics.Recorder
	clock    clockwork.Clock

	// ctx bounds cycles started by timers and background wake-ups.
	ctx context.Context

	mu          sync.Mutex
	status      model.TrackingStatus
	timer       clockwork.Timer
	generation  uint64
	nextFetch   time.Time
	lastInRange *bool

	snapshot   atomic.Pointer[model.TrackingStatus]
	evaluation atomic.Pointer[Evaluation]
}

// Evaluation is the geofence verdict for the most recent fix.
type Evaluation struct {
	Fix    model.LocationFix `json:"fix"`
	Result geofence.Result   `json:"result"`
}

// NewService wires a Service and registers the background handler. A
// trigger that rejects the configuration is a fatal startup error.
func NewService(ctx context.Context, cfg *config.Config, deps Deps) (*Service, error) {
	if deps.Store == nil || deps.History == nil || deps.Locator == nil {
		return nil, errors.New("tracker: store, history and locator are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	s := &Service{
		cfg: cfg,
		site: geofence.Site{
			Name:         cfg.Site.Name,
			Latitude:     cfg.Site.Latitude,
			Longitude:    cfg.Site.Longitude,
			RadiusMeters: cfg.Site.RadiusMeters,
		},
		store:    deps.Store,
		history:  deps.History,
		locator:  deps.Locator,
		trigger:  deps.Trigger,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		ctx:      ctx,
	}
	s.setStatusLocked(model.TrackingStatus{})

	if s.trigger != nil {
		period := time.Duration(cfg.Background.PeriodMinutes) * time.Minute
		if err := s.trigger.Configure(period, cfg.Background.PersistAcrossRestart, s.handleWake); err != nil {
			return nil, fmt.Errorf("failed to configure background trigger: %w", err)
		}
	}
	return s, nil
}

// Status returns the current tracking status without waiting for an
// in-flight capture.
func (s *Service) Status() model.TrackingStatus {
	return *s.snapshot.Load()
}

// History returns all captured fixes in order.
func (s *Service) History() []model.LocationFix {
	return s.history.List()
}

// Site returns the configured work site.
func (s *Service) Site() geofence.Site {
	return s.site
}

// LastEvaluation returns the geofence verdict of the most recent capture.
func (s *Service) LastEvaluation() (Evaluation, bool) {
	e := s.evaluation.Load()
	if e == nil {
		return Evaluation{}, false
	}
	return *e, true
}

// BackgroundError returns the fatal error that disabled background
// wake-ups, when the trigger reports one. Tracking continues on the
// foreground timer alone.
func (s *Service) BackgroundError() error {
	if r, ok := s.trigger.(interface{ Err() error }); ok {
		return r.Err()
	}
	return nil
}

// NextFetchAt returns when the pending timer fires, if one is armed.
func (s *Service) NextFetchAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.nextFetch, true
}

// Shutdown cancels the pending timer on process exit. Persisted state is left
// untouched so RestoreOnLaunch can pick the shift up again.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimerLocked()
	log.Println("Tracker shut down.")
}

func (s *Service) setStatusLocked(st model.TrackingStatus) {
	s.status = st
	snapshot := st
	s.snapshot.Store(&snapshot)
}
