package tracker

import (
	"context"
	"log"
	"strconv"
	"time"

	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/location"
	"shift-tracker-backend/internal/metrics"
	"shift-tracker-backend/internal/model"
)

// Resume continues the fetch schedule from the persisted last fetch time. A
// fetch that is already due runs immediately.
func (s *Service) Resume(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.IsTracking {
		return
	}
	s.resumeLocked(ctx)
}

func (s *Service) resumeLocked(ctx context.Context) {
	period := s.cfg.Tracking.Period
	last, err := s.lastFetchLocked(ctx)
	if err != nil {
		log.Printf("Error reading last fetch time, fetching now: %v", err)
	}

	if last.IsZero() {
		s.cycleLocked(ctx, model.SourceForeground)
		return
	}
	elapsed := s.clock.Since(last)
	if elapsed >= period {
		log.Printf("Last fetch was %s ago, catching up", elapsed.Round(time.Second))
		s.cycleLocked(ctx, model.SourceForeground)
		return
	}

	remaining := period - elapsed
	if remaining > period {
		// last fetch lies in the future
		remaining = period
	}
	s.armLocked(remaining)
}

// Cycle runs one capture: cutoff check, position request, history append and
// geofence evaluation. It always ends with the next fetch armed while
// tracking. Errors are logged, never returned.
func (s *Service) Cycle(ctx context.Context, source model.FixSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleLocked(ctx, source)
}

func (s *Service) cycleLocked(ctx context.Context, source model.FixSource) {
	s.cancelTimerLocked()

	if !s.status.IsTracking {
		s.metrics.Capture(string(source), metrics.OutcomeSkipped)
		return
	}
	if s.enforceMidnightCutoffLocked(ctx, s.clock.Now()) {
		s.metrics.Capture(string(source), metrics.OutcomeCutoff)
		return
	}

	pos, err := s.locator.CurrentPosition(ctx, s.captureOptions())
	if err != nil {
		log.Printf("Error capturing %s location: %v", source, err)
		s.metrics.Capture(string(source), metrics.OutcomeFailed)
		s.armLocked(s.cfg.Tracking.Period)
		return
	}

	capturedAt := s.clock.Now()
	fix, err := s.history.Append(ctx, model.LocationFix{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Timestamp: capturedAt.UTC(),
		Source:    source,
	})
	if err != nil {
		log.Printf("Error persisting location %s: %v", fix.ID, err)
	} else {
		if err := s.store.Set(ctx, keyLastFetch, strconv.FormatInt(capturedAt.UnixMilli(), 10)); err != nil {
			log.Printf("Error persisting last fetch time: %v", err)
		}
		s.metrics.LastFetch(float64(capturedAt.UnixMilli()) / 1000)
	}
	s.metrics.Capture(string(source), metrics.OutcomeCaptured)

	s.evaluateLocked(fix)
	s.armLocked(s.cfg.Tracking.Period)
}

func (s *Service) evaluateLocked(fix model.LocationFix) {
	result := geofence.Evaluate(geofence.Point{Latitude: fix.Latitude, Longitude: fix.Longitude}, s.site)
	s.evaluation.Store(&Evaluation{Fix: fix, Result: result})
	s.metrics.Geofence(result.InRange, result.DistanceMeters)

	wasInside := s.lastInRange == nil || *s.lastInRange
	inRange := result.InRange
	s.lastInRange = &inRange
	if inRange {
		return
	}
	log.Printf("Location %s is %s", fix.ID, result.Describe())
	if wasInside && s.notifier != nil {
		s.notifier.GeofenceExit(fix, result)
	}
}

func (s *Service) lastFetchLocked(ctx context.Context) (time.Time, error) {
	raw, found, err := s.store.Get(ctx, keyLastFetch)
	if err != nil || !found || raw == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		log.Printf("Ignoring unreadable last fetch time %q", raw)
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

func (s *Service) captureOptions() location.Options {
	return location.Options{
		HighAccuracy: *s.cfg.Tracking.HighAccuracy,
		Timeout:      time.Duration(s.cfg.Tracking.CaptureTimeoutMs) * time.Millisecond,
		MaximumAge:   time.Duration(s.cfg.Tracking.MaxAgeMs) * time.Millisecond,
	}
}

// armLocked replaces the pending timer with one firing after d.
func (s *Service) armLocked(d time.Duration) {
	s.cancelTimerLocked()
	gen := s.generation
	s.nextFetch = s.clock.Now().Add(d)
	s.timer = s.clock.AfterFunc(d, func() { s.onTimer(gen) })
}

func (s *Service) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.nextFetch = time.Time{}
}

func (s *Service) onTimer(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.cycleLocked(s.ctx, model.SourceForeground)
}

func (s *Service) handleWake(ctx context.Context, taskID string) {
	s.mu.Lock()
	s.wakeLocked(ctx)
	s.mu.Unlock()

	if err := s.trigger.Finish(taskID); err != nil {
		log.Printf("Error finishing background task %s: %v", taskID, err)
	}
}

// wakeLocked runs a background cycle unless the foreground timer still owns
// the next fetch. Both share one cadence, so whichever fires first captures
// and the other finds nothing due.
func (s *Service) wakeLocked(ctx context.Context) {
	if s.status.IsTracking && s.timer != nil {
		due, err := s.dueLocked(ctx)
		if err != nil {
			log.Printf("Error reading last fetch time, fetching now: %v", err)
		}
		if !due {
			if s.enforceMidnightCutoffLocked(ctx, s.clock.Now()) {
				s.metrics.Capture(string(model.SourceBackground), metrics.OutcomeCutoff)
				return
			}
			log.Printf("Background wake-up skipped, next fetch at %s", s.nextFetch.Format(time.RFC3339))
			s.metrics.Capture(string(model.SourceBackground), metrics.OutcomeSkipped)
			return
		}
	}
	s.cycleLocked(ctx, model.SourceBackground)
}

// dueLocked reports whether a full period has passed since the last fetch.
func (s *Service) dueLocked(ctx context.Context) (bool, error) {
	last, err := s.lastFetchLocked(ctx)
	if err != nil || last.IsZero() {
		return true, err
	}
	return s.clock.Since(last) >= s.cfg.Tracking.Period, nil
}
