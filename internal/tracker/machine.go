package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"shift-tracker-backend/internal/location"
	"shift-tracker-backend/internal/model"
)

const (
	keyActive    = "tracking.active"
	keyDate      = "tracking.date"
	keyClockIn   = "tracking.clock_in"
	keyLastFetch = "tracking.last_fetch"
)

// Start clocks in. The clock-in time is returned on success.
func (s *Service) Start(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsTracking {
		return time.Time{}, ErrAlreadyTracking
	}

	if checker, ok := s.locator.(location.PermissionChecker); ok {
		if err := checker.CheckPermission(ctx); err != nil {
			if errors.Is(err, location.ErrPermissionDenied) {
				log.Printf("Clock-in refused: %v", err)
				return time.Time{}, err
			}
			log.Printf("Warning: permission check failed, continuing: %v", err)
		}
	}

	now := s.clock.Now().In(s.cfg.Tracking.Location)
	clockIn := now
	s.setStatusLocked(model.TrackingStatus{
		IsTracking:   true,
		TrackingDate: now.Format(model.DateLayout),
		ClockInTime:  &clockIn,
	})
	s.lastInRange = nil
	if err := s.persistStatusLocked(ctx); err != nil {
		log.Printf("Error persisting clock-in: %v", err)
	}
	s.metrics.Tracking(true)
	log.Printf("Clocked in at %s", clockIn.Format(time.RFC3339))

	s.armBackgroundLocked()
	s.resumeLocked(ctx)
	return clockIn, nil
}

// Stop clocks out and optionally purges the location history. Stopping while
// not tracking does nothing. The state change always happens; the returned
// error only reports what could not be persisted.
func (s *Service) Stop(ctx context.Context, clearHistory bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx, clearHistory)
}

func (s *Service) stopLocked(ctx context.Context, clearHistory bool) error {
	if !s.status.IsTracking {
		return nil
	}

	s.setStatusLocked(model.TrackingStatus{ClockInTime: s.status.ClockInTime})
	s.lastInRange = nil
	var errs []error
	if err := s.store.Set(ctx, keyActive, "false"); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Remove(ctx, keyDate); err != nil {
		errs = append(errs, err)
	}

	s.disarmBackgroundLocked()
	s.cancelTimerLocked()

	if err := s.store.Remove(ctx, keyLastFetch); err != nil {
		errs = append(errs, err)
	}
	if clearHistory {
		if err := s.history.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear history: %w", err))
		}
		s.evaluation.Store(nil)
	}
	s.metrics.Tracking(false)
	log.Printf("Clocked out (history cleared: %t)", clearHistory)

	err := errors.Join(errs...)
	if err != nil {
		log.Printf("Error persisting clock-out: %v", err)
	}
	return err
}

// RestoreOnLaunch rebuilds the state after a process restart. A shift
// persisted for a day other than today is discarded.
func (s *Service) RestoreOnLaunch(ctx context.Context, today time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted, err := s.loadStatusLocked(ctx)
	if err != nil {
		log.Printf("Error reading persisted tracking state, starting idle: %v", err)
		s.setStatusLocked(model.TrackingStatus{})
		s.metrics.Tracking(false)
		return
	}

	todayDate := today.In(s.cfg.Tracking.Location).Format(model.DateLayout)
	if !persisted.IsTracking || persisted.TrackingDate != todayDate {
		s.setStatusLocked(model.TrackingStatus{ClockInTime: persisted.ClockInTime})
		s.metrics.Tracking(false)
		if persisted.IsTracking || persisted.TrackingDate != "" {
			log.Printf("Discarding tracking state from %q (today is %s)", persisted.TrackingDate, todayDate)
			s.persistCorrectionLocked(ctx)
		}
		return
	}

	if persisted.ClockInTime == nil {
		if first, ok := s.history.First(); ok {
			clockIn := first.Timestamp.In(s.cfg.Tracking.Location)
			persisted.ClockInTime = &clockIn
		}
	}
	s.setStatusLocked(persisted)
	s.metrics.Tracking(true)
	log.Printf("Restored tracking for %s", todayDate)

	if s.trigger != nil && s.trigger.PersistsAcrossRestart() {
		s.armBackgroundLocked()
	}
	s.resumeLocked(ctx)
}

func (s *Service) persistStatusLocked(ctx context.Context) error {
	st := s.status
	if err := s.store.Set(ctx, keyActive, strconv.FormatBool(st.IsTracking)); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyDate, st.TrackingDate); err != nil {
		return err
	}
	if st.ClockInTime != nil {
		return s.store.Set(ctx, keyClockIn, st.ClockInTime.Format(time.RFC3339))
	}
	return nil
}

func (s *Service) persistCorrectionLocked(ctx context.Context) {
	if err := s.store.Set(ctx, keyActive, "false"); err != nil {
		log.Printf("Error persisting tracking correction: %v", err)
	}
	for _, key := range []string{keyDate, keyLastFetch} {
		if err := s.store.Remove(ctx, key); err != nil {
			log.Printf("Error persisting tracking correction: %v", err)
		}
	}
}

func (s *Service) loadStatusLocked(ctx context.Context) (model.TrackingStatus, error) {
	var st model.TrackingStatus

	active, _, err := s.store.Get(ctx, keyActive)
	if err != nil {
		return st, err
	}
	st.IsTracking = active == "true"

	date, _, err := s.store.Get(ctx, keyDate)
	if err != nil {
		return st, err
	}
	st.TrackingDate = date

	raw, found, err := s.store.Get(ctx, keyClockIn)
	if err != nil {
		return st, err
	}
	if found && raw != "" {
		clockIn, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Printf("Ignoring unreadable clock-in time %q: %v", raw, err)
		} else {
			clockIn = clockIn.In(s.cfg.Tracking.Location)
			st.ClockInTime = &clockIn
		}
	}
	return st, nil
}

func (s *Service) armBackgroundLocked() {
	if s.trigger == nil || !s.cfg.Background.Enabled {
		return
	}
	if err := s.trigger.Start(); err != nil {
		log.Printf("Error arming background fetch: %v", err)
	}
}

func (s *Service) disarmBackgroundLocked() {
	if s.trigger == nil {
		return
	}
	if err := s.trigger.Stop(); err != nil {
		log.Printf("Error disarming background fetch: %v", err)
	}
}
