package api

import (
	"context"
	"time"

	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/model"
	"shift-tracker-backend/internal/tracker"
)

// fakeTracker is a mock implementation of the Tracker interface.
type fakeTracker struct {
	StartFunc          func(ctx context.Context) (time.Time, error)
	StopFunc           func(ctx context.Context, clearHistory bool) error
	StatusFunc         func() model.TrackingStatus
	HistoryFunc        func() []model.LocationFix
	LastEvaluationFunc func() (tracker.Evaluation, bool)
	NextFetchAtFunc    func() (time.Time, bool)
	BackgroundErrFunc  func() error
	site               geofence.Site
}

func (f *fakeTracker) Start(ctx context.Context) (time.Time, error) {
	return f.StartFunc(ctx)
}

func (f *fakeTracker) Stop(ctx context.Context, clearHistory bool) error {
	return f.StopFunc(ctx, clearHistory)
}

func (f *fakeTracker) Status() model.TrackingStatus {
	if f.StatusFunc == nil {
		return model.TrackingStatus{}
	}
	return f.StatusFunc()
}

func (f *fakeTracker) History() []model.LocationFix {
	if f.HistoryFunc == nil {
		return []model.LocationFix{}
	}
	return f.HistoryFunc()
}

func (f *fakeTracker) Site() geofence.Site {
	return f.site
}

func (f *fakeTracker) LastEvaluation() (tracker.Evaluation, bool) {
	if f.LastEvaluationFunc == nil {
		return tracker.Evaluation{}, false
	}
	return f.LastEvaluationFunc()
}

func (f *fakeTracker) NextFetchAt() (time.Time, bool) {
	if f.NextFetchAtFunc == nil {
		return time.Time{}, false
	}
	return f.NextFetchAtFunc()
}

func (f *fakeTracker) BackgroundError() error {
	if f.BackgroundErrFunc == nil {
		return nil
	}
	return f.BackgroundErrFunc()
}
