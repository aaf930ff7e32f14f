package tracker

import (
	"context"
	"sync"
	"time"

	"shift-tracker-backend/internal/background"
	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/location"
	"shift-tracker-backend/internal/model"
)

type fakeLocator struct {
	mu                  sync.Mutex
	calls               int
	CurrentPositionFunc func(ctx context.Context, opts location.Options) (location.Position, error)
	CheckPermissionFunc func(ctx context.Context) error
}

func (f *fakeLocator) CurrentPosition(ctx context.Context, opts location.Options) (location.Position, error) {
	f.mu.Lock()
	f.calls++
	fn := f.CurrentPositionFunc
	f.mu.Unlock()
	if fn == nil {
		return location.Position{Latitude: siteLat, Longitude: siteLon}, nil
	}
	return fn(ctx, opts)
}

func (f *fakeLocator) CheckPermission(ctx context.Context) error {
	if f.CheckPermissionFunc == nil {
		return nil
	}
	return f.CheckPermissionFunc(ctx)
}

func (f *fakeLocator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLocator) SetPositionFunc(fn func(ctx context.Context, opts location.Options) (location.Position, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentPositionFunc = fn
}

type fakeTrigger struct {
	mu       sync.Mutex
	handler  background.Handler
	persist  bool
	running  bool
	starts   int
	stops    int
	finished []string
	err      error
}

func (f *fakeTrigger) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeTrigger) Configure(_ time.Duration, persistAcrossRestart bool, handler background.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.persist = persistAcrossRestart
	return nil
}

func (f *fakeTrigger) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.starts++
	f.running = true
	return nil
}

func (f *fakeTrigger) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
	return nil
}

func (f *fakeTrigger) Finish(taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, taskID)
	return nil
}

func (f *fakeTrigger) PersistsAcrossRestart() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persist
}

func (f *fakeTrigger) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type exitRecorder struct {
	mu    sync.Mutex
	exits []geofence.Result
}

func (r *exitRecorder) GeofenceExit(_ model.LocationFix, result geofence.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exits = append(r.exits, result)
}

func (r *exitRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exits)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	captures map[string][]string
}

func (r *outcomeRecorder) Capture(source, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.captures == nil {
		r.captures = make(map[string][]string)
	}
	r.captures[source] = append(r.captures[source], outcome)
}

func (r *outcomeRecorder) Tracking(bool)          {}
func (r *outcomeRecorder) LastFetch(float64)      {}
func (r *outcomeRecorder) Geofence(bool, float64) {}

func (r *outcomeRecorder) Count(source model.FixSource) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.captures[string(source)])
}
