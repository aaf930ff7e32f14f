package location

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPermissionDenied means the device refuses to share its position.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrTimeout means no fix arrived within Options.Timeout.
	ErrTimeout = errors.New("location request timed out")
	// ErrUnavailable means the provider answered without a usable fix,
	// including fixes older than Options.MaximumAge.
	ErrUnavailable = errors.New("location unavailable")
)

// Options mirror the knobs of a one-shot device position request.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Position is a single fix reported by the device.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Locator returns the current device position. Errors wrap one of
// ErrPermissionDenied, ErrTimeout or ErrUnavailable.
type Locator interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// PermissionChecker is implemented by locators that can tell up front whether
// the device will share its position.
type PermissionChecker interface {
	CheckPermission(ctx context.Context) error
}

// checkFresh rejects fixes older than maxAge relative to now.
func checkFresh(p Position, now time.Time, maxAge time.Duration) error {
	if maxAge <= 0 || p.Timestamp.IsZero() {
		return nil
	}
	if age := now.Sub(p.Timestamp); age > maxAge {
		return errors.Join(ErrUnavailable, &StaleFixError{Age: age, MaximumAge: maxAge})
	}
	return nil
}

// StaleFixError describes a fix rejected for its age.
type StaleFixError struct {
	Age        time.Duration
	MaximumAge time.Duration
}

func (e *StaleFixError) Error() string {
	return fmt.Sprintf("fix is %s old, maximum is %s", e.Age.Round(time.Millisecond), e.MaximumAge)
}
