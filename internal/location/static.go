package location

import (
	"context"

	"github.com/jonboulle/clockwork"
)

// StaticLocator always reports the same position. It backs the "static"
// provider used for kiosks and local development.
type StaticLocator struct {
	Latitude  float64
	Longitude float64
	Clock     clockwork.Clock
}

// CurrentPosition returns the configured coordinates stamped with the current time.
func (s *StaticLocator) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, ErrTimeout
	}
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return Position{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Timestamp: clock.Now(),
	}, nil
}
