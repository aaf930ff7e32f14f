package tracker

import (
	"context"
	"log"
	"time"

	"shift-tracker-backend/internal/model"
)

// inCutoffWindow reports whether t falls in the last minute of its day,
// [23:59:00, 24:00:00).
func inCutoffWindow(t time.Time) bool {
	return t.Hour() == 23 && t.Minute() == 59
}

// enforceMidnightCutoffLocked clocks out and purges the history when now is in
// the cutoff window, or when the shift belongs to an earlier day because no
// capture ran during the window. It reports whether the shift was ended.
func (s *Service) enforceMidnightCutoffLocked(ctx context.Context, now time.Time) bool {
	local := now.In(s.cfg.Tracking.Location)
	switch {
	case inCutoffWindow(local):
		log.Printf("Midnight cutoff reached at %s, clocking out", local.Format("15:04:05"))
	case s.status.TrackingDate != "" && s.status.TrackingDate < local.Format(model.DateLayout):
		log.Printf("Shift from %s ran past midnight, clocking out", s.status.TrackingDate)
	default:
		return false
	}
	_ = s.stopLocked(ctx, true)
	return true
}
