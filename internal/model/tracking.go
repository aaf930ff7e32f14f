package model

import "time"

// DateLayout is the calendar-date format used for TrackingStatus.TrackingDate.
const DateLayout = "2006-01-02"

// TrackingStatus is the clock-in/clock-out state of the current shift.
// TrackingDate is set iff IsTracking is true.
type TrackingStatus struct {
	IsTracking   bool       `json:"isTracking"`
	TrackingDate string     `json:"trackingDate,omitempty"`
	ClockInTime  *time.Time `json:"clockInTime,omitempty"`
}

// FixSource records what triggered a capture.
type FixSource string

const (
	SourceForeground FixSource = "foreground"
	SourceBackground FixSource = "background"
)

// LocationFix is a single captured position. Fixes are immutable once appended
// to the history log.
type LocationFix struct {
	ID        string    `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Source    FixSource `json:"source"`
}
