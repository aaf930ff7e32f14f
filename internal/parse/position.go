package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"shift-tracker-backend/internal/geofence"
)

var (
	// 23.0318078,72.6732641 | 23.03 72.67 | 23.03N, 72.67E
	positionRe = regexp.MustCompile(`(?i)^([+-]?\d+(?:\.\d+)?)\s*([NS])?\s*[,;\s]\s*([+-]?\d+(?:\.\d+)?)\s*([EW])?$`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// ParsePosition extracts a coordinate pair from user input. Latitude comes
// first; an optional hemisphere letter after either number flips its sign
// for S and W.
func ParsePosition(raw string) (geofence.Point, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "()[]")
	s = spaceRe.ReplaceAllString(s, " ")

	m := positionRe.FindStringSubmatch(s)
	if m == nil {
		return geofence.Point{}, fmt.Errorf("unable to parse position: %q", raw)
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return geofence.Point{}, fmt.Errorf("invalid latitude in %q: %w", raw, err)
	}
	lon, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return geofence.Point{}, fmt.Errorf("invalid longitude in %q: %w", raw, err)
	}

	if strings.EqualFold(m[2], "S") {
		lat = -lat
	}
	if strings.EqualFold(m[4], "W") {
		lon = -lon
	}

	if lat < -90 || lat > 90 {
		return geofence.Point{}, fmt.Errorf("latitude %v out of range in %q", lat, raw)
	}
	if lon < -180 || lon > 180 {
		return geofence.Point{}, fmt.Errorf("longitude %v out of range in %q", lon, raw)
	}
	return geofence.Point{Latitude: lat, Longitude: lon}, nil
}
