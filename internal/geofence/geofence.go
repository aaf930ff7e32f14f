package geofence

import (
	"fmt"
	"math"
)

// earthRadiusMeters matches the equatorial radius used by common mobile
// geodesy helpers, so distances agree with what the device shows.
const earthRadiusMeters = 6378137.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Site is a circular permitted work location.
type Site struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radiusMeters"`
}

// Center returns the site's center point.
func (s Site) Center() Point {
	return Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Result is the outcome of evaluating a position against a site.
type Result struct {
	InRange        bool    `json:"inRange"`
	DistanceMeters float64 `json:"distanceMeters"`
}

// Describe renders the result the way it is shown to the employee.
func (r Result) Describe() string {
	if r.InRange {
		return "within the work location"
	}
	return fmt.Sprintf("%.0f meters away from the work location", r.DistanceMeters)
}

// Evaluate reports whether p lies inside site. A distance exactly equal to the
// radius counts as in range.
func Evaluate(p Point, site Site) Result {
	d := Distance(p, site.Center())
	return Result{
		InRange:        d <= site.RadiusMeters,
		DistanceMeters: d,
	}
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
