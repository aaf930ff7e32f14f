package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Capture outcomes recorded by the fetch scheduler.
const (
	OutcomeCaptured = "captured"
	OutcomeFailed   = "failed"
	OutcomeCutoff   = "cutoff"
	OutcomeSkipped  = "skipped"
)

// Recorder receives tracker events. The zero value of Nop discards them.
type Recorder interface {
	Capture(source, outcome string)
	Tracking(active bool)
	LastFetch(unixSeconds float64)
	Geofence(inRange bool, distanceMeters float64)
}

// Nop is a Recorder that does nothing.
type Nop struct{}

func (Nop) Capture(string, string) {}
func (Nop) Tracking(bool)          {}
func (Nop) LastFetch(float64)      {}
func (Nop) Geofence(bool, float64) {}

// Prometheus exports tracker events on its own registry.
type Prometheus struct {
	registry  *prom.Registry
	captures  *prom.CounterVec
	tracking  prom.Gauge
	lastFetch prom.Gauge
	inRange   prom.Gauge
	distance  prom.Gauge
}

// NewPrometheus builds a registry with the tracker collectors plus the Go and
// process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry:  prom.NewRegistry(),
		captures:  prom.NewCounterVec(prom.CounterOpts{Namespace: "tracker", Name: "captures_total", Help: "Location capture attempts by source and outcome"}, []string{"source", "outcome"}),
		tracking:  prom.NewGauge(prom.GaugeOpts{Namespace: "tracker", Name: "tracking_active", Help: "1 while the employee is clocked in"}),
		lastFetch: prom.NewGauge(prom.GaugeOpts{Namespace: "tracker", Name: "last_fetch_timestamp_seconds", Help: "Unix time of the last successful capture"}),
		inRange:   prom.NewGauge(prom.GaugeOpts{Namespace: "tracker", Name: "geofence_in_range", Help: "1 if the last fix was inside the work site"}),
		distance:  prom.NewGauge(prom.GaugeOpts{Namespace: "tracker", Name: "geofence_distance_meters", Help: "Distance of the last fix from the work site center"}),
	}
	p.registry.MustRegister(p.captures, p.tracking, p.lastFetch, p.inRange, p.distance)
	p.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return p
}

func (p *Prometheus) Capture(source, outcome string) {
	p.captures.WithLabelValues(source, outcome).Inc()
}

func (p *Prometheus) Tracking(active bool) {
	p.tracking.Set(boolToFloat(active))
}

func (p *Prometheus) LastFetch(unixSeconds float64) {
	p.lastFetch.Set(unixSeconds)
}

func (p *Prometheus) Geofence(inRange bool, distanceMeters float64) {
	p.inRange.Set(boolToFloat(inRange))
	p.distance.Set(distanceMeters)
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (p *Prometheus) Registry() *prom.Registry {
	return p.registry
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
