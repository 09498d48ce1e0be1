package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes route planning and station index metrics.
// A nil *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	PlanDuration        *prometheus.HistogramVec
	PlannedStops        prometheus.Histogram
	IndexStations       prometheus.Gauge
	IndexRebuilds       *prometheus.CounterVec
	IndexRebuildSeconds prometheus.Histogram
}

// NewCollector registers metrics against reg, reusing collectors that are
// already registered under the same name.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	planDuration, err := register(reg, "fuel_plan_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fuel_plan_duration_seconds",
		Help:    "Duration of fuel stop planning requests, including routing.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	plannedStops, err := register(reg, "fuel_plan_stops", prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fuel_plan_stops",
		Help:    "Number of fuel stops returned per successful plan.",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 15},
	}))
	if err != nil {
		return nil, err
	}

	indexStations, err := register(reg, "station_index_stations", prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_index_stations",
		Help: "Number of stations in the published spatial index snapshot.",
	}))
	if err != nil {
		return nil, err
	}

	rebuilds, err := register(reg, "station_index_rebuilds_total", prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "station_index_rebuilds_total",
		Help: "Station index rebuild attempts by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	rebuildSeconds, err := register(reg, "station_index_rebuild_duration_seconds", prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "station_index_rebuild_duration_seconds",
		Help:    "Duration of station index rebuilds, including the catalog load.",
		Buckets: prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		PlanDuration:        planDuration,
		PlannedStops:        plannedStops,
		IndexStations:       indexStations,
		IndexRebuilds:       rebuilds,
		IndexRebuildSeconds: rebuildSeconds,
	}, nil
}

// Handler serves the collector's gatherer in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// ObservePlan records one planning request.
func (c *Collector) ObservePlan(d time.Duration, stops int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.PlanDuration.WithLabelValues("error").Observe(d.Seconds())
		return
	}
	c.PlanDuration.WithLabelValues("ok").Observe(d.Seconds())
	c.PlannedStops.Observe(float64(stops))
}

// ObserveIndexRebuild records one index rebuild attempt.
func (c *Collector) ObserveIndexRebuild(stations int, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.IndexRebuildSeconds.Observe(d.Seconds())
	if err != nil {
		c.IndexRebuilds.WithLabelValues("error").Inc()
		return
	}
	c.IndexRebuilds.WithLabelValues("ok").Inc()
	c.IndexStations.Set(float64(stations))
}

func register[T prometheus.Collector](reg prometheus.Registerer, name string, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}
