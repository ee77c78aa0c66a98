// Package metrics exposes Prometheus instrumentation for the session core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	BridgeCommandsSent    *prometheus.CounterVec // command label
	BridgeCommandsDropped *prometheus.CounterVec
	TapsDecoded           prometheus.Counter
	TapsIgnored           prometheus.Counter

	TripsSaved      prometheus.Counter
	TripsDeleted    prometheus.Counter
	CommandFailures *prometheus.CounterVec // reason label

	LocationAcquired prometheus.Counter
	LocationFailures *prometheus.CounterVec // reason label

	EventsPublished   prometheus.Counter
	EventsPublishErrs prometheus.Counter
	EventsConnected   prometheus.Gauge

	MapClients prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		BridgeCommandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waytrack_bridge_commands_sent_total",
			Help: "Display commands evaluated in the map surface.",
		}, []string{"command"}),
		BridgeCommandsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waytrack_bridge_commands_dropped_total",
			Help: "Display commands dropped before surface readiness or on eval failure.",
		}, []string{"command"}),
		TapsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waytrack_bridge_taps_decoded_total",
			Help: "Map taps decoded into destination points.",
		}),
		TapsIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waytrack_bridge_taps_ignored_total",
			Help: "Intercepted mapclick navigations with malformed payloads.",
		}),
		TripsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waytrack_trips_saved_total",
			Help: "Trip snapshots persisted.",
		}),
		TripsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waytrack_trips_deleted_total",
			Help: "Trip snapshots deleted.",
		}),
		CommandFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waytrack_command_failures_total",
			Help: "User-triggered commands that resolved to an error status.",
		}, []string{"reason"}),
		LocationAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waytrack_location_acquired_total",
			Help: "Successful location acquisitions.",
		}),
		LocationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waytrack_location_failures_total",
			Help: "Location acquisitions that failed.",
		}, []string{"reason"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waytrack_events_published_total",
			Help: "Events published to NATS.",
		}),
		EventsPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waytrack_events_publish_errors_total",
			Help: "NATS publish errors.",
		}),
		EventsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waytrack_events_connected",
			Help: "1 if the NATS connection is established.",
		}),
		MapClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waytrack_map_clients",
			Help: "Connected map surface clients.",
		}),
	}

	reg.MustRegister(
		c.BridgeCommandsSent, c.BridgeCommandsDropped, c.TapsDecoded, c.TapsIgnored,
		c.TripsSaved, c.TripsDeleted, c.CommandFailures,
		c.LocationAcquired, c.LocationFailures,
		c.EventsPublished, c.EventsPublishErrs, c.EventsConnected,
		c.MapClients,
	)

	return c
}

// Handler serves the registry for GET /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Bridge metrics interface.

func (c *Collector) BridgeCommandSent(name string)    { c.BridgeCommandsSent.WithLabelValues(name).Inc() }
func (c *Collector) BridgeCommandDropped(name string) { c.BridgeCommandsDropped.WithLabelValues(name).Inc() }
func (c *Collector) BridgeTapDecoded()                { c.TapsDecoded.Inc() }
func (c *Collector) BridgeTapIgnored()                { c.TapsIgnored.Inc() }

// Events metrics interface.

func (c *Collector) EventPublished()  { c.EventsPublished.Inc() }
func (c *Collector) EventPublishErr() { c.EventsPublishErrs.Inc() }
func (c *Collector) SetEventsConnected(connected bool) {
	if connected {
		c.EventsConnected.Set(1)
		return
	}
	c.EventsConnected.Set(0)
}

// Session metrics interface.

func (c *Collector) TripSaved()                  { c.TripsSaved.Inc() }
func (c *Collector) TripDeleted()                { c.TripsDeleted.Inc() }
func (c *Collector) CommandFailed(reason string) { c.CommandFailures.WithLabelValues(reason).Inc() }
func (c *Collector) LocationOK()                 { c.LocationAcquired.Inc() }
func (c *Collector) LocationFailed(reason string) {
	c.LocationFailures.WithLabelValues(reason).Inc()
}

// Hub metrics interface.

func (c *Collector) SetMapClients(n int) { c.MapClients.Set(float64(n)) }
