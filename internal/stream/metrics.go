package stream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	samplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hrtriage",
		Subsystem: "watch",
		Name:      "samples_total",
		Help:      "Number of sample messages received from the broker.",
	})

	invalidSamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hrtriage",
		Subsystem: "watch",
		Name:      "invalid_samples_total",
		Help:      "Number of sample messages dropped as undecodable.",
	})

	incidentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hrtriage",
		Subsystem: "watch",
		Name:      "incidents_total",
		Help:      "Number of incidents closed since startup.",
	})

	openIncidentGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hrtriage",
		Subsystem: "watch",
		Name:      "open_incident",
		Help:      "Whether an incident is currently open (0 or 1).",
	})

	lastSampleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hrtriage",
		Subsystem: "watch",
		Name:      "last_sample_timestamp_seconds",
		Help:      "Unix timestamp of the most recent accepted sample.",
	})
)

func init() {
	prometheus.MustRegister(samplesTotal, invalidSamplesTotal, incidentsTotal, openIncidentGauge, lastSampleGauge)
}

func recordMessage() {
	samplesTotal.Inc()
}

func recordInvalid() {
	samplesTotal.Inc()
	invalidSamplesTotal.Inc()
}

// recordLastSample publishes the newest accepted sample timestamp. Timestamps
// are fine to expose; readings are not.
func recordLastSample(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSampleGauge.Set(float64(ts.Unix()))
}

func recordEvent(e Event) {
	switch e.Type {
	case EventIncidentOpen:
		openIncidentGauge.Set(1)
	case EventIncidentClose:
		incidentsTotal.Inc()
		openIncidentGauge.Set(0)
	}
}
