/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the playback collectors. One instance per process.
type Metrics struct {
	registry *prometheus.Registry

	LoadsTotal     *prometheus.CounterVec
	LoadSeconds    prometheus.Histogram
	PlaybackErrors prometheus.Counter
	HaltsTotal     prometheus.Counter
	HaltSeconds    prometheus.Histogram
	InstantsFired  *prometheus.CounterVec
	TracksEnded    prometheus.Counter
	BytesWritten   prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  prometheus.Gauge
}

// NewMetrics registers the playback collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundtap_loads_total",
			Help: "Content load attempts by outcome.",
		}, []string{"outcome"}),
		LoadSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soundtap_load_duration_seconds",
			Help:    "Time from load start to decoder ready.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		PlaybackErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "soundtap_playback_errors_total",
			Help: "Unrecoverable decode or I/O faults during playback.",
		}),
		HaltsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "soundtap_playback_halts_total",
			Help: "Stream read stalls reported by the content layer.",
		}),
		HaltSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soundtap_playback_halt_duration_seconds",
			Help:    "How long stream read stalls lasted.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		InstantsFired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundtap_instants_fired_total",
			Help: "Time-keyed playback callbacks fired, by callback id.",
		}, []string{"instant"}),
		TracksEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "soundtap_tracks_ended_total",
			Help: "Playback entries that terminated.",
		}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "soundtap_pcm_bytes_written_total",
			Help: "Decoded PCM bytes delivered to output sinks.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundtap_http_requests_total",
			Help: "Status server requests by method, endpoint and status.",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "soundtap_http_request_duration_seconds",
			Help:    "Status server request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
		HTTPActiveRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soundtap_http_active_requests",
			Help: "Status server requests currently in flight.",
		}),
	}
}

// Handler exposes the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
