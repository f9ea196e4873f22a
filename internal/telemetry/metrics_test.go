/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.LoadsTotal.WithLabelValues("ok").Inc()
	m.TracksEnded.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{
		`soundtap_loads_total{outcome="ok"} 1`,
		"soundtap_tracks_ended_total 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestHTTPMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()

	handler := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status %d", rec.Code)
	}

	expo := httptest.NewRecorder()
	m.Handler().ServeHTTP(expo, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(expo.Body)
	if !strings.Contains(string(body), `soundtap_http_requests_total{endpoint="/api/status",method="GET",status="418"} 1`) {
		t.Fatal("request counter not recorded")
	}
}
