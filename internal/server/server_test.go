/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/soundtap/soundtap/internal/content"
	"github.com/soundtap/soundtap/internal/crossfade"
	"github.com/soundtap/soundtap/internal/events"
	"github.com/soundtap/soundtap/internal/mixer"
	"github.com/soundtap/soundtap/internal/player"
	"github.com/soundtap/soundtap/internal/session"
	"github.com/soundtap/soundtap/internal/telemetry"
)

type noLoader struct{}

func (noLoader) Load(id content.ID, _ content.Quality, _ bool, _ content.HaltListener) (*content.LoadedStream, error) {
	return nil, &content.TransportError{ID: id}
}

func newTestServer() *Server {
	metrics := telemetry.NewMetrics()
	sess := session.New(
		player.Config{Quality: content.QualityNormal, Crossfade: crossfade.Config{}},
		func(content.ID) content.Loader { return noLoader{} },
		mixer.New(8000, 1, zerolog.Nop()),
		events.NewBus(),
		metrics,
		nil,
		zerolog.Nop(),
	)
	return New("127.0.0.1:0", sess, metrics, zerolog.Nop())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body %v", body)
	}
}

func TestStatusEndpointIdleSession(t *testing.T) {
	srv := newTestServer()
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var st session.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if st.Playing {
		t.Fatal("idle session must not report playing")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer()
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}
