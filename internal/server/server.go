/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the playback status HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/soundtap/soundtap/internal/session"
	"github.com/soundtap/soundtap/internal/telemetry"
)

// Server serves /healthz, /metrics and the playback status API.
type Server struct {
	logger     zerolog.Logger
	httpServer *http.Server
}

// New builds the status server for the given bind address.
func New(addr string, sess *session.Session, metrics *telemetry.Metrics, logger zerolog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(15 * time.Second))
	router.Use(metrics.HTTPMiddleware)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Handle("/metrics", metrics.Handler())

	router.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sess.Status()); err != nil {
			logger.Warn().Err(err).Msg("encode status")
		}
	})

	return &Server{
		logger: logger.With().Str("component", "server").Logger(),
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start serves until Shutdown. Intended to run on its own goroutine.
func (s *Server) Start() {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("status server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error().Err(err).Msg("status server failed")
	}
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
