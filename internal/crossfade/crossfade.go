/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package crossfade computes per-instant gain for track transitions.
package crossfade

import (
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Metadata keys a track may carry to override the station defaults.
const (
	KeyFadeInDuration  = "audio.fade_in_duration"
	KeyFadeInCurve     = "audio.fade_in_curve"
	KeyFadeOutDuration = "audio.fade_out_duration"
	KeyFadeOutCurve    = "audio.fade_out_curve"
)

// Curve names a fade shape.
type Curve string

const (
	CurveLinear      Curve = "linear"
	CurveLogarithmic Curve = "log"
)

// Config holds the client-wide crossfade defaults. Per-track metadata wins
// over these.
type Config struct {
	Enabled  bool
	Duration time.Duration
}

type fade struct {
	startMs    int64
	durationMs int64
	curve      Curve
}

// progress maps elapsed time within the fade to a gain in [0,1].
func (f *fade) progress(ms int64) float64 {
	if f.durationMs <= 0 {
		return 1
	}
	p := float64(ms-f.startMs) / float64(f.durationMs)
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	if f.curve == CurveLogarithmic {
		return (math.Pow(10, p) - 1) / 9
	}
	return p
}

// Controller answers gain queries for one playback entry. It is immutable
// after construction and safe to read from any goroutine.
type Controller struct {
	durationMs int64
	fadeIn     *fade
	fadeOut    *fade
}

// New builds a controller from the track duration, the listener-supplied
// metadata map and the client defaults.
func New(playbackID string, durationMs int64, meta map[string]string, cfg Config, logger zerolog.Logger) *Controller {
	c := &Controller{durationMs: durationMs}

	if ms := metaInt(meta, KeyFadeInDuration); ms > 0 {
		c.fadeIn = &fade{startMs: 0, durationMs: ms, curve: metaCurve(meta, KeyFadeInCurve)}
	}
	if ms := metaInt(meta, KeyFadeOutDuration); ms > 0 && durationMs > ms {
		c.fadeOut = &fade{startMs: durationMs - ms, durationMs: ms, curve: metaCurve(meta, KeyFadeOutCurve)}
	}

	if c.fadeOut == nil && cfg.Enabled && cfg.Duration > 0 {
		ms := cfg.Duration.Milliseconds()
		if durationMs > ms {
			c.fadeOut = &fade{startMs: durationMs - ms, durationMs: ms, curve: CurveLinear}
		}
	}

	logger.Debug().
		Str("playback_id", playbackID).
		Bool("fade_in", c.fadeIn != nil).
		Bool("fade_out", c.fadeOut != nil).
		Msg("crossfade controller ready")
	return c
}

// Gain returns the output gain in [0,1] for the given playback time.
func (c *Controller) Gain(ms int64) float64 {
	if c.fadeIn != nil && ms < c.fadeIn.startMs+c.fadeIn.durationMs {
		return c.fadeIn.progress(ms)
	}
	if c.fadeOut != nil && ms >= c.fadeOut.startMs {
		return 1 - c.fadeOut.progress(ms)
	}
	return 1
}

// FadeOutStartTime is when fade-out begins, or the track duration when no
// fade-out is configured.
func (c *Controller) FadeOutStartTime() int64 {
	if c.fadeOut == nil {
		return c.durationMs
	}
	return c.fadeOut.startMs
}

// HasAnyFadeOut reports whether a fade-out is configured.
func (c *Controller) HasAnyFadeOut() bool { return c.fadeOut != nil }

func metaInt(meta map[string]string, key string) int64 {
	v, ok := meta[key]
	if !ok {
		return 0
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

func metaCurve(meta map[string]string, key string) Curve {
	if Curve(meta[key]) == CurveLogarithmic {
		return CurveLogarithmic
	}
	return CurveLinear
}
