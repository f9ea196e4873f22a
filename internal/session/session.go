/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package session sequences playback entries through a playlist, handling
// preload, crossfade hand-off, retry and bookkeeping around the player
// core.
package session

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/soundtap/soundtap/internal/content"
	"github.com/soundtap/soundtap/internal/events"
	"github.com/soundtap/soundtap/internal/ledger"
	"github.com/soundtap/soundtap/internal/mixer"
	"github.com/soundtap/soundtap/internal/player"
	"github.com/soundtap/soundtap/internal/playlist"
	"github.com/soundtap/soundtap/internal/telemetry"
)

// track pairs an entry with its queue item and hand-off state.
type track struct {
	entry    *player.Entry
	item     playlist.Item
	loaded   bool
	attached bool
}

// Session drives one playlist to completion. It implements player.Listener;
// every callback arrives on an entry's own goroutine, so all state lives
// behind one mutex and the handlers stay short.
type Session struct {
	playerCfg player.Config
	loaderFor func(content.ID) content.Loader
	mix       *mixer.Mixer
	bus       *events.Bus
	metrics   *telemetry.Metrics
	recorder  *ledger.Recorder
	logger    zerolog.Logger

	mu       sync.Mutex
	queue    []playlist.Item
	current  *track
	next     *track
	done     chan struct{}
	finished bool
}

// New builds a session. recorder may be nil (no ledger).
func New(playerCfg player.Config, loaderFor func(content.ID) content.Loader, mix *mixer.Mixer,
	bus *events.Bus, metrics *telemetry.Metrics, recorder *ledger.Recorder, logger zerolog.Logger) *Session {
	return &Session{
		playerCfg: playerCfg,
		loaderFor: loaderFor,
		mix:       mix,
		bus:       bus,
		metrics:   metrics,
		recorder:  recorder,
		logger:    logger.With().Str("component", "session").Logger(),
	}
}

// Play blocks until every item in the playlist has been attempted or Stop
// is called.
func (s *Session) Play(pl *playlist.Playlist) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return errors.New("session already playing")
	}
	s.done = make(chan struct{})
	s.queue = append([]playlist.Item(nil), pl.Items...)

	item, ok := s.popLocked()
	if !ok {
		s.finishLocked()
		s.mu.Unlock()
		return errors.New("empty playlist")
	}
	s.current = s.startLocked(item, false)
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

// Stop closes any live entries and ends Play.
func (s *Session) Stop() {
	s.mu.Lock()
	cur, nxt := s.current, s.next
	s.current, s.next = nil, nil
	s.queue = nil
	s.finishLocked()
	s.mu.Unlock()

	if cur != nil {
		cur.entry.SetEndReason(player.EndReasonForward)
		cur.entry.Close()
	}
	if nxt != nil {
		nxt.entry.Close()
	}
}

// Status describes what is currently audible.
type Status struct {
	Playing    bool   `json:"playing"`
	Content    string `json:"content,omitempty"`
	Name       string `json:"name,omitempty"`
	PositionMs int64  `json:"position_ms"`
	DurationMs int64  `json:"duration_ms"`
}

// Status reports the current track and position, best-effort.
func (s *Session) Status() Status {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur == nil {
		return Status{}
	}
	st := Status{
		Playing:    true,
		Content:    string(cur.entry.Content),
		Name:       cur.entry.Metadata().Name(),
		DurationMs: cur.entry.Metadata().DurationMs(),
	}
	if pos, err := cur.entry.Time(); err == nil && pos > 0 {
		st.PositionMs = pos
	}
	return st
}

// Seek forwards a seek request to the current entry.
func (s *Session) Seek(ms int64) {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		cur.entry.Seek(ms)
	}
}

func (s *Session) popLocked() (playlist.Item, bool) {
	if len(s.queue) == 0 {
		return playlist.Item{}, false
	}
	item := s.queue[0]
	s.queue = s.queue[1:]
	return item, true
}

func (s *Session) startLocked(item playlist.Item, preloaded bool) *track {
	entry := player.New(s.playerCfg, item.ID, preloaded, s, s.loaderFor(item.ID), s.logger)
	t := &track{entry: entry, item: item}
	go entry.Run()
	return t
}

func (s *Session) finishLocked() {
	if !s.finished {
		s.finished = true
		if s.done != nil {
			close(s.done)
		}
	}
}

// trackFor maps an entry back to its session slot.
func (s *Session) trackFor(e *player.Entry) *track {
	if s.current != nil && s.current.entry == e {
		return s.current
	}
	if s.next != nil && s.next.entry == e {
		return s.next
	}
	return nil
}

func (s *Session) attachLocked(t *track) {
	if t.attached {
		return
	}
	// The mixer runs at a fixed rate with no resampling; mismatched content
	// plays at the wrong pitch.
	if sr := t.entry.SampleRate(); sr != 0 && sr != s.mix.SampleRate() {
		s.logger.Warn().
			Int("content_rate", sr).
			Int("mixer_rate", s.mix.SampleRate()).
			Str("content", string(t.entry.Content)).
			Msg("sample rate mismatch")
	}
	line := s.mix.NewLine()
	if err := t.entry.Attach(line); err != nil {
		s.logger.Warn().Err(err).Str("playback_id", t.entry.ID).Msg("attach failed")
		return
	}
	t.attached = true
	s.bus.Publish(events.EventNowPlaying, events.Payload{
		"playback_id": t.entry.ID,
		"content":     string(t.entry.Content),
		"name":        t.entry.Metadata().Name(),
	})
}

// advanceLocked moves on after the entry in t terminated.
func (s *Session) advanceLocked(t *track) {
	switch t {
	case s.current:
		s.current = nil
		if s.next != nil {
			s.current = s.next
			s.next = nil
			if s.current.loaded {
				s.attachLocked(s.current)
			}
			return
		}
		if item, ok := s.popLocked(); ok {
			s.current = s.startLocked(item, false)
			return
		}
		s.finishLocked()
	case s.next:
		s.next = nil
	}
}

// StartedLoading implements player.Listener.
func (s *Session) StartedLoading(e *player.Entry) {
	s.bus.Publish(events.EventStartedLoading, events.Payload{"playback_id": e.ID, "content": string(e.Content)})
}

// LoadingError implements player.Listener. A first, retryable failure gets
// exactly one sibling retry; anything else skips to the next item.
func (s *Session) LoadingError(e *player.Entry, err error, retried bool) {
	s.metrics.LoadsTotal.WithLabelValues(loadOutcome(err)).Inc()
	s.bus.Publish(events.EventLoadingError, events.Payload{"playback_id": e.ID, "error": err.Error()})
	s.recorder.Record(e.Report(), err)

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.trackFor(e)
	if t == nil {
		return
	}

	if !retried && content.Retryable(err) {
		sibling, rerr := e.Retry(e.Preloaded)
		if rerr != nil {
			s.logger.Error().Err(rerr).Msg("retry rejected")
		} else {
			s.logger.Info().Str("content", string(e.Content)).Msg("retrying load")
			t.entry = sibling
			t.loaded = false
			t.attached = false
			go sibling.Run()
			return
		}
	}

	s.logger.Warn().Err(err).Str("content", string(e.Content)).Msg("giving up on content")
	s.advanceLocked(t)
}

// FinishedLoading implements player.Listener. The current track is attached
// to a fresh mixer line immediately; a preloaded next track keeps waiting
// for its hand-off instant.
func (s *Session) FinishedLoading(e *player.Entry, meta player.Metadata) {
	s.metrics.LoadsTotal.WithLabelValues("ok").Inc()
	s.metrics.LoadSeconds.Observe(float64(e.Report().LoadMs) / 1000)

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.trackFor(e)
	if t == nil {
		// Raced with Stop; the entry is already closed.
		return
	}
	t.loaded = true

	if t == s.current {
		s.attachLocked(t)
		if xf := e.Crossfade(); xf.HasAnyFadeOut() {
			e.ScheduleInstant(player.InstantStartNext, xf.FadeOutStartTime())
		}
	}
}

// PlaybackError implements player.Listener. The normal end notification is
// skipped on this path, so advancing happens here.
func (s *Session) PlaybackError(e *player.Entry, err error) {
	report := e.Report()
	s.metrics.PlaybackErrors.Inc()
	s.metrics.BytesWritten.Add(float64(report.WrittenBytes))
	s.bus.Publish(events.EventPlaybackError, events.Payload{"playback_id": e.ID, "error": err.Error()})
	s.recorder.Record(report, err)
	s.logger.Error().Err(err).Str("playback_id", e.ID).Msg("playback error")

	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.trackFor(e); t != nil {
		s.advanceLocked(t)
	}
}

// PlaybackEnded implements player.Listener.
func (s *Session) PlaybackEnded(e *player.Entry) {
	report := e.Report()
	s.metrics.TracksEnded.Inc()
	s.metrics.BytesWritten.Add(float64(report.WrittenBytes))
	s.bus.Publish(events.EventPlaybackEnded, events.Payload{"playback_id": e.ID})
	s.recorder.Record(report, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.trackFor(e); t != nil {
		s.advanceLocked(t)
	}
}

// PlaybackHalted implements player.Listener.
func (s *Session) PlaybackHalted(e *player.Entry, chunk int) {
	s.metrics.HaltsTotal.Inc()
	s.bus.Publish(events.EventPlaybackHalted, events.Payload{"playback_id": e.ID, "chunk": chunk})
	s.logger.Warn().Int("chunk", chunk).Str("playback_id", e.ID).Msg("stream halted")
}

// PlaybackResumed implements player.Listener.
func (s *Session) PlaybackResumed(e *player.Entry, chunk int, diffMs int64) {
	s.metrics.HaltSeconds.Observe(float64(diffMs) / 1000)
	s.bus.Publish(events.EventPlaybackResumed, events.Payload{"playback_id": e.ID, "chunk": chunk, "diff_ms": diffMs})
	s.logger.Info().Int("chunk", chunk).Int64("diff_ms", diffMs).Str("playback_id", e.ID).Msg("stream resumed")
}

// InstantReached implements player.Listener. Preload starts loading the
// next queue item; start-next begins the crossfade overlap.
func (s *Session) InstantReached(e *player.Entry, id player.InstantID, exactMs int64) {
	s.metrics.InstantsFired.WithLabelValues(instantName(id)).Inc()
	s.bus.Publish(events.EventInstantReached, events.Payload{"playback_id": e.ID, "instant": instantName(id), "at_ms": exactMs})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.entry != e {
		return
	}

	switch id {
	case player.InstantPreload:
		if s.next == nil {
			if item, ok := s.popLocked(); ok {
				s.next = s.startLocked(item, true)
			}
		}
	case player.InstantStartNext:
		if s.next != nil && s.next.loaded {
			s.attachLocked(s.next)
		}
	}
}

// MetadataFor implements player.Listener: per-item playlist metadata seeds
// the crossfade engine.
func (s *Session) MetadataFor(id content.ID) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range []*track{s.current, s.next} {
		if t != nil && t.item.ID == id {
			return t.item.Metadata
		}
	}
	return nil
}

func instantName(id player.InstantID) string {
	switch id {
	case player.InstantPreload:
		return "preload"
	case player.InstantStartNext:
		return "start-next"
	case player.InstantEnd:
		return "end"
	default:
		return "unknown"
	}
}

func loadOutcome(err error) string {
	var restricted *content.RestrictedError
	var transport *content.TransportError
	var format *content.FormatError
	var rights *content.RightsError
	switch {
	case errors.As(err, &restricted):
		return "restricted"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &format):
		return "format"
	case errors.As(err, &rights):
		return "rights"
	default:
		return "other"
	}
}
