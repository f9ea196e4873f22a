/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/soundtap/soundtap/internal/codec"
	"github.com/soundtap/soundtap/internal/content"
	"github.com/soundtap/soundtap/internal/crossfade"
)

// ErrOutputInUse is returned by Attach when the entry is closed or already
// has an output attached. Attachment is exclusive and fails fast, it never
// queues.
var ErrOutputInUse = errors.New("player: entry cannot take an output")

// ErrAlreadyRetried is returned by Retry on an entry that is itself a retry.
var ErrAlreadyRetried = errors.New("player: entry was already retried")

// preloadAheadMs is how long before fade-out start the preload instant is
// scheduled.
const preloadAheadMs = 20_000

// newCodec is swapped out in tests to inject decoder behavior.
var newCodec = codec.New

// End reasons recorded on the entry for the playback ledger.
const (
	EndReasonPlay    = "end-play"
	EndReasonForward = "forward"
	EndReasonError   = "error"
)

// Config carries the client-level knobs an entry needs.
type Config struct {
	Quality        content.Quality
	PreloadEnabled bool
	Crossfade      crossfade.Config
}

// Entry is one playback attempt for one content item. It owns a dedicated
// run loop (Run, invoked exactly once on its own goroutine) and cooperates
// with a controller that attaches and detaches outputs, seeks and closes
// from other goroutines.
type Entry struct {
	// ID is the generated playback session identifier, unique per attempt.
	ID string
	// Content identifies what this entry plays.
	Content content.ID
	// Preloaded marks an entry that was started ahead of time.
	Preloaded bool

	cfg      Config
	loader   content.Loader
	listener Listener
	logger   zerolog.Logger

	// playbackMu plus cond guard the attached output; the run loop blocks
	// on cond while no output is attached.
	playbackMu sync.Mutex
	cond       *sync.Cond
	output     Output

	closed   atomic.Bool
	seekMs   atomic.Int64 // pending seek position, -1 = none
	haltedAt atomic.Int64 // wall-clock ms of the last halt, 0 = not halted

	instants instantRegistry

	// Set once during load, before FinishedLoading. Reads from other
	// goroutines go through playbackMu.
	codec  codec.Codec
	meta   Metadata
	xfade  *crossfade.Controller
	loaded content.Metrics

	retried      bool
	endReason    string
	loadMs       int64
	writtenBytes atomic.Int64
}

// New creates an entry for the given content. Run must be called exactly
// once, on a dedicated goroutine.
func New(cfg Config, id content.ID, preloaded bool, listener Listener, loader content.Loader, logger zerolog.Logger) *Entry {
	e := &Entry{
		ID:        uuid.NewString(),
		Content:   id,
		Preloaded: preloaded,
		cfg:       cfg,
		loader:    loader,
		listener:  listener,
		endReason: EndReasonPlay,
	}
	e.cond = sync.NewCond(&e.playbackMu)
	e.seekMs.Store(-1)
	e.logger = logger.With().Str("component", "player").Str("playback_id", e.ID).Logger()

	e.logger.Trace().Str("content", string(id)).Msg("entry created")
	return e
}

// Retry builds a fresh sibling entry for the same content and listener,
// marked as retried. The failed entry is never reused, and a retry of a
// retry fails.
func (e *Entry) Retry(preloaded bool) (*Entry, error) {
	if e.retried {
		return nil, ErrAlreadyRetried
	}

	retry := New(e.cfg, e.Content, preloaded, e.listener, e.loader, e.logger)
	retry.retried = true
	return retry, nil
}

// Retried reports whether this entry is itself a retry.
func (e *Entry) Retried() bool { return e.retried }

func (e *Entry) load() error {
	stream, err := e.loader.Load(e.Content, e.cfg.Quality, e.Preloaded, e)
	if err != nil {
		return err
	}
	e.loaded = stream.Metrics

	// Decoder selection by encoding tag; an unrecognized tag is a fatal
	// load error.
	c, err := newCodec(stream.Stream)
	if err != nil {
		return err
	}

	meta := Metadata{Track: stream.Track, Episode: stream.Episode, durationMs: stream.DurationMs()}
	if meta.durationMs == 0 {
		meta.durationMs = c.DurationMs()
	}

	e.playbackMu.Lock()
	e.codec = c
	e.meta = meta
	e.playbackMu.Unlock()

	xf := crossfade.New(e.ID, meta.DurationMs(), e.listener.MetadataFor(e.Content), e.cfg.Crossfade, e.logger)
	e.playbackMu.Lock()
	e.xfade = xf
	e.playbackMu.Unlock()
	if xf.HasAnyFadeOut() || e.cfg.PreloadEnabled {
		e.ScheduleInstant(InstantPreload, xf.FadeOutStartTime()-preloadAheadMs)
	}

	e.logger.Info().
		Str("name", meta.Name()).
		Str("encoding", string(stream.Stream.Encoding())).
		Int64("duration_ms", meta.DurationMs()).
		Msg("content loaded")
	return nil
}

// Run drives the entry from loading through playback to termination. The
// listener is notified of every state change; see Listener for the exact
// contract, including the end-vs-error asymmetry.
func (e *Entry) Run() {
	e.listener.StartedLoading(e)

	loadStart := time.Now()
	if err := e.load(); err != nil {
		e.Close()
		e.listener.LoadingError(e, err, e.retried)
		e.logger.Debug().Err(err).Msg("entry terminated at loading")
		return
	}
	e.loadMs = time.Since(loadStart).Milliseconds()

	// A seek requested before loading finished applies before playback.
	if pos := e.seekMs.Swap(-1); pos != -1 {
		if err := e.codec.Seek(pos); err != nil {
			e.logger.Warn().Err(err).Int64("pos_ms", pos).Msg("initial seek failed")
		}
	}

	e.listener.FinishedLoading(e, e.meta)

	// Once a time query fails the latch stays down for the rest of this
	// entry's life: gain and instant logic are skipped, not retried.
	canGetTime := true

	for !e.closed.Load() {
		e.playbackMu.Lock()
		for e.output == nil && !e.closed.Load() {
			e.cond.Wait()
		}
		out := e.output
		e.playbackMu.Unlock()

		if e.closed.Load() {
			break
		}
		if out == nil {
			continue
		}

		if pos := e.seekMs.Swap(-1); pos != -1 {
			if err := e.codec.Seek(pos); err != nil {
				e.logger.Warn().Err(err).Int64("pos_ms", pos).Msg("seek failed")
			}
		}

		if canGetTime {
			now, err := e.codec.Time()
			if err != nil {
				canGetTime = false
			} else {
				if !e.instants.empty() {
					e.instants.pump(now, func(id InstantID) {
						e.listener.InstantReached(e, id, now)
					})
					// A fired callback may have detached the output.
					if e.currentOutput() == nil {
						continue
					}
				}
				out.SetGain(e.xfade.Gain(now))
			}
		}

		n, err := e.codec.WriteSome(out.Stream())
		e.writtenBytes.Add(int64(n))
		if err != nil {
			if err == io.EOF {
				if now, terr := e.codec.Time(); terr == nil {
					e.logger.Debug().Int64("offset_ms", e.meta.DurationMs()-now).Msg("stream ended")
				}
				e.Close()
				break
			}

			if !e.closed.Load() {
				e.Close()
				e.setEndReason(EndReasonError)
				e.listener.PlaybackError(e, err)
				return
			}
			break
		}
	}

	e.listener.PlaybackEnded(e)
	e.logger.Trace().Msg("entry terminated")
}

// Attach hands an output to the entry; playback starts as soon as it
// returns. It fails if the entry is closed or already has an output, in
// which case the offered sink is disabled and released so it is never left
// dangling.
func (e *Entry) Attach(out Output) error {
	e.playbackMu.Lock()
	if e.closed.Load() || e.output != nil {
		e.playbackMu.Unlock()
		out.Disable()
		out.Release()
		return ErrOutputInUse
	}
	e.output = out
	e.cond.Broadcast()
	e.playbackMu.Unlock()

	out.Enable()
	return nil
}

// Detach removes the attached output, if any, and always wakes a run loop
// blocked waiting for one (a concurrent Close relies on that).
func (e *Entry) Detach() {
	e.playbackMu.Lock()
	out := e.output
	e.output = nil
	e.cond.Broadcast()
	e.playbackMu.Unlock()

	if out != nil {
		out.Disable()
		out.Release()
		e.logger.Debug().Msg("output detached")
	}
}

func (e *Entry) currentOutput() Output {
	e.playbackMu.Lock()
	defer e.playbackMu.Unlock()
	return e.output
}

// Seek requests a jump to the given position. The last request wins; an
// in-flight one is replaced, not queued. An attached sink's stream is
// flushed so the seek is audible immediately.
func (e *Entry) Seek(ms int64) {
	e.seekMs.Store(ms)
	if out := e.currentOutput(); out != nil {
		out.Stream().Flush()
	}
}

// Close terminates the entry. It is idempotent, detaches the output exactly
// once and guarantees a waiting run loop unblocks immediately. It does not
// interrupt an in-progress decode write.
func (e *Entry) Close() {
	e.closed.Store(true)
	e.Detach()
}

// CloseIfUseless closes the entry when no output is attached, reporting
// whether it did.
func (e *Entry) CloseIfUseless() bool {
	if e.currentOutput() == nil {
		e.Close()
		return true
	}
	return false
}

// Closed reports whether the entry reached its terminal state.
func (e *Entry) Closed() bool { return e.closed.Load() }

// ScheduleInstant asks for an InstantReached callback when playback crosses
// whenMs. If the decoder already reports a time at or past whenMs the
// callback fires synchronously within this call and nothing is persisted.
func (e *Entry) ScheduleInstant(id InstantID, whenMs int64) {
	e.playbackMu.Lock()
	c := e.codec
	e.playbackMu.Unlock()

	if c != nil {
		now, err := c.Time()
		if err != nil {
			return
		}
		if now >= whenMs {
			e.listener.InstantReached(e, id, now)
			return
		}
	}

	e.instants.put(whenMs, id)
}

// Time returns the current playback position, or codec.ErrTimeUnavailable.
// Before loading completes it reports -1 with no error.
func (e *Entry) Time() (int64, error) {
	e.playbackMu.Lock()
	c := e.codec
	e.playbackMu.Unlock()

	if c == nil {
		return -1, nil
	}
	return c.Time()
}

// Metadata returns the resolved metadata; the zero value before loading
// completes. Safe to call from any goroutine.
func (e *Entry) Metadata() Metadata {
	e.playbackMu.Lock()
	defer e.playbackMu.Unlock()
	return e.meta
}

// Crossfade returns the entry's crossfade controller, nil before loading
// completes.
func (e *Entry) Crossfade() *crossfade.Controller {
	e.playbackMu.Lock()
	defer e.playbackMu.Unlock()
	return e.xfade
}

// SampleRate returns the decoder's output sample rate in Hz, 0 before
// loading completes.
func (e *Entry) SampleRate() int {
	e.playbackMu.Lock()
	defer e.playbackMu.Unlock()
	if e.codec == nil {
		return 0
	}
	return e.codec.SampleRate()
}

// StreamReadHalted implements content.HaltListener: the stall is recorded
// and forwarded verbatim.
func (e *Entry) StreamReadHalted(chunk int, at int64) {
	e.haltedAt.Store(at)
	e.listener.PlaybackHalted(e, chunk)
}

// StreamReadResumed implements content.HaltListener. Without a recorded
// halt this is a no-op; otherwise the stall duration is reported and the
// recorded halt cleared.
func (e *Entry) StreamReadResumed(chunk int, at int64) {
	halted := e.haltedAt.Swap(0)
	if halted == 0 {
		return
	}
	e.listener.PlaybackResumed(e, chunk, at-halted)
}

// SetEndReason tags why playback is ending (controller decision, e.g. a
// skip). The default is EndReasonPlay.
func (e *Entry) SetEndReason(reason string) { e.setEndReason(reason) }

func (e *Entry) setEndReason(reason string) {
	e.playbackMu.Lock()
	e.endReason = reason
	e.playbackMu.Unlock()
}

// Report summarizes the attempt for the playback ledger.
type Report struct {
	PlaybackID   string
	Content      content.ID
	Retried      bool
	EndReason    string
	Loaded       content.Metrics
	LoadMs       int64
	PlayedMs     int64
	WrittenBytes int64
}

// Report returns the entry's terminal summary. Meaningful once the entry
// has closed; the played position is best-effort.
func (e *Entry) Report() Report {
	played := int64(0)
	if now, err := e.Time(); err == nil && now > 0 {
		played = now
	}

	e.playbackMu.Lock()
	reason := e.endReason
	e.playbackMu.Unlock()

	return Report{
		PlaybackID:   e.ID,
		Content:      e.Content,
		Retried:      e.retried,
		EndReason:    reason,
		Loaded:       e.loaded,
		LoadMs:       e.loadMs,
		PlayedMs:     played,
		WrittenBytes: e.writtenBytes.Load(),
	}
}
