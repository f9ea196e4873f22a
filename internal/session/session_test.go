/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/soundtap/soundtap/internal/content"
	"github.com/soundtap/soundtap/internal/crossfade"
	"github.com/soundtap/soundtap/internal/events"
	"github.com/soundtap/soundtap/internal/mixer"
	"github.com/soundtap/soundtap/internal/player"
	"github.com/soundtap/soundtap/internal/playlist"
	"github.com/soundtap/soundtap/internal/telemetry"
)

const testRate = 8000

func makeWAV(durationMs int) []byte {
	frames := testRate * durationMs / 1000
	dataLen := frames * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(testRate))
	binary.Write(&buf, binary.LittleEndian, uint32(testRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

type memStream struct {
	*bytes.Reader
	size int64
}

func (s *memStream) Encoding() content.Encoding { return content.EncodingWAV }
func (s *memStream) Size() int64                { return s.size }

// stubLoader serves the same WAV for every id, optionally failing the first
// failUntil loads.
type stubLoader struct {
	data      []byte
	failUntil int32
	failWith  error
	loads     atomic.Int32
}

func (l *stubLoader) Load(id content.ID, _ content.Quality, preload bool, _ content.HaltListener) (*content.LoadedStream, error) {
	n := l.loads.Add(1)
	if n <= l.failUntil {
		return nil, l.failWith
	}
	return &content.LoadedStream{
		Stream:  &memStream{Reader: bytes.NewReader(l.data), size: int64(len(l.data))},
		Track:   &content.TrackMeta{Name: string(id)},
		Metrics: content.Metrics{Source: "test", SizeBytes: int64(len(l.data)), Preloaded: preload},
	}, nil
}

func newTestSession(loader content.Loader) (*Session, *events.Bus) {
	bus := events.NewBus()
	sess := New(
		player.Config{Quality: content.QualityNormal, Crossfade: crossfade.Config{}},
		func(content.ID) content.Loader { return loader },
		mixer.New(testRate, 1, zerolog.Nop()),
		bus,
		telemetry.NewMetrics(),
		nil,
		zerolog.Nop(),
	)
	return sess, bus
}

func playWithTimeout(t *testing.T, sess *Session, pl *playlist.Playlist) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- sess.Play(pl) }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("playback did not finish")
		panic("unreachable")
	}
}

func TestPlayRunsPlaylistToCompletion(t *testing.T) {
	loader := &stubLoader{data: makeWAV(200)}
	sess, bus := newTestSession(loader)
	ended := bus.Subscribe(events.EventPlaybackEnded)

	if err := playWithTimeout(t, sess, playlist.FromIDs([]string{"a.wav", "b.wav"})); err != nil {
		t.Fatalf("play: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-ended:
		case <-time.After(time.Second):
			t.Fatalf("only %d tracks reported ended", i)
		}
	}
	if loads := loader.loads.Load(); loads != 2 {
		t.Fatalf("loader called %d times, want 2", loads)
	}
}

func TestPlayRetriesTransientLoadFailureOnce(t *testing.T) {
	loader := &stubLoader{
		data:      makeWAV(200),
		failUntil: 1,
		failWith:  &content.TransportError{ID: "a.wav", Err: errors.New("timeout")},
	}
	sess, bus := newTestSession(loader)
	loadErrs := bus.Subscribe(events.EventLoadingError)
	ended := bus.Subscribe(events.EventPlaybackEnded)

	if err := playWithTimeout(t, sess, playlist.FromIDs([]string{"a.wav"})); err != nil {
		t.Fatalf("play: %v", err)
	}

	select {
	case <-loadErrs:
	case <-time.After(time.Second):
		t.Fatal("loading error never published")
	}
	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("retried track never ended")
	}
	if loads := loader.loads.Load(); loads != 2 {
		t.Fatalf("loader called %d times, want original + one retry", loads)
	}
}

func TestPlaySkipsPermanentlyRestrictedContent(t *testing.T) {
	loader := &stubLoader{
		data:      makeWAV(200),
		failUntil: 1,
		failWith:  &content.RestrictedError{ID: "a.wav", Reason: "region"},
	}
	sess, bus := newTestSession(loader)
	ended := bus.Subscribe(events.EventPlaybackEnded)

	if err := playWithTimeout(t, sess, playlist.FromIDs([]string{"a.wav", "b.wav"})); err != nil {
		t.Fatalf("play: %v", err)
	}

	// Only the second item plays; the restricted one is not retried.
	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("second track never ended")
	}
	if loads := loader.loads.Load(); loads != 2 {
		t.Fatalf("loader called %d times, want 2 (no retry of restricted content)", loads)
	}
}

func TestStopInterruptsPlayback(t *testing.T) {
	// Long enough that playback cannot finish on its own.
	loader := &stubLoader{data: makeWAV(60_000)}
	sess, bus := newTestSession(loader)
	playing := bus.Subscribe(events.EventNowPlaying)

	errCh := make(chan error, 1)
	go func() { errCh <- sess.Play(playlist.FromIDs([]string{"a.wav"})) }()

	select {
	case <-playing:
	case <-time.After(5 * time.Second):
		t.Fatal("track never started playing")
	}

	st := sess.Status()
	if !st.Playing || st.Content != "a.wav" {
		t.Fatalf("status %+v", st)
	}

	sess.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("play after stop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not end playback")
	}
}

// syncBuffer is a log sink safe for the session's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAttachWarnsOnSampleRateMismatch(t *testing.T) {
	loader := &stubLoader{data: makeWAV(200)}
	logBuf := &syncBuffer{}
	sess := New(
		player.Config{Quality: content.QualityNormal, Crossfade: crossfade.Config{}},
		func(content.ID) content.Loader { return loader },
		mixer.New(44100, 2, zerolog.Nop()),
		events.NewBus(),
		telemetry.NewMetrics(),
		nil,
		zerolog.New(logBuf),
	)

	if err := playWithTimeout(t, sess, playlist.FromIDs([]string{"a.wav"})); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.Contains(logBuf.String(), "sample rate mismatch") {
		t.Fatal("expected a sample rate mismatch warning for 8kHz content on a 44.1kHz mixer")
	}
}

func TestPlayRejectsEmptyPlaylist(t *testing.T) {
	sess, _ := newTestSession(&stubLoader{data: makeWAV(200)})
	if err := sess.Play(&playlist.Playlist{}); err == nil {
		t.Fatal("expected empty playlist to fail")
	}
}

func TestSessionIsOneShot(t *testing.T) {
	loader := &stubLoader{data: makeWAV(200)}
	sess, _ := newTestSession(loader)

	if err := playWithTimeout(t, sess, playlist.FromIDs([]string{"a.wav"})); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := sess.Play(playlist.FromIDs([]string{"b.wav"})); err == nil {
		t.Fatal("expected a finished session to reject a second Play")
	}
}
