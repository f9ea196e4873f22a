/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package content

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEncodingForName(t *testing.T) {
	cases := map[string]Encoding{
		"song.ogg":            EncodingVorbis,
		"nested/dir/song.OGA": EncodingVorbis,
		"song.mp3":            EncodingMP3,
		"song.flac":           EncodingFLAC,
		"song.wav":            EncodingWAV,
		"song.WAVE":           EncodingWAV,
		"song.aac":            EncodingUnknown,
		"song":                EncodingUnknown,
	}
	for name, want := range cases {
		if got := EncodingForName(name); got != want {
			t.Fatalf("EncodingForName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(&RestrictedError{ID: "x", Reason: "geo"}) {
		t.Fatal("restricted content must not be retried")
	}
	if Retryable(&RightsError{ID: "x", Reason: "expired"}) {
		t.Fatal("rights failures must not be retried")
	}
	if !Retryable(&TransportError{ID: "x", Err: errors.New("timeout")}) {
		t.Fatal("transport failures are worth a retry")
	}
	if !Retryable(errors.New("anything else")) {
		t.Fatal("unknown failures are worth a retry")
	}
}

func TestLoadedStreamDuration(t *testing.T) {
	track := &LoadedStream{Track: &TrackMeta{DurationMs: 1234}}
	if track.DurationMs() != 1234 {
		t.Fatalf("track duration: %d", track.DurationMs())
	}
	episode := &LoadedStream{Episode: &EpisodeMeta{DurationMs: 4321}}
	if episode.DurationMs() != 4321 {
		t.Fatalf("episode duration: %d", episode.DurationMs())
	}
	unknown := &LoadedStream{}
	if unknown.DurationMs() != 0 {
		t.Fatalf("unknown duration: %d", unknown.DurationMs())
	}
}

type haltEvent struct {
	chunk  int
	resume bool
}

type haltRecorder struct {
	events chan haltEvent
}

func (r *haltRecorder) StreamReadHalted(chunk int, _ int64) {
	r.events <- haltEvent{chunk: chunk}
}

func (r *haltRecorder) StreamReadResumed(chunk int, _ int64) {
	r.events <- haltEvent{chunk: chunk, resume: true}
}

// slowReader blocks on the configured read index.
type slowReader struct {
	reads int
	block time.Duration
}

func (s *slowReader) Read(p []byte) (int, error) {
	s.reads++
	if s.reads == 2 {
		time.Sleep(s.block)
	}
	if s.reads > 3 {
		return 0, io.EOF
	}
	p[0] = 1
	return 1, nil
}

func TestHaltReaderReportsStalls(t *testing.T) {
	rec := &haltRecorder{events: make(chan haltEvent, 8)}
	r := newHaltReader(&slowReader{block: 80 * time.Millisecond}, rec, 20*time.Millisecond)

	buf := make([]byte, 4)
	for {
		if _, err := r.Read(buf); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("read: %v", err)
		}
	}

	// Exactly the slow chunk halts, then resumes.
	halt := <-rec.events
	if halt.resume || halt.chunk != 1 {
		t.Fatalf("first event %+v, want halt on chunk 1", halt)
	}
	resume := <-rec.events
	if !resume.resume || resume.chunk != 1 {
		t.Fatalf("second event %+v, want resume on chunk 1", resume)
	}
	select {
	case ev := <-rec.events:
		t.Fatalf("unexpected extra event %+v", ev)
	default:
	}
}

func TestHaltReaderFastReadsStaySilent(t *testing.T) {
	rec := &haltRecorder{events: make(chan haltEvent, 8)}
	r := newHaltReader(&slowReader{block: 0}, rec, 500*time.Millisecond)

	buf := make([]byte, 4)
	for {
		if _, err := r.Read(buf); err == io.EOF {
			break
		}
	}

	select {
	case ev := <-rec.events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFileLoaderLoadsRelativeID(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("not really wav but the loader does not care")
	if err := os.WriteFile(filepath.Join(dir, "track.wav"), payload, 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewFileLoader(dir, zerolog.Nop())
	stream, err := loader.Load("track.wav", QualityNormal, false, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if stream.Stream.Encoding() != EncodingWAV {
		t.Fatalf("encoding %q, want wav", stream.Stream.Encoding())
	}
	if stream.Stream.Size() != int64(len(payload)) {
		t.Fatalf("size %d, want %d", stream.Stream.Size(), len(payload))
	}
	if stream.Track == nil || stream.Track.Name != "track" {
		t.Fatalf("track metadata %+v", stream.Track)
	}
	if stream.Metrics.Source != "file" || stream.Metrics.SizeBytes != int64(len(payload)) {
		t.Fatalf("metrics %+v", stream.Metrics)
	}

	data, err := io.ReadAll(stream.Stream)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatal("stream content mismatch")
	}
}

func TestFileLoaderUnknownExtension(t *testing.T) {
	loader := NewFileLoader(t.TempDir(), zerolog.Nop())
	_, err := loader.Load("track.aac", QualityNormal, false, nil)

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("got %v, want FormatError", err)
	}
}

func TestFileLoaderMissingFile(t *testing.T) {
	loader := NewFileLoader(t.TempDir(), zerolog.Nop())
	_, err := loader.Load("missing.wav", QualityNormal, false, nil)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("got %v, want TransportError", err)
	}
}
