/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ledger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/soundtap/soundtap/internal/config"
	"github.com/soundtap/soundtap/internal/content"
	"github.com/soundtap/soundtap/internal/player"
)

func openTestLedger(t *testing.T) *Recorder {
	t.Helper()
	cfg := &config.Config{
		DBBackend: config.DatabaseSQLite,
		DBDSN:     filepath.Join(t.TempDir(), "ledger.db"),
	}
	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(db); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return NewRecorder(db, zerolog.Nop())
}

func TestRecordPersistsReport(t *testing.T) {
	rec := openTestLedger(t)

	rec.Record(player.Report{
		PlaybackID: "pb-1",
		Content:    "track.wav",
		EndReason:  player.EndReasonPlay,
		Loaded:     content.Metrics{Source: "file", SizeBytes: 1234},
		LoadMs:     42,
		PlayedMs:   250,
	}, nil)

	var row PlaybackRecord
	if err := rec.db.Where("playback_id = ?", "pb-1").First(&row).Error; err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if row.ContentID != "track.wav" || row.EndReason != player.EndReasonPlay {
		t.Fatalf("row %+v", row)
	}
	if row.SizeBytes != 1234 || row.PlayedMs != 250 || row.LoadMs != 42 {
		t.Fatalf("row %+v", row)
	}
	if row.Error != "" {
		t.Fatalf("unexpected error column %q", row.Error)
	}
}

func TestRecordCapturesError(t *testing.T) {
	rec := openTestLedger(t)

	rec.Record(player.Report{
		PlaybackID: "pb-2",
		Content:    "track.wav",
		EndReason:  player.EndReasonError,
		Retried:    true,
	}, errors.New("decoder exploded"))

	var row PlaybackRecord
	if err := rec.db.Where("playback_id = ?", "pb-2").First(&row).Error; err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if row.Error != "decoder exploded" || !row.Retried {
		t.Fatalf("row %+v", row)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.Record(player.Report{PlaybackID: "pb-3"}, nil)
}
