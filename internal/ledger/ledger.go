/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ledger persists one row per playback attempt.
package ledger

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soundtap/soundtap/internal/config"
	"github.com/soundtap/soundtap/internal/player"
)

// PlaybackRecord is the terminal summary of one entry.
type PlaybackRecord struct {
	ID         uint   `gorm:"primaryKey"`
	PlaybackID string `gorm:"uniqueIndex;size:64"`
	ContentID  string `gorm:"index;size:512"`
	Source     string `gorm:"size:16"`
	EndReason  string `gorm:"size:32"`
	Retried    bool
	Error      string `gorm:"size:1024"`
	LoadMs     int64
	PlayedMs   int64
	SizeBytes  int64
	CreatedAt  time.Time
}

// Connect establishes a gorm DB connection for the configured backend and
// migrates the ledger schema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DBBackend {
	case config.DatabasePostgres:
		dialector = postgres.Open(cfg.DBDSN)
	case config.DatabaseMySQL:
		dialector = mysql.Open(cfg.DBDSN)
	case config.DatabaseSQLite:
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&PlaybackRecord{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return db, nil
}

// Close releases database resources.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Recorder writes playback records. A nil Recorder is valid and records
// nothing.
type Recorder struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRecorder wraps a connected database.
func NewRecorder(db *gorm.DB, logger zerolog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger.With().Str("component", "ledger").Logger()}
}

// Record persists the entry's terminal report. Failures are logged, never
// propagated: the ledger must not take down playback.
func (r *Recorder) Record(report player.Report, playbackErr error) {
	if r == nil || r.db == nil {
		return
	}

	rec := PlaybackRecord{
		PlaybackID: report.PlaybackID,
		ContentID:  string(report.Content),
		Source:     report.Loaded.Source,
		EndReason:  report.EndReason,
		Retried:    report.Retried,
		LoadMs:     report.LoadMs,
		PlayedMs:   report.PlayedMs,
		SizeBytes:  report.Loaded.SizeBytes,
	}
	if playbackErr != nil {
		rec.Error = playbackErr.Error()
	}

	if err := r.db.Create(&rec).Error; err != nil {
		r.logger.Error().Err(err).Str("playback_id", report.PlaybackID).Msg("record playback")
	}
}
