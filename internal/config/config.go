/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection for the playback ledger.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	MediaRoot   string

	// Playback
	Quality           string // "low", "normal" or "high"
	PreloadEnabled    bool
	CrossfadeEnabled  bool
	CrossfadeDuration time.Duration

	// Playback ledger
	DBBackend DatabaseBackend
	DBDSN     string

	// Status/metrics HTTP surface (empty = disabled)
	StatusBind string

	// S3 object storage (content identifiers like s3://bucket/key)
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // for S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // required for MinIO

	// Tracing
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the
// result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SOUNDTAP_ENV", "development"),
		MediaRoot:   getEnv("SOUNDTAP_MEDIA_ROOT", "./media"),

		Quality:           getEnv("SOUNDTAP_QUALITY", "normal"),
		PreloadEnabled:    getEnvBool("SOUNDTAP_PRELOAD_ENABLED", true),
		CrossfadeEnabled:  getEnvBool("SOUNDTAP_CROSSFADE_ENABLED", false),
		CrossfadeDuration: time.Duration(getEnvInt("SOUNDTAP_CROSSFADE_MS", 5000)) * time.Millisecond,

		DBBackend: DatabaseBackend(getEnv("SOUNDTAP_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("SOUNDTAP_DB_DSN", "soundtap.db"),

		StatusBind: getEnv("SOUNDTAP_STATUS_BIND", ""),

		S3AccessKeyID:     getEnvAny([]string{"SOUNDTAP_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"SOUNDTAP_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"SOUNDTAP_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"SOUNDTAP_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"SOUNDTAP_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBool("SOUNDTAP_S3_USE_PATH_STYLE", false),

		TracingEnabled:    getEnvBool("SOUNDTAP_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SOUNDTAP_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SOUNDTAP_TRACING_SAMPLE_RATE", 1.0),
	}

	switch cfg.Quality {
	case "low", "normal", "high":
	default:
		return nil, fmt.Errorf("unsupported quality %q", cfg.Quality)
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.CrossfadeDuration < 0 {
		return nil, fmt.Errorf("SOUNDTAP_CROSSFADE_MS must not be negative")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from
// keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
