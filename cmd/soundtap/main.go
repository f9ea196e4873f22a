/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/soundtap/soundtap/internal/config"
	"github.com/soundtap/soundtap/internal/content"
	"github.com/soundtap/soundtap/internal/crossfade"
	"github.com/soundtap/soundtap/internal/events"
	"github.com/soundtap/soundtap/internal/ledger"
	"github.com/soundtap/soundtap/internal/logging"
	"github.com/soundtap/soundtap/internal/mixer"
	"github.com/soundtap/soundtap/internal/player"
	"github.com/soundtap/soundtap/internal/playlist"
	"github.com/soundtap/soundtap/internal/server"
	"github.com/soundtap/soundtap/internal/session"
	"github.com/soundtap/soundtap/internal/telemetry"
	"github.com/soundtap/soundtap/internal/version"
)

// Output format is fixed at CD audio; the decoders all emit S16LE and the
// mixer sums at this rate.
const (
	outputRate     = 44100
	outputChannels = 2
)

var (
	logger zerolog.Logger
	cfg    *config.Config

	playlistPath string
	statusAddr   string
	preloadFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "soundtap",
	Short: "Soundtap - gapless streaming audio player",
	Long:  "Soundtap plays local and object-storage audio with preloading, crossfade and a playback ledger.",
}

var playCmd = &cobra.Command{
	Use:   "play [content-id ...]",
	Short: "Play a playlist file or a list of content identifiers",
	RunE:  runPlay,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("soundtap", version.Version)
	},
}

func init() {
	playCmd.Flags().StringVar(&playlistPath, "playlist", "", "YAML playlist file")
	playCmd.Flags().StringVar(&statusAddr, "status-addr", "", "status/metrics bind address (overrides SOUNDTAP_STATUS_BIND)")
	playCmd.Flags().BoolVar(&preloadFlag, "preload", true, "preload the next track near the end of the current one")
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func qualityFor(name string) content.Quality {
	switch name {
	case "low":
		return content.QualityLow
	case "high":
		return content.QualityHigh
	default:
		return content.QualityNormal
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("soundtap starting")

	var pl *playlist.Playlist
	var err error
	switch {
	case playlistPath != "":
		pl, err = playlist.Load(playlistPath)
		if err != nil {
			return err
		}
	case len(args) > 0:
		pl = playlist.FromIDs(args)
	default:
		return fmt.Errorf("nothing to play: pass --playlist or content identifiers")
	}

	ctx := context.Background()

	tracerProvider, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "soundtap",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	db, err := ledger.Connect(cfg)
	if err != nil {
		return fmt.Errorf("open playback ledger: %w", err)
	}
	defer func() {
		if err := ledger.Close(db); err != nil {
			logger.Error().Err(err).Msg("close playback ledger")
		}
	}()
	recorder := ledger.NewRecorder(db, logger)

	fileLoader := content.NewFileLoader(cfg.MediaRoot, logger)
	var s3Loader *content.S3Loader
	if cfg.S3Bucket != "" || cfg.S3Endpoint != "" {
		s3Loader, err = content.NewS3Loader(ctx, content.S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
		}, logger)
		if err != nil {
			return fmt.Errorf("initialize object storage: %w", err)
		}
	}
	loaderFor := func(id content.ID) content.Loader {
		if s3Loader != nil && strings.HasPrefix(string(id), "s3://") {
			return s3Loader
		}
		return fileLoader
	}

	mix := mixer.New(outputRate, outputChannels, logger)
	device, err := mixer.NewDevice(outputRate, outputChannels, mix, logger)
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	defer func() {
		if err := device.Close(); err != nil {
			logger.Error().Err(err).Msg("close audio device")
		}
	}()

	preload := cfg.PreloadEnabled
	if cmd.Flags().Changed("preload") {
		preload = preloadFlag
	}
	playerCfg := player.Config{
		Quality:        qualityFor(cfg.Quality),
		PreloadEnabled: preload,
		Crossfade: crossfade.Config{
			Enabled:  cfg.CrossfadeEnabled,
			Duration: cfg.CrossfadeDuration,
		},
	}

	metrics := telemetry.NewMetrics()
	bus := events.NewBus()
	sess := session.New(playerCfg, loaderFor, mix, bus, metrics, recorder, logger)

	bind := cfg.StatusBind
	if statusAddr != "" {
		bind = statusAddr
	}
	if bind != "" {
		srv := server.New(bind, sess, metrics, logger)
		go srv.Start()
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("status server shutdown failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info().Msg("interrupted, stopping playback")
		sess.Stop()
	}()

	if err := sess.Play(pl); err != nil {
		return err
	}

	logger.Info().Msg("playback finished")
	return nil
}
