/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mixer

import (
	"fmt"
	"io"

	oto "github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

// Device plays a pull-based S16LE stream on the system audio output.
type Device struct {
	player *oto.Player
	logger zerolog.Logger
}

// NewDevice opens the default audio device and starts pulling from src.
func NewDevice(rate, channels int, src io.Reader, logger zerolog.Logger) (*Device, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(src)
	player.Play()

	logger.Info().Int("rate", rate).Int("channels", channels).Msg("audio device ready")
	return &Device{player: player, logger: logger}, nil
}

// Close stops playback and releases the device player.
func (d *Device) Close() error {
	return d.player.Close()
}
