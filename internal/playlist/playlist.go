/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist reads YAML play queues.
package playlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soundtap/soundtap/internal/content"
)

// Item is one queued piece of content. Metadata carries string-keyed
// overrides handed to the crossfade engine (see the crossfade package for
// the recognized keys).
type Item struct {
	ID       content.ID        `yaml:"id"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// Playlist is an ordered play queue.
type Playlist struct {
	Name  string `yaml:"name,omitempty"`
	Items []Item `yaml:"items"`
}

// Load parses a playlist file.
func Load(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}

	var pl Playlist
	if err := yaml.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("parse playlist %s: %w", path, err)
	}
	if len(pl.Items) == 0 {
		return nil, fmt.Errorf("playlist %s has no items", path)
	}
	for i, item := range pl.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("playlist %s: item %d has no id", path, i)
		}
	}
	return &pl, nil
}

// FromIDs builds an ad-hoc playlist from bare content identifiers.
func FromIDs(ids []string) *Playlist {
	pl := &Playlist{}
	for _, id := range ids {
		pl.Items = append(pl.Items, Item{ID: content.ID(id)})
	}
	return pl
}
