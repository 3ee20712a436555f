// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"slices"
	"time"
)

// StreamDefinition is one configured network video stream. Name is unique
// within a snapshot and doubles as the output filename stem.
type StreamDefinition struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FileConfig is the on-disk shape of the stream configuration file.
type FileConfig struct {
	Streams []StreamDefinition `json:"streams"`
}

// Snapshot is one immutable, versioned copy of the full stream list.
// The stream slice is never exposed directly; Streams returns a copy.
type Snapshot struct {
	Version  uint64
	LoadedAt time.Time
	streams  []StreamDefinition
}

// NewSnapshot builds an unpublished snapshot from streams. The Version is
// assigned by Store.Publish.
func NewSnapshot(streams []StreamDefinition) Snapshot {
	return Snapshot{
		LoadedAt: time.Now(),
		streams:  slices.Clone(streams),
	}
}

// Streams returns a copy of the stream definitions in configuration order.
func (s *Snapshot) Streams() []StreamDefinition {
	if s == nil {
		return nil
	}
	return slices.Clone(s.streams)
}

// Len returns the number of configured streams.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.streams)
}

// Names returns the stream names in configuration order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.streams))
	for _, def := range s.streams {
		names = append(names, def.Name)
	}
	return names
}
