// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// DefaultStream is the single example entry written when no configuration
// file exists yet.
var DefaultStream = StreamDefinition{
	Name: "example_stream",
	URL:  "rtsp://example.com/stream",
}

// Load reads and validates the stream configuration file at path.
func Load(path string) ([]StreamDefinition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) ([]StreamDefinition, error) {
	var raw struct {
		Streams *[]StreamDefinition `json:"streams"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrConfigInvalid, err)
	}
	if raw.Streams == nil {
		return nil, fmt.Errorf("%w: missing \"streams\" field", ErrConfigInvalid)
	}
	streams := *raw.Streams
	if err := ValidateStreams(streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// ValidateStreams checks that every definition has a usable name and URL and
// that names are unique.
func ValidateStreams(streams []StreamDefinition) error {
	var errs []error
	seen := make(map[string]int, len(streams))
	for i, def := range streams {
		if err := validateName(def.Name); err != nil {
			errs = append(errs, fmt.Errorf("streams[%d]: %w", i, err))
		} else if prev, dup := seen[def.Name]; dup {
			errs = append(errs, fmt.Errorf("streams[%d]: duplicate name %q (first at streams[%d])", i, def.Name, prev))
		} else {
			seen[def.Name] = i
		}
		if err := validateURL(def.URL); err != nil {
			errs = append(errs, fmt.Errorf("streams[%d] (%s): %w", i, def.Name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
	}
	return nil
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("name is empty")
	case name != strings.TrimSpace(name):
		return fmt.Errorf("name %q has surrounding whitespace", name)
	case name == "." || name == "..":
		return fmt.Errorf("name %q is not a valid file name", name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	return nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("url %q has no scheme", raw)
	}
	return nil
}

// WriteDefault writes a configuration file containing DefaultStream. The
// write is atomic so a concurrently running watcher never sees half a file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	data, err := json.MarshalIndent(FileConfig{Streams: []StreamDefinition{DefaultStream}}, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// EnsureFile creates a default configuration file when none exists at path
// and reports ErrConfigMissing in that case. It returns nil when the file is
// already present.
func EnsureFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if err := WriteDefault(path); err != nil {
		return err
	}
	return fmt.Errorf("%w: default written to %s", ErrConfigMissing, path)
}
