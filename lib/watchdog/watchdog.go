// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog records that a session fell back to the fail-safe
// scene, so the next session can report it.
//
// When the supervisor enters fail-safe it writes a [Marker] naming the
// scene that failed and why. On the next start the supervisor calls
// [Check]: a recent marker means the previous session ended in
// fail-safe, which is logged before the marker is cleared. Markers older
// than the caller's maximum age are ignored, so a marker left behind
// long ago does not produce a misleading warning.
//
// The marker is written atomically (write to temporary file, fsync,
// rename into place, fsync parent directory) so readers never see a
// partial file. It is CBOR encoded through lib/codec.
package watchdog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hawaii-desktop/hawaii-session/lib/codec"
)

// FileName is the marker's name inside the runtime directory.
const FileName = "failsafe.cbor"

// DefaultMaxAge is how long a marker stays relevant.
const DefaultMaxAge = 24 * time.Hour

// Marker records a fail-safe transition.
type Marker struct {
	// Scene is the URL of the scene that failed.
	Scene string `cbor:"scene"`

	// Reason is the failure message.
	Reason string `cbor:"reason"`

	// Timestamp is when the session entered fail-safe.
	Timestamp time.Time `cbor:"timestamp"`
}

// Path returns the marker path inside runtimeDir.
func Path(runtimeDir string) string {
	return filepath.Join(runtimeDir, FileName)
}

// Write atomically writes marker to path, creating the parent
// directory (mode 0700) if needed. The file is created with mode 0600.
func Write(path string, marker Marker) error {
	data, err := codec.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encoding fail-safe marker: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary marker file: %w", err)
	}

	// Write, sync, close, in that order. On any failure the temporary
	// file is removed.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary marker file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary marker file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary marker file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming marker file into place: %w", err)
	}

	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}

// Read reads and decodes the marker at path. When the file does not
// exist, the returned error wraps os.ErrNotExist.
func Read(path string) (Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, err
	}

	var marker Marker
	if err := codec.Unmarshal(data, &marker); err != nil {
		return Marker{}, fmt.Errorf("decoding fail-safe marker %s: %w", path, err)
	}
	return marker, nil
}

// Check returns the marker at path and true when it exists and was
// written within maxAge before now. A missing or stale marker yields
// false and no error. Any other error (permission denied, corrupt
// file) is returned so callers can tell "no marker" from "unreadable
// marker".
func Check(path string, maxAge time.Duration, now time.Time) (Marker, bool, error) {
	marker, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Marker{}, false, nil
		}
		return Marker{}, false, err
	}

	if now.Sub(marker.Timestamp) > maxAge {
		return Marker{}, false, nil
	}
	return marker, true, nil
}

// Clear removes the marker. Returns nil when it does not exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing fail-safe marker: %w", err)
	}
	return nil
}
