// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package scene loads the shell scene and reports what it produced.
//
// A [Loader] turns a [Source] into an [Outcome]. The outcome is a
// tagged result: the scene failed, loaded without a compositor, loaded
// backed by a compositor runtime (which exposes its Wayland socket
// name), or loaded but produced no root object at all. Callers switch
// on [Outcome.Kind] and never inspect the runtime's concrete type.
//
// After a successful load the scene keeps running; later failures and
// clean exits arrive on [Loader.Events].
package scene

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
)

// Source identifies a scene.
type Source struct {
	// Name is a short label used in logs ("primary", "failsafe",
	// "custom").
	Name string

	// URL is what the compositor host is asked to load
	// ("qrc:/Compositor.qml", "file:///home/user/Shell.qml").
	URL string
}

func (s Source) String() string { return s.Name + " (" + s.URL + ")" }

// FromFile returns the source for a scene file on disk. Relative paths
// are resolved against the working directory.
func FromFile(path string) (Source, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return Source{}, fmt.Errorf("resolving scene path %q: %w", path, err)
	}
	location := url.URL{Scheme: "file", Path: absolute}
	return Source{Name: "custom", URL: location.String()}, nil
}

// Kind tags an Outcome.
type Kind int

const (
	// Failed means the scene could not be loaded. Outcome.Err says why.
	Failed Kind = iota
	// Plain is a loaded scene with no compositor runtime behind it.
	Plain
	// Compositor is a loaded scene backed by a compositor runtime.
	Compositor
	// Empty means loading completed without error but produced no
	// root object.
	Empty
)

func (k Kind) String() string {
	switch k {
	case Failed:
		return "failed"
	case Plain:
		return "plain"
	case Compositor:
		return "compositor"
	case Empty:
		return "empty"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Runtime is the compositor runtime behind a Compositor outcome.
type Runtime interface {
	// SocketName is the Wayland socket clients connect to.
	SocketName() string
}

// Outcome is the result of a load.
type Outcome struct {
	Kind Kind

	// Runtime is set only for Compositor.
	Runtime Runtime

	// Err is set only for Failed.
	Err error
}

// FailedOutcome returns a Failed outcome carrying err.
func FailedOutcome(err error) Outcome { return Outcome{Kind: Failed, Err: err} }

// PlainOutcome returns a Plain outcome.
func PlainOutcome() Outcome { return Outcome{Kind: Plain} }

// CompositorOutcome returns a Compositor outcome for runtime.
func CompositorOutcome(runtime Runtime) Outcome {
	return Outcome{Kind: Compositor, Runtime: runtime}
}

// EmptyOutcome returns an Empty outcome.
func EmptyOutcome() Outcome { return Outcome{Kind: Empty} }

// SocketRuntime is a Runtime with a fixed socket name.
type SocketRuntime string

func (s SocketRuntime) SocketName() string { return string(s) }

// EventKind tags an Event.
type EventKind int

const (
	// EventFailed reports that a running scene failed.
	EventFailed EventKind = iota
	// EventQuit reports that a running scene ended cleanly.
	EventQuit
)

func (k EventKind) String() string {
	switch k {
	case EventFailed:
		return "failed"
	case EventQuit:
		return "quit"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event reports a change in a running scene.
type Event struct {
	Kind   EventKind
	Source Source
	Err    error
}

// Loader loads scenes. Load blocks until the outcome is known; loading
// a new scene replaces the previous one. A Loader is used from a
// single goroutine.
type Loader interface {
	Load(ctx context.Context, source Source) Outcome

	// Events delivers at most one event per loaded scene.
	Events() <-chan Event

	// Close stops the running scene. No events are delivered after
	// Close returns.
	Close() error
}
