// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging constructs the session's structured logger.
//
// When the output is a terminal (a developer running the session
// nested from a shell), records use slog.TextHandler for readability.
// Otherwise (the display manager redirecting to the journal or a
// log file), records use slog.JSONHandler so they can be parsed.
//
// Components receive the *slog.Logger explicitly and scope it with
// With(). main also installs the logger as the slog default, which is
// what components given a nil logger fall back to.
package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// New returns a logger writing to file at level.
func New(file *os.File, level slog.Level) *slog.Logger {
	return newLogger(file, term.IsTerminal(int(file.Fd())), level)
}

func newLogger(w io.Writer, terminal bool, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if terminal {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}

// Level returns slog.LevelDebug when debug is set, slog.LevelInfo
// otherwise.
func Level(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
