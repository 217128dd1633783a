// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ProcessEnv is the part of the process environment the session reads
// at startup.
type ProcessEnv struct {
	// BusAddress is the session bus address. Startup fails without it.
	BusAddress string `env:"DBUS_SESSION_BUS_ADDRESS"`

	// Platform is the Qt platform plugin requested by the caller.
	Platform string `env:"QT_QPA_PLATFORM"`

	// WaylandDisplay is set when running inside another Wayland
	// compositor.
	WaylandDisplay string `env:"WAYLAND_DISPLAY"`

	// Display is set when running inside an X11 session.
	Display string `env:"DISPLAY"`

	// ConfigPath is used when --config is not given.
	ConfigPath string `env:"HAWAII_SESSION_CONFIG"`

	RuntimeDir string `env:"XDG_RUNTIME_DIR"`
}

// ParseProcessEnv reads ProcessEnv from the process environment.
func ParseProcessEnv() (ProcessEnv, error) {
	var processEnv ProcessEnv
	if err := env.Parse(&processEnv); err != nil {
		return ProcessEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return processEnv, nil
}

// Get returns the value of one of the variables ProcessEnv holds, by
// name, or "" for any other name.
func (e ProcessEnv) Get(key string) string {
	switch key {
	case "DBUS_SESSION_BUS_ADDRESS":
		return e.BusAddress
	case "QT_QPA_PLATFORM":
		return e.Platform
	case "WAYLAND_DISPLAY":
		return e.WaylandDisplay
	case "DISPLAY":
		return e.Display
	case "HAWAII_SESSION_CONFIG":
		return e.ConfigPath
	case "XDG_RUNTIME_DIR":
		return e.RuntimeDir
	default:
		return ""
	}
}
