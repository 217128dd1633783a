// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package mode

import "errors"

// Sentinel kinds wrapped by ConfigError. Test with errors.Is.
var (
	ErrNoIpcTransport                        = errors.New("no D-Bus session bus available")
	ErrNestedRequiresWaylandPlatform         = errors.New("nested mode only makes sense when running on Wayland")
	ErrNestedRequiresSocketName              = errors.New("nested mode requires a socket name")
	ErrNestedIncompatibleWithFakeScreen      = errors.New("fake screen configuration cannot be used when nested")
	ErrNestedIncompatibleWithCustomScene     = errors.New("a custom scene cannot be loaded when nested")
	ErrCustomSceneRequiresDevelopment        = errors.New("--qml is only available in development configurations")
	ErrCustomSceneIncompatibleWithFakeScreen = errors.New("a custom scene cannot be combined with a fake screen configuration")
)

// ConfigError is a user-facing mode validation failure. It is printed
// once and the process exits with status 1; there is no retry.
type ConfigError struct {
	// Kind is one of the Err* sentinels.
	Kind error

	// Hint tells the operator how to fix the invocation. May be empty.
	Hint string
}

func (e *ConfigError) Error() string {
	if e.Hint == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + "; " + e.Hint
}

func (e *ConfigError) Unwrap() error { return e.Kind }
