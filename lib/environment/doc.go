// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package environment seeds the process environment with the desktop
// session's defaults before any other component reads it.
//
// [Apply] walks a fixed table ([Defaults]) of XDG search paths, theme
// identifiers, cursor settings, the menu prefix and the desktop name,
// and sets each key only when it is unset or empty. A value exported
// by the operator (a display manager, a wrapper script, a test) always
// wins. Extra defaults from the session configuration file follow the
// same rule and can never replace an entry of the table.
//
// Writes go through the [Env] interface so tests can run against a
// map instead of the real process environment.
package environment
