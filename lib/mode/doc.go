// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package mode decides how the session comes up from the operator's
// command-line intent.
//
// [Resolve] is a pure function: everything it needs (parsed flags, the
// session bus address, the display platform name, whether this is a
// development configuration) arrives in a [Request]. It returns either
// a [Mode] that satisfies [Mode.Validate] or a *[ConfigError] wrapping
// exactly one of the Err* sentinels, never both and never neither.
//
// The rules are checked in a fixed order so the reported error is
// stable: a missing session bus first, then the nested-mode
// prerequisites (Wayland platform, socket name, no fake screen), then
// the custom scene restrictions.
package mode
