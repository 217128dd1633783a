// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Hawaii-session starts and supervises a Hawaii desktop session. It
// seeds the session environment, resolves the session mode from the
// command line, claims the session's D-Bus names, and runs the shell
// scene in a compositor host process. When the shell scene fails, the
// session falls back to a minimal error scene once; a second failure
// ends the session with exit status 1.
//
// The process must run inside a D-Bus session (dbus-run-session or
// dbus-launch). Use --nested with --wayland-socket-name to run inside
// another Wayland compositor.
package main
