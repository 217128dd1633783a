// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the session.
//
// The configuration file is named by the --config flag or, failing
// that, the HAWAII_SESSION_CONFIG environment variable. Unlike most
// daemons' configuration, it is optional: a desktop session must start
// on a freshly installed system, so with no file [Default] applies.
// There is no ~/.config discovery.
//
// The file supports environment-specific sections (development,
// production) that override base values when [Config].Environment
// matches. Only development configurations accept a custom shell scene
// on the command line.
//
// Variable expansion is performed on paths, scene URLs and environment
// defaults after loading: ${VAR} and ${VAR:-default} patterns are
// expanded from the process environment.
//
// [ParseProcessEnv] reads the startup environment variables (bus
// address, platform hints, config path) into a typed [ProcessEnv].
//
// This package depends on no other session packages.
package config
