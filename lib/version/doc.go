// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information.
//
// Four package-level variables are injected at build time via
// -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/hawaii-desktop/hawaii-session/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// They default to "unknown" / "0.9.0-dev" in development builds and
// test runs. [Info] is the --version string, [Full] adds the Go
// toolchain and platform, [Commit] is used in the startup banner.
package version
