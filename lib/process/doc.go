// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handler. Fatal
// reports an error from run() as a single "error: ..." line on stderr,
// where the structured logger may not be initialized yet, and exits
// with the code the error carries (1 unless it says otherwise).
package process
