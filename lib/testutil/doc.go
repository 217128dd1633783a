// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds channel assertions shared by the session's
// tests.
//
// [RequireReceive] and [RequireClosed] bound every channel wait with a
// timeout so a broken test fails with a message instead of hanging the
// suite. [RequireDrained] asserts the opposite: nothing arrives on a
// channel within a short window (used for at-most-once guarantees such
// as the single shutdown event).
//
// Helpers call t.Fatalf on failure; test setup failures are not
// recoverable.
package testutil
