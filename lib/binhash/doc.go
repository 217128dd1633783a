// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 content digests of files.
//
// The session logs the digest of its own binary in the startup banner
// and the digest of a custom shell scene when one is loaded, so a bug
// report pins down exactly which build and which scene file were
// running.
//
//   - [HashFile] streams a file through BLAKE3 with constant memory
//   - [Executable] hashes the running binary
//   - [Digest.String] is the canonical hex form
//
// This package has no dependencies on other session packages.
package binhash
