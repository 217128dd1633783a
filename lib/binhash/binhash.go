// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 256-bit BLAKE3 digest.
type Digest [32]byte

// HashFile computes the BLAKE3 digest of the file at path, streaming it
// through the hasher with constant memory.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// Executable returns the digest of the running binary.
func Executable() (Digest, error) {
	path, err := os.Executable()
	if err != nil {
		return Digest{}, fmt.Errorf("locating executable: %w", err)
	}
	return HashFile(path)
}

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for log lines.
func (d Digest) Short() string {
	return d.String()[:12]
}
