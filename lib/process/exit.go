// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry a specific exit code.
type exitCoder interface {
	ExitCode() int
}

// ExitCode returns the exit code for err: the code carried by the
// first error in its chain implementing ExitCode() int, otherwise 1.
// A nil error is 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Report writes "error: err" to w.
func Report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

// Fatal writes "error: err" to stderr and exits with ExitCode(err).
// Use it in main() for errors from run() where the structured logger
// may not be initialized.
func Fatal(err error) {
	Report(os.Stderr, err)
	os.Exit(ExitCode(err))
}
