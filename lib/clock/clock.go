// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time operations the session uses so
// timers can be driven deterministically in tests.
//
// Production code holds a [Clock] field set to [Real]. Tests use
// [Fake], whose time only moves when Advance is called:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	saver := screensaver.New(fake, 10*time.Minute, logger)
//	fake.Advance(10 * time.Minute) // idle timer fires synchronously
package clock

import "time"

// Clock is the time source.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time

	// AfterFunc calls f once d has elapsed. The Timer cancels it.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer cancels a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop prevents the call from happening. Returns false if it already
// happened or was already stopped.
func (t *Timer) Stop() bool { return t.stop() }

// Real returns the wall clock.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{stop: timer.Stop}
}
