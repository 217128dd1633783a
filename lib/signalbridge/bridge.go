// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package signalbridge turns operating system termination signals into
// a single in-process shutdown event.
//
// The bridge never does shutdown work itself. A listener goroutine
// receives signals from os/signal and deposits at most one [Event] on
// the channel returned by [Bridge.Events]; the session's control loop
// consumes it and performs the shutdown on its own goroutine. Signals
// that arrive after the first are logged and dropped, so shutdown
// starts exactly once however impatient the operator is.
package signalbridge

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultSignals are the signals that end a session.
var DefaultSignals = []os.Signal{unix.SIGINT, unix.SIGTERM}

// Event reports that a watched signal arrived.
type Event struct {
	Signal os.Signal
}

// Bridge delivers watched signals as Events.
type Bridge struct {
	incoming chan os.Signal
	events   chan Event
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// Watch starts listening for signals (DefaultSignals when none are
// given). The listener exits when ctx is cancelled or Stop is called.
func Watch(ctx context.Context, logger *slog.Logger, signals ...os.Signal) *Bridge {
	if len(signals) == 0 {
		signals = DefaultSignals
	}
	if logger == nil {
		logger = slog.Default()
	}

	bridge := &Bridge{
		incoming: make(chan os.Signal, 1),
		events:   make(chan Event, 1),
		done:     make(chan struct{}),
		logger:   logger,
	}
	signal.Notify(bridge.incoming, signals...)

	go bridge.listen(ctx)
	return bridge
}

// Events returns the channel carrying the shutdown event. At most one
// Event is ever sent.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Stop unregisters the signal handlers and ends the listener. Safe to
// call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		signal.Stop(b.incoming)
		close(b.done)
	})
}

func (b *Bridge) listen(ctx context.Context) {
	delivered := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case received := <-b.incoming:
			if delivered {
				b.logger.Info("signal ignored, shutdown already requested",
					"signal", received.String(),
				)
				continue
			}
			delivered = true
			b.logger.Info("shutdown requested by signal", "signal", received.String())
			// Capacity 1 and a single send: never blocks.
			b.events <- Event{Signal: received}
		}
	}
}
