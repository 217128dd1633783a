// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"fmt"
	"sync"
)

// State is the supervisor lifecycle state.
type State int

const (
	Initializing State = iota
	RunningPrimary
	RunningFailSafe
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case RunningPrimary:
		return "running-primary"
	case RunningFailSafe:
		return "running-failsafe"
	case ShuttingDown:
		return "shutting-down"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrInvalidTransition is returned for a transition the lifecycle
	// does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrFailSafeExhausted means a scene failed after the one fail-safe
	// recovery was already spent, or the fail-safe scene itself could
	// not be loaded.
	ErrFailSafeExhausted = errors.New("fail-safe scene failed, giving up")

	// ErrNoRootObject means a scene loaded without error but produced
	// no root object: a broken installation, not a recoverable scene
	// failure.
	ErrNoRootObject = errors.New("scene produced no root object")
)

// Machine is the lifecycle state machine. The fail-safe latch is set
// in the same critical section as the transition into RunningFailSafe
// and is never cleared, so the session recovers at most once.
//
// Transitions:
//
//	Initializing    -> RunningPrimary | RunningFailSafe | Terminated
//	RunningPrimary  -> RunningFailSafe | ShuttingDown | Terminated
//	RunningFailSafe -> ShuttingDown | Terminated
//	ShuttingDown    -> Terminated
type Machine struct {
	mu       sync.Mutex
	state    State
	latched  bool
	exitCode int
}

// NewMachine returns a machine in Initializing.
func NewMachine() *Machine {
	return &Machine{}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// FailSafeLatched reports whether the fail-safe recovery was used.
func (m *Machine) FailSafeLatched() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latched
}

// ExitCode returns the process exit code. Meaningful once Terminated.
func (m *Machine) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// EnterPrimary records a successful primary scene load.
func (m *Machine) EnterPrimary() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Initializing {
		return m.invalid(RunningPrimary)
	}
	m.state = RunningPrimary
	return nil
}

// EnterFailSafe spends the fail-safe recovery. Once the latch is set,
// every further call returns ErrFailSafeExhausted.
func (m *Machine) EnterFailSafe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latched {
		return ErrFailSafeExhausted
	}
	if m.state != Initializing && m.state != RunningPrimary {
		return m.invalid(RunningFailSafe)
	}
	m.latched = true
	m.state = RunningFailSafe
	return nil
}

// BeginShutdown starts an orderly shutdown of a running session.
func (m *Machine) BeginShutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != RunningPrimary && m.state != RunningFailSafe {
		return m.invalid(ShuttingDown)
	}
	m.state = ShuttingDown
	return nil
}

// Terminate ends the lifecycle with code. Allowed from any state; the
// first call's code wins.
func (m *Machine) Terminate(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Terminated {
		return
	}
	m.state = Terminated
	m.exitCode = code
}

func (m *Machine) invalid(to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
}
