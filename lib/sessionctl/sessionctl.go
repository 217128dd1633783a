// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionctl is the session control service: the bus object
// through which clients inspect the running session and ask it to end.
//
// The supervisor publishes its state here with Update. A Logout call
// from any client closes the channel returned by LogoutRequested; the
// supervisor treats that like a termination signal.
package sessionctl

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hawaii-desktop/hawaii-session/lib/mode"
)

// Info is a snapshot of the session as seen by clients.
type Info struct {
	ID         string
	Mode       string
	State      string
	SocketName string
	FailSafe   bool
}

// Control holds the published session state.
type Control struct {
	mu     sync.Mutex
	info   Info
	logout chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// New creates the control service for a session running in m. Each
// session gets a fresh random identifier.
func New(m mode.Mode, logger *slog.Logger) *Control {
	if logger == nil {
		logger = slog.Default()
	}
	return &Control{
		info: Info{
			ID:         uuid.NewString(),
			Mode:       m.Kind.String(),
			SocketName: m.SocketName,
		},
		logout: make(chan struct{}),
		logger: logger,
	}
}

// Update publishes the supervisor state.
func (c *Control) Update(state string, failSafe bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.State = state
	c.info.FailSafe = failSafe
}

// SetSocketName publishes the Wayland socket the compositor created.
func (c *Control) SetSocketName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.SocketName = name
}

// Info returns the current snapshot.
func (c *Control) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Logout requests an orderly end of the session. Repeated requests are
// no-ops.
func (c *Control) Logout() {
	c.once.Do(func() {
		c.logger.Info("logout requested", "session_id", c.Info().ID)
		close(c.logout)
	})
}

// LogoutRequested is closed by the first Logout call.
func (c *Control) LogoutRequested() <-chan struct{} {
	return c.logout
}
