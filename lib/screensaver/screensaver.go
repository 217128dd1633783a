// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package screensaver implements the session's idle and screensaver
// inhibition service (org.freedesktop.ScreenSaver).
//
// Applications that must keep the screen awake (video players,
// presentations) call Inhibit and receive a cookie; the screensaver
// does not activate while any cookie is outstanding. Without
// inhibitors, the screensaver activates once the session has been idle
// for the configured timeout. User activity resets the idle timer and
// deactivates the screensaver.
package screensaver

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hawaii-desktop/hawaii-session/lib/clock"
)

// ErrUnknownCookie is returned by UnInhibit for a cookie that is not
// outstanding.
var ErrUnknownCookie = errors.New("unknown inhibition cookie")

// Inhibitor is an outstanding inhibition.
type Inhibitor struct {
	Cookie      uint32
	Application string
	Reason      string
	Since       time.Time
}

// ScreenSaver tracks idle state and inhibitors.
type ScreenSaver struct {
	mu sync.Mutex

	clock       clock.Clock
	idleTimeout time.Duration
	logger      *slog.Logger

	active       bool
	activeSince  time.Time
	lastActivity time.Time
	inhibitors   map[uint32]Inhibitor
	nextCookie   uint32
	idleTimer    *clock.Timer
	closed       bool

	// timerGeneration identifies the armed timer. A callback from an
	// older timer that already fired is ignored.
	timerGeneration uint64

	onActiveChanged func(active bool)
}

// New creates a screensaver. An idleTimeout of zero disables automatic
// activation; SetActive still works.
func New(clk clock.Clock, idleTimeout time.Duration, logger *slog.Logger) *ScreenSaver {
	if logger == nil {
		logger = slog.Default()
	}
	saver := &ScreenSaver{
		clock:        clk,
		idleTimeout:  idleTimeout,
		logger:       logger,
		lastActivity: clk.Now(),
		inhibitors:   make(map[uint32]Inhibitor),
	}
	saver.mu.Lock()
	saver.armLocked()
	saver.mu.Unlock()
	return saver
}

// OnActiveChanged installs the callback invoked (outside any lock)
// whenever the active state flips.
func (s *ScreenSaver) OnActiveChanged(callback func(active bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onActiveChanged = callback
}

// Inhibit registers an inhibitor and returns its cookie. Cookies start
// at 1 and are never reused within a session.
func (s *ScreenSaver) Inhibit(application, reason string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextCookie++
	cookie := s.nextCookie
	s.inhibitors[cookie] = Inhibitor{
		Cookie:      cookie,
		Application: application,
		Reason:      reason,
		Since:       s.clock.Now(),
	}
	s.logger.Info("screensaver inhibited",
		"application", application,
		"reason", reason,
		"cookie", cookie,
	)
	return cookie
}

// UnInhibit removes the inhibitor identified by cookie.
func (s *ScreenSaver) UnInhibit(cookie uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inhibitor, ok := s.inhibitors[cookie]
	if !ok {
		return fmt.Errorf("cookie %d: %w", cookie, ErrUnknownCookie)
	}
	delete(s.inhibitors, cookie)
	s.logger.Info("screensaver inhibition released",
		"application", inhibitor.Application,
		"cookie", cookie,
	)
	return nil
}

// Inhibitors returns the outstanding inhibitors ordered by cookie.
func (s *ScreenSaver) Inhibitors() []Inhibitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Inhibitor, 0, len(s.inhibitors))
	for _, inhibitor := range s.inhibitors {
		result = append(result, inhibitor)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Cookie < result[j].Cookie })
	return result
}

// Inhibited reports whether any inhibitor is outstanding.
func (s *ScreenSaver) Inhibited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inhibitors) > 0
}

// Active reports whether the screensaver is active.
func (s *ScreenSaver) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive activates or deactivates the screensaver on request.
// Activation is refused while inhibited. Returns whether the requested
// state is now in effect.
func (s *ScreenSaver) SetActive(active bool) bool {
	s.mu.Lock()
	if active && len(s.inhibitors) > 0 {
		s.mu.Unlock()
		return false
	}
	changed := s.setActiveLocked(active)
	if !active {
		s.lastActivity = s.clock.Now()
		s.armLocked()
	}
	callback := s.onActiveChanged
	s.mu.Unlock()

	if changed && callback != nil {
		callback(active)
	}
	return true
}

// ActiveTime returns how long the screensaver has been active, or zero.
func (s *ScreenSaver) ActiveTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return 0
	}
	return s.clock.Now().Sub(s.activeSince)
}

// IdleTime returns the time since the last user activity.
func (s *ScreenSaver) IdleTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Now().Sub(s.lastActivity)
}

// SimulateUserActivity records activity: the idle timer restarts and
// an active screensaver is deactivated.
func (s *ScreenSaver) SimulateUserActivity() {
	s.mu.Lock()
	s.lastActivity = s.clock.Now()
	changed := s.setActiveLocked(false)
	s.armLocked()
	callback := s.onActiveChanged
	s.mu.Unlock()

	if changed && callback != nil {
		callback(false)
	}
}

// Close stops the idle timer.
func (s *ScreenSaver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *ScreenSaver) setActiveLocked(active bool) bool {
	if s.active == active {
		return false
	}
	s.active = active
	if active {
		s.activeSince = s.clock.Now()
	}
	return true
}

func (s *ScreenSaver) armLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.timerGeneration++
	if s.idleTimeout <= 0 || s.closed {
		return
	}
	generation := s.timerGeneration
	s.idleTimer = s.clock.AfterFunc(s.idleTimeout, func() { s.idleExpired(generation) })
}

func (s *ScreenSaver) idleExpired(generation uint64) {
	s.mu.Lock()
	if generation != s.timerGeneration || s.closed || s.active {
		s.mu.Unlock()
		return
	}
	if len(s.inhibitors) > 0 {
		// Check again after another full timeout.
		s.armLocked()
		s.mu.Unlock()
		return
	}
	s.idleTimer = nil
	s.setActiveLocked(true)
	callback := s.onActiveChanged
	s.mu.Unlock()

	s.logger.Info("screensaver activated after idle timeout", "idle_timeout", s.idleTimeout.String())
	if callback != nil {
		callback(true)
	}
}
