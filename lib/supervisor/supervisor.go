// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor owns the session lifecycle.
//
// [Supervisor.Start] brings the session up in a fixed order: seed the
// environment, resolve the mode, watch termination signals, connect to
// the session bus, register the session services, then load the
// primary scene. [Supervisor.Run]
// is the control loop: it consumes termination signals, logout
// requests and scene events on a single goroutine, which is the only
// goroutine that changes the lifecycle [State].
//
// Scene failure is recovered exactly once. The first failure (at load
// or while running) switches to the fail-safe scene; any failure after
// that ends the session with exit code 1. A scene that loads but
// produces no root object is a broken installation and ends the session
// immediately, without trying the fail-safe scene.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hawaii-desktop/hawaii-session/lib/binhash"
	"github.com/hawaii-desktop/hawaii-session/lib/bus"
	"github.com/hawaii-desktop/hawaii-session/lib/clock"
	"github.com/hawaii-desktop/hawaii-session/lib/config"
	"github.com/hawaii-desktop/hawaii-session/lib/environment"
	"github.com/hawaii-desktop/hawaii-session/lib/launcher"
	"github.com/hawaii-desktop/hawaii-session/lib/mode"
	"github.com/hawaii-desktop/hawaii-session/lib/registrar"
	"github.com/hawaii-desktop/hawaii-session/lib/scene"
	"github.com/hawaii-desktop/hawaii-session/lib/screenconfig"
	"github.com/hawaii-desktop/hawaii-session/lib/screensaver"
	"github.com/hawaii-desktop/hawaii-session/lib/sessionctl"
	"github.com/hawaii-desktop/hawaii-session/lib/signalbridge"
	"github.com/hawaii-desktop/hawaii-session/lib/watchdog"
)

// Options are the supervisor's collaborators.
type Options struct {
	// Config is the validated session configuration.
	Config *config.Config

	// Request is the command-line intent to resolve into a mode.
	Request mode.Request

	// Env receives the environment defaults.
	Env environment.Env

	// WatchSignals installs the shutdown signal handler and returns its
	// events and a function that removes it. Start calls it once the
	// mode is resolved. Nil watches signalbridge.DefaultSignals.
	WatchSignals func(ctx context.Context) (<-chan signalbridge.Event, func())

	// Connect opens the session bus at address.
	Connect func(address string) (bus.Conn, error)

	// NewLoader creates the scene loader for the resolved mode.
	NewLoader func(mode.Mode) scene.Loader

	Clock  clock.Clock
	Logger *slog.Logger
}

// Supervisor runs one session.
type Supervisor struct {
	options Options
	config  *config.Config
	clock   clock.Clock
	logger  *slog.Logger
	machine *Machine

	mode         mode.Mode
	primary      scene.Source
	failSafe     scene.Source
	current      scene.Source
	markerPath   string
	signals      <-chan signalbridge.Event
	stopSignals  func()
	conn         bus.Conn
	registration *registrar.Registration
	launcher     *launcher.Launcher
	screensaver  *screensaver.ScreenSaver
	control      *sessionctl.Control
	loader       scene.Loader
}

// New creates a supervisor in Initializing.
func New(options Options) *Supervisor {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	if options.Env == nil {
		options.Env = environment.Process()
	}
	if options.WatchSignals == nil {
		options.WatchSignals = func(ctx context.Context) (<-chan signalbridge.Event, func()) {
			bridge := signalbridge.Watch(ctx, logger, signalbridge.DefaultSignals...)
			return bridge.Events(), bridge.Stop
		}
	}
	return &Supervisor{
		options: options,
		config:  options.Config,
		clock:   clk,
		logger:  logger,
		machine: NewMachine(),
	}
}

// Machine returns the lifecycle state machine.
func (s *Supervisor) Machine() *Machine { return s.machine }

// Mode returns the resolved mode. Valid after Start resolved it.
func (s *Supervisor) Mode() mode.Mode { return s.mode }

// Launcher returns the process launcher service, or nil before
// registration.
func (s *Supervisor) Launcher() *launcher.Launcher { return s.launcher }

// ScreenSaver returns the screensaver service, or nil before
// registration.
func (s *Supervisor) ScreenSaver() *screensaver.ScreenSaver { return s.screensaver }

// Control returns the session control service, or nil before
// registration.
func (s *Supervisor) Control() *sessionctl.Control { return s.control }

// Start brings the session up. On success the state is RunningPrimary
// or RunningFailSafe. On failure everything acquired is released, the
// state is Terminated with exit code 1, and the error says why.
func (s *Supervisor) Start(ctx context.Context) error {
	assigned := environment.Apply(s.options.Env, s.config.EnvironmentDefaults, s.logger)
	s.logger.Debug("environment defaults applied", "keys", assigned)

	resolved, err := mode.Resolve(s.options.Request)
	if err != nil {
		return s.fail(err)
	}
	s.mode = resolved
	s.logger = s.logger.With("mode", resolved.Kind.String())
	s.logger.Info("session mode resolved", "socket_name", resolved.SocketName)

	s.signals, s.stopSignals = s.options.WatchSignals(ctx)

	if err := s.prepareScenes(); err != nil {
		return s.fail(err)
	}
	s.checkPreviousFailSafe()

	conn, err := s.options.Connect(s.options.Request.BusAddress)
	if err != nil {
		return s.fail(fmt.Errorf("connecting to the session bus: %w", err))
	}
	s.conn = conn

	if err := s.registerServices(); err != nil {
		return s.fail(err)
	}

	s.loader = s.options.NewLoader(resolved)
	s.current = s.primary
	outcome := s.loader.Load(ctx, s.primary)
	switch outcome.Kind {
	case scene.Compositor, scene.Plain:
		if err := s.machine.EnterPrimary(); err != nil {
			return s.fail(err)
		}
		s.bindRuntime(outcome)
		s.logger.Info("primary scene loaded", "scene", s.primary.URL, "outcome", outcome.Kind.String())
	case scene.Empty:
		return s.fail(fmt.Errorf("loading %s: %w", s.primary, ErrNoRootObject))
	default:
		if err := s.enterFailSafe(ctx, s.primary, outcome.Err); err != nil {
			return s.fail(err)
		}
	}

	s.publish()
	return nil
}

// Run is the control loop. It returns nil after an orderly shutdown
// and an error when the session ends abnormally; in both cases the
// state is Terminated and Machine().ExitCode() is the process exit
// code.
func (s *Supervisor) Run(ctx context.Context) error {
	state := s.machine.State()
	if state != RunningPrimary && state != RunningFailSafe {
		return fmt.Errorf("%w: Run called in state %s", ErrInvalidTransition, state)
	}

	for {
		select {
		case event := <-s.signals:
			s.logger.Info("shutting down on signal", "signal", event.Signal.String())
			return s.shutdown()

		case <-s.control.LogoutRequested():
			s.logger.Info("shutting down on logout request")
			return s.shutdown()

		case event := <-s.loader.Events():
			if event.Source != s.current {
				s.logger.Debug("ignoring event from a replaced scene",
					"scene", event.Source.URL,
					"event", event.Kind.String(),
				)
				continue
			}
			switch event.Kind {
			case scene.EventQuit:
				s.logger.Info("scene quit, shutting down", "scene", event.Source.URL)
				return s.shutdown()
			case scene.EventFailed:
				if err := s.enterFailSafe(ctx, event.Source, event.Err); err != nil {
					return s.fail(err)
				}
				s.publish()
			}

		case <-ctx.Done():
			s.logger.Info("shutting down, context cancelled")
			return s.shutdown()
		}
	}
}

// prepareScenes validates the mode's inputs and picks the scene
// sources.
func (s *Supervisor) prepareScenes() error {
	s.primary = scene.Source{Name: "primary", URL: s.config.Scene.Primary}
	s.failSafe = scene.Source{Name: "failsafe", URL: s.config.Scene.FailSafe}
	s.markerPath = watchdog.Path(s.config.RuntimeDir)

	switch s.mode.Kind {
	case mode.FakeScreen:
		screens, err := screenconfig.ReadFile(s.mode.FakeScreenPath)
		if err != nil {
			return fmt.Errorf("fake screen configuration: %w", err)
		}
		primary, _ := screens.Primary()
		s.logger.Info("fake screen configuration loaded",
			"path", s.mode.FakeScreenPath,
			"outputs", len(screens.Outputs),
			"primary_output", primary.Name,
		)

	case mode.CustomScene:
		source, err := scene.FromFile(s.mode.CustomScenePath)
		if err != nil {
			return err
		}
		s.primary = source
		// A missing or unreadable file is reported by the load itself.
		if digest, err := binhash.HashFile(s.mode.CustomScenePath); err == nil {
			s.logger.Info("custom scene selected", "scene", source.URL, "blake3", digest.String())
		} else {
			s.logger.Warn("custom scene selected but not readable", "scene", source.URL, "error", err)
		}
	}
	return nil
}

// checkPreviousFailSafe reports a recent marker a previous session left
// when it entered fail-safe, and removes any marker.
func (s *Supervisor) checkPreviousFailSafe() {
	marker, found, err := watchdog.Check(s.markerPath, watchdog.DefaultMaxAge, s.clock.Now())
	if err != nil {
		s.logger.Warn("reading fail-safe marker", "path", s.markerPath, "error", err)
	}
	if found {
		s.logger.Warn("previous session entered fail-safe",
			"scene", marker.Scene,
			"reason", marker.Reason,
			"at", marker.Timestamp,
		)
	}
	// Stale and unreadable markers are removed too.
	if err := watchdog.Clear(s.markerPath); err != nil {
		s.logger.Warn("clearing fail-safe marker", "error", err)
	}
}

func (s *Supervisor) registerServices() error {
	idleTimeout, err := s.config.IdleTimeout()
	if err != nil {
		return err
	}

	s.launcher = launcher.New(s.logger.With("service", "launcher"))
	s.screensaver = screensaver.New(s.clock, idleTimeout, s.logger.With("service", "screensaver"))
	s.control = sessionctl.New(s.mode, s.logger.With("service", "sessionctl"))
	s.publish()

	names := s.config.Session
	registration, err := registrar.RegisterAll(s.conn, names.Name, registrar.Services{
		ProcessLauncher: s.launcher.BusObject(names.ProcessLauncher),
		ScreenSaver:     s.screensaver.BusObject(names.ScreenSaver),
		SessionControl:  s.control.BusObject(names.SessionControl),
	}, s.logger)
	if err != nil {
		return err
	}
	s.registration = registration
	s.logger.Info("session services registered", "names", registration.Names())
	s.screensaver.EmitActiveChanges(s.conn)
	return nil
}

// enterFailSafe spends the one recovery and loads the fail-safe scene.
// The latch is set before the load, so a failure of the fail-safe scene
// itself can never trigger another recovery.
func (s *Supervisor) enterFailSafe(ctx context.Context, failed scene.Source, cause error) error {
	if err := s.machine.EnterFailSafe(); err != nil {
		if errors.Is(err, ErrFailSafeExhausted) {
			return fmt.Errorf("%w: %s: %v", ErrFailSafeExhausted, failed, cause)
		}
		return err
	}
	s.logger.Error("scene failed, loading fail-safe scene",
		"scene", failed.URL,
		"error", cause,
		"failsafe", s.failSafe.URL,
	)
	s.publish()

	marker := watchdog.Marker{Scene: failed.URL, Timestamp: s.clock.Now()}
	if cause != nil {
		marker.Reason = cause.Error()
	}
	if err := watchdog.Write(s.markerPath, marker); err != nil {
		s.logger.Warn("writing fail-safe marker", "path", s.markerPath, "error", err)
	}

	s.current = s.failSafe
	outcome := s.loader.Load(ctx, s.failSafe)
	switch outcome.Kind {
	case scene.Compositor, scene.Plain:
		s.bindRuntime(outcome)
		s.logger.Info("fail-safe scene loaded", "scene", s.failSafe.URL)
		return nil
	case scene.Empty:
		return fmt.Errorf("%w: %s: %v", ErrFailSafeExhausted, s.failSafe, ErrNoRootObject)
	default:
		return fmt.Errorf("%w: %s: %v", ErrFailSafeExhausted, s.failSafe, outcome.Err)
	}
}

// bindRuntime hands the compositor's socket to the process launcher.
func (s *Supervisor) bindRuntime(outcome scene.Outcome) {
	if outcome.Kind != scene.Compositor || outcome.Runtime == nil {
		return
	}
	socketName := outcome.Runtime.SocketName()
	if socketName == "" {
		s.logger.Warn("compositor runtime reported no socket name")
		return
	}
	s.launcher.SetWaylandSocketName(socketName)
	s.control.SetSocketName(socketName)
}

// shutdown ends a running session in order and returns nil.
func (s *Supervisor) shutdown() error {
	if err := s.machine.BeginShutdown(); err != nil {
		return s.fail(err)
	}
	s.publish()
	if err := s.teardown(); err != nil {
		s.logger.Warn("shutdown was incomplete", "error", err)
	}
	s.machine.Terminate(0)
	s.publish()
	s.logger.Info("session ended")
	return nil
}

// fail tears everything down, terminates with exit code 1 and returns
// err.
func (s *Supervisor) fail(err error) error {
	if teardownErr := s.teardown(); teardownErr != nil {
		s.logger.Warn("cleanup after failure was incomplete", "error", teardownErr)
	}
	s.machine.Terminate(1)
	s.publish()
	return err
}

// teardown releases whatever Start acquired, newest first. Launched
// clients are left running.
func (s *Supervisor) teardown() error {
	var errs []error
	if s.loader != nil {
		if err := s.loader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing scene loader: %w", err))
		}
		s.loader = nil
	}
	if s.registration != nil {
		if err := s.registration.Release(); err != nil {
			errs = append(errs, err)
		}
		s.registration = nil
	}
	if s.screensaver != nil {
		if s.screensaver.Inhibited() {
			applications := make([]string, 0)
			for _, inhibitor := range s.screensaver.Inhibitors() {
				applications = append(applications, inhibitor.Application)
			}
			s.logger.Info("dropping screensaver inhibitors", "applications", applications)
		}
		s.screensaver.Close()
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing bus connection: %w", err))
		}
		s.conn = nil
	}
	if s.stopSignals != nil {
		s.stopSignals()
		s.stopSignals = nil
	}
	return errors.Join(errs...)
}

// publish mirrors the lifecycle state on the session control service.
func (s *Supervisor) publish() {
	if s.control != nil {
		s.control.Update(s.machine.State().String(), s.machine.FailSafeLatched())
	}
}
