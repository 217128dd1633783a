// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package registrar claims the session's well-known bus names.
//
// [RegisterAll] acquires, in a fixed order, the session name, then the
// process launcher, the screensaver and the session control services.
// Each service step exports the object and then requests its name.
// Registration is all-or-nothing: when any step fails, everything
// acquired so far (the session name included) is released in reverse
// order before the error is returned, so no other client ever sees a
// half-registered session.
package registrar

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hawaii-desktop/hawaii-session/lib/bus"
)

// Step names a registration step.
type Step string

const (
	StepSession         Step = "session"
	StepProcessLauncher Step = "process launcher"
	StepScreenSaver     Step = "screensaver"
	StepSessionControl  Step = "session control"
)

// Services are the objects registered after the session name, in
// registration order.
type Services struct {
	ProcessLauncher bus.Object
	ScreenSaver     bus.Object
	SessionControl  bus.Object
}

func (s Services) ordered() []namedObject {
	return []namedObject{
		{step: StepProcessLauncher, object: s.ProcessLauncher},
		{step: StepScreenSaver, object: s.ScreenSaver},
		{step: StepSessionControl, object: s.SessionControl},
	}
}

type namedObject struct {
	step   Step
	object bus.Object
}

// Error reports the step that failed. The transport's error is
// available through Unwrap and its text is kept verbatim.
type Error struct {
	Step Step
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to register %s service %s: %v", e.Step, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Registration is a completed set of registrations. Release undoes it.
type Registration struct {
	conn        bus.Conn
	sessionName string
	registered  []namedObject
	released    bool
	logger      *slog.Logger
}

// RegisterAll claims sessionName and registers services in order.
func RegisterAll(conn bus.Conn, sessionName string, services Services, logger *slog.Logger) (*Registration, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := conn.RequestName(sessionName); err != nil {
		return nil, &Error{Step: StepSession, Name: sessionName, Err: err}
	}
	logger.Info("session bus name acquired", "name", sessionName)

	registration := &Registration{
		conn:        conn,
		sessionName: sessionName,
		logger:      logger,
	}

	for _, entry := range services.ordered() {
		if err := registration.register(entry); err != nil {
			if releaseErr := registration.Release(); releaseErr != nil {
				logger.Warn("rollback after failed registration was incomplete", "error", releaseErr)
			}
			return nil, err
		}
	}

	return registration, nil
}

func (r *Registration) register(entry namedObject) error {
	object := entry.object
	if err := r.conn.Export(object); err != nil {
		return &Error{Step: entry.step, Name: object.Name, Err: err}
	}
	if err := r.conn.RequestName(object.Name); err != nil {
		if unexportErr := r.conn.Unexport(object); unexportErr != nil {
			r.logger.Warn("unexporting after failed name request",
				"service", string(entry.step),
				"error", unexportErr,
			)
		}
		return &Error{Step: entry.step, Name: object.Name, Err: err}
	}
	r.registered = append(r.registered, entry)
	r.logger.Info("service registered",
		"service", string(entry.step),
		"name", object.Name,
		"path", string(object.Path),
	)
	return nil
}

// Names returns the session name followed by every registered service
// name, in registration order. Empty after Release.
func (r *Registration) Names() []string {
	if r.released {
		return nil
	}
	names := []string{r.sessionName}
	for _, entry := range r.registered {
		names = append(names, entry.object.Name)
	}
	return names
}

// Release releases every service in reverse order, then the session
// name. Every step is attempted even when an earlier one fails; the
// failures are joined. Safe to call more than once.
func (r *Registration) Release() error {
	if r.released {
		return nil
	}
	r.released = true

	var errs []error
	for index := len(r.registered) - 1; index >= 0; index-- {
		object := r.registered[index].object
		if err := r.conn.ReleaseName(object.Name); err != nil {
			errs = append(errs, fmt.Errorf("releasing %s: %w", object.Name, err))
		}
		if err := r.conn.Unexport(object); err != nil {
			errs = append(errs, fmt.Errorf("unexporting %s: %w", object.Path, err))
		}
	}
	r.registered = nil

	if err := r.conn.ReleaseName(r.sessionName); err != nil {
		errs = append(errs, fmt.Errorf("releasing %s: %w", r.sessionName, err))
	}
	r.logger.Info("session services released", "name", r.sessionName)
	return errors.Join(errs...)
}
