// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package registrar

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/hawaii-desktop/hawaii-session/lib/bus"
	"github.com/hawaii-desktop/hawaii-session/lib/bus/bustest"
)

const sessionName = "org.hawaiios.Session"

type handler struct{}

func (handler) Ping() *dbus.Error { return nil }

func testServices() Services {
	return Services{
		ProcessLauncher: bus.Object{
			Name: "org.hawaiios.ProcessLauncher", Path: "/ProcessLauncher",
			Interface: "org.hawaiios.ProcessLauncher", Handler: handler{},
		},
		ScreenSaver: bus.Object{
			Name: "org.freedesktop.ScreenSaver", Path: "/org/freedesktop/ScreenSaver",
			Interface: "org.freedesktop.ScreenSaver", Handler: handler{},
		},
		SessionControl: bus.Object{
			Name: "org.hawaiios.SessionManager", Path: "/SessionManager",
			Interface: "org.hawaiios.SessionManager", Handler: handler{},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterAll(t *testing.T) {
	conn := bustest.New()
	registration, err := RegisterAll(conn, sessionName, testServices(), quietLogger())
	if err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	want := []string{
		sessionName,
		"org.hawaiios.ProcessLauncher",
		"org.freedesktop.ScreenSaver",
		"org.hawaiios.SessionManager",
	}
	names := registration.Names()
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for index := range want {
		if names[index] != want[index] {
			t.Errorf("Names()[%d] = %q, want %q", index, names[index], want[index])
		}
	}
	if len(conn.Owned()) != 4 {
		t.Errorf("owned names = %v, want 4", conn.Owned())
	}
	if conn.ExportCount() != 3 {
		t.Errorf("exported objects = %d, want 3", conn.ExportCount())
	}

	if err := registration.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(conn.Owned()) != 0 || conn.ExportCount() != 0 {
		t.Errorf("after Release: owned=%v exported=%d, want nothing", conn.Owned(), conn.ExportCount())
	}
	if registration.Names() != nil {
		t.Errorf("Names() after Release = %v, want nil", registration.Names())
	}
	if err := registration.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}

func TestSessionNameFailureIsVerbatim(t *testing.T) {
	conn := bustest.New()
	transportErr := errors.New("Connection is not allowed to own the service \"org.hawaiios.Session\"")
	conn.FailRequest[sessionName] = transportErr

	_, err := RegisterAll(conn, sessionName, testServices(), quietLogger())
	if !errors.Is(err, transportErr) {
		t.Fatalf("error = %v, want the transport error", err)
	}
	var registrationErr *Error
	if !errors.As(err, &registrationErr) || registrationErr.Step != StepSession {
		t.Fatalf("error = %#v, want *Error at step %q", err, StepSession)
	}
	if conn.ExportCount() != 0 {
		t.Errorf("exported %d objects after session name failure", conn.ExportCount())
	}
}

// A failure at any service step leaves nothing registered, not even
// the session name.
func TestAllOrNothing(t *testing.T) {
	services := testServices()
	steps := []struct {
		step   Step
		object bus.Object
	}{
		{StepProcessLauncher, services.ProcessLauncher},
		{StepScreenSaver, services.ScreenSaver},
		{StepSessionControl, services.SessionControl},
	}

	for _, failing := range steps {
		t.Run(string(failing.step)+"/name", func(t *testing.T) {
			conn := bustest.New()
			conn.FailRequest[failing.object.Name] = errors.New("name taken")
			assertRolledBack(t, conn, failing.step)
		})
		t.Run(string(failing.step)+"/export", func(t *testing.T) {
			conn := bustest.New()
			conn.FailExport[failing.object.Path] = errors.New("path in use")
			assertRolledBack(t, conn, failing.step)
		})
	}
}

func assertRolledBack(t *testing.T, conn *bustest.Conn, failingStep Step) {
	t.Helper()
	registration, err := RegisterAll(conn, sessionName, testServices(), quietLogger())
	if err == nil {
		t.Fatal("RegisterAll succeeded, want error")
	}
	if registration != nil {
		t.Error("RegisterAll returned a registration alongside an error")
	}
	var registrationErr *Error
	if !errors.As(err, &registrationErr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if registrationErr.Step != failingStep {
		t.Errorf("failed step = %q, want %q", registrationErr.Step, failingStep)
	}
	if owned := conn.Owned(); len(owned) != 0 {
		t.Errorf("names still owned after rollback: %v", owned)
	}
	if count := conn.ExportCount(); count != 0 {
		t.Errorf("%d objects still exported after rollback", count)
	}
}
