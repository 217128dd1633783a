// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hawaii-desktop/hawaii-session/lib/environment"
	"github.com/hawaii-desktop/hawaii-session/lib/mode"
	"github.com/hawaii-desktop/hawaii-session/lib/process"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr string
	}{
		{
			name: "no flags",
			args: nil,
			want: options{},
		},
		{
			name: "nested short flag",
			args: []string{"-n", "--wayland-socket-name", "wayland-1"},
			want: options{nested: true, socketName: "wayland-1"},
		},
		{
			name: "development scene",
			args: []string{"--qml=/home/user/Shell.qml", "--platform", "wayland", "--config", "/etc/hawaii/session.yaml"},
			want: options{qml: "/home/user/Shell.qml", platform: "wayland", configPath: "/etc/hawaii/session.yaml"},
		},
		{
			name: "fake screen",
			args: []string{"--fake-screen", "screens.json", "--debug"},
			want: options{fakeScreen: "screens.json", debug: true},
		},
		{
			name: "help",
			args: []string{"-h"},
			want: options{help: true},
		},
		{
			name: "version",
			args: []string{"--version"},
			want: options{showVersion: true},
		},
		{
			name:    "unknown flag",
			args:    []string{"--fullscreen"},
			wantErr: "unknown flag",
		},
		{
			name:    "positional argument",
			args:    []string{"wayland-1"},
			wantErr: "unexpected argument: wayland-1",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, _, err := parseOptions(test.args)
			if test.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("error = %v, want %q", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOptions: %v", err)
			}
			if got != test.want {
				t.Errorf("options = %+v, want %+v", got, test.want)
			}
		})
	}
}

// setSessionEnv isolates run from the test process environment.
func setSessionEnv(t *testing.T) {
	t.Helper()
	for _, entry := range environment.Defaults {
		t.Setenv(entry.Key, entry.Value)
	}
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path=/nonexistent/bus")
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("HAWAII_SESSION_CONFIG", "")
	t.Setenv("QT_QPA_PLATFORM", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("DISPLAY", "")
}

func TestRunModeErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "nested on a non-Wayland platform",
			args:    []string{"--nested", "--wayland-socket-name", "wl-1", "--platform", "xcb"},
			wantErr: mode.ErrNestedRequiresWaylandPlatform,
		},
		{
			name:    "nested without a socket name",
			args:    []string{"--nested", "--platform", "wayland"},
			wantErr: mode.ErrNestedRequiresSocketName,
		},
		{
			name:    "custom scene in a production configuration",
			args:    []string{"--qml", "Shell.qml"},
			wantErr: mode.ErrCustomSceneRequiresDevelopment,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			setSessionEnv(t)
			before := slog.Default()
			t.Cleanup(func() { slog.SetDefault(before) })

			err := run(test.args)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("run error = %v, want %v", err, test.wantErr)
			}
			if code := process.ExitCode(err); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			// Components given a nil logger use the session logger.
			if slog.Default() == before {
				t.Error("run did not install the session logger as the slog default")
			}
		})
	}
}

func TestRunWithoutSessionBus(t *testing.T) {
	setSessionEnv(t)
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "")

	err := run(nil)
	if !errors.Is(err, mode.ErrNoIpcTransport) {
		t.Fatalf("run error = %v, want ErrNoIpcTransport", err)
	}
	if !strings.Contains(err.Error(), "dbus-run-session") {
		t.Errorf("error %q does not tell the operator how to start a bus", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	setSessionEnv(t)
	t.Setenv("HAWAII_SESSION_CONFIG", t.TempDir()+"/missing.yaml")

	if err := run(nil); err == nil {
		t.Fatal("run succeeded with a missing configuration file")
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("fail-safe scene failed")
	tests := []struct {
		code int
		want int
	}{
		{code: 1, want: 1},
		{code: 0, want: 1},
		{code: 3, want: 3},
	}
	for _, test := range tests {
		err := &exitError{code: test.code, err: cause}
		if got := process.ExitCode(err); got != test.want {
			t.Errorf("ExitCode(code %d) = %d, want %d", test.code, got, test.want)
		}
		if !errors.Is(err, cause) {
			t.Error("exitError does not unwrap to its cause")
		}
	}
}

func TestRunVersion(t *testing.T) {
	before := slog.Default()
	if err := run([]string{"--version"}); err != nil {
		t.Fatalf("run --version: %v", err)
	}
	if slog.Default() != before {
		t.Error("--version configured logging")
	}
}
