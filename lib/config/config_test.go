// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Production {
		t.Errorf("expected environment=production, got %s", cfg.Environment)
	}
	if cfg.Scene.Primary != "qrc:/Compositor.qml" {
		t.Errorf("expected primary=qrc:/Compositor.qml, got %s", cfg.Scene.Primary)
	}
	if cfg.Scene.FailSafe != "qrc:/error/ErrorCompositor.qml" {
		t.Errorf("expected failsafe=qrc:/error/ErrorCompositor.qml, got %s", cfg.Scene.FailSafe)
	}
	if cfg.Session.ScreenSaver != "org.freedesktop.ScreenSaver" {
		t.Errorf("expected screensaver name org.freedesktop.ScreenSaver, got %s", cfg.Session.ScreenSaver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestResolve_Defaults(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	cfg, err := Resolve("", ProcessEnv{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.RuntimeDir != "/run/user/1000/hawaii" {
		t.Errorf("expected runtime_dir=/run/user/1000/hawaii, got %s", cfg.RuntimeDir)
	}
	timeout, err := cfg.IdleTimeout()
	if err != nil || timeout != 10*time.Minute {
		t.Errorf("expected idle timeout 10m, got %v (%v)", timeout, err)
	}
}

func TestResolve_RuntimeDirFallback(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	cfg, err := Resolve("", ProcessEnv{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.RuntimeDir != "/tmp/hawaii" {
		t.Errorf("expected runtime_dir=/tmp/hawaii, got %s", cfg.RuntimeDir)
	}
}

func TestResolve_ConfigPathFromEnvironment(t *testing.T) {
	configPath := writeConfig(t, "environment: development\n")

	cfg, err := Resolve("", ProcessEnv{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}

	// An explicit path wins over the environment.
	explicit := writeConfig(t, "environment: production\n")
	cfg, err = Resolve(explicit, ProcessEnv{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Environment != Production {
		t.Errorf("expected the --config file to win, got environment=%s", cfg.Environment)
	}
}

func TestResolve_MissingFile(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "missing.yaml"), ProcessEnv{})
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Fatalf("expected a read error, got %v", err)
	}
}

func TestResolve_Invalid(t *testing.T) {
	configPath := writeConfig(t, "environment: staging\nscreensaver:\n  idle_timeout: soon\n")

	_, err := Resolve(configPath, ProcessEnv{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"invalid environment: staging", "screensaver.idle_timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("HAWAII_TEST_PREFIX", "/opt/hawaii")

	configPath := writeConfig(t, `
environment: production

session:
  name: org.hawaiios.Session

scene:
  primary: file://${HAWAII_TEST_PREFIX}/share/Shell.qml
  host_binary: ${HAWAII_TEST_PREFIX}/bin/compositor
  host_args: ["--debug"]

screensaver:
  idle_timeout: 5m

environment_defaults:
  QT_SCALE_FACTOR: "2"
  HAWAII_DATA: ${HAWAII_TEST_PREFIX}/share
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Scene.Primary != "file:///opt/hawaii/share/Shell.qml" {
		t.Errorf("expected expanded primary scene, got %s", cfg.Scene.Primary)
	}
	if cfg.Scene.HostBinary != "/opt/hawaii/bin/compositor" {
		t.Errorf("expected expanded host binary, got %s", cfg.Scene.HostBinary)
	}
	if cfg.Scene.FailSafe != DefaultFailSafeScene {
		t.Errorf("expected default failsafe scene to survive, got %s", cfg.Scene.FailSafe)
	}
	if len(cfg.Scene.HostArgs) != 1 || cfg.Scene.HostArgs[0] != "--debug" {
		t.Errorf("expected host_args=[--debug], got %v", cfg.Scene.HostArgs)
	}
	if cfg.EnvironmentDefaults["HAWAII_DATA"] != "/opt/hawaii/share" {
		t.Errorf("expected expanded environment default, got %s", cfg.EnvironmentDefaults["HAWAII_DATA"])
	}
	if cfg.Session.ProcessLauncher != "org.hawaiios.ProcessLauncher" {
		t.Errorf("expected default process launcher name, got %s", cfg.Session.ProcessLauncher)
	}
	timeout, err := cfg.IdleTimeout()
	if err != nil || timeout != 5*time.Minute {
		t.Errorf("expected idle timeout 5m, got %v (%v)", timeout, err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
environment: development

scene:
  host_binary: hawaii-compositor

development:
  scene:
    host_binary: ./build/hawaii-compositor
    stop_timeout: 1s
  screensaver:
    idle_timeout: "0"
  runtime_dir: /tmp/hawaii-dev

production:
  scene:
    host_binary: /usr/bin/hawaii-compositor
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Scene.HostBinary != "./build/hawaii-compositor" {
		t.Errorf("expected development host binary, got %s", cfg.Scene.HostBinary)
	}
	if cfg.RuntimeDir != "/tmp/hawaii-dev" {
		t.Errorf("expected development runtime_dir, got %s", cfg.RuntimeDir)
	}
	if timeout, _ := cfg.IdleTimeout(); timeout != 0 {
		t.Errorf("expected disabled idle timeout, got %v", timeout)
	}
	if timeout, _ := cfg.StopTimeout(); timeout != time.Second {
		t.Errorf("expected stop timeout 1s, got %v", timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "bad environment",
			modify:  func(c *Config) { c.Environment = "staging" },
			wantErr: "invalid environment",
		},
		{
			name:    "single element bus name",
			modify:  func(c *Config) { c.Session.Name = "Session" },
			wantErr: "session.name",
		},
		{
			name:    "bus name element starting with a digit",
			modify:  func(c *Config) { c.Session.SessionControl = "org.2hawaii.Session" },
			wantErr: "session.session_control",
		},
		{
			name:    "duplicate bus names",
			modify:  func(c *Config) { c.Session.ScreenSaver = c.Session.ProcessLauncher },
			wantErr: "already used by session.process_launcher",
		},
		{
			name:    "missing failsafe scene",
			modify:  func(c *Config) { c.Scene.FailSafe = "" },
			wantErr: "scene.failsafe is required",
		},
		{
			name:    "missing host binary",
			modify:  func(c *Config) { c.Scene.HostBinary = "" },
			wantErr: "scene.host_binary is required",
		},
		{
			name:    "negative stop timeout",
			modify:  func(c *Config) { c.Scene.StopTimeout = "-1s" },
			wantErr: "scene.stop_timeout",
		},
		{
			name:    "missing runtime dir",
			modify:  func(c *Config) { c.RuntimeDir = "" },
			wantErr: "runtime_dir is required",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.RuntimeDir = "/run/user/1000/hawaii"
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %q", err, test.wantErr)
			}
		})
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("HAWAII_TEST_SET", "value")
	t.Setenv("HAWAII_TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"${HAWAII_TEST_SET}", "value"},
		{"${HAWAII_TEST_SET:-fallback}", "value"},
		{"${HAWAII_TEST_EMPTY:-fallback}", "fallback"},
		{"${HAWAII_TEST_UNSET_VARIABLE}", ""},
		{"/a/${HAWAII_TEST_SET}/b", "/a/value/b"},
		{"no variables", "no variables"},
	}
	for _, test := range tests {
		if got := expandVars(test.input); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestParseProcessEnv(t *testing.T) {
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path=/run/user/1000/bus")
	t.Setenv("QT_QPA_PLATFORM", "wayland")
	t.Setenv("WAYLAND_DISPLAY", "wayland-0")
	t.Setenv("DISPLAY", "")
	t.Setenv("HAWAII_SESSION_CONFIG", "/etc/hawaii/session.yaml")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	processEnv, err := ParseProcessEnv()
	if err != nil {
		t.Fatalf("ParseProcessEnv failed: %v", err)
	}
	if processEnv.BusAddress != "unix:path=/run/user/1000/bus" {
		t.Errorf("BusAddress = %q", processEnv.BusAddress)
	}
	if processEnv.Get("QT_QPA_PLATFORM") != "wayland" || processEnv.Get("WAYLAND_DISPLAY") != "wayland-0" {
		t.Errorf("platform variables = %+v", processEnv)
	}
	if processEnv.Get("DISPLAY") != "" {
		t.Errorf("DISPLAY = %q, want empty", processEnv.Get("DISPLAY"))
	}
	if processEnv.Get("HAWAII_SESSION_CONFIG") != "/etc/hawaii/session.yaml" {
		t.Errorf("ConfigPath = %q", processEnv.ConfigPath)
	}
	if processEnv.Get("HOME") != "" {
		t.Error("Get returned a value for a variable ProcessEnv does not hold")
	}
}
