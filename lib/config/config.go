// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the kind of installation.
type Environment string

const (
	// Development is for working on the session itself. It allows
	// loading a custom shell scene with --qml.
	Development Environment = "development"
	// Production is for installed desktops.
	Production Environment = "production"
)

// Default scene URLs. The compositor host resolves qrc: URLs against
// its bundled resources.
const (
	DefaultPrimaryScene  = "qrc:/Compositor.qml"
	DefaultFailSafeScene = "qrc:/error/ErrorCompositor.qml"
)

// Config is the session configuration.
type Config struct {
	// Environment identifies the installation type.
	Environment Environment `yaml:"environment"`

	// Session holds the well-known bus names.
	Session SessionConfig `yaml:"session"`

	// Scene configures the shell scenes and their host process.
	Scene SceneConfig `yaml:"scene"`

	// ScreenSaver configures the idle timer.
	ScreenSaver ScreenSaverConfig `yaml:"screensaver"`

	// RuntimeDir holds per-session state such as the fail-safe
	// marker.
	// Default: ${XDG_RUNTIME_DIR:-/tmp}/hawaii
	RuntimeDir string `yaml:"runtime_dir"`

	// EnvironmentDefaults are extra variables set at startup when unset,
	// after the built-in table.
	EnvironmentDefaults map[string]string `yaml:"environment_defaults"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Scene       *SceneConfig       `yaml:"scene,omitempty"`
	ScreenSaver *ScreenSaverConfig `yaml:"screensaver,omitempty"`
	RuntimeDir  string             `yaml:"runtime_dir,omitempty"`
}

// SessionConfig holds the bus names the session claims.
type SessionConfig struct {
	Name            string `yaml:"name"`
	ProcessLauncher string `yaml:"process_launcher"`
	ScreenSaver     string `yaml:"screensaver"`
	SessionControl  string `yaml:"session_control"`
}

// SceneConfig configures scene loading.
type SceneConfig struct {
	// Primary is the shell scene URL.
	Primary string `yaml:"primary"`

	// FailSafe is the diagnostic scene loaded once when the primary
	// scene fails.
	FailSafe string `yaml:"failsafe"`

	// HostBinary is the compositor host executable.
	// Default: hawaii-compositor (found in PATH)
	HostBinary string `yaml:"host_binary"`

	// HostArgs are passed to the host before the scene arguments.
	HostArgs []string `yaml:"host_args"`

	// StopTimeout is how long the host gets to exit after SIGTERM.
	// Default: 5s
	StopTimeout string `yaml:"stop_timeout"`
}

// ScreenSaverConfig configures the screensaver service.
type ScreenSaverConfig struct {
	// IdleTimeout is the idle time before the screensaver activates.
	// "0" disables automatic activation.
	// Default: 10m
	IdleTimeout string `yaml:"idle_timeout"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Production,
		Session: SessionConfig{
			Name:            "org.hawaiios.Session",
			ProcessLauncher: "org.hawaiios.ProcessLauncher",
			ScreenSaver:     "org.freedesktop.ScreenSaver",
			SessionControl:  "org.hawaiios.SessionManager",
		},
		Scene: SceneConfig{
			Primary:     DefaultPrimaryScene,
			FailSafe:    DefaultFailSafeScene,
			HostBinary:  "hawaii-compositor",
			StopTimeout: "5s",
		},
		ScreenSaver: ScreenSaverConfig{
			IdleTimeout: "10m",
		},
		RuntimeDir: "${XDG_RUNTIME_DIR:-/tmp}/hawaii",
	}
}

// Resolve returns the configuration for this run. path comes from
// --config; when empty, the HAWAII_SESSION_CONFIG path from processEnv
// is used. With neither, the defaults apply. The result is validated.
func Resolve(path string, processEnv ProcessEnv) (*Config, error) {
	if path == "" {
		path = processEnv.ConfigPath
	}

	var cfg *Config
	if path == "" {
		cfg = Default()
		cfg.applyEnvironmentOverrides()
		cfg.expandVariables()
	} else {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads configuration from a specific file path, on top of
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Scene != nil {
		if overrides.Scene.Primary != "" {
			c.Scene.Primary = overrides.Scene.Primary
		}
		if overrides.Scene.FailSafe != "" {
			c.Scene.FailSafe = overrides.Scene.FailSafe
		}
		if overrides.Scene.HostBinary != "" {
			c.Scene.HostBinary = overrides.Scene.HostBinary
		}
		if overrides.Scene.HostArgs != nil {
			c.Scene.HostArgs = overrides.Scene.HostArgs
		}
		if overrides.Scene.StopTimeout != "" {
			c.Scene.StopTimeout = overrides.Scene.StopTimeout
		}
	}

	if overrides.ScreenSaver != nil && overrides.ScreenSaver.IdleTimeout != "" {
		c.ScreenSaver.IdleTimeout = overrides.ScreenSaver.IdleTimeout
	}

	if overrides.RuntimeDir != "" {
		c.RuntimeDir = overrides.RuntimeDir
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths
// and in environment default values.
func (c *Config) expandVariables() {
	c.RuntimeDir = expandVars(c.RuntimeDir)
	c.Scene.HostBinary = expandVars(c.Scene.HostBinary)
	c.Scene.Primary = expandVars(c.Scene.Primary)
	c.Scene.FailSafe = expandVars(c.Scene.FailSafe)
	for index, arg := range c.Scene.HostArgs {
		c.Scene.HostArgs[index] = expandVars(arg)
	}
	for key, value := range c.EnvironmentDefaults {
		c.EnvironmentDefaults[key] = expandVars(value)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the process
// environment. An empty variable takes the default.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// IdleTimeout returns the parsed screensaver idle timeout.
func (c *Config) IdleTimeout() (time.Duration, error) {
	return parseDuration("screensaver.idle_timeout", c.ScreenSaver.IdleTimeout)
}

// StopTimeout returns the parsed compositor host stop timeout.
func (c *Config) StopTimeout() (time.Duration, error) {
	return parseDuration("scene.stop_timeout", c.Scene.StopTimeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", field, value)
	}
	return duration, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	names := []struct {
		field string
		value string
	}{
		{"session.name", c.Session.Name},
		{"session.process_launcher", c.Session.ProcessLauncher},
		{"session.screensaver", c.Session.ScreenSaver},
		{"session.session_control", c.Session.SessionControl},
	}
	seen := make(map[string]string, len(names))
	for _, name := range names {
		if !validBusName(name.value) {
			errs = append(errs, fmt.Errorf("%s: %q is not a valid bus name", name.field, name.value))
			continue
		}
		if other, ok := seen[name.value]; ok {
			errs = append(errs, fmt.Errorf("%s: %q is already used by %s", name.field, name.value, other))
		}
		seen[name.value] = name.field
	}

	if c.Scene.Primary == "" {
		errs = append(errs, errors.New("scene.primary is required"))
	}
	if c.Scene.FailSafe == "" {
		errs = append(errs, errors.New("scene.failsafe is required"))
	}
	if c.Scene.HostBinary == "" {
		errs = append(errs, errors.New("scene.host_binary is required"))
	}
	if _, err := c.StopTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.IdleTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.RuntimeDir == "" {
		errs = append(errs, errors.New("runtime_dir is required"))
	}

	return errors.Join(errs...)
}

// validBusName checks the shape of a well-known bus name: two or more
// dot-separated elements of [A-Za-z0-9_-], none starting with a digit.
func validBusName(name string) bool {
	if len(name) == 0 || len(name) > 255 {
		return false
	}
	elements := strings.Split(name, ".")
	if len(elements) < 2 {
		return false
	}
	for _, element := range elements {
		if element == "" || (element[0] >= '0' && element[0] <= '9') {
			return false
		}
		for _, r := range element {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			default:
				return false
			}
		}
	}
	return true
}
