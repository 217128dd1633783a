// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package mode

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies how the session runs.
type Kind int

const (
	// Normal runs the compositor directly on the hardware.
	Normal Kind = iota
	// Nested runs the compositor as a client of a parent compositor.
	Nested
	// FakeScreen runs with an output topology read from a file.
	FakeScreen
	// CustomScene loads the shell from an arbitrary file. Development
	// configurations only.
	CustomScene
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Nested:
		return "nested"
	case FakeScreen:
		return "fake-screen"
	case CustomScene:
		return "custom-scene"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mode is the resolved session mode.
type Mode struct {
	Kind Kind

	// SocketName is the Wayland socket the compositor should create.
	// Required for Nested, optional otherwise.
	SocketName string

	// FakeScreenPath is the output topology file. Set only for
	// FakeScreen.
	FakeScreenPath string

	// CustomScenePath is the shell scene file. Set only for
	// CustomScene.
	CustomScenePath string
}

// validate checks the mode invariants: the optional fields match the
// kind, and Nested carries a socket name.
func (m Mode) validate() error {
	switch m.Kind {
	case Normal:
		if m.FakeScreenPath != "" || m.CustomScenePath != "" {
			return fmt.Errorf("normal mode carries fake screen %q or custom scene %q", m.FakeScreenPath, m.CustomScenePath)
		}
	case Nested:
		if m.SocketName == "" {
			return errors.New("nested mode without a socket name")
		}
		if m.FakeScreenPath != "" || m.CustomScenePath != "" {
			return fmt.Errorf("nested mode carries fake screen %q or custom scene %q", m.FakeScreenPath, m.CustomScenePath)
		}
	case FakeScreen:
		if m.FakeScreenPath == "" {
			return errors.New("fake screen mode without a configuration path")
		}
		if m.CustomScenePath != "" {
			return fmt.Errorf("fake screen mode carries custom scene %q", m.CustomScenePath)
		}
	case CustomScene:
		if m.CustomScenePath == "" {
			return errors.New("custom scene mode without a scene path")
		}
		if m.FakeScreenPath != "" {
			return fmt.Errorf("custom scene mode carries fake screen %q", m.FakeScreenPath)
		}
	default:
		return fmt.Errorf("unknown mode kind %d", int(m.Kind))
	}
	return nil
}

// Request is everything Resolve looks at.
type Request struct {
	// Nested is set by -n/--nested.
	Nested bool

	// SocketName is the value of --wayland-socket-name.
	SocketName string

	// FakeScreenPath is the value of --fake-screen.
	FakeScreenPath string

	// CustomScenePath is the value of --qml.
	CustomScenePath string

	// BusAddress is DBUS_SESSION_BUS_ADDRESS.
	BusAddress string

	// Platform is the display platform name (see DetectPlatform).
	Platform string

	// Development reports whether the session configuration is a
	// development configuration, which unlocks CustomScenePath.
	Development bool
}

// Resolve validates a request and returns the mode it describes.
func Resolve(request Request) (Mode, error) {
	m, err := resolve(request)
	if err != nil {
		return Mode{}, err
	}
	if err := m.validate(); err != nil {
		return Mode{}, fmt.Errorf("resolved an inconsistent mode: %w", err)
	}
	return m, nil
}

func resolve(request Request) (Mode, error) {
	if request.BusAddress == "" {
		return Mode{}, &ConfigError{
			Kind: ErrNoIpcTransport,
			Hint: "please run the session with dbus-launch or dbus-run-session",
		}
	}

	if request.Nested {
		if !IsWaylandPlatform(request.Platform) {
			return Mode{}, &ConfigError{
				Kind: ErrNestedRequiresWaylandPlatform,
				Hint: fmt.Sprintf("current platform is %q; please pass the \"--platform wayland\" argument", request.Platform),
			}
		}
		if request.SocketName == "" {
			return Mode{}, &ConfigError{
				Kind: ErrNestedRequiresSocketName,
				Hint: "please specify it with the \"--wayland-socket-name\" argument",
			}
		}
		if request.FakeScreenPath != "" {
			return Mode{}, &ConfigError{Kind: ErrNestedIncompatibleWithFakeScreen}
		}
		if request.CustomScenePath != "" {
			return Mode{}, &ConfigError{Kind: ErrNestedIncompatibleWithCustomScene}
		}
		return Mode{Kind: Nested, SocketName: request.SocketName}, nil
	}

	if request.CustomScenePath != "" {
		if !request.Development {
			return Mode{}, &ConfigError{
				Kind: ErrCustomSceneRequiresDevelopment,
				Hint: "set \"environment: development\" in the session configuration",
			}
		}
		if request.FakeScreenPath != "" {
			return Mode{}, &ConfigError{Kind: ErrCustomSceneIncompatibleWithFakeScreen}
		}
		return Mode{
			Kind:            CustomScene,
			SocketName:      request.SocketName,
			CustomScenePath: request.CustomScenePath,
		}, nil
	}

	if request.FakeScreenPath != "" {
		return Mode{
			Kind:           FakeScreen,
			SocketName:     request.SocketName,
			FakeScreenPath: request.FakeScreenPath,
		}, nil
	}

	return Mode{Kind: Normal, SocketName: request.SocketName}, nil
}

// IsWaylandPlatform reports whether platform belongs to the Wayland
// family ("wayland", "wayland-egl", "wayland-brcm", ...).
func IsWaylandPlatform(platform string) bool {
	return strings.HasPrefix(platform, "wayland")
}

// DetectPlatform returns the display platform the session runs on. An
// explicit --platform value wins, then QT_QPA_PLATFORM. Without either,
// the platform is inferred from the display variables of a parent
// session: WAYLAND_DISPLAY means wayland, DISPLAY means xcb, neither
// means the session owns the hardware (eglfs).
func DetectPlatform(explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if platform := getenv("QT_QPA_PLATFORM"); platform != "" {
		return platform
	}
	if getenv("WAYLAND_DISPLAY") != "" {
		return "wayland"
	}
	if getenv("DISPLAY") != "" {
		return "xcb"
	}
	return "eglfs"
}
