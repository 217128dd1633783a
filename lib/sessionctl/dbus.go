// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package sessionctl

import (
	"github.com/godbus/dbus/v5"

	"github.com/hawaii-desktop/hawaii-session/lib/bus"
)

const (
	BusName   = "org.hawaiios.SessionManager"
	Path      = dbus.ObjectPath("/SessionManager")
	Interface = "org.hawaiios.SessionManager"
)

// BusObject describes the service for registration under name.
func (c *Control) BusObject(name string) bus.Object {
	if name == "" {
		name = BusName
	}
	return bus.Object{
		Name:      name,
		Path:      Path,
		Interface: Interface,
		Handler:   &busHandler{control: c},
	}
}

type busHandler struct {
	control *Control
}

func (h *busHandler) SessionId() (string, *dbus.Error) {
	return h.control.Info().ID, nil
}

func (h *busHandler) Mode() (string, *dbus.Error) {
	return h.control.Info().Mode, nil
}

func (h *busHandler) State() (string, *dbus.Error) {
	return h.control.Info().State, nil
}

func (h *busHandler) SocketName() (string, *dbus.Error) {
	return h.control.Info().SocketName, nil
}

func (h *busHandler) FailSafe() (bool, *dbus.Error) {
	return h.control.Info().FailSafe, nil
}

func (h *busHandler) Logout() *dbus.Error {
	h.control.Logout()
	return nil
}
