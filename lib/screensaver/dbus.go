// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package screensaver

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/hawaii-desktop/hawaii-session/lib/bus"
)

// Bus identity of the service.
const (
	BusName   = "org.freedesktop.ScreenSaver"
	Path      = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
	Interface = "org.freedesktop.ScreenSaver"
)

// BusObject describes the service for registration under name.
func (s *ScreenSaver) BusObject(name string) bus.Object {
	if name == "" {
		name = BusName
	}
	return bus.Object{
		Name:      name,
		Path:      Path,
		Interface: Interface,
		Handler:   &busHandler{saver: s},
		Signals: []introspect.Signal{{
			Name: "ActiveChanged",
			Args: []introspect.Arg{{Name: "active", Type: "b"}},
		}},
	}
}

// EmitActiveChanges forwards every active state change to conn as an
// ActiveChanged signal.
func (s *ScreenSaver) EmitActiveChanges(conn bus.Conn) {
	s.OnActiveChanged(func(active bool) {
		if err := conn.Emit(Path, Interface+".ActiveChanged", active); err != nil {
			s.logger.Warn("emitting ActiveChanged failed", "error", err)
		}
	})
}

type busHandler struct {
	saver *ScreenSaver
}

func (h *busHandler) Inhibit(application, reason string) (uint32, *dbus.Error) {
	return h.saver.Inhibit(application, reason), nil
}

func (h *busHandler) UnInhibit(cookie uint32) *dbus.Error {
	if err := h.saver.UnInhibit(cookie); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (h *busHandler) GetActive() (bool, *dbus.Error) {
	return h.saver.Active(), nil
}

func (h *busHandler) SetActive(active bool) (bool, *dbus.Error) {
	return h.saver.SetActive(active), nil
}

func (h *busHandler) GetActiveTime() (uint32, *dbus.Error) {
	return uint32(h.saver.ActiveTime().Seconds()), nil
}

func (h *busHandler) GetSessionIdleTime() (uint32, *dbus.Error) {
	return uint32(h.saver.IdleTime().Seconds()), nil
}

func (h *busHandler) SimulateUserActivity() *dbus.Error {
	h.saver.SimulateUserActivity()
	return nil
}
