// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"github.com/godbus/dbus/v5"

	"github.com/hawaii-desktop/hawaii-session/lib/bus"
)

const (
	BusName   = "org.hawaiios.ProcessLauncher"
	Path      = dbus.ObjectPath("/ProcessLauncher")
	Interface = "org.hawaiios.ProcessLauncher"
)

// ProcessInfo is the wire form of a Process, signature (uss).
type ProcessInfo struct {
	Pid        uint32
	Name       string
	Executable string
}

// BusObject describes the service for registration under name.
func (l *Launcher) BusObject(name string) bus.Object {
	if name == "" {
		name = BusName
	}
	return bus.Object{
		Name:      name,
		Path:      Path,
		Interface: Interface,
		Handler:   &busHandler{launcher: l},
	}
}

type busHandler struct {
	launcher *Launcher
}

func (h *busHandler) LaunchProcess(executable string, args []string) (uint32, *dbus.Error) {
	pid, err := h.launcher.Launch(executable, args)
	if err != nil {
		return 0, dbus.MakeFailedError(err)
	}
	return uint32(pid), nil
}

func (h *busHandler) Terminate(pid uint32) *dbus.Error {
	if err := h.launcher.Terminate(int(pid)); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (h *busHandler) ListProcesses() ([]ProcessInfo, *dbus.Error) {
	processes := h.launcher.Processes()
	result := make([]ProcessInfo, 0, len(processes))
	for _, entry := range processes {
		result = append(result, ProcessInfo{
			Pid:        uint32(entry.PID),
			Name:       entry.Name,
			Executable: entry.Executable,
		})
	}
	return result, nil
}

func (h *busHandler) WaylandSocketName() (string, *dbus.Error) {
	return h.launcher.WaylandSocketName(), nil
}
