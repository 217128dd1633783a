// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package launcher starts client applications inside the session.
//
// Clients run in their own process group with the session environment.
// Once the compositor is up, the supervisor hands its Wayland socket
// name to the launcher and every client started afterwards is pointed
// at it (WAYLAND_DISPLAY plus the toolkit backend variables).
//
// The launcher does not kill its clients when the session ends; they
// lose their display connection and exit on their own.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// ErrUnknownProcess is returned by Terminate for a pid the launcher did
// not start or that has already exited.
var ErrUnknownProcess = errors.New("process was not started by the launcher")

// Process describes a running client.
type Process struct {
	PID        int
	Name       string
	Executable string
	Args       []string
	Started    time.Time
}

type tracked struct {
	process Process
	exited  chan struct{}
}

// Launcher starts and tracks clients.
type Launcher struct {
	mu         sync.Mutex
	socketName string
	processes  map[int]*tracked
	environ    func() []string
	logger     *slog.Logger
}

// New creates a launcher using the process environment as the base
// client environment.
func New(logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		processes: make(map[int]*tracked),
		environ:   os.Environ,
		logger:    logger,
	}
}

// SetWaylandSocketName binds the compositor socket clients connect to.
func (l *Launcher) SetWaylandSocketName(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.socketName = name
	l.logger.Info("process launcher bound to compositor", "socket_name", name)
}

// WaylandSocketName returns the bound socket name, or "".
func (l *Launcher) WaylandSocketName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.socketName
}

// Environment returns the environment given to new clients.
func (l *Launcher) Environment() []string {
	base := l.environ()
	socketName := l.WaylandSocketName()
	if socketName == "" {
		return base
	}
	return mergeEnvironment(base, map[string]string{
		"WAYLAND_DISPLAY": socketName,
		"QT_QPA_PLATFORM": "wayland",
		"GDK_BACKEND":     "wayland",
		"CLUTTER_BACKEND": "wayland",
		"SDL_VIDEODRIVER": "wayland",
	})
}

// mergeEnvironment replaces or appends the overrides in base. Appended
// keys are sorted.
func mergeEnvironment(base []string, overrides map[string]string) []string {
	result := make([]string, 0, len(base)+len(overrides))
	applied := make(map[string]bool, len(overrides))
	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if value, ok := overrides[key]; ok {
			if !applied[key] {
				result = append(result, key+"="+value)
				applied[key] = true
			}
			continue
		}
		result = append(result, entry)
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		if !applied[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		result = append(result, key+"="+overrides[key])
	}
	return result
}

// Launch starts executable (resolved on PATH) with args and returns its
// pid. The child is reaped in the background.
func (l *Launcher) Launch(executable string, args []string) (int, error) {
	path, err := exec.LookPath(executable)
	if err != nil {
		return 0, fmt.Errorf("launching %q: %w", executable, err)
	}

	command := exec.Command(path, args...)
	command.Env = l.Environment()
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := command.Start(); err != nil {
		return 0, fmt.Errorf("launching %q: %w", executable, err)
	}

	pid := command.Process.Pid
	entry := &tracked{
		process: Process{
			PID:        pid,
			Name:       filepath.Base(path),
			Executable: path,
			Args:       append([]string(nil), args...),
			Started:    time.Now(),
		},
		exited: make(chan struct{}),
	}
	l.mu.Lock()
	l.processes[pid] = entry
	l.mu.Unlock()

	l.logger.Info("process launched", "executable", path, "pid", pid)

	go func() {
		err := command.Wait()
		l.mu.Lock()
		delete(l.processes, pid)
		l.mu.Unlock()
		close(entry.exited)
		if err != nil {
			l.logger.Info("process exited", "pid", pid, "executable", path, "error", err)
			return
		}
		l.logger.Info("process exited", "pid", pid, "executable", path)
	}()

	return pid, nil
}

// Terminate sends SIGTERM to the process group of a launched client.
func (l *Launcher) Terminate(pid int) error {
	l.mu.Lock()
	_, ok := l.processes[pid]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("terminating pid %d: %w", pid, ErrUnknownProcess)
	}
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("terminating pid %d: %w", pid, err)
	}
	l.logger.Info("process terminated", "pid", pid)
	return nil
}

// Processes returns the running clients ordered by pid. Names are
// refreshed from the process table, since a client may have exec'd
// into another program.
func (l *Launcher) Processes() []Process {
	l.mu.Lock()
	result := make([]Process, 0, len(l.processes))
	for _, entry := range l.processes {
		result = append(result, entry.process)
	}
	l.mu.Unlock()

	for index := range result {
		info, err := process.NewProcess(int32(result[index].PID))
		if err != nil {
			continue
		}
		if name, err := info.Name(); err == nil && name != "" {
			result[index].Name = name
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PID < result[j].PID })
	return result
}

// exited returns a channel closed once pid has been reaped, or nil if
// pid is not tracked.
func (l *Launcher) exited(pid int) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.processes[pid]; ok {
		return entry.exited
	}
	return nil
}
