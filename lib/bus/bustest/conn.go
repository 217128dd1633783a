// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package bustest provides an in-memory bus.Conn for tests.
package bustest

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/hawaii-desktop/hawaii-session/lib/bus"
)

// Signal is a recorded Emit call.
type Signal struct {
	Path   dbus.ObjectPath
	Name   string
	Values []any
}

// Conn records names and exports. Fail* maps inject errors.
type Conn struct {
	mu sync.Mutex

	owned    map[string]bool
	exported map[dbus.ObjectPath]bus.Object
	signals  []Signal
	closed   bool

	// FailRequest makes RequestName fail for the listed names.
	FailRequest map[string]error

	// FailExport makes Export fail for the listed paths.
	FailExport map[dbus.ObjectPath]error
}

// New returns an empty Conn.
func New() *Conn {
	return &Conn{
		owned:       make(map[string]bool),
		exported:    make(map[dbus.ObjectPath]bus.Object),
		FailRequest: make(map[string]error),
		FailExport:  make(map[dbus.ObjectPath]error),
	}
}

func (c *Conn) RequestName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	if err := c.FailRequest[name]; err != nil {
		return err
	}
	if c.owned[name] {
		return fmt.Errorf("%s: %w", name, bus.ErrNameTaken)
	}
	c.owned[name] = true
	return nil
}

func (c *Conn) ReleaseName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.owned, name)
	return nil
}

func (c *Conn) Export(object bus.Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.FailExport[object.Path]; err != nil {
		return err
	}
	c.exported[object.Path] = object
	return nil
}

func (c *Conn) Unexport(object bus.Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exported, object.Path)
	return nil
}

func (c *Conn) Emit(path dbus.ObjectPath, name string, values ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, Signal{Path: path, Name: name, Values: values})
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.owned = make(map[string]bool)
	c.exported = make(map[dbus.ObjectPath]bus.Object)
	return nil
}

// Owned returns the currently owned names, sorted.
func (c *Conn) Owned() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.owned))
	for name := range c.owned {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exported returns the object exported at path, if any.
func (c *Conn) Exported(path dbus.ObjectPath) (bus.Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	object, ok := c.exported[path]
	return object, ok
}

// ExportCount returns the number of exported objects.
func (c *Conn) ExportCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.exported)
}

// Signals returns every emitted signal in order.
func (c *Conn) Signals() []Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Signal(nil), c.signals...)
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
