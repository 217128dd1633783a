// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package bus is the session's view of the D-Bus session bus.
//
// [Conn] is the narrow set of operations the session needs: claim and
// release well-known names, export and unexport objects, emit signals.
// [Connect] implements it on top of github.com/godbus/dbus/v5; tests
// substitute fakes that record calls and inject failures.
//
// Errors from the transport are returned unwrapped or wrapped with
// %w so callers can surface the bus daemon's own message verbatim.
package bus

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Object describes one service exported on the bus.
type Object struct {
	// Name is the well-known bus name the service claims
	// (e.g. "org.freedesktop.ScreenSaver").
	Name string

	// Path is the object path the handler is exported at.
	Path dbus.ObjectPath

	// Interface is the D-Bus interface name of the handler's methods.
	Interface string

	// Handler is the value whose exported methods become D-Bus
	// methods. Each method's last return value must be *dbus.Error.
	Handler any

	// Signals lists the signals the service emits, for introspection.
	Signals []introspect.Signal
}

// Conn is a session bus connection.
type Conn interface {
	// RequestName claims a well-known name. Fails if another
	// connection already owns it.
	RequestName(name string) error

	// ReleaseName gives up a well-known name.
	ReleaseName(name string) error

	// Export makes object's handler callable at its path.
	Export(object Object) error

	// Unexport removes an exported object.
	Unexport(object Object) error

	// Emit broadcasts a signal from path. name is the fully qualified
	// member name ("org.freedesktop.ScreenSaver.ActiveChanged").
	Emit(path dbus.ObjectPath, name string, values ...any) error

	// Close drops the connection; the bus daemon releases every name
	// still owned.
	Close() error
}

const introspectableInterface = "org.freedesktop.DBus.Introspectable"

// ErrNameTaken is returned by RequestName when the name already has a
// primary owner.
var ErrNameTaken = errors.New("name already has an owner")

// exporter is the export half of *dbus.Conn.
type exporter interface {
	Export(value any, path dbus.ObjectPath, iface string) error
}

// SessionConn is a Conn backed by a godbus connection.
type SessionConn struct {
	conn    *dbus.Conn
	exports exporter
	logger  *slog.Logger
}

// Connect opens a private connection to the bus at address
// (DBUS_SESSION_BUS_ADDRESS) and completes the authentication and
// Hello handshake.
func Connect(address string, logger *slog.Logger) (*SessionConn, error) {
	if address == "" {
		return nil, errors.New("empty session bus address")
	}
	conn, err := dbus.Connect(address)
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connected to session bus", "unique_name", conn.Names()[0])
	return &SessionConn{conn: conn, exports: conn, logger: logger}, nil
}

// RequestName claims name without queueing behind an existing owner.
func (c *SessionConn) RequestName(name string) error {
	reply, err := c.conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	switch reply {
	case dbus.RequestNameReplyPrimaryOwner, dbus.RequestNameReplyAlreadyOwner:
		return nil
	default:
		return fmt.Errorf("%s: %w", name, ErrNameTaken)
	}
}

// ReleaseName releases name. Releasing a name this connection does not
// own is not an error.
func (c *SessionConn) ReleaseName(name string) error {
	_, err := c.conn.ReleaseName(name)
	return err
}

// Export exports the handler and an introspection description of it.
func (c *SessionConn) Export(object Object) error {
	if !object.Path.IsValid() {
		return fmt.Errorf("invalid object path %q", object.Path)
	}
	if err := c.exports.Export(object.Handler, object.Path, object.Interface); err != nil {
		return fmt.Errorf("exporting %s at %s: %w", object.Interface, object.Path, err)
	}
	node := &introspect.Node{
		Name: string(object.Path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    object.Interface,
				Methods: introspect.Methods(object.Handler),
				Signals: object.Signals,
			},
		},
	}
	if err := c.exports.Export(introspect.NewIntrospectable(node), object.Path, introspectableInterface); err != nil {
		err = fmt.Errorf("exporting introspection at %s: %w", object.Path, err)
		if rollbackErr := c.exports.Export(nil, object.Path, object.Interface); rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("unexporting %s at %s: %w", object.Interface, object.Path, rollbackErr))
		}
		return err
	}
	return nil
}

// Unexport removes the handler and its introspection data.
func (c *SessionConn) Unexport(object Object) error {
	return errors.Join(
		c.exports.Export(nil, object.Path, object.Interface),
		c.exports.Export(nil, object.Path, introspectableInterface),
	)
}

// Emit broadcasts a signal.
func (c *SessionConn) Emit(path dbus.ObjectPath, name string, values ...any) error {
	return c.conn.Emit(path, name, values...)
}

// Close closes the connection.
func (c *SessionConn) Close() error {
	return c.conn.Close()
}
