// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestConnectRequiresAddress(t *testing.T) {
	if _, err := Connect("", slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("Connect(\"\") succeeded, want error")
	}
}

func TestConnectUnreachableBus(t *testing.T) {
	address := "unix:path=" + filepath.Join(t.TempDir(), "no-such-bus")
	_, err := Connect(address, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("Connect to a missing socket succeeded, want error")
	}
}

// recordingExporter fails exports of the listed interfaces, or of
// unexports (nil values) when failUnexport is set.
type recordingExporter struct {
	failInterface map[string]error
	failUnexport  error
	calls         []string
}

func (e *recordingExporter) Export(value any, path dbus.ObjectPath, iface string) error {
	if value == nil {
		e.calls = append(e.calls, "unexport "+iface)
		return e.failUnexport
	}
	e.calls = append(e.calls, "export "+iface)
	return e.failInterface[iface]
}

type pingHandler struct{}

func (pingHandler) Ping() *dbus.Error { return nil }

func TestExportIntrospectionFailureRollsBack(t *testing.T) {
	introspectErr := errors.New("introspection refused")
	unexportErr := errors.New("unexport refused")
	object := Object{
		Name:      "org.hawaiios.Test",
		Path:      "/Test",
		Interface: "org.hawaiios.Test",
		Handler:   pingHandler{},
	}

	tests := []struct {
		name         string
		failUnexport error
		wantErrs     []error
	}{
		{name: "rollback succeeds", wantErrs: []error{introspectErr}},
		{name: "rollback fails", failUnexport: unexportErr, wantErrs: []error{introspectErr, unexportErr}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			exports := &recordingExporter{
				failInterface: map[string]error{introspectableInterface: introspectErr},
				failUnexport:  test.failUnexport,
			}
			conn := &SessionConn{exports: exports, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

			err := conn.Export(object)
			for _, want := range test.wantErrs {
				if !errors.Is(err, want) {
					t.Errorf("Export error = %v, want it to include %v", err, want)
				}
			}
			if len(exports.calls) != 3 || exports.calls[2] != "unexport org.hawaiios.Test" {
				t.Errorf("calls = %v, want the handler unexported after the failure", exports.calls)
			}
		})
	}
}

func TestExportInvalidPath(t *testing.T) {
	exports := &recordingExporter{}
	conn := &SessionConn{exports: exports, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if err := conn.Export(Object{Path: "no-leading-slash", Interface: "org.hawaiios.Test", Handler: pingHandler{}}); err == nil {
		t.Fatal("Export with an invalid path succeeded")
	}
	if len(exports.calls) != 0 {
		t.Errorf("calls = %v, want none", exports.calls)
	}
}
