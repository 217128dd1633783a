// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/hawaii-desktop/hawaii-session/lib/binhash"
	"github.com/hawaii-desktop/hawaii-session/lib/bus"
	"github.com/hawaii-desktop/hawaii-session/lib/clock"
	"github.com/hawaii-desktop/hawaii-session/lib/config"
	"github.com/hawaii-desktop/hawaii-session/lib/environment"
	"github.com/hawaii-desktop/hawaii-session/lib/logging"
	"github.com/hawaii-desktop/hawaii-session/lib/mode"
	"github.com/hawaii-desktop/hawaii-session/lib/process"
	"github.com/hawaii-desktop/hawaii-session/lib/scene"
	"github.com/hawaii-desktop/hawaii-session/lib/supervisor"
	"github.com/hawaii-desktop/hawaii-session/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// options are the parsed command-line flags.
type options struct {
	socketName  string
	nested      bool
	fakeScreen  string
	qml         string
	platform    string
	configPath  string
	debug       bool
	help        bool
	showVersion bool
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("hawaii-session", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.socketName, "wayland-socket-name", "", "Wayland socket name the compositor creates")
	flagSet.BoolVarP(&opts.nested, "nested", "n", false, "run nested inside another Wayland compositor (requires --wayland-socket-name)")
	flagSet.StringVar(&opts.fakeScreen, "fake-screen", "", "simulate the outputs described in this JSONC file")
	flagSet.StringVar(&opts.qml, "qml", "", "load this shell scene file instead of the default (development configurations only)")
	flagSet.StringVar(&opts.platform, "platform", "", "display platform (default: QT_QPA_PLATFORM, then detected from WAYLAND_DISPLAY or DISPLAY)")
	flagSet.StringVar(&opts.configPath, "config", "", "session configuration file (default: HAWAII_SESSION_CONFIG)")
	flagSet.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	return flagSet
}

func parseOptions(args []string) (options, *pflag.FlagSet, error) {
	var opts options
	flagSet := newFlagSet(&opts)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			opts.help = true
			return opts, flagSet, nil
		}
		return opts, flagSet, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, flagSet, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, flagSet, nil
}

func run(args []string) error {
	opts, flagSet, err := parseOptions(args)
	if err != nil {
		return err
	}
	if opts.help {
		printHelp(os.Stdout, flagSet)
		return nil
	}
	if opts.showVersion {
		fmt.Printf("hawaii-session %s\n", version.Full())
		return nil
	}

	processEnv, err := config.ParseProcessEnv()
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(opts.configPath, processEnv)
	if err != nil {
		return err
	}
	stopTimeout, err := cfg.StopTimeout()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, logging.Level(opts.debug))
	slog.SetDefault(logger)
	logStartup(logger, cfg)

	request := mode.Request{
		Nested:          opts.nested,
		SocketName:      opts.socketName,
		FakeScreenPath:  opts.fakeScreen,
		CustomScenePath: opts.qml,
		BusAddress:      processEnv.BusAddress,
		Platform:        mode.DetectPlatform(opts.platform, processEnv.Get),
		Development:     cfg.Environment == config.Development,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := supervisor.New(supervisor.Options{
		Config:  cfg,
		Request: request,
		Env:     environment.Process(),
		Connect: func(address string) (bus.Conn, error) {
			conn, err := bus.Connect(address, logger)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		NewLoader: func(resolved mode.Mode) scene.Loader {
			return scene.NewProcessLoader(scene.ProcessConfig{
				Binary:      cfg.Scene.HostBinary,
				Args:        cfg.Scene.HostArgs,
				Mode:        resolved,
				Platform:    opts.platform,
				Output:      os.Stderr,
				StopTimeout: stopTimeout,
				Logger:      logger.With("component", "scene"),
			})
		},
		Clock:  clock.Real(),
		Logger: logger,
	})

	if err := session.Start(ctx); err != nil {
		return &exitError{code: session.Machine().ExitCode(), err: err}
	}
	if err := session.Run(ctx); err != nil {
		return &exitError{code: session.Machine().ExitCode(), err: err}
	}
	return nil
}

// logStartup records what is running. The binary digest identifies
// the exact build in bug reports.
func logStartup(logger *slog.Logger, cfg *config.Config) {
	digest := "unknown"
	if executable, err := binhash.Executable(); err == nil {
		digest = executable.Short()
	}
	logger.Info("hawaii-session starting",
		"version", version.Info(),
		"commit", version.Commit(),
		"binary_blake3", digest,
		"environment", string(cfg.Environment),
		"runtime_dir", cfg.RuntimeDir,
	)
}

// exitError carries the supervisor's exit code to process.Fatal.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func (e *exitError) ExitCode() int {
	if e.code == 0 {
		return 1
	}
	return e.code
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `hawaii-session starts and supervises a Hawaii desktop session.

Usage:
  hawaii-session [flags]

Run it inside a D-Bus session, for example:
  dbus-run-session hawaii-session
  dbus-run-session hawaii-session --nested --wayland-socket-name wayland-1

Flags:
%s`, flagSet.FlagUsages())
}
