// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hawaii-desktop/hawaii-session/lib/clock"
	"github.com/hawaii-desktop/hawaii-session/lib/mode"
)

// DefaultStopTimeout is how long a host gets to exit after SIGTERM
// before it is killed.
const DefaultStopTimeout = 5 * time.Second

// ProcessConfig configures a ProcessLoader.
type ProcessConfig struct {
	// Binary is the compositor host executable.
	Binary string

	// Args are passed before the scene and mode flags.
	Args []string

	// Mode selects the mode flags passed to the host.
	Mode mode.Mode

	// Platform is passed as --platform when non-empty.
	Platform string

	// Env is the host environment. Nil means the session's own.
	Env []string

	// Output receives the host's stdout and stderr. Nil discards them.
	Output io.Writer

	// StopTimeout bounds the SIGTERM grace period. Zero means
	// DefaultStopTimeout.
	StopTimeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// ProcessLoader runs each scene in a compositor host process.
//
// The host receives the write end of a pipe as fd 3 and reports
// progress as newline-separated KEY=VALUE records:
//
//	ROOT=compositor   the root object is a compositor runtime
//	ROOT=plain        the root object is an ordinary scene
//	SOCKET=wayland-1  the socket the compositor listens on
//	READY=1           loading finished
//	ERROR=<text>      loading or the running scene failed
//
// READY without a ROOT record means no root object was created.
type ProcessLoader struct {
	config ProcessConfig
	logger *slog.Logger
	clock  clock.Clock

	events chan Event
	closed chan struct{}

	mu      sync.Mutex
	current *host
	done    bool
}

// NewProcessLoader creates a loader. No process starts until Load.
func NewProcessLoader(config ProcessConfig) *ProcessLoader {
	if config.StopTimeout == 0 {
		config.StopTimeout = DefaultStopTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessLoader{
		config: config,
		logger: logger,
		clock:  config.Clock,
		events: make(chan Event, 1),
		closed: make(chan struct{}),
	}
}

// host is one running compositor host process.
type host struct {
	source  Source
	command *exec.Cmd
	records chan string

	exited  chan struct{}
	waitErr error

	stopping atomic.Bool
}

// Arguments returns the host command line for source, without the
// binary.
func (l *ProcessLoader) Arguments(source Source) []string {
	args := append([]string(nil), l.config.Args...)
	args = append(args, "--scene", source.URL)
	if l.config.Platform != "" {
		args = append(args, "--platform", l.config.Platform)
	}
	current := l.config.Mode
	if current.Kind == mode.Nested {
		args = append(args, "--nested")
	}
	if current.SocketName != "" {
		args = append(args, "--socket", current.SocketName)
	}
	if current.FakeScreenPath != "" {
		args = append(args, "--fake-screen", current.FakeScreenPath)
	}
	return args
}

// Load starts a host for source, stopping the previous one first, and
// waits for its first report.
func (l *ProcessLoader) Load(ctx context.Context, source Source) Outcome {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return FailedOutcome(errors.New("scene loader is closed"))
	}
	previous := l.current
	l.current = nil
	l.mu.Unlock()

	if previous != nil {
		l.stop(previous)
	}

	h, err := l.start(source)
	if err != nil {
		return FailedOutcome(err)
	}

	var root, socket string
	for {
		select {
		case <-ctx.Done():
			l.abandon(h)
			return FailedOutcome(ctx.Err())

		case record, ok := <-h.records:
			if !ok {
				// The notify pipe closed; the host may still be running.
				select {
				case <-h.exited:
					return FailedOutcome(fmt.Errorf("compositor host exited before the scene was ready: %w", exitError(h.waitErr)))
				case <-ctx.Done():
					l.abandon(h)
					return FailedOutcome(ctx.Err())
				}
			}
			key, value, _ := strings.Cut(record, "=")
			switch key {
			case "ROOT":
				root = value
			case "SOCKET":
				socket = value
			case "ERROR":
				l.abandon(h)
				return FailedOutcome(errors.New(value))
			case "READY":
				outcome := readyOutcome(root, socket)
				l.mu.Lock()
				l.current = h
				l.mu.Unlock()
				go l.monitor(h)
				return outcome
			default:
				l.logger.Debug("ignoring compositor host record", "record", record)
			}
		}
	}
}

func readyOutcome(root, socket string) Outcome {
	switch root {
	case "compositor":
		return CompositorOutcome(SocketRuntime(socket))
	case "plain":
		return PlainOutcome()
	default:
		return EmptyOutcome()
	}
}

// Events delivers scene failures and clean exits after a successful
// Load.
func (l *ProcessLoader) Events() <-chan Event { return l.events }

// Close stops the running host.
func (l *ProcessLoader) Close() error {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return nil
	}
	l.done = true
	current := l.current
	l.current = nil
	close(l.closed)
	l.mu.Unlock()

	if current != nil {
		l.stop(current)
	}
	return nil
}

func (l *ProcessLoader) start(source Source) (*host, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating notify pipe: %w", err)
	}

	command := exec.Command(l.config.Binary, l.Arguments(source)...)
	command.Env = l.config.Env
	command.Stdout = l.config.Output
	command.Stderr = l.config.Output
	command.ExtraFiles = []*os.File{writer} // becomes fd 3 in the host
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := command.Start(); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("starting compositor host %q: %w", l.config.Binary, err)
	}
	// The host has its own copy.
	writer.Close()

	h := &host{
		source:  source,
		command: command,
		records: make(chan string),
		exited:  make(chan struct{}),
	}
	go h.read(reader)
	go func() {
		h.waitErr = command.Wait()
		close(h.exited)
	}()

	l.logger.Info("compositor host started",
		"scene", source.URL,
		"pid", command.Process.Pid,
	)
	return h, nil
}

func (h *host) read(reader *os.File) {
	defer reader.Close()
	defer close(h.records)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			h.records <- line
		}
	}
}

// monitor follows a host that reported READY and delivers at most one
// event for it.
func (l *ProcessLoader) monitor(h *host) {
	reported := false
	for record := range h.records {
		key, value, _ := strings.Cut(record, "=")
		if key != "ERROR" || reported {
			continue
		}
		reported = true
		l.deliver(h, Event{Kind: EventFailed, Source: h.source, Err: errors.New(value)})
	}

	<-h.exited
	if reported {
		return
	}
	if h.waitErr != nil {
		l.deliver(h, Event{Kind: EventFailed, Source: h.source, Err: exitError(h.waitErr)})
		return
	}
	l.deliver(h, Event{Kind: EventQuit, Source: h.source})
}

func (l *ProcessLoader) deliver(h *host, event Event) {
	if h.stopping.Load() {
		return
	}
	l.logger.Info("scene event", "scene", h.source.URL, "event", event.Kind.String())
	select {
	case l.events <- event:
	case <-l.closed:
	}
}

// abandon stops a host whose load did not succeed and discards the
// rest of its records.
func (l *ProcessLoader) abandon(h *host) {
	go func() {
		for range h.records {
		}
	}()
	l.stop(h)
}

// stop terminates the host's process group: SIGTERM, then SIGKILL
// once the stop timeout elapses.
func (l *ProcessLoader) stop(h *host) {
	h.stopping.Store(true)
	select {
	case <-h.exited:
		return
	default:
	}

	processGroup := -h.command.Process.Pid
	if err := unix.Kill(processGroup, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		l.logger.Warn("signalling compositor host", "pid", h.command.Process.Pid, "error", err)
	}
	select {
	case <-h.exited:
	case <-l.clock.After(l.config.StopTimeout):
		l.logger.Warn("compositor host ignored SIGTERM, killing", "pid", h.command.Process.Pid)
		_ = unix.Kill(processGroup, unix.SIGKILL)
		<-h.exited
	}
	l.logger.Info("compositor host stopped", "scene", h.source.URL)
}

func exitError(err error) error {
	if err == nil {
		return errors.New("exit status 0")
	}
	return err
}
