// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package screensaver

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hawaii-desktop/hawaii-session/lib/bus/bustest"
	"github.com/hawaii-desktop/hawaii-session/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestSaver(t *testing.T, timeout time.Duration) (*ScreenSaver, *clock.FakeClock, *[]bool) {
	t.Helper()
	fake := clock.Fake(epoch)
	saver := New(fake, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(saver.Close)
	var changes []bool
	saver.OnActiveChanged(func(active bool) { changes = append(changes, active) })
	return saver, fake, &changes
}

func TestIdleTimeoutActivates(t *testing.T) {
	saver, fake, changes := newTestSaver(t, 10*time.Minute)

	fake.Advance(9 * time.Minute)
	if saver.Active() {
		t.Fatal("active before the idle timeout")
	}
	if got := saver.IdleTime(); got != 9*time.Minute {
		t.Errorf("IdleTime() = %v, want 9m", got)
	}

	fake.Advance(time.Minute)
	if !saver.Active() {
		t.Fatal("not active after the idle timeout")
	}
	fake.Advance(30 * time.Second)
	if got := saver.ActiveTime(); got != 30*time.Second {
		t.Errorf("ActiveTime() = %v, want 30s", got)
	}
	if len(*changes) != 1 || !(*changes)[0] {
		t.Errorf("changes = %v, want [true]", *changes)
	}
}

func TestUserActivityResetsTimer(t *testing.T) {
	saver, fake, changes := newTestSaver(t, 10*time.Minute)

	fake.Advance(8 * time.Minute)
	saver.SimulateUserActivity()
	fake.Advance(8 * time.Minute)
	if saver.Active() {
		t.Fatal("activated although activity reset the idle timer")
	}
	fake.Advance(2 * time.Minute)
	if !saver.Active() {
		t.Fatal("not active a full timeout after the last activity")
	}

	saver.SimulateUserActivity()
	if saver.Active() {
		t.Error("activity did not deactivate the screensaver")
	}
	if saver.ActiveTime() != 0 {
		t.Errorf("ActiveTime() = %v while inactive, want 0", saver.ActiveTime())
	}
	want := []bool{true, false}
	if len(*changes) != len(want) || (*changes)[0] != want[0] || (*changes)[1] != want[1] {
		t.Errorf("changes = %v, want %v", *changes, want)
	}
}

func TestInhibitionBlocksActivation(t *testing.T) {
	saver, fake, _ := newTestSaver(t, time.Minute)

	cookie := saver.Inhibit("video-player", "playing")
	if cookie != 1 {
		t.Errorf("first cookie = %d, want 1", cookie)
	}
	if !saver.Inhibited() {
		t.Fatal("Inhibited() = false after Inhibit")
	}

	fake.Advance(5 * time.Minute)
	if saver.Active() {
		t.Fatal("activated while inhibited")
	}
	if saver.SetActive(true) {
		t.Error("SetActive(true) succeeded while inhibited")
	}

	if err := saver.UnInhibit(cookie); err != nil {
		t.Fatalf("UnInhibit: %v", err)
	}
	fake.Advance(time.Minute)
	if !saver.Active() {
		t.Error("did not activate once the inhibition was released")
	}
}

func TestUnInhibitUnknownCookie(t *testing.T) {
	saver, _, _ := newTestSaver(t, 0)
	first := saver.Inhibit("a", "x")
	second := saver.Inhibit("b", "y")
	if second != first+1 {
		t.Errorf("cookies %d, %d are not sequential", first, second)
	}

	if err := saver.UnInhibit(first); err != nil {
		t.Fatalf("UnInhibit: %v", err)
	}
	if err := saver.UnInhibit(first); !errors.Is(err, ErrUnknownCookie) {
		t.Errorf("second UnInhibit = %v, want ErrUnknownCookie", err)
	}

	inhibitors := saver.Inhibitors()
	if len(inhibitors) != 1 || inhibitors[0].Application != "b" {
		t.Errorf("Inhibitors() = %+v, want only b", inhibitors)
	}
}

func TestZeroTimeoutNeverActivates(t *testing.T) {
	saver, fake, _ := newTestSaver(t, 0)
	fake.Advance(24 * time.Hour)
	if saver.Active() {
		t.Fatal("activated with the idle timer disabled")
	}
	if !saver.SetActive(true) || !saver.Active() {
		t.Error("SetActive(true) did not activate")
	}
	if !saver.SetActive(false) || saver.Active() {
		t.Error("SetActive(false) did not deactivate")
	}
}

func TestCloseStopsTimer(t *testing.T) {
	saver, fake, _ := newTestSaver(t, time.Minute)
	saver.Close()
	fake.Advance(time.Hour)
	if saver.Active() {
		t.Error("activated after Close")
	}
}

// callbackClock records every AfterFunc callback so a test can run one
// late, the way a real timer does when its callback is already waiting
// for the lock while the timer is re-armed.
type callbackClock struct {
	*clock.FakeClock
	callbacks []func()
}

func (c *callbackClock) AfterFunc(d time.Duration, f func()) *clock.Timer {
	c.callbacks = append(c.callbacks, f)
	return c.FakeClock.AfterFunc(d, f)
}

func TestLateTimerCallbackIgnored(t *testing.T) {
	clk := &callbackClock{FakeClock: clock.Fake(epoch)}
	saver := New(clk, 10*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(saver.Close)

	clk.Advance(5 * time.Minute)
	saver.SimulateUserActivity()
	if len(clk.callbacks) != 2 {
		t.Fatalf("armed %d timers, want 2", len(clk.callbacks))
	}

	// The first timer fires after the activity re-armed the idle timer.
	clk.callbacks[0]()
	if saver.Active() {
		t.Fatalf("activated %v after user activity", saver.IdleTime())
	}

	clk.Advance(10 * time.Minute)
	if !saver.Active() {
		t.Fatal("re-armed timer did not activate after the full timeout")
	}
}

func TestLateTimerCallbackKeepsCurrentTimer(t *testing.T) {
	clk := &callbackClock{FakeClock: clock.Fake(epoch)}
	saver := New(clk, 10*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	saver.SimulateUserActivity()
	clk.callbacks[0]()
	saver.Close()

	if pending := clk.Pending(); pending != 0 {
		t.Errorf("%d timers still pending after Close", pending)
	}
	clk.Advance(time.Hour)
	if saver.Active() {
		t.Error("activated after Close")
	}
}

func TestEmitActiveChanges(t *testing.T) {
	saver, fake, _ := newTestSaver(t, time.Minute)
	conn := bustest.New()
	saver.EmitActiveChanges(conn)

	fake.Advance(time.Minute)
	saver.SimulateUserActivity()

	signals := conn.Signals()
	if len(signals) != 2 {
		t.Fatalf("emitted %d signals, want 2", len(signals))
	}
	for index, want := range []bool{true, false} {
		signal := signals[index]
		if signal.Path != Path || signal.Name != Interface+".ActiveChanged" {
			t.Errorf("signal %d = %s %s", index, signal.Path, signal.Name)
		}
		if len(signal.Values) != 1 || signal.Values[0] != want {
			t.Errorf("signal %d values = %v, want [%v]", index, signal.Values, want)
		}
	}
}

func TestBusHandler(t *testing.T) {
	saver, fake, _ := newTestSaver(t, 0)
	object := saver.BusObject("")
	if object.Name != BusName || object.Path != Path {
		t.Fatalf("BusObject = %s %s", object.Name, object.Path)
	}
	handler := object.Handler.(*busHandler)

	cookie, dbusErr := handler.Inhibit("app", "reason")
	if dbusErr != nil {
		t.Fatalf("Inhibit: %v", dbusErr)
	}
	if dbusErr := handler.UnInhibit(cookie + 100); dbusErr == nil {
		t.Error("UnInhibit of an unknown cookie succeeded")
	}
	if dbusErr := handler.UnInhibit(cookie); dbusErr != nil {
		t.Errorf("UnInhibit: %v", dbusErr)
	}

	if ok, _ := handler.SetActive(true); !ok {
		t.Fatal("SetActive(true) refused")
	}
	fake.Advance(90 * time.Second)
	if seconds, _ := handler.GetActiveTime(); seconds != 90 {
		t.Errorf("GetActiveTime() = %d, want 90", seconds)
	}
	if active, _ := handler.GetActive(); !active {
		t.Error("GetActive() = false")
	}
	if seconds, _ := handler.GetSessionIdleTime(); seconds != 90 {
		t.Errorf("GetSessionIdleTime() = %d, want 90", seconds)
	}
	if dbusErr := handler.SimulateUserActivity(); dbusErr != nil {
		t.Errorf("SimulateUserActivity: %v", dbusErr)
	}
	if seconds, _ := handler.GetSessionIdleTime(); seconds != 0 {
		t.Errorf("GetSessionIdleTime() after activity = %d, want 0", seconds)
	}
}
