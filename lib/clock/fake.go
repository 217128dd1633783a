// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves on Advance. Safe for
// concurrent use.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline
// order, without the clock's lock held, so a callback may schedule
// another timer.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	pending []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	channel  chan time.Time
	callback func()
	done     bool
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.pending = append(c.pending, &fakeTimer{deadline: c.current.Add(d), channel: channel})
	return channel
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}

	c.mu.Lock()
	timer := &fakeTimer{deadline: c.current.Add(d), callback: f}
	c.pending = append(c.pending, timer)
	c.mu.Unlock()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if timer.done {
			return false
		}
		timer.done = true
		return true
	}}
}

// Advance moves time forward by d and fires every timer whose deadline
// has been reached, including timers scheduled by callbacks that fall
// within the new time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		for _, timer := range due {
			if timer.callback != nil {
				timer.callback()
				continue
			}
			timer.channel <- target
		}
	}
}

func (c *FakeClock) takeDue(target time.Time) []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, remaining []*fakeTimer
	for _, timer := range c.pending {
		switch {
		case timer.done:
		case timer.deadline.After(target):
			remaining = append(remaining, timer)
		default:
			timer.done = true
			due = append(due, timer)
		}
	}
	c.pending = remaining
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	return due
}

// Pending returns the number of timers that have not fired or been
// stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.pending {
		if !timer.done {
			count++
		}
	}
	return count
}
