// Package services – scheduling primitives
//
// This file defines the small time abstractions used by CallService: a Clock
// for reading the current time and a Scheduler that runs a function on a fixed
// interval until its handle is cancelled. Production code uses the real clock
// and a ticker-backed scheduler; tests inject a manual clock and drive ticks
// explicitly, so timeout and matching behavior can be verified with simulated
// time instead of sleeps.
package services

import (
	"sync"
	"time"
)

// Clock returns the current time. Inject time.Now in production.
type Clock func() time.Time

// TaskHandle controls a scheduled repeating task. Cancel stops future runs
// and is safe to call more than once.
type TaskHandle interface {
	Cancel()
}

// Scheduler starts repeating tasks. Every tick invokes fn; the returned
// handle stops the task.
type Scheduler interface {
	Every(interval time.Duration, fn func()) TaskHandle
}

// TickerScheduler is the production Scheduler backed by time.Ticker. Each
// task runs on its own goroutine; ticks that arrive while fn is still
// running are dropped by the ticker, never queued.
type TickerScheduler struct{}

// Every starts fn on a fixed interval and returns its handle.
func (TickerScheduler) Every(interval time.Duration, fn func()) TaskHandle {
	t := &tickerTask{done: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTask struct {
	once sync.Once
	done chan struct{}
}

// Cancel stops the task. Idempotent.
func (t *tickerTask) Cancel() {
	t.once.Do(func() { close(t.done) })
}
