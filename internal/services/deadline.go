package services

import (
	"sync"
	"time"
)

type DeadlineState string

const (
	DeadlineIdle  DeadlineState = "idle"
	DeadlineArmed DeadlineState = "armed"
)

type deadlineEntry struct {
	timer *time.Timer
	due   time.Time
}

// DeadlineScheduler runs one one-shot timer per armed response. A fired or
// cancelled entry is removed, so the scheduler only tracks armed ids.
type DeadlineScheduler struct {
	mu      sync.Mutex
	entries map[int]*deadlineEntry
	unit    time.Duration
	now     func() time.Time
}

func NewDeadlineScheduler() *DeadlineScheduler {
	return &DeadlineScheduler{
		entries: map[int]*deadlineEntry{},
		unit:    time.Minute,
		now:     time.Now,
	}
}

// Arm schedules onFire to run once after the given number of minutes.
func (d *DeadlineScheduler) Arm(responseID, minutes int, onFire func()) error {
	if minutes <= 0 {
		return NewInvalidError("time limit must be positive")
	}
	return d.ArmAfter(responseID, time.Duration(minutes)*d.unit, onFire)
}

// ArmAfter schedules onFire after an explicit duration. Negative durations fire immediately.
func (d *DeadlineScheduler) ArmAfter(responseID int, after time.Duration, onFire func()) error {
	if onFire == nil {
		return NewInvalidError("deadline callback required")
	}
	if after < 0 {
		after = 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[responseID]; ok {
		return NewStateError("deadline already armed")
	}
	e := &deadlineEntry{due: d.now().Add(after)}
	d.entries[responseID] = e
	e.timer = time.AfterFunc(after, func() { d.fire(responseID, e, onFire) })
	return nil
}

func (d *DeadlineScheduler) fire(responseID int, e *deadlineEntry, onFire func()) {
	d.mu.Lock()
	cur, ok := d.entries[responseID]
	if !ok || cur != e {
		d.mu.Unlock()
		return
	}
	delete(d.entries, responseID)
	d.mu.Unlock()
	onFire()
}

// Cancel stops an armed timer. After it returns true the callback never runs.
func (d *DeadlineScheduler) Cancel(responseID int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[responseID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.entries, responseID)
	return true
}

func (d *DeadlineScheduler) State(responseID int) DeadlineState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[responseID]; ok {
		return DeadlineArmed
	}
	return DeadlineIdle
}

// Due returns when an armed deadline fires.
func (d *DeadlineScheduler) Due(responseID int) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[responseID]
	if !ok {
		return time.Time{}, false
	}
	return e.due, true
}

func (d *DeadlineScheduler) Armed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Stop cancels every armed timer.
func (d *DeadlineScheduler) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, e := range d.entries {
		e.timer.Stop()
		delete(d.entries, id)
	}
}
