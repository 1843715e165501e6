package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}

func TestDeadlineFiresOnce(t *testing.T) {
	d := NewDeadlineScheduler()
	d.unit = time.Millisecond
	var fired atomic.Int32
	if err := d.Arm(1, 1, func() { fired.Add(1) }); err != nil {
		t.Fatalf("Arm returned error: %v", err)
	}
	if st := d.State(1); st != DeadlineArmed {
		t.Fatalf("state = %s, want armed", st)
	}
	waitFor(t, func() bool { return fired.Load() == 1 })
	if st := d.State(1); st != DeadlineIdle {
		t.Fatalf("state after fire = %s, want idle", st)
	}
	if d.Cancel(1) {
		t.Fatalf("Cancel after fire = true, want false")
	}
	time.Sleep(5 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestDeadlineRearmArmedIsStateError(t *testing.T) {
	d := NewDeadlineScheduler()
	defer d.Stop()
	if err := d.Arm(3, 10, func() {}); err != nil {
		t.Fatalf("Arm returned error: %v", err)
	}
	if err := d.Arm(3, 10, func() {}); !IsCode(err, ErrorState) {
		t.Fatalf("second Arm err = %v, want state error", err)
	}
	if err := d.Arm(4, 0, func() {}); !IsCode(err, ErrorInvalid) {
		t.Fatalf("Arm with zero minutes err = %v, want invalid", err)
	}
}

func TestDeadlineCancelPreventsFire(t *testing.T) {
	d := NewDeadlineScheduler()
	d.unit = 20 * time.Millisecond
	var fired atomic.Int32
	if err := d.Arm(9, 1, func() { fired.Add(1) }); err != nil {
		t.Fatalf("Arm returned error: %v", err)
	}
	if !d.Cancel(9) {
		t.Fatalf("Cancel = false, want true")
	}
	if d.Armed() != 0 {
		t.Fatalf("armed = %d, want 0", d.Armed())
	}
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("callback ran after cancel")
	}
	if err := d.Arm(9, 1, func() {}); err != nil {
		t.Fatalf("re-arm after cancel returned error: %v", err)
	}
	d.Stop()
	if d.Armed() != 0 {
		t.Fatalf("armed after Stop = %d, want 0", d.Armed())
	}
}

func TestDeadlineCancelRacesZeroDelay(t *testing.T) {
	d := NewDeadlineScheduler()
	const n = 200
	var fired, cancelled atomic.Int32
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		if err := d.ArmAfter(i, 0, func() { fired.Add(1) }); err != nil {
			t.Fatalf("ArmAfter(%d) returned error: %v", i, err)
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if d.Cancel(id) {
				cancelled.Add(1)
			}
		}(i)
	}
	wg.Wait()
	waitFor(t, func() bool { return fired.Load()+cancelled.Load() == n })
	time.Sleep(5 * time.Millisecond)
	if got := fired.Load() + cancelled.Load(); got != n {
		t.Fatalf("fired+cancelled = %d, want %d", got, n)
	}
}
