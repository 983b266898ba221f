package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/syncpulse/internal/domain"
)

type TimerState int

const (
	TimerIdle TimerState = iota
	TimerArmed
	TimerFired
)

func (s TimerState) String() string {
	switch s {
	case TimerIdle:
		return "idle"
	case TimerArmed:
		return "armed"
	case TimerFired:
		return "fired"
	default:
		return fmt.Sprintf("TimerState(%d)", int(s))
	}
}

// TransitionTimer is a debounced one-shot task deciding that the app went to
// the background.
//
// Arm, Cancel, Stop and State must be called with lock held. The expiry
// acquires lock itself before running onFire, so onFire always runs with
// lock held. Every Arm and Cancel bumps a generation counter; an expiry
// whose generation is stale does nothing.
type TransitionTimer struct {
	lock   sync.Locker
	clock  clockwork.Clock
	delay  time.Duration
	onFire func()

	state   TimerState
	timer   clockwork.Timer
	gen     uint64
	stopped bool
}

func NewTransitionTimer(lock sync.Locker, clock clockwork.Clock, delay time.Duration, onFire func()) *TransitionTimer {
	return &TransitionTimer{
		lock:   lock,
		clock:  clock,
		delay:  delay,
		onFire: onFire,
	}
}

// Arm schedules the expiry, replacing any outstanding one. On error nothing
// stays scheduled.
func (t *TransitionTimer) Arm() (err error) {
	if t.stopped {
		return domain.ErrTimerStopped
	}
	if t.delay <= 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidDelay, t.delay)
	}

	t.discard()
	defer func() {
		if r := recover(); r != nil {
			t.discard()
			err = fmt.Errorf("schedule transition timer: %v", r)
		}
	}()

	gen := t.gen
	t.timer = t.clock.AfterFunc(t.delay, func() { t.expire(gen) })
	t.state = TimerArmed
	return nil
}

// Cancel discards an armed expiry. It reports whether one was armed.
func (t *TransitionTimer) Cancel() bool {
	wasArmed := t.state == TimerArmed
	t.discard()
	return wasArmed
}

// Stop cancels the timer and refuses further arming.
func (t *TransitionTimer) Stop() {
	t.stopped = true
	t.discard()
}

func (t *TransitionTimer) State() TimerState {
	return t.state
}

func (t *TransitionTimer) Delay() time.Duration {
	return t.delay
}

func (t *TransitionTimer) discard() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	if t.state == TimerArmed {
		t.state = TimerIdle
	}
}

func (t *TransitionTimer) expire(gen uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if gen != t.gen || t.state != TimerArmed {
		return
	}
	t.state = TimerFired
	t.timer = nil
	t.gen++

	defer func() {
		if t.state == TimerFired {
			t.state = TimerIdle
		}
	}()
	t.onFire()
}
