// Package lockable implements LockableObject (spec §4.7): a single 64-bit
// atomic word per record, the top bit holding the LOCKED flag and the
// remaining 63 bits a mask of waiting thread indices. Grounded on the
// teacher's latch.go RWMutex-wrapper shape for the guard API, but the bit-
// packed acquire/release algorithm itself follows original_source's
// mt_lockable_object.h exactly, since the teacher has no lock-free analog.
package lockable

import (
	"go.uber.org/atomic"
)

// Locked is the top bit of the 64-bit word.
const Locked uint64 = 1 << 63

// waitMask is the complement: bits 0..62, one per thread index.
const waitMask = Locked - 1

// Event is the per-thread park/unpark primitive a LockableObject waiter
// blocks on. A buffered channel of size 1 is the idiomatic Go substitute
// for the futex (Linux) / self-pipe (Cygwin) pair spec §4.7 describes —
// neither primitive is portable or necessary given goroutines.
type Event struct {
	ch chan struct{}
}

func NewEvent() *Event { return &Event{ch: make(chan struct{}, 1)} }

func (e *Event) Park()   { <-e.ch }
func (e *Event) Unpark() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// EventSource resolves a dense thread index to its Event, letting
// LockableObject wake exactly the thread it selected. internal/threadreg's
// Registry does not expose lockable.Event directly (it owns TimedEvent,
// the session-lock-wait primitive); callers adapt by keeping a
// parallel []*Event indexed the same way, which is what EventSource wraps.
type EventSource interface {
	Event(threadIndex int) *Event
}

// LockableObject is a single atomic word implementing the exclusive lock
// and wait-mask scheme of spec §4.7.
type LockableObject struct {
	state atomic.Uint64
}

// Lock blocks until the calling thread (threadIndex, a dense index from
// internal/threadreg, 0..62) acquires the lock.
func (l *LockableObject) Lock(threadIndex int, events EventSource) {
	myBit := uint64(1) << uint(threadIndex)
	ev := events.Event(threadIndex)
	for {
		prev := l.state.Or(Locked | myBit)
		if prev&Locked == 0 {
			break // we set LOCKED ourselves: acquired
		}
		ev.Park()
	}
	l.state.And(^myBit)
}

// TryLock attempts a single non-blocking acquire, per spec §4.7 ("a single
// fetch_or(LOCKED) without setting the wait bit").
func (l *LockableObject) TryLock() bool {
	prev := l.state.Or(Locked)
	return prev&Locked == 0
}

// Unlock releases the lock and wakes the lowest-indexed waiting thread, if
// any, restoring the remaining waiter bits so it can re-check when woken.
func (l *LockableObject) Unlock(events EventSource) {
	prev := l.state.Swap(0)
	mask := prev &^ Locked
	if mask == 0 {
		return
	}
	lowest := trailingZeros64(mask)
	l.state.Or(mask &^ (uint64(1) << uint(lowest)))
	events.Event(lowest).Unpark()
}

func trailingZeros64(x uint64) int {
	if x == 0 {
		return 64
	}
	n := 0
	for x&1 == 0 {
		x >>= 1
		n++
	}
	return n
}

// Guard pairs acquire and release and is the sole API meant to reach
// callers outside this package (spec §4.7: "A lock guard type pairs
// acquire/release and is the sole API exposed").
type Guard struct {
	obj         *LockableObject
	events      EventSource
	threadIndex int
}

// Acquire locks obj for threadIndex and returns a Guard that must be
// released exactly once via Unlock.
func Acquire(obj *LockableObject, threadIndex int, events EventSource) *Guard {
	obj.Lock(threadIndex, events)
	return &Guard{obj: obj, events: events, threadIndex: threadIndex}
}

// TryAcquire attempts a non-blocking lock, returning nil if unavailable.
func TryAcquire(obj *LockableObject, events EventSource) *Guard {
	if !obj.TryLock() {
		return nil
	}
	return &Guard{obj: obj, events: events}
}

// Unlock releases the guarded lock. Calling it more than once is a
// programming error (the guard does not protect against double-release,
// matching the teacher's plain latch.Unlock contract).
func (g *Guard) Unlock() {
	g.obj.Unlock(g.events)
}
