package record

import (
	"time"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/threadreg"
)

// SessionObject is a session-store record: a PayloadHashObject plus the
// session lock state of spec §4.9 — a waiter mask and the request id
// currently holding the (advisory, request-scoped) lock.
type SessionObject struct {
	PayloadHashObject

	lockOwner   uint64 // request id currently holding the session lock, 0 if unheld
	waiterMask  uint64 // bits 0..62: thread indices waiting for this lock

	// BrokenLocks counts timeout-forced lock breaks on this session,
	// contributing to the process-wide PERF_Session_Broken_Locks counter.
	BrokenLocks uint64
}

// NewSessionObject constructs a session record with the fixed
// {PAYLOAD} flag combination.
func NewSessionObject(hash uint64, name []byte) *SessionObject {
	return &SessionObject{PayloadHashObject: PayloadHashObject{HashObject: newHashObject(KindSession, hash, name)}}
}

// LockSession implements spec §4.9: called after the caller already holds
// the record's HashObject mutex. If requestID or lockWaitTime is zero the
// call is a no-op success (spec: "only meaningful when both ... are
// nonzero"). Otherwise, if the session is unheld or already held by
// requestID, it is claimed/reaffirmed; if held by another request, the
// caller registers its thread index, the mutex must be dropped by the
// caller around this call (see unlockDuringWait/relockAfterWait), and on
// timeout the prior lock is broken unless BEING_DELETED was set meanwhile.
func (s *SessionObject) LockSession(requestID uint64, threadIndex int, lockWaitTime time.Duration, events *threadreg.Registry, unlockMutex, relockMutex func()) error {
	if requestID == 0 || lockWaitTime == 0 {
		return nil
	}
	if s.lockOwner == 0 || s.lockOwner == requestID {
		s.lockOwner = requestID
		return nil
	}

	myBit := uint64(1) << uint(threadIndex)
	s.waiterMask |= myBit
	unlockMutex()
	signaled := events.Event(threadIndex).Wait(lockWaitTime)
	relockMutex()
	s.waiterMask &^= myBit

	if signaled {
		// Woken by UnlockSession; caller is expected to retry LockSession.
		return ccerr.Wrap(ccerr.KindRetry, "record.LockSession", errRetrySessionLock)
	}

	if s.IsBeingDeleted() {
		return ccerr.Wrap(ccerr.KindDeleted, "record.LockSession", errSessionDeleted)
	}

	// Timeout: break the prior lock.
	s.lockOwner = requestID
	s.BrokenLocks++
	return ccerr.Wrap(ccerr.KindLockBroken, "record.LockSession", errLockBroken)
}

// UnlockSession releases the session lock if held by requestID and wakes
// the lowest-indexed waiter, if any.
func (s *SessionObject) UnlockSession(requestID uint64, events *threadreg.Registry) {
	if s.lockOwner != requestID {
		return
	}
	s.lockOwner = 0
	if s.waiterMask == 0 {
		return
	}
	lowest := trailingZeros64(s.waiterMask)
	events.Event(lowest).Signal()
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

var (
	errRetrySessionLock = ccerrPlain("session lock was released; caller must retry")
	errSessionDeleted   = ccerrPlain("session was deleted while lock was contended")
	errLockBroken       = ccerrPlain("session lock timed out; prior holder was preempted")
)

type ccerrPlain string

func (e ccerrPlain) Error() string { return string(e) }
