// Package ccerr defines the error-kind taxonomy shared across CyberCache
// subsystems, so that code built on different wrapping libraries (pkg/errors,
// juju/errors, pingcap/errors) can still be matched with errors.Is/errors.As.
package ccerr

import "errors"

// Kind identifies one of the error categories the core must distinguish.
type Kind int

const (
	// KindRetry means non-blocking I/O would block; the caller should resume later.
	KindRetry Kind = iota
	// KindEOF means the peer closed the connection cleanly mid-frame.
	KindEOF
	// KindIO means a system error occurred on a descriptor.
	KindIO
	// KindProtocol means a frame decoded but was malformed.
	KindProtocol
	// KindAuth means a password hash was missing or did not match.
	KindAuth
	// KindQuota means a memory domain is over quota and could not be freed.
	KindQuota
	// KindLockBroken means a session lock timeout expired and the prior holder was preempted.
	KindLockBroken
	// KindDeleted means the target record was marked BEING_DELETED while the caller waited.
	KindDeleted
	// KindInternal means an invariant check failed.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindRetry:
		return "retry"
	case KindEOF:
		return "eof"
	case KindIO:
		return "io"
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindLockBroken:
		return "lock-broken"
	case KindDeleted:
		return "deleted"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error that wraps an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error carrying the same Kind, so that
// `errors.Is(err, ccerr.KindDeleted)`-style checks are not directly supported
// (Kind is not an error); use Of(err) == KindX instead.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// Wrap builds a Kind-tagged Error for op, wrapping err (which may be nil).
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Of extracts the Kind of err, if it (or something it wraps) is a *Error.
// Returns (KindInternal, false) if err carries no known Kind.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindInternal, false
}

// Is reports whether err's Kind is k.
func Has(err error, k Kind) bool {
	kind, ok := Of(err)
	return ok && kind == k
}
