// Package buffers implements SharedBuffers (spec §3/§4.5): a refcounted
// header+payload container that lets a single received command be queued
// for replication, binlogging, and execution without copying. Grounded on
// the teacher's bytes.Buffer-backed MySQLPackage framing
// (server/net/readwriter.go), generalized from a single growable buffer to
// the header/payload split spec §3 describes.
package buffers

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// inlineHeaderSize is the scratch-header size small enough to avoid a heap
// allocation for the common case (descriptor + size fields + command id),
// per spec §3's "12-byte inline scratch or heap block".
const inlineHeaderSize = 12

// PayloadState distinguishes ownership of the payload slice.
type PayloadState byte

const (
	// PayloadEmpty means there is no payload (distinct from a zero-length
	// owned payload — spec §3's "sentinel non-null pointer" concept,
	// represented here by PayloadOwned with a zero-length non-nil slice).
	PayloadEmpty PayloadState = iota
	PayloadOwned
	PayloadBorrowed
)

// SharedBuffers is a refcounted header+payload pair, per spec §3's
// definition: "while reference count is nonzero, the header contents are
// immutable."
type SharedBuffers struct {
	inline [inlineHeaderSize]byte
	header []byte // nil if using inline scratch

	payload      []byte
	payloadState PayloadState

	refs int32

	// onLastRelease, if set, is invoked when RemoveReference drops the
	// count to zero and the payload was PayloadBorrowed — detaching the
	// reader pin the borrow represents (spec §3: "last drop ... detaches
	// any payload-borrowed reader pin").
	onLastRelease func()
}

// New returns a SharedBuffers with refcount 1 and an empty payload, using
// the inline header scratch.
func New() *SharedBuffers {
	return &SharedBuffers{refs: 1, payloadState: PayloadEmpty}
}

// Header returns the header bytes, sized to headerLen (callers grow via
// GrowHeader before writing past the inline scratch).
func (b *SharedBuffers) Header() []byte {
	if b.header != nil {
		return b.header
	}
	return b.inline[:]
}

// GrowHeader ensures the header buffer is at least n bytes, promoting from
// the inline scratch to a heap block if needed. Existing bytes are preserved.
func (b *SharedBuffers) GrowHeader(n int) []byte {
	if n <= inlineHeaderSize && b.header == nil {
		return b.inline[:n]
	}
	if b.header != nil && len(b.header) >= n {
		return b.header[:n]
	}
	newHeader := make([]byte, n)
	if b.header != nil {
		copy(newHeader, b.header)
	} else {
		copy(newHeader, b.inline[:])
	}
	b.header = newHeader
	return b.header
}

// Payload returns the current payload bytes (nil if PayloadEmpty).
func (b *SharedBuffers) Payload() []byte { return b.payload }

func (b *SharedBuffers) PayloadState() PayloadState { return b.payloadState }

// SetOwnedPayload installs p as an owned payload (the common case: bytes
// read off the wire, or produced by a chunk/compressor pipeline). A
// non-nil zero-length slice is the "present but empty" sentinel spec §3
// requires to distinguish "absent" from "empty".
func (b *SharedBuffers) SetOwnedPayload(p []byte) {
	if p == nil {
		p = []byte{}
	}
	b.payload = p
	b.payloadState = PayloadOwned
}

// BorrowPayload installs p as a payload borrowed from a record (the record
// retains true ownership; onRelease is invoked — detaching the caller's
// reader pin — when this SharedBuffers' last reference is released).
func (b *SharedBuffers) BorrowPayload(p []byte, onRelease func()) {
	b.payload = p
	b.payloadState = PayloadBorrowed
	b.onLastRelease = onRelease
}

// ClearPayload resets to PayloadEmpty without invoking any release hook
// (used when a command has no payload at all).
func (b *SharedBuffers) ClearPayload() {
	b.payload = nil
	b.payloadState = PayloadEmpty
	b.onLastRelease = nil
}

// AddReference increments the refcount, used on fan-out to replication,
// binlog, and the executing worker simultaneously (spec §3).
func (b *SharedBuffers) AddReference() {
	atomic.AddInt32(&b.refs, 1)
}

// RefCount returns the current reference count.
func (b *SharedBuffers) RefCount() int32 { return atomic.LoadInt32(&b.refs) }

// RemoveReference decrements the refcount; when it reaches zero, both
// buffers are released and freed is true. If the payload was borrowed, the
// release hook installed by BorrowPayload runs first.
func (b *SharedBuffers) RemoveReference() (freed bool) {
	n := atomic.AddInt32(&b.refs, -1)
	if n < 0 {
		panic(errors.New("buffers: RemoveReference called more times than AddReference"))
	}
	if n != 0 {
		return false
	}
	if b.payloadState == PayloadBorrowed && b.onLastRelease != nil {
		b.onLastRelease()
	}
	b.header = nil
	b.payload = nil
	b.payloadState = PayloadEmpty
	b.onLastRelease = nil
	return true
}
