package record

import (
	"time"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/compress"
)

// UserAgentClass classifies the client that last touched a record, driving
// default-lifetime selection (internal/config's Lifetime* fields).
type UserAgentClass byte

const (
	AgentUnknown UserAgentClass = iota
	AgentBot
	AgentWarmer
	AgentUser
)

// PayloadHashObject is the session/page common base: a HashObject plus
// payload ownership, compressor selection, timestamps, and the reader-
// count semaphore payload readers pin against (spec §3).
type PayloadHashObject struct {
	HashObject

	// payload is nil only for the not-yet-populated state; a non-nil
	// zero-length slice is the "present but empty" sentinel spec §3
	// requires (mirroring internal/buffers.SharedBuffers' payload states).
	payload           []byte
	UncompressedSize  int64
	Compressor        compress.Algorithm

	LastModified time.Time
	Expiration   time.Time

	UserAgent UserAgentClass

	optimizerPrev, optimizerNext *PayloadHashObject

	Readers ReaderSemaphore

	// ShortCounter is session-writes (SessionObject) or tag-count (PageObject).
	ShortCounter uint16
}

// Payload returns the current payload bytes and whether one is present at
// all (distinct from a present-but-empty payload).
func (p *PayloadHashObject) Payload() ([]byte, bool) { return p.payload, p.payload != nil }

// SetPayload installs buf as the record's payload, accounting the
// transfer against dom (spec §4.1's TransferUsedSize, e.g. moving bytes
// from Global to Session/Fpc once a record claims them).
func (p *PayloadHashObject) SetPayload(buf []byte, uncompressedSize int64, algo compress.Algorithm) {
	if buf == nil {
		buf = []byte{}
	}
	p.payload = buf
	p.UncompressedSize = uncompressedSize
	p.Compressor = algo
	p.LastModified = clockNow()
}

// ClearPayload drops the payload reference without freeing (the caller is
// expected to have already confirmed ReaderCount() == 0).
func (p *PayloadHashObject) ClearPayload() {
	p.payload = nil
	p.UncompressedSize = 0
}

// PayloadSize returns the stored (possibly compressed) payload length.
func (p *PayloadHashObject) PayloadSize() int {
	return len(p.payload)
}

// OptimizerLink returns this record's optimizer-list neighbors.
func (p *PayloadHashObject) OptimizerLink() (prev, next *PayloadHashObject) {
	return p.optimizerPrev, p.optimizerNext
}

func (p *PayloadHashObject) SetOptimizerLink(prev, next *PayloadHashObject) {
	p.optimizerPrev, p.optimizerNext = prev, next
	if prev != nil || next != nil {
		p.flags |= FlagLinkedByOptimizer
	} else {
		p.flags &^= FlagLinkedByOptimizer
	}
}

// IsExpired reports whether this record's expiration timestamp has passed
// as of now (zero Expiration means "never expires").
func (p *PayloadHashObject) IsExpired(now time.Time) bool {
	return !p.Expiration.IsZero() && !now.Before(p.Expiration)
}

// clockNow is a seam so tests can avoid depending on wall-clock timing;
// production code always uses time.Now.
var clockNow = time.Now
