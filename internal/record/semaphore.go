package record

import (
	"go.uber.org/atomic"

	"github.com/pkg/errors"
)

// readerCountMask covers bits 0..23 (spec §4.8: "max ~16M" readers).
const readerCountMask uint32 = 0x00FFFFFF

// writerIndexShift moves the waiting-writer-index+1 field into bits 24..31.
const writerIndexShift = 24

// ReaderSemaphore is the single 32-bit atomic on each PayloadHashObject
// implementing spec §4.8's reader-count semaphore: low 24 bits are the
// live reader count, high 8 bits hold (waiting_writer_thread_index + 1),
// zero meaning "no waiter".
type ReaderSemaphore struct {
	word atomic.Uint32
}

// RegisterReader increments the reader count, asserting no writer is
// currently waiting (spec §4.8: a writer only waits while holding the
// record's mutex, so a reader registering concurrently is a programming
// error if it observes a waiter already parked).
func (s *ReaderSemaphore) RegisterReader() {
	prev := s.word.Add(1) - 1
	if prev>>writerIndexShift != 0 {
		panic(errors.New("record: RegisterReader observed a waiting writer"))
	}
}

// UnregisterReader decrements the reader count; if it reaches zero and a
// writer index is present, wakes that writer via wake.
func (s *ReaderSemaphore) UnregisterReader(wake func(writerThreadIndex int)) {
	for {
		old := s.word.Load()
		count := old & readerCountMask
		if count == 0 {
			panic(errors.New("record: UnregisterReader called with zero reader count"))
		}
		newWord := old - 1
		if s.word.CAS(old, newWord) {
			if newWord&readerCountMask == 0 {
				writerIdx := int(newWord >> writerIndexShift)
				if writerIdx != 0 {
					wake(writerIdx - 1)
				}
			}
			return
		}
	}
}

// WaitUntilNoReaders publishes threadIndex in the high byte and returns
// true immediately if the reader count is already zero; otherwise the
// caller parks on its own event and must call this again after being
// woken. The record's lockable-object mutex must be held throughout (spec
// §4.8). Once no readers remain the word is zeroed.
func (s *ReaderSemaphore) WaitUntilNoReaders(threadIndex int) (ready bool) {
	for {
		old := s.word.Load()
		count := old & readerCountMask
		if count == 0 {
			if s.word.CAS(old, 0) {
				return true
			}
			continue
		}
		marker := uint32(threadIndex+1) << writerIndexShift
		newWord := count | marker
		if s.word.CAS(old, newWord) {
			return false
		}
	}
}

// ReaderCount returns the current live reader count.
func (s *ReaderSemaphore) ReaderCount() uint32 { return s.word.Load() & readerCountMask }
