package lockable

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// eventTable is a minimal EventSource for tests: a fixed-size slice of
// Events, mirroring the role internal/threadreg's Registry plays for real
// callers.
type eventTable []*Event

func newEventTable(n int) eventTable {
	t := make(eventTable, n)
	for i := range t {
		t[i] = NewEvent()
	}
	return t
}

func (t eventTable) Event(threadIndex int) *Event { return t[threadIndex] }

func TestTryLockUncontended(t *testing.T) {
	var obj LockableObject
	events := newEventTable(4)
	g := TryAcquire(&obj, events)
	assert.NotNil(t, g)
	g.Unlock()
}

func TestTryLockFailsWhileHeld(t *testing.T) {
	var obj LockableObject
	events := newEventTable(4)
	g := Acquire(&obj, 0, events)
	assert.Nil(t, TryAcquire(&obj, events))
	g.Unlock()
	assert.NotNil(t, TryAcquire(&obj, events))
}

func TestLockBlocksUntilUnlock(t *testing.T) {
	var obj LockableObject
	events := newEventTable(4)

	g1 := Acquire(&obj, 1, events)

	acquired := make(chan struct{})
	go func() {
		g2 := Acquire(&obj, 2, events)
		close(acquired)
		g2.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired before first was released")
	case <-time.After(20 * time.Millisecond):
	}

	g1.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestLowestIndexedWaiterWinsWakeup(t *testing.T) {
	var obj LockableObject
	events := newEventTable(8)

	holder := Acquire(&obj, 0, events)

	order := make(chan int, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	// Start the higher-index waiter first so it registers its wait bit
	// before the lower-index one, then confirm the lower index still wins.
	go func() {
		defer wg.Done()
		g := Acquire(&obj, 5, events)
		order <- 5
		g.Unlock()
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		g := Acquire(&obj, 2, events)
		order <- 2
		g.Unlock()
	}()
	time.Sleep(10 * time.Millisecond)

	holder.Unlock()
	first := <-order
	assert.Equal(t, 2, first, "lower-indexed waiter should be woken first")
	<-order
	wg.Wait()
}

func TestConcurrentLockUnlockNoDeadlock(t *testing.T) {
	var obj LockableObject
	events := newEventTable(16)
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				g := Acquire(&obj, idx, events)
				counter++
				g.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 400, counter)
}
