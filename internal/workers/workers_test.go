package workers

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJobs(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&count, 1)
		}))
	}
	wg.Wait()
	assert.EqualValues(t, 10, atomic.LoadInt32(&count))
}

func TestSubmitAfterCloseErrors(t *testing.T) {
	p := NewPool(2)
	p.Close()
	err := p.Submit(func() {})
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := NewPool(1)
	p.Close()
	assert.NotPanics(t, func() { p.Close() })
}

func TestSubmitOrderingNotGuaranteedButAllRun(t *testing.T) {
	p := NewPool(8)
	defer p.Close()

	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		}))
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}
