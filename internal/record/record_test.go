package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/threadreg"
)

func TestHashObjectKindFlagsAreExclusive(t *testing.T) {
	s := NewSessionObject(1, []byte("sid"))
	assert.Equal(t, KindSession, s.Kind())
	assert.True(t, s.Has(FlagPayload))
	assert.False(t, s.Has(FlagFPC))

	tag := NewTagObject(2, []byte("tag"), false)
	assert.Equal(t, KindTag, tag.Kind())
	assert.True(t, tag.Has(FlagFPC))
	assert.False(t, tag.Has(FlagPayload))

	p := NewPageObject(3, []byte("page"))
	assert.Equal(t, KindPage, p.Kind())
	assert.True(t, p.Has(FlagFPC))
	assert.True(t, p.Has(FlagPayload))
}

func TestDeletedRequiresBeingDeletedFirst(t *testing.T) {
	s := NewSessionObject(1, []byte("sid"))
	assert.Panics(t, func() { s.MarkDeleted() })
	s.MarkBeingDeleted()
	assert.NotPanics(t, func() { s.MarkDeleted() })
	assert.True(t, s.IsDeleted())
}

func TestPayloadEmptyVsAbsent(t *testing.T) {
	s := NewSessionObject(1, []byte("sid"))
	_, present := s.Payload()
	assert.False(t, present)

	s.SetPayload(nil, 0, 0)
	got, present := s.Payload()
	assert.True(t, present)
	assert.Len(t, got, 0)
}

func TestReaderSemaphoreRegisterUnregister(t *testing.T) {
	var sem ReaderSemaphore
	sem.RegisterReader()
	sem.RegisterReader()
	assert.EqualValues(t, 2, sem.ReaderCount())

	woken := -1
	sem.UnregisterReader(func(idx int) { woken = idx })
	assert.EqualValues(t, 1, sem.ReaderCount())
	assert.Equal(t, -1, woken, "writer should not be woken while readers remain")

	sem.UnregisterReader(func(idx int) { woken = idx })
	assert.EqualValues(t, 0, sem.ReaderCount())
}

func TestReaderSemaphoreWaitUntilNoReaders(t *testing.T) {
	var sem ReaderSemaphore
	sem.RegisterReader()

	ready := sem.WaitUntilNoReaders(3)
	assert.False(t, ready, "should not be ready while a reader is registered")

	woken := -1
	sem.UnregisterReader(func(idx int) { woken = idx })
	assert.Equal(t, 3, woken)
}

func TestReaderSemaphoreWaitUntilNoReadersAlreadyZero(t *testing.T) {
	var sem ReaderSemaphore
	assert.True(t, sem.WaitUntilNoReaders(0))
}

func TestPageObjectInlineThenOverflow(t *testing.T) {
	p := NewPageObject(1, []byte("p"))
	refs := make([]*TagRef, NInline+3)
	for i := range refs {
		refs[i] = &TagRef{Tag: NewTagObject(uint64(i), nil, false)}
		assert.True(t, p.AddTagRef(refs[i]))
	}
	assert.Equal(t, NInline+3, p.TagCount())
	assert.Equal(t, NInline+3, len(p.TagRefs()))

	p.RemoveTagRef(refs[0])
	assert.Equal(t, NInline+2, p.TagCount())
	p.RemoveTagRef(refs[NInline])
	assert.Equal(t, NInline+1, p.TagCount())
}

func TestPageMatchesTags(t *testing.T) {
	tagA := NewTagObject(1, []byte("a"), false)
	tagB := NewTagObject(2, []byte("b"), false)
	p := NewPageObject(3, []byte("p"))
	p.AddTagRef(&TagRef{Tag: tagA})

	assert.True(t, p.MatchesTags(1, map[*TagObject]bool{tagA: true}))
	assert.False(t, p.MatchesTags(1, map[*TagObject]bool{tagB: true}))
}

func TestTagDisposable(t *testing.T) {
	tag := NewTagObject(1, []byte("t"), false)
	assert.True(t, tag.Disposable())

	untagged := NewTagObject(2, nil, true)
	assert.False(t, untagged.Disposable())
}

func TestSessionLockNoOpWhenRequestOrTimeoutZero(t *testing.T) {
	s := NewSessionObject(1, []byte("sid"))
	reg := threadreg.NewRegistry(4)
	err := s.LockSession(0, 1, time.Second, reg, func() {}, func() {})
	assert.NoError(t, err)
}

func TestSessionLockClaimAndReaffirm(t *testing.T) {
	s := NewSessionObject(1, []byte("sid"))
	reg := threadreg.NewRegistry(4)
	assert.NoError(t, s.LockSession(100, 1, time.Second, reg, func() {}, func() {}))
	assert.NoError(t, s.LockSession(100, 1, time.Second, reg, func() {}, func() {}))
}

func TestSessionLockBreaksOnTimeout(t *testing.T) {
	s := NewSessionObject(1, []byte("sid"))
	reg := threadreg.NewRegistry(4)
	assert.NoError(t, s.LockSession(100, 1, time.Second, reg, func() {}, func() {}))

	err := s.LockSession(200, 2, 5*time.Millisecond, reg, func() {}, func() {})
	assert.True(t, ccerr.Has(err, ccerr.KindLockBroken))
	assert.EqualValues(t, 1, s.BrokenLocks)
}

func TestSessionLockReturnsDeletedWhenBeingDeletedDuringWait(t *testing.T) {
	s := NewSessionObject(1, []byte("sid"))
	reg := threadreg.NewRegistry(4)
	assert.NoError(t, s.LockSession(100, 1, time.Second, reg, func() {}, func() {}))
	s.MarkBeingDeleted()

	err := s.LockSession(200, 2, 5*time.Millisecond, reg, func() {}, func() {})
	assert.Error(t, err)
}

func TestSessionUnlockWakesLowestWaiter(t *testing.T) {
	s := NewSessionObject(1, []byte("sid"))
	reg := threadreg.NewRegistry(4)
	assert.NoError(t, s.LockSession(100, 1, time.Second, reg, func() {}, func() {}))

	done := make(chan struct{})
	go func() {
		err := s.LockSession(200, 3, time.Second, reg, func() {}, func() {})
		assert.Error(t, err) // Retry: woken, caller retries
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	s.UnlockSession(100, reg)
	<-done
}
