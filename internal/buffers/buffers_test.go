package buffers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInlineHeaderDoesNotAllocate(t *testing.T) {
	b := New()
	h := b.GrowHeader(8)
	assert.Len(t, h, 8)
	assert.Nil(t, b.header)
}

func TestGrowHeaderPromotesToHeap(t *testing.T) {
	b := New()
	h := b.GrowHeader(4)
	copy(h, []byte{1, 2, 3, 4})
	h2 := b.GrowHeader(64)
	assert.Len(t, h2, 64)
	assert.Equal(t, byte(1), h2[0])
	assert.NotNil(t, b.header)
}

func TestOwnedEmptyPayloadIsDistinctFromAbsent(t *testing.T) {
	b := New()
	assert.Equal(t, PayloadEmpty, b.PayloadState())
	assert.Nil(t, b.Payload())

	b.SetOwnedPayload(nil)
	assert.Equal(t, PayloadOwned, b.PayloadState())
	assert.NotNil(t, b.Payload())
	assert.Len(t, b.Payload(), 0)
}

func TestRefcountFreesOnLastRelease(t *testing.T) {
	b := New()
	b.AddReference()
	b.AddReference()
	assert.EqualValues(t, 3, b.RefCount())

	assert.False(t, b.RemoveReference())
	assert.False(t, b.RemoveReference())
	assert.True(t, b.RemoveReference())
}

func TestBorrowedPayloadReleaseHookFiresOnce(t *testing.T) {
	b := New()
	fired := 0
	b.BorrowPayload([]byte("record data"), func() { fired++ })
	b.AddReference()

	b.RemoveReference()
	assert.Equal(t, 0, fired)
	b.RemoveReference()
	assert.Equal(t, 1, fired)
}

func TestRemoveReferenceBelowZeroPanics(t *testing.T) {
	b := New()
	b.RemoveReference()
	assert.Panics(t, func() { b.RemoveReference() })
}
