package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDealloc struct {
	freed int64
}

func (f *fakeDealloc) BeginMemoryDeallocation(d Domain, requested int64) { f.freed += requested }
func (f *fakeDealloc) EndMemoryDeallocation(d Domain)                    {}

func TestAllocUnderQuota(t *testing.T) {
	r := NewRegistry(1024, 0, 0, nil)
	assert.NoError(t, r.Alloc(Global, 512))
	assert.EqualValues(t, 512, r.Counter(Global).Used())
}

func TestAllocOverQuotaWithoutDeallocatorFails(t *testing.T) {
	r := NewRegistry(100, 0, 0, nil)
	assert.NoError(t, r.Alloc(Global, 100))
	err := r.Alloc(Global, 1)
	assert.Error(t, err)
}

func TestAllocOverQuotaInvokesDeallocator(t *testing.T) {
	fd := &fakeDealloc{}
	r := NewRegistry(100, 0, 0, fd)
	assert.NoError(t, r.Alloc(Global, 100))
	// Deallocator is a no-op stub here, so freeing does not actually reduce
	// `used`; the second Alloc should fail but must still have invoked the callback.
	err := r.Alloc(Global, 1)
	assert.Error(t, err)
	assert.EqualValues(t, 1, fd.freed)
}

func TestTransferUsedSize(t *testing.T) {
	r := NewRegistry(0, 0, 0, nil)
	assert.NoError(t, r.Alloc(Global, 1000))
	r.TransferUsedSize(Global, Session, 400)
	assert.EqualValues(t, 600, r.Counter(Global).Used())
	assert.EqualValues(t, 400, r.Counter(Session).Used())
}

func TestFreeRequiresOriginalSize(t *testing.T) {
	r := NewRegistry(0, 0, 0, nil)
	assert.NoError(t, r.Alloc(Fpc, 256))
	r.Free(Fpc, 256)
	assert.EqualValues(t, 0, r.Counter(Fpc).Used())
}
