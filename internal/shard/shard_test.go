package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/record"
)

func TestNextPow2(t *testing.T) {
	assert.Equal(t, 1, nextPow2(0))
	assert.Equal(t, 1, nextPow2(1))
	assert.Equal(t, 4, nextPow2(3))
	assert.Equal(t, 8, nextPow2(8))
	assert.Equal(t, 16, nextPow2(9))
}

func TestInsertAndLookup(t *testing.T) {
	tab := NewTable(4, 8)
	p := record.NewPageObject(42, []byte("foo"))
	tab.Insert(&p.HashObject)

	got := tab.Lookup(42, []byte("foo"))
	assert.NotNil(t, got)
	assert.Equal(t, &p.HashObject, got)

	assert.Nil(t, tab.Lookup(42, []byte("bar")))
	assert.Nil(t, tab.Lookup(43, []byte("foo")))
}

func TestInsertMultipleIntoSameBucketChains(t *testing.T) {
	tab := NewTable(1, 1) // force everything into one bucket of one shard
	a := record.NewPageObject(1, []byte("a"))
	b := record.NewPageObject(2, []byte("b"))
	c := record.NewPageObject(3, []byte("c"))

	tab.Insert(&a.HashObject)
	tab.Insert(&b.HashObject)
	tab.Insert(&c.HashObject)

	assert.NotNil(t, tab.Lookup(1, []byte("a")))
	assert.NotNil(t, tab.Lookup(2, []byte("b")))
	assert.NotNil(t, tab.Lookup(3, []byte("c")))
}

func TestMarkForDeletionAndDrainReclaimsZeroReaders(t *testing.T) {
	tab := NewTable(2, 4)
	p := record.NewPageObject(7, []byte("p"))
	tab.Insert(&p.HashObject)

	tab.MarkForDeletion(&p.HashObject)
	assert.True(t, p.IsBeingDeleted())

	var reclaimed *record.HashObject
	tab.DrainDeleted(7, func(*record.HashObject) uint32 { return 0 }, func(o *record.HashObject) {
		reclaimed = o
	})

	assert.Equal(t, &p.HashObject, reclaimed)
	assert.True(t, p.IsDeleted())
	assert.Nil(t, tab.Lookup(7, []byte("p")))
}

func TestDrainDeletedSkipsRecordsWithLiveReaders(t *testing.T) {
	tab := NewTable(2, 4)
	p := record.NewPageObject(9, []byte("p"))
	tab.Insert(&p.HashObject)
	tab.MarkForDeletion(&p.HashObject)

	reclaimedCount := 0
	tab.DrainDeleted(9, func(*record.HashObject) uint32 { return 1 }, func(*record.HashObject) {
		reclaimedCount++
	})

	assert.Equal(t, 0, reclaimedCount)
	assert.False(t, p.IsDeleted())
	// Still findable: the drain left it in its chain since it wasn't reclaimed.
	assert.NotNil(t, tab.Lookup(9, []byte("p")))
}

func TestUnlinkLockedMiddleOfChain(t *testing.T) {
	tab := NewTable(1, 1)
	a := record.NewPageObject(1, []byte("a"))
	b := record.NewPageObject(2, []byte("b"))
	c := record.NewPageObject(3, []byte("c"))
	tab.Insert(&a.HashObject)
	tab.Insert(&b.HashObject)
	tab.Insert(&c.HashObject)

	tab.MarkForDeletion(&b.HashObject)
	tab.DrainDeleted(2, func(*record.HashObject) uint32 { return 0 }, func(*record.HashObject) {})

	assert.Nil(t, tab.Lookup(2, []byte("b")))
	assert.NotNil(t, tab.Lookup(1, []byte("a")))
	assert.NotNil(t, tab.Lookup(3, []byte("c")))
}
