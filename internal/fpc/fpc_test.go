package fpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/domain"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/record"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/tagmgr"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(domain.NewRegistry(0, 0, 0, nil))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("hello"), time.Hour, record.AgentUser, nil))

	got, ok := s.Load([]byte("p1"))
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)
}

func TestLoadMissingReturnsFalse(t *testing.T) {
	s := newStore(t)
	_, ok := s.Load([]byte("nope"))
	assert.False(t, ok)
}

func TestLoadExpiredReturnsFalse(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("v"), time.Nanosecond, record.AgentUser, nil))
	time.Sleep(2 * time.Millisecond)
	_, ok := s.Load([]byte("p1"))
	assert.False(t, ok)
}

func TestSaveWithTwoTagsThenGetIDsMatchingTags(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), make([]byte, 64*1024), time.Hour, record.AgentUser, [][]byte{[]byte("t1"), []byte("t2")}))

	ids := s.GetIDsMatchingMode(tagmgr.CleanMatchingAllTags, [][]byte{[]byte("t2")})
	require.Len(t, ids, 1)
	assert.Equal(t, []byte("p1"), ids[0])
}

func TestCleanMatchNotEmptyTagsRemovesNothing(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("v"), time.Hour, record.AgentUser, [][]byte{[]byte("t1"), []byte("t2")}))

	n := s.Clean(tagmgr.CleanNotMatchingAnyTag, nil)
	assert.Equal(t, 0, n)
	_, ok := s.Load([]byte("p1"))
	assert.True(t, ok)
}

func TestCleanMatchingAnyTagRemovesMatchingPages(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("v"), time.Hour, record.AgentUser, [][]byte{[]byte("t1")}))
	require.NoError(t, s.Save([]byte("p2"), []byte("v"), time.Hour, record.AgentUser, [][]byte{[]byte("t2")}))

	n := s.Clean(tagmgr.CleanMatchingAnyTag, [][]byte{[]byte("t1")})
	assert.Equal(t, 1, n)
	_, ok := s.Load([]byte("p1"))
	assert.False(t, ok)
	_, ok = s.Load([]byte("p2"))
	assert.True(t, ok)
}

func TestRemoveDisposesEmptyTag(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("v"), time.Hour, record.AgentUser, [][]byte{[]byte("solo")}))

	tagObj := s.lookupTag([]byte("solo"))
	require.NotNil(t, tagObj)
	assert.Equal(t, 1, tagObj.LiveRefs())

	require.True(t, s.Remove([]byte("p1")))
	assert.Nil(t, s.lookupTag([]byte("solo")))
}

func TestGetTagsReturnsAttachedNamesExcludingUntagged(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("v"), time.Hour, record.AgentUser, [][]byte{[]byte("t1")}))
	require.NoError(t, s.Save([]byte("p2"), []byte("v"), time.Hour, record.AgentUser, nil))

	tags, ok := s.GetTags([]byte("p1"))
	require.True(t, ok)
	assert.Equal(t, [][]byte{[]byte("t1")}, tags)

	tags, ok = s.GetTags([]byte("p2"))
	require.True(t, ok)
	assert.Empty(t, tags)
}

func TestSaveReplacesExistingPageTags(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("v1"), time.Hour, record.AgentUser, [][]byte{[]byte("old")}))
	require.NoError(t, s.Save([]byte("p1"), []byte("v2"), time.Hour, record.AgentUser, [][]byte{[]byte("new")}))

	got, ok := s.Load([]byte("p1"))
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got)
	assert.Nil(t, s.lookupTag([]byte("old")))

	ids := s.GetIDsMatchingMode(tagmgr.CleanMatchingAllTags, [][]byte{[]byte("new")})
	assert.Equal(t, [][]byte{[]byte("p1")}, ids)
}

func TestTouchExtendsLifetime(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("v"), time.Nanosecond, record.AgentUser, nil))
	require.True(t, s.Touch([]byte("p1"), time.Hour))

	_, ok := s.Load([]byte("p1"))
	assert.True(t, ok)
}

func TestGetFillingPercentageReflectsUsage(t *testing.T) {
	s := NewStore(domain.NewRegistry(0, 0, 1000, nil))
	require.NoError(t, s.Save([]byte("p1"), make([]byte, 250), time.Hour, record.AgentUser, nil))
	assert.InDelta(t, 25.0, s.GetFillingPercentage(), 0.01)
}

func TestGetMetadatasSkipsMissingNames(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("p1"), []byte("v"), time.Hour, record.AgentUser, [][]byte{[]byte("t1")}))

	meta := s.GetMetadatas([][]byte{[]byte("p1"), []byte("missing")})
	require.Len(t, meta, 1)
	assert.Equal(t, []byte("p1"), meta[0].Name)
	assert.Equal(t, [][]byte{[]byte("t1")}, meta[0].Tags)
}

func TestGCRemovesExpiredPagesOnly(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save([]byte("expired"), []byte("v"), time.Nanosecond, record.AgentUser, nil))
	require.NoError(t, s.Save([]byte("fresh"), []byte("v"), time.Hour, record.AgentUser, nil))
	time.Sleep(2 * time.Millisecond)

	n := s.GC()
	assert.Equal(t, 1, n)
	_, ok := s.Load([]byte("fresh"))
	assert.True(t, ok)
}
