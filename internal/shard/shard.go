// Package shard implements CyberCache's sharded hash table (spec §4.11):
// a power-of-two bucket array striped under per-shard RWMutex locks, with
// the table-shard -> record lock order invariant. Grounded on the
// teacher's BufferPool hash-indexed page lookup
// (server/innodb/buffer_pool/buffer_pool.go), generalized from a fixed
// LRU-backed page table to an arbitrary-count record table with an
// explicit deleted-records drain.
package shard

import (
	"sync"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/record"
)

// Table is a sharded hash table over *record.HashObject-derived records,
// indexed by the pre-hashed 64-bit key (internal/hash.TableHasher).
type Table struct {
	shards []shardEntry
	mask   uint64
}

type shardEntry struct {
	mu      sync.RWMutex
	buckets []*record.HashObject
	deleted []*record.HashObject
}

// NewTable builds a Table with numShards rounded up to the next power of
// two, each owning bucketsPerShard chain heads.
func NewTable(numShards, bucketsPerShard int) *Table {
	n := nextPow2(numShards)
	t := &Table{shards: make([]shardEntry, n), mask: uint64(n - 1)}
	for i := range t.shards {
		t.shards[i].buckets = make([]*record.HashObject, nextPow2(bucketsPerShard))
	}
	return t
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (t *Table) shardFor(hash uint64) *shardEntry {
	return &t.shards[hash&t.mask]
}

func (s *shardEntry) bucketFor(hash uint64) int {
	return int(hash & uint64(len(s.buckets)-1))
}

// Lookup finds the record with the given hash and name under the shard's
// shared lock (spec §4.11: "acquire the shard's shared lock for lookup").
func (t *Table) Lookup(hash uint64, name []byte) *record.HashObject {
	s := t.shardFor(hash)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findInChain(s.buckets[s.bucketFor(hash)], hash, name)
}

func findInChain(head *record.HashObject, hash uint64, name []byte) *record.HashObject {
	for o := head; o != nil; o = nextInChain(o) {
		if o.Hash == hash && string(o.Name) == string(name) {
			return o
		}
	}
	return nil
}

func nextInChain(o *record.HashObject) *record.HashObject {
	_, next := o.BucketLink()
	return next
}

// Insert adds obj to its shard's chain under the shard's exclusive lock
// (spec §4.11: "exclusive lock for insertion or chain surgery").
func (t *Table) Insert(obj *record.HashObject) {
	s := t.shardFor(obj.Hash)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.bucketFor(obj.Hash)
	head := s.buckets[idx]
	obj.SetBucketLink(nil, head)
	if head != nil {
		_, headNext := head.BucketLink()
		head.SetBucketLink(obj, headNext)
	}
	s.buckets[idx] = obj
}

// MarkForDeletion sets BEING_DELETED on obj (caller must already hold
// obj's record lock, per spec §4.11 phase one: "marking (BEING_DELETED
// under record lock)") and queues it on its shard's deleted list.
func (t *Table) MarkForDeletion(obj *record.HashObject) {
	obj.MarkBeingDeleted()
	s := t.shardFor(obj.Hash)
	s.mu.Lock()
	s.deleted = append(s.deleted, obj)
	s.mu.Unlock()
}

// DrainDeleted runs under the shard's exclusive lock, disposing every
// queued record whose reader count is zero (spec §4.11 phase two).
// readerCount reports a record's live reader count; reclaim performs the
// actual chain-unlink and memory release for records that pass the check.
func (t *Table) DrainDeleted(hash uint64, readerCount func(*record.HashObject) uint32, reclaim func(*record.HashObject)) {
	s := t.shardFor(hash)
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.deleted[:0]
	for _, obj := range s.deleted {
		if readerCount(obj) == 0 {
			obj.MarkDeleted()
			t.unlinkLocked(s, obj)
			reclaim(obj)
		} else {
			remaining = append(remaining, obj)
		}
	}
	s.deleted = remaining
}

// unlinkLocked splices obj out of its bucket chain; caller holds the
// shard's exclusive lock.
func (t *Table) unlinkLocked(s *shardEntry, obj *record.HashObject) {
	prev, next := obj.BucketLink()
	idx := s.bucketFor(obj.Hash)
	if prev != nil {
		pp, _ := prev.BucketLink()
		prev.SetBucketLink(pp, next)
	} else {
		s.buckets[idx] = next
	}
	if next != nil {
		_, nextNext := next.BucketLink()
		next.SetBucketLink(prev, nextNext)
	}
	obj.SetBucketLink(nil, nil)
}
