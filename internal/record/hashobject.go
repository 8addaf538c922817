// Package record implements CyberCache's hash-object family (spec §3):
// HashObject (the common base), PayloadHashObject (session/page records),
// SessionObject, PageObject, TagObject, and TagRef — the records living in
// the sharded hash tables, plus the reader-count semaphore and session
// lock that guard their payloads. Built on internal/lockable and
// internal/buffers; grounded on the field/flag shape of the teacher's
// BufferPool page headers (server/innodb/buffer_pool/buffer_page.go),
// generalized from fixed-size disk pages to variable-size cache records.
package record

import (
	"github.com/cyberhull/cybercache-cluster-sub001/internal/domain"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/lockable"
)

// Flags is the HashObject lifecycle/type bitmask, per spec §3.
type Flags uint16

const (
	FlagFPC Flags = 1 << iota
	FlagPayload
	FlagLinkedByOptimizer
	FlagLinkedByTagManager
	FlagBeingOptimized
	FlagOptimized
	FlagBeingDeleted
	FlagDeleted
)

// Kind classifies a HashObject by its fixed flag combination, per spec §3:
// "exactly one of {PAYLOAD} (session), {FPC} (tag), {FPC,PAYLOAD} (page)
// holds for the lifetime of the object."
type Kind int

const (
	KindSession Kind = iota
	KindTag
	KindPage
)

func (k Kind) flags() Flags {
	switch k {
	case KindSession:
		return FlagPayload
	case KindTag:
		return FlagFPC
	case KindPage:
		return FlagFPC | FlagPayload
	default:
		return 0
	}
}

// HashObject is the abstract base every record embeds: hash, name, bucket-
// chain and domain-wide list links, and lifecycle flags.
type HashObject struct {
	Hash  uint64
	Name  []byte
	flags Flags

	bucketPrev, bucketNext *HashObject
	domainPrev, domainNext *HashObject

	Lock lockable.LockableObject
}

func newHashObject(kind Kind, hash uint64, name []byte) HashObject {
	return HashObject{Hash: hash, Name: name, flags: kind.flags()}
}

func (h *HashObject) Flags() Flags { return h.flags }
func (h *HashObject) Has(f Flags) bool { return h.flags&f != 0 }

// Kind reports which of the three fixed flag combinations this object
// carries.
func (h *HashObject) Kind() Kind {
	switch h.flags & (FlagFPC | FlagPayload) {
	case FlagPayload:
		return KindSession
	case FlagFPC:
		return KindTag
	case FlagFPC | FlagPayload:
		return KindPage
	default:
		return KindSession
	}
}

// MarkBeingDeleted sets BEING_DELETED, after which no new reader pin may
// be acquired (spec §3 invariant).
func (h *HashObject) MarkBeingDeleted() { h.flags |= FlagBeingDeleted }

// MarkDeleted sets DELETED. The caller must have already set
// BEING_DELETED (spec §3: "DELETED is set only after BEING_DELETED").
func (h *HashObject) MarkDeleted() {
	if h.flags&FlagBeingDeleted == 0 {
		panic("record: MarkDeleted called without BEING_DELETED set first")
	}
	h.flags |= FlagDeleted
}

func (h *HashObject) IsBeingDeleted() bool { return h.flags&FlagBeingDeleted != 0 }
func (h *HashObject) IsDeleted() bool      { return h.flags&FlagDeleted != 0 }

// BucketLink returns this object's bucket-chain neighbors, used by
// internal/shard when walking or splicing a bucket's chain.
func (h *HashObject) BucketLink() (prev, next *HashObject) { return h.bucketPrev, h.bucketNext }

func (h *HashObject) SetBucketLink(prev, next *HashObject) {
	h.bucketPrev, h.bucketNext = prev, next
}

func (h *HashObject) DomainLink() (prev, next *HashObject) { return h.domainPrev, h.domainNext }

func (h *HashObject) SetDomainLink(prev, next *HashObject) {
	h.domainPrev, h.domainNext = prev, next
}

// RecordSize estimates the total in-memory footprint of this record for
// domain accounting (header fields plus inline name), per spec §3's
// "total record byte length" field.
func (h *HashObject) RecordSize() int64 {
	return int64(len(h.Name)) + 32 // fixed-field overhead estimate
}

// EvictionDomain reports which memory domain a record of this kind
// accounts against.
func (k Kind) EvictionDomain() domain.Domain {
	if k == KindSession {
		return domain.Session
	}
	return domain.Fpc
}
