package record

// TagObject is a named marker in the FPC domain: the head of a doubly-
// linked list of TagRef nodes pointing at tagged page records (spec §3).
type TagObject struct {
	HashObject

	head *TagRef

	// Untagged marks the one distinguished tag that holds all page records
	// bearing no user tags (spec §3); it is never disposable.
	Untagged bool

	liveRefs int
}

// NewTagObject constructs a tag record with the fixed {FPC} flag
// combination.
func NewTagObject(hash uint64, name []byte, untagged bool) *TagObject {
	return &TagObject{HashObject: newHashObject(KindTag, hash, name), Untagged: untagged}
}

// Head returns the first TagRef in this tag's list, or nil if empty.
func (t *TagObject) Head() *TagRef { return t.head }

// SetHeadForLinkage is the list-head mutator internal/tagmgr uses while
// splicing TagRef nodes in or out; storage stays here, list-mutation
// logic stays in tagmgr.
func (t *TagObject) SetHeadForLinkage(head *TagRef) { t.head = head }

// AdjustLiveRefs is the live-reference-count mutator internal/tagmgr uses
// around Link/Unlink.
func (t *TagObject) AdjustLiveRefs(delta int) { t.liveRefs += delta }

// LiveRefs returns the current live-reference count.
func (t *TagObject) LiveRefs() int { return t.liveRefs }

// Disposable reports whether this tag's count has dropped to zero and it
// is not the untagged sentinel (spec §3).
func (t *TagObject) Disposable() bool { return t.liveRefs == 0 && !t.Untagged }

// TagRef is one page's membership in one tag's list: back-pointers to the
// owning page and the tag, plus prev/next within the tag's list (spec
// §3). Grounded on the teacher's buffer_lru.go intrusive doubly-linked
// list (see internal/tagmgr, which owns Link/Unlink).
type TagRef struct {
	Page *PageObject
	Tag  *TagObject
	Prev *TagRef
	Next *TagRef
}
