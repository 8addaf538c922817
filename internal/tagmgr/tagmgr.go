// Package tagmgr implements CyberCache's tag manager linkage and CLEAN-
// mode matching (spec §4.10): TagRef.Link/Unlink over a tag's doubly-
// linked list, and the five CLEAN query modes evaluated against a page
// set. Grounded on the intrusive doubly-linked list pattern of the
// teacher's LRU (server/innodb/buffer_pool/buffer_lru.go), adapted from
// page-eviction order to tag membership.
package tagmgr

import (
	"github.com/cyberhull/cybercache-cluster-sub001/internal/record"
)

// Link inserts ref at the head of tag's list and increments tag's live-
// reference count (spec §4.10).
func Link(page *record.PageObject, tag *record.TagObject, ref *record.TagRef) {
	ref.Page = page
	ref.Tag = tag
	ref.Prev = nil
	ref.Next = tag.Head()

	if old := tag.Head(); old != nil {
		old.Prev = ref
	}
	setTagHead(tag, ref)
	incrementLiveRefs(tag, 1)
}

// Unlink splices ref out of its tag's list and decrements the tag's live-
// reference count, returning the tag if it became disposable (spec
// §4.10: "iff the count reached zero and the tag is not the untagged
// sentinel").
func Unlink(ref *record.TagRef) (disposable *record.TagObject) {
	tag := ref.Tag
	if ref.Prev != nil {
		ref.Prev.Next = ref.Next
	} else {
		setTagHead(tag, ref.Next)
	}
	if ref.Next != nil {
		ref.Next.Prev = ref.Prev
	}
	ref.Prev, ref.Next = nil, nil
	incrementLiveRefs(tag, -1)

	if tag.Disposable() {
		return tag
	}
	return nil
}

// CleanMode enumerates spec §4.10's five CLEAN query modes.
type CleanMode int

const (
	CleanAll CleanMode = iota
	CleanOld
	CleanMatchingAllTags
	CleanNotMatchingAnyTag
	CleanMatchingAnyTag
)

// Matches evaluates mode against page's tag set for the given query tags.
// isOld reports whether page is eligible for CleanOld (the caller
// supplies this — tagmgr has no notion of expiration itself).
func Matches(mode CleanMode, page *record.PageObject, queryTags map[*record.TagObject]bool, isOld bool) bool {
	switch mode {
	case CleanAll:
		return true
	case CleanOld:
		return isOld
	case CleanMatchingAllTags:
		if len(queryTags) == 0 {
			// "MatchingAll ... with empty queries short-circuit without
			// consulting the store" (spec §4.10).
			return false
		}
		return page.MatchesTags(len(queryTags), queryTags)
	case CleanMatchingAnyTag:
		if len(queryTags) == 0 {
			return false
		}
		return page.MatchesTags(1, queryTags)
	case CleanNotMatchingAnyTag:
		if len(queryTags) == 0 {
			// "NotMatching with an empty query tag set is defined to
			// behave like MatchingAll returning no rows" (spec §4.10).
			return false
		}
		return !page.MatchesTags(1, queryTags)
	default:
		return false
	}
}

// setTagHead and incrementLiveRefs reach into TagObject's unexported
// fields via the accessor methods record.TagObject exposes for this
// purpose; tagmgr owns list mutation, record owns storage.
func setTagHead(tag *record.TagObject, head *record.TagRef) {
	tag.SetHeadForLinkage(head)
}

func incrementLiveRefs(tag *record.TagObject, delta int) {
	tag.AdjustLiveRefs(delta)
}
