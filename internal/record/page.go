package record

// NInline is the build-time-tunable inline tag-ref array size (spec §3:
// "N_INLINE is build-time tunable, 1..64").
const NInline = 8

// MaxTagsPerPage is the total tag-count cap across inline and overflow
// storage (spec §3: "Total tag count is capped at 65535").
const MaxTagsPerPage = 65535

// PageObject is an FPC page record: a PayloadHashObject plus an inline
// array of tag-refs and a lazily-allocated overflow slice for pages
// carrying more than NInline tags (spec §3).
type PageObject struct {
	PayloadHashObject

	inline   [NInline]*TagRef
	inlineN  int
	overflow []*TagRef
}

// NewPageObject constructs a page record with the fixed {FPC,PAYLOAD}
// flag combination.
func NewPageObject(hash uint64, name []byte) *PageObject {
	return &PageObject{PayloadHashObject: PayloadHashObject{HashObject: newHashObject(KindPage, hash, name)}}
}

// TagCount returns the total number of tag-refs currently attached.
func (p *PageObject) TagCount() int { return p.inlineN + len(p.overflow) }

// AddTagRef attaches ref to this page's inline array, spilling to the
// overflow slice once NInline is exceeded. Returns false if
// MaxTagsPerPage would be exceeded.
func (p *PageObject) AddTagRef(ref *TagRef) bool {
	if p.TagCount() >= MaxTagsPerPage {
		return false
	}
	ref.Page = p
	if p.inlineN < NInline {
		p.inline[p.inlineN] = ref
		p.inlineN++
		p.ShortCounter = uint16(p.TagCount())
		return true
	}
	p.overflow = append(p.overflow, ref)
	p.ShortCounter = uint16(p.TagCount())
	return true
}

// RemoveTagRef detaches ref from this page's storage (inline or
// overflow), compacting the inline array if needed.
func (p *PageObject) RemoveTagRef(ref *TagRef) {
	for i := 0; i < p.inlineN; i++ {
		if p.inline[i] == ref {
			copy(p.inline[i:p.inlineN-1], p.inline[i+1:p.inlineN])
			p.inline[p.inlineN-1] = nil
			p.inlineN--
			p.ShortCounter = uint16(p.TagCount())
			return
		}
	}
	for i, r := range p.overflow {
		if r == ref {
			p.overflow = append(p.overflow[:i], p.overflow[i+1:]...)
			p.ShortCounter = uint16(p.TagCount())
			return
		}
	}
}

// TagRefs returns every tag-ref currently attached, inline first.
func (p *PageObject) TagRefs() []*TagRef {
	out := make([]*TagRef, 0, p.TagCount())
	out = append(out, p.inline[:p.inlineN]...)
	out = append(out, p.overflow...)
	return out
}

// MatchesTags answers "does this page carry at least min tags drawn from
// tags?" by scanning the page's own tag-ref arrays (inline first, then
// overflow) and, for each ref, probing the query set, early-exiting once
// min matches are found (spec §4.10). internal/tagmgr builds on this for
// the higher-level CLEAN-mode semantics.
func (p *PageObject) MatchesTags(min int, tags map[*TagObject]bool) bool {
	if min <= 0 {
		return true
	}
	matched := 0
	for i := 0; i < p.inlineN; i++ {
		if tags[p.inline[i].Tag] {
			matched++
			if matched >= min {
				return true
			}
		}
	}
	for _, ref := range p.overflow {
		if tags[ref.Tag] {
			matched++
			if matched >= min {
				return true
			}
		}
	}
	return false
}
