// Package fpc implements CyberCache's Full Page Cache store: PageObject/
// TagObject records living in a sharded hash table (internal/shard), linked
// through internal/tagmgr's doubly-linked tag-ref lists (spec §3/§4.10),
// with the SAVE/LOAD/TEST/REMOVE/TOUCH/CLEAN/GETIDS*/GETTAGS/
// GETFILLINGPERCENTAGE/GETMETADATAS operations spec §4.5 names. Grounded on
// internal/dispatch.Store's session-table wiring, generalized from a flat
// key/value table to the tagged, evictable FPC record model.
package fpc

import (
	"sync"
	"time"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/compress"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/domain"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/hash"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/record"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/shard"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/tagmgr"
)

// untaggedName is the sentinel key for the one distinguished tag that holds
// every page bearing no user tags (spec §3).
const untaggedName = "\x00untagged\x00"

// Store is the FPC domain's record table: pages and tags each in their own
// shard.Table (distinct Kinds, distinct namespaces), plus the reverse
// indices shard.Table's common *record.HashObject base requires to recover
// the typed object (same pattern as internal/dispatch.Store).
type Store struct {
	domains *domain.Registry

	pagesTable *shard.Table
	tagsTable  *shard.Table

	mu       sync.Mutex
	pages    map[*record.HashObject]*record.PageObject
	tags     map[*record.HashObject]*record.TagObject
	untagged *record.TagObject
}

// NewStore builds an empty FPC store, creating the untagged sentinel tag
// eagerly (spec §3: "one distinguished tag holds all page records that bear
// no user tags").
func NewStore(domains *domain.Registry) *Store {
	s := &Store{
		domains:    domains,
		pagesTable: shard.NewTable(16, 64),
		tagsTable:  shard.NewTable(16, 64),
		pages:      make(map[*record.HashObject]*record.PageObject),
		tags:       make(map[*record.HashObject]*record.TagObject),
	}
	s.untagged = s.getOrCreateTag([]byte(untaggedName), true)
	return s
}

func (s *Store) pageHash(name []byte) uint64 { return hash.TableHasher.Hash(name) }
func (s *Store) tagHash(name []byte) uint64  { return hash.TableHasher.Hash(name) }

func (s *Store) lookupPage(name []byte) *record.PageObject {
	obj := s.pagesTable.Lookup(s.pageHash(name), name)
	if obj == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[obj]
}

func (s *Store) lookupTag(name []byte) *record.TagObject {
	obj := s.tagsTable.Lookup(s.tagHash(name), name)
	if obj == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags[obj]
}

// getOrCreateTag returns the named tag, creating it on demand (spec §3:
// "Tag records are created on demand when the first reference would be
// added").
func (s *Store) getOrCreateTag(name []byte, untagged bool) *record.TagObject {
	if t := s.lookupTag(name); t != nil {
		return t
	}
	h := s.tagHash(name)
	tag := record.NewTagObject(h, append([]byte(nil), name...), untagged)
	s.tagsTable.Insert(&tag.HashObject)
	s.mu.Lock()
	s.tags[&tag.HashObject] = tag
	s.mu.Unlock()
	return tag
}

// disposeTagIfEmpty removes tag from the table once internal/tagmgr reports
// it has become disposable (spec §3: "destroyed when the last non-sticky
// reference is removed").
func (s *Store) disposeTagIfEmpty(tag *record.TagObject) {
	if tag == nil {
		return
	}
	s.tagsTable.MarkForDeletion(&tag.HashObject)
	s.tagsTable.DrainDeleted(tag.Hash, func(*record.HashObject) uint32 { return 0 }, func(o *record.HashObject) {
		s.mu.Lock()
		delete(s.tags, o)
		s.mu.Unlock()
	})
}

// unlinkAllTags detaches every tag-ref a page carries, disposing any tag
// that becomes empty as a result.
func (s *Store) unlinkAllTags(page *record.PageObject) {
	for _, ref := range page.TagRefs() {
		page.RemoveTagRef(ref)
		if disposable := tagmgr.Unlink(ref); disposable != nil {
			s.disposeTagIfEmpty(disposable)
		}
	}
}

// Save creates or replaces the named page record, accounting its payload
// against the Fpc domain and (re)linking it to the given tags — or the
// untagged sentinel if tags is empty (spec §3/§4.10).
func (s *Store) Save(name, payload []byte, lifetime time.Duration, agent record.UserAgentClass, tagNames [][]byte) error {
	h := s.pageHash(name)
	obj := s.pagesTable.Lookup(h, name)
	var page *record.PageObject
	if obj != nil {
		s.mu.Lock()
		page = s.pages[obj]
		s.mu.Unlock()
		s.unlinkAllTags(page)
		s.domains.Free(domain.Fpc, int64(page.PayloadSize()))
	} else {
		page = record.NewPageObject(h, append([]byte(nil), name...))
		s.pagesTable.Insert(&page.HashObject)
		s.mu.Lock()
		s.pages[&page.HashObject] = page
		s.mu.Unlock()
	}

	buf := append([]byte(nil), payload...)
	if err := s.domains.Alloc(domain.Fpc, int64(len(buf))); err != nil {
		return err
	}
	page.SetPayload(buf, int64(len(buf)), compress.None)
	page.UserAgent = agent
	if lifetime > 0 {
		page.Expiration = time.Now().Add(lifetime)
	}

	if len(tagNames) == 0 {
		ref := &record.TagRef{}
		page.AddTagRef(ref)
		tagmgr.Link(page, s.untagged, ref)
		return nil
	}
	for _, tn := range tagNames {
		tag := s.getOrCreateTag(tn, false)
		ref := &record.TagRef{}
		page.AddTagRef(ref)
		tagmgr.Link(page, tag, ref)
	}
	return nil
}

// Load returns the named page's payload, and whether the page exists and is
// not expired (spec §4.5 READ-class semantics: an expired-but-present
// record reads back as absent).
func (s *Store) Load(name []byte) ([]byte, bool) {
	page := s.lookupPage(name)
	if page == nil {
		return nil, false
	}
	if page.IsExpired(time.Now()) {
		return nil, false
	}
	payload, present := page.Payload()
	if !present {
		return nil, false
	}
	return payload, true
}

// Test reports whether name names a live, unexpired page, without
// returning its payload.
func (s *Store) Test(name []byte) bool {
	_, ok := s.Load(name)
	return ok
}

// Touch refreshes the named page's expiration without altering its payload
// or tags.
func (s *Store) Touch(name []byte, lifetime time.Duration) bool {
	page := s.lookupPage(name)
	if page == nil {
		return false
	}
	if lifetime > 0 {
		page.Expiration = time.Now().Add(lifetime)
	} else {
		page.Expiration = time.Time{}
	}
	return true
}

// Remove two-phase-deletes the named page (spec §4.11), unlinking its tag
// refs first so any tag it held can itself become disposable.
func (s *Store) Remove(name []byte) bool {
	page := s.lookupPage(name)
	if page == nil {
		return false
	}
	s.removePage(page)
	return true
}

func (s *Store) removePage(page *record.PageObject) {
	s.unlinkAllTags(page)
	s.domains.Free(domain.Fpc, int64(page.PayloadSize()))
	s.pagesTable.MarkForDeletion(&page.HashObject)
	s.pagesTable.DrainDeleted(page.Hash, func(*record.HashObject) uint32 { return 0 }, func(o *record.HashObject) {
		s.mu.Lock()
		delete(s.pages, o)
		s.mu.Unlock()
	})
}

// allPages returns a stable snapshot of every live page record.
func (s *Store) allPages() []*record.PageObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*record.PageObject, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p)
	}
	return out
}

// GetIDs returns the name of every live page (spec command GETIDS).
func (s *Store) GetIDs() [][]byte {
	pages := s.allPages()
	out := make([][]byte, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Name)
	}
	return out
}

// GetTags returns the names of every tag attached to the named page (spec
// command GETTAGS), excluding the untagged sentinel.
func (s *Store) GetTags(name []byte) ([][]byte, bool) {
	page := s.lookupPage(name)
	if page == nil {
		return nil, false
	}
	out := make([][]byte, 0, page.TagCount())
	for _, ref := range page.TagRefs() {
		if ref.Tag == s.untagged {
			continue
		}
		out = append(out, ref.Tag.Name)
	}
	return out, true
}

// GetMetadata describes one page's lifetime/tag state (spec command
// GETMETADATAS).
type GetMetadata struct {
	Name       []byte
	Expiration time.Time
	UserAgent  record.UserAgentClass
	Tags       [][]byte
}

// GetMetadatas returns the metadata for each requested page name, skipping
// names with no live page.
func (s *Store) GetMetadatas(names [][]byte) []GetMetadata {
	out := make([]GetMetadata, 0, len(names))
	for _, name := range names {
		page := s.lookupPage(name)
		if page == nil {
			continue
		}
		tags, _ := s.GetTags(name)
		out = append(out, GetMetadata{Name: page.Name, Expiration: page.Expiration, UserAgent: page.UserAgent, Tags: tags})
	}
	return out
}

// tagSet resolves tag names to their *record.TagObject (names with no
// existing tag are simply absent from the returned set, so they never
// match any page).
func (s *Store) tagSet(names [][]byte) map[*record.TagObject]bool {
	set := make(map[*record.TagObject]bool, len(names))
	for _, n := range names {
		if t := s.lookupTag(n); t != nil {
			set[t] = true
		}
	}
	return set
}

// GetIDsMatchingMode returns the names of every live page matching mode
// against the given query tags (spec commands GETIDSMATCHINGTAGS/
// GETIDSNOTMATCHINGTAGS/GETIDSMATCHINGANYTAGS all funnel through this with
// their corresponding tagmgr.CleanMode).
func (s *Store) GetIDsMatchingMode(mode tagmgr.CleanMode, tagNames [][]byte) [][]byte {
	set := s.tagSet(tagNames)
	var out [][]byte
	for _, p := range s.allPages() {
		if tagmgr.Matches(mode, p, set, false) {
			out = append(out, p.Name)
		}
	}
	return out
}

// GetFillingPercentage returns the Fpc domain's used-over-quota ratio as a
// percentage (spec command GETFILLINGPERCENTAGE); a zero quota (unbounded)
// reports 0.
func (s *Store) GetFillingPercentage() float64 {
	stats := s.domains.Stats(domain.Fpc)
	if stats.Quota <= 0 {
		return 0
	}
	return float64(stats.Used) / float64(stats.Quota) * 100
}

// Clean removes every live page matching mode against the given query tags
// (spec command CLEAN), returning the count removed. isOld reports, per
// page, whether it is eligible for CleanOld; Clean passes false uniformly
// since this store has no separate "old" classification beyond expiration,
// which Expired already covers via Load/GC.
func (s *Store) Clean(mode tagmgr.CleanMode, tagNames [][]byte) int {
	set := s.tagSet(tagNames)
	now := time.Now()
	var victims []*record.PageObject
	for _, p := range s.allPages() {
		isOld := p.IsExpired(now)
		if tagmgr.Matches(mode, p, set, isOld) {
			victims = append(victims, p)
		}
	}
	for _, p := range victims {
		s.removePage(p)
	}
	return len(victims)
}

// GC removes every expired page, regardless of tags (spec command GC: a
// sweep of the FPC domain for lifetime-expired records).
func (s *Store) GC() int {
	now := time.Now()
	var victims []*record.PageObject
	for _, p := range s.allPages() {
		if p.IsExpired(now) {
			victims = append(victims, p)
		}
	}
	for _, p := range victims {
		s.removePage(p)
	}
	return len(victims)
}

// Count returns the number of live page records.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}
