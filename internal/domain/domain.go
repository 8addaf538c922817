// Package domain implements CyberCache's quota-tracked memory accounting
// (spec §4.1): one counter per Domain, relaxed-atomic, with a host callback
// invoked when a domain goes over quota.
package domain

import (
	"go.uber.org/atomic"

	"github.com/pkg/errors"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
)

// Domain tags every allocation with the accounting region it belongs to.
type Domain int

const (
	Global Domain = iota
	Session
	Fpc
	numDomains
)

func (d Domain) String() string {
	switch d {
	case Global:
		return "global"
	case Session:
		return "session"
	case Fpc:
		return "fpc"
	default:
		return "unknown"
	}
}

// Deallocator is the host callback a domain invokes when it is over quota.
// BeginMemoryDeallocation should start freeing memory elsewhere (eviction,
// GC of expired records, ...) and report back via EndMemoryDeallocation once
// it believes enough has been freed for the pending allocation to proceed.
type Deallocator interface {
	BeginMemoryDeallocation(domain Domain, requested int64)
	EndMemoryDeallocation(domain Domain)
}

// Counter is one domain's quota and current usage, grounded on the
// atomic hit/miss/dirty-page counters of the teacher's BufferPool
// (server/innodb/buffer_pool/buffer_pool.go), generalized from page counts
// to byte quotas.
type Counter struct {
	quota     atomic.Int64
	used      atomic.Int64
	allocs    atomic.Uint64
	deallocCB atomic.Uint64
}

// Set configures the quota for this counter; 0 means "unbounded" for the
// purposes of Alloc (the caller — internal/config — is responsible for
// clamping to the edition's [min,max] range before calling Set).
func (c *Counter) Set(quota int64) { c.quota.Store(quota) }

func (c *Counter) Quota() int64 { return c.quota.Load() }
func (c *Counter) Used() int64  { return c.used.Load() }

// Registry owns one Counter per Domain plus the Deallocator callback used
// when any of them goes over quota.
type Registry struct {
	counters [numDomains]Counter
	dealloc  Deallocator
}

// NewRegistry builds a Registry with the given per-domain quotas (bytes; 0
// means unbounded) and deallocation callback.
func NewRegistry(globalQuota, sessionQuota, fpcQuota int64, dealloc Deallocator) *Registry {
	r := &Registry{dealloc: dealloc}
	r.counters[Global].Set(globalQuota)
	r.counters[Session].Set(sessionQuota)
	r.counters[Fpc].Set(fpcQuota)
	return r
}

func (r *Registry) Counter(d Domain) *Counter { return &r.counters[d] }

// Alloc accounts size bytes against domain d, invoking the deallocation
// callback synchronously if the domain would go over quota. Returns a
// ccerr.KindQuota error (process abort territory, per spec §7) if the
// callback reports it could not free enough.
func (r *Registry) Alloc(d Domain, size int64) error {
	c := &r.counters[d]
	quota := c.quota.Load()
	if quota > 0 {
		if newUsed := c.used.Load() + size; newUsed > quota {
			if r.dealloc == nil {
				return ccerr.Wrap(ccerr.KindQuota, "domain.Alloc",
					errors.Errorf("domain %s over quota (%d+%d > %d) and no deallocator configured", d, c.used.Load(), size, quota))
			}
			c.deallocCB.Inc()
			r.dealloc.BeginMemoryDeallocation(d, size)
			r.dealloc.EndMemoryDeallocation(d)
			if c.used.Load()+size > quota {
				return ccerr.Wrap(ccerr.KindQuota, "domain.Alloc",
					errors.Errorf("domain %s still over quota after deallocation (%d+%d > %d)", d, c.used.Load(), size, quota))
			}
		}
	}
	c.used.Add(size)
	c.allocs.Inc()
	return nil
}

// Realloc accounts a size delta (positive growth or negative shrink) against
// domain d without re-running quota deallocation on shrink.
func (r *Registry) Realloc(d Domain, delta int64) error {
	if delta >= 0 {
		return r.Alloc(d, delta)
	}
	r.counters[d].used.Add(delta)
	return nil
}

// Free accounts size bytes freed from domain d. The caller must pass the
// original allocation size — CyberCache's arenas carry no per-block header,
// so there is nothing to recover it from (spec §4.1).
func (r *Registry) Free(d Domain, size int64) {
	r.counters[d].used.Sub(size)
}

// TransferUsedSize moves n bytes of accounting from src to dst without
// touching any memory, e.g. when a buffer allocated in Global is re-parented
// to Session or Fpc after a record claims it.
func (r *Registry) TransferUsedSize(src, dst Domain, n int64) {
	r.counters[src].used.Sub(n)
	r.counters[dst].used.Add(n)
}

// Stats is a point-in-time snapshot of one domain's accounting, exposed via
// the STATS wire command (supplemented from original_source — see DESIGN.md).
type Stats struct {
	Domain           Domain
	Used             int64
	Quota            int64
	Allocations      uint64
	DeallocCallbacks uint64
}

func (r *Registry) Stats(d Domain) Stats {
	c := &r.counters[d]
	return Stats{
		Domain:           d,
		Used:             c.used.Load(),
		Quota:            c.quota.Load(),
		Allocations:      c.allocs.Load(),
		DeallocCallbacks: c.deallocCB.Load(),
	}
}
