package ofi

import (
	"container/list"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ofi-go/ofi/internal/constants"
)

// MRCacheStats snapshots an MRCache's running counters.
type MRCacheStats struct {
	Hits                uint64
	Misses              uint64
	Registrations       uint64
	Evictions           uint64
	CurrentEntries       int
	TotalRegisteredBytes uint64
}

// HitRate returns Hits / (Hits + Misses), or 0 if there have been no
// lookups yet.
func (s MRCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type mrCacheEntry struct {
	region    *MemoryRegion
	access    AccessFlags
	pageStart uintptr
	pageEnd   uintptr
	refcount  int
	elem      *list.Element
}

// MRCache is a page-aligned, reference-counted registration cache: repeated
// registration requests for overlapping byte ranges within an already-
// cached page range are served from the cache instead of re-registering
// with the provider, as long as the cached entry's access bits are a
// superset of what's requested. Entries with a zero refcount are eligible
// for eviction (oldest first) once the cache exceeds its entry limit.
type MRCache struct {
	domain   *Domain
	mu       sync.Mutex
	byPage   map[uintptr]*mrCacheEntry
	lru      *list.List
	pageSize uint64
	maxEntries int

	hits, misses, registrations, evictions atomic.Uint64
}

// NewMRCache creates a cache for domain with the given page size and entry
// limit. A zero pageSize or maxEntries falls back to this package's
// defaults.
func NewMRCache(domain *Domain, pageSize uint64, maxEntries int) *MRCache {
	if pageSize == 0 {
		pageSize = constants.DefaultMRCachePageSize
	}
	if maxEntries == 0 {
		maxEntries = constants.DefaultMRCacheMaxEntries
	}
	return &MRCache{
		domain:     domain,
		byPage:     make(map[uintptr]*mrCacheEntry),
		lru:        list.New(),
		pageSize:   pageSize,
		maxEntries: maxEntries,
	}
}

func (c *MRCache) alignDown(addr uintptr) uintptr {
	ps := uintptr(c.pageSize)
	return addr &^ (ps - 1)
}

func (c *MRCache) alignUp(addr uintptr) uintptr {
	ps := uintptr(c.pageSize)
	return (addr + ps - 1) &^ (ps - 1)
}

func bufAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}

// Lookup returns a MemoryRegion covering buf with at least the requested
// access, registering a new one (aligned to the cache's page size) if no
// cached entry covers the range, or if the cached entry's access is not a
// superset of access. The returned region's refcount is incremented;
// release it with Release once done, rather than closing it directly.
func (c *MRCache) Lookup(buf []byte, access AccessFlags) (*MemoryRegion, error) {
	addr := bufAddr(buf)
	pageStart := c.alignDown(addr)
	pageEnd := c.alignUp(addr + uintptr(len(buf)))

	c.mu.Lock()
	if e, ok := c.byPage[pageStart]; ok && e.pageEnd >= pageEnd && e.access.IsSuperset(access) {
		e.refcount++
		c.lru.MoveToBack(e.elem)
		c.hits.Add(1)
		c.mu.Unlock()
		return e.region, nil
	}
	c.mu.Unlock()

	c.misses.Add(1)
	return c.registerAligned(buf, access, pageStart, pageEnd)
}

func (c *MRCache) registerAligned(buf []byte, access AccessFlags, pageStart, pageEnd uintptr) (*MemoryRegion, error) {
	region, err := c.domain.RegisterHost(buf, access)
	if err != nil {
		return nil, WrapError("MRCache.Lookup", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.byPage[pageStart]; ok {
		c.evictEntry(pageStart, old)
	}
	e := &mrCacheEntry{
		region:    region,
		access:    access,
		pageStart: pageStart,
		pageEnd:   pageEnd,
		refcount:  1,
	}
	e.elem = c.lru.PushBack(pageStart)
	c.byPage[pageStart] = e

	c.registrations.Add(1)

	c.evictUnreferencedLocked(c.maxEntries)
	return region, nil
}

// Release decrements region's refcount. Once a region's refcount reaches
// zero it becomes eligible for eviction but is not immediately closed.
func (c *MRCache) Release(region *MemoryRegion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.byPage {
		if e.region == region && e.refcount > 0 {
			e.refcount--
			return
		}
	}
}

// Invalidate force-evicts whichever cached entry covers buf, regardless of
// refcount. Use this when the underlying buffer is about to be freed or
// reused for something else.
func (c *MRCache) Invalidate(buf []byte) error {
	addr := bufAddr(buf)
	pageStart := c.alignDown(addr)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byPage[pageStart]
	if !ok {
		return nil
	}
	return c.evictEntry(pageStart, e)
}

// EvictUnreferenced evicts every entry with a zero refcount and returns
// how many were removed.
func (c *MRCache) EvictUnreferenced() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictUnreferencedLocked(0)
}

// evictUnreferencedLocked evicts zero-refcount entries, oldest first,
// until the cache has at most keepBelow entries (or all zero-refcount
// entries are gone if keepBelow is 0).
func (c *MRCache) evictUnreferencedLocked(keepBelow int) int {
	evicted := 0
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if keepBelow > 0 && len(c.byPage) <= keepBelow {
			break
		}
		pageStart := elem.Value.(uintptr)
		e := c.byPage[pageStart]
		if e != nil && e.refcount == 0 {
			c.evictEntry(pageStart, e)
			evicted++
		}
		elem = next
	}
	return evicted
}

func (c *MRCache) evictEntry(pageStart uintptr, e *mrCacheEntry) error {
	delete(c.byPage, pageStart)
	c.lru.Remove(e.elem)
	c.evictions.Add(1)
	return e.region.Close()
}

// Clear closes every cached region regardless of refcount and empties the
// cache.
func (c *MRCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for pageStart, e := range c.byPage {
		if err := e.region.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.evictions.Add(1)
		delete(c.byPage, pageStart)
	}
	c.lru.Init()
	return firstErr
}

// Stats returns a snapshot of the cache's running counters.
func (c *MRCache) Stats() MRCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var totalBytes uint64
	for _, e := range c.byPage {
		totalBytes += uint64(e.pageEnd - e.pageStart)
	}
	return MRCacheStats{
		Hits:                 c.hits.Load(),
		Misses:               c.misses.Load(),
		Registrations:        c.registrations.Load(),
		Evictions:            c.evictions.Load(),
		CurrentEntries:       len(c.byPage),
		TotalRegisteredBytes: totalBytes,
	}
}
