package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	models "mediafolders/internal/domain/models/explorer"
	"mediafolders/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// TagListing is carried by every cached listing; invalidating it flushes the cache.
const TagListing = "listing"

// FolderTag returns the invalidation tag for a folder (nil = root).
func FolderTag(id *string) string {
	return "folder:" + models.FolderKey(id)
}

// CacheKey holds every parameter that affects a listing's content.
type CacheKey struct {
	Kind     string // "list" or "search"
	FolderID string
	Order    models.OrderSpec
	Filter   string
	Offset   int
	Limit    int
	Query    string
	Actions  bool
	ActorID  string // set only when the output depends on the actor
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%t|%s|%s",
		k.Kind, k.FolderID, k.Order, k.Filter, k.Offset, k.Limit, k.Actions, k.ActorID, strings.ToLower(k.Query))
}

// ComputeFn produces a listing on a cache miss.
type ComputeFn func(ctx context.Context) (*models.Listing, error)

// ListingCache memoizes listings and drops them by tag.
type ListingCache interface {
	GetOrCompute(ctx context.Context, key CacheKey, tags []string, compute ComputeFn) (*models.Listing, error)
	Invalidate(tags ...string)
}

type cacheEntry struct {
	listing *models.Listing
	tags    []string
	seq     uint64
}

// ExplorerCache is an in-process write-through invalidation cache.
// Entries never expire; they are removed only by Invalidate or, when a size
// bound is configured, by evicting the oldest insertion. Stored and returned
// listings are deep copies, so readers never observe a partially written entry.
type ExplorerCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	tagIndex   map[string]map[string]struct{}
	tagGen     map[string]uint64
	seq        uint64
	maxEntries int

	group  singleflight.Group
	logger *slog.Logger
}

// NewExplorerCache creates a cache. maxEntries <= 0 means unbounded.
func NewExplorerCache(maxEntries int, logger *slog.Logger) *ExplorerCache {
	return &ExplorerCache{
		entries:    make(map[string]*cacheEntry),
		tagIndex:   make(map[string]map[string]struct{}),
		tagGen:     make(map[string]uint64),
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// GetOrCompute returns the cached listing for key, computing and storing it on a miss.
// Concurrent misses for the same key share one computation.
func (c *ExplorerCache) GetOrCompute(ctx context.Context, key CacheKey, tags []string, compute ComputeFn) (*models.Listing, error) {
	k := key.String()
	if l, ok := c.get(k); ok {
		metrics.RecordCacheHit()
		return l, nil
	}
	metrics.RecordCacheMiss()

	v, err, _ := c.group.Do(k, func() (interface{}, error) {
		if l, ok := c.get(k); ok {
			return l, nil
		}
		allTags := withListingTag(tags)
		gens := c.generations(allTags)

		l, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.put(k, l, allTags, gens)
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Listing).Clone(), nil
}

// Invalidate removes every entry carrying any of the tags. Computations that
// started before the call will not store their results.
func (c *ExplorerCache) Invalidate(tags ...string) {
	if len(tags) == 0 {
		return
	}

	c.mu.Lock()
	removed := 0
	for _, tag := range tags {
		c.tagGen[tag]++
		for k := range c.tagIndex[tag] {
			if c.removeLocked(k) {
				removed++
			}
		}
		delete(c.tagIndex, tag)
	}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.RecordCacheInvalidation(removed)
	metrics.SetCacheEntries(size)
	c.logger.Debug("listing cache invalidated", "tags", tags, "removed", removed)
}

// Len returns the number of cached listings.
func (c *ExplorerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ExplorerCache) get(k string) (*models.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	return e.listing.Clone(), true
}

func (c *ExplorerCache) generations(tags []string) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	gens := make([]uint64, len(tags))
	for i, t := range tags {
		gens[i] = c.tagGen[t]
	}
	return gens
}

func (c *ExplorerCache) put(k string, l *models.Listing, tags []string, gens []uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range tags {
		if c.tagGen[t] != gens[i] {
			// An invalidation ran while this listing was being computed.
			metrics.RecordCacheStaleSkip()
			return
		}
	}

	c.removeLocked(k)
	c.seq++
	c.entries[k] = &cacheEntry{listing: l.Clone(), tags: tags, seq: c.seq}
	for _, t := range tags {
		set, ok := c.tagIndex[t]
		if !ok {
			set = make(map[string]struct{})
			c.tagIndex[t] = set
		}
		set[k] = struct{}{}
	}

	if c.maxEntries > 0 {
		for len(c.entries) > c.maxEntries {
			c.evictOldestLocked()
		}
	}
	metrics.SetCacheEntries(len(c.entries))
}

// removeLocked drops one entry and its tag index references. Must be called with lock held.
func (c *ExplorerCache) removeLocked(k string) bool {
	e, ok := c.entries[k]
	if !ok {
		return false
	}
	for _, t := range e.tags {
		if set, ok := c.tagIndex[t]; ok {
			delete(set, k)
			if len(set) == 0 {
				delete(c.tagIndex, t)
			}
		}
	}
	delete(c.entries, k)
	return true
}

// evictOldestLocked removes the earliest inserted entry. Must be called with lock held.
func (c *ExplorerCache) evictOldestLocked() {
	var oldestKey string
	var oldestSeq uint64
	for k, e := range c.entries {
		if oldestKey == "" || e.seq < oldestSeq {
			oldestKey, oldestSeq = k, e.seq
		}
	}
	if oldestKey != "" {
		c.removeLocked(oldestKey)
	}
}

func withListingTag(tags []string) []string {
	out := make([]string, 0, len(tags)+1)
	seen := map[string]struct{}{TagListing: {}}
	out = append(out, TagListing)
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// cachedListing runs compute through the cache. A failure of the cache itself
// never fails the request: the listing is computed directly instead.
func cachedListing(ctx context.Context, cache ListingCache, logger *slog.Logger, key CacheKey, tags []string, compute ComputeFn) (*models.Listing, error) {
	if cache == nil {
		return compute(ctx)
	}

	var computeErr error
	listing, err := cache.GetOrCompute(ctx, key, tags, func(ctx context.Context) (*models.Listing, error) {
		l, err := compute(ctx)
		computeErr = err
		return l, err
	})
	if err == nil {
		return listing, nil
	}
	if computeErr != nil {
		return nil, computeErr
	}

	logger.Warn("listing cache failed, computing directly", "key", key.String(), "error", err)
	metrics.RecordCacheFallback()
	return compute(ctx)
}
