package repo

import (
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/modbot/internal/core"
)

// SearchCache keeps recent registry responses keyed by normalized query.
// Entries expire after the TTL, the oldest entry is evicted at capacity.
type SearchCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	order      []string // LRU order, oldest first
	maxEntries int
	ttl        time.Duration
}

type cacheEntry struct {
	result    *core.SearchResult
	createdAt time.Time
}

func NewSearchCache(maxEntries int, ttl time.Duration) *SearchCache {
	if maxEntries <= 0 {
		maxEntries = 50
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &SearchCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func (sc *SearchCache) Get(query string) (*core.SearchResult, bool) {
	key := normalizeQuery(query)
	if key == "" {
		return nil, false
	}

	sc.mu.RLock()
	defer sc.mu.RUnlock()

	entry, ok := sc.entries[key]
	if !ok || time.Since(entry.createdAt) >= sc.ttl {
		return nil, false
	}
	return copyResult(entry.result), true
}

func (sc *SearchCache) Put(query string, result *core.SearchResult) {
	key := normalizeQuery(query)
	if key == "" || result == nil {
		return
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.evictExpiredLocked()

	if _, ok := sc.entries[key]; ok {
		sc.entries[key] = &cacheEntry{result: copyResult(result), createdAt: time.Now()}
		sc.moveToEndLocked(key)
		return
	}

	for len(sc.entries) >= sc.maxEntries && len(sc.order) > 0 {
		oldest := sc.order[0]
		sc.order = sc.order[1:]
		delete(sc.entries, oldest)
	}

	sc.entries[key] = &cacheEntry{result: copyResult(result), createdAt: time.Now()}
	sc.order = append(sc.order, key)
}

func (sc *SearchCache) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.entries)
}

func (sc *SearchCache) evictExpiredLocked() {
	now := time.Now()
	order := make([]string, 0, len(sc.order))
	for _, key := range sc.order {
		entry, ok := sc.entries[key]
		if !ok || now.Sub(entry.createdAt) >= sc.ttl {
			delete(sc.entries, key)
			continue
		}
		order = append(order, key)
	}
	sc.order = order
}

func (sc *SearchCache) moveToEndLocked(key string) {
	for i, k := range sc.order {
		if k == key {
			sc.order = append(sc.order[:i], sc.order[i+1:]...)
			break
		}
	}
	sc.order = append(sc.order, key)
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// copyResult detaches a cached result from whatever the caller does with it.
func copyResult(r *core.SearchResult) *core.SearchResult {
	cp := &core.SearchResult{
		ModIDs: append([]string(nil), r.ModIDs...),
		Mods:   make(map[string]core.ModInfo, len(r.Mods)),
	}
	for k, v := range r.Mods {
		cp.Mods[k] = v
	}
	return cp
}
