package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/waypoint-labs/waypoint/config"
	"github.com/waypoint-labs/waypoint/logger"
	"go.uber.org/zap"
)

type cacheEntry struct {
	graph *ParsedGraph
	size  int64
}

// DefinitionCache memoizes parsed graph definitions keyed by the exact bytes
// of the raw document, so two identical documents share one entry regardless
// of origin. Eviction is LRU, bounded by both entry count and approximate byte
// size. Safe for concurrent use.
type DefinitionCache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, *cacheEntry]
	maxBytes int64
	bytes    int64
}

func NewDefinitionCache(cfg config.DefinitionCacheConfig) (*DefinitionCache, error) {
	c := &DefinitionCache{
		maxBytes: cfg.MaxBytes,
	}
	entries, err := lru.NewWithEvict[string, *cacheEntry](cfg.MaxEntries, func(key string, entry *cacheEntry) {
		c.bytes -= entry.size
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// GetDefinitions returns the parsed form of the raw document, parsing and
// indexing it on first sight. A parse failure returns a ParseError and caches
// nothing.
func (c *DefinitionCache) GetDefinitions(raw []byte) (*ParsedGraph, error) {
	key := cacheKey(raw)
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries.Get(key); ok {
		return entry.graph, nil
	}
	g, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	entry := &cacheEntry{graph: g, size: int64(len(raw))}
	c.entries.Add(key, entry)
	c.bytes += entry.size
	for c.bytes > c.maxBytes && c.entries.Len() > 1 {
		c.entries.RemoveOldest()
	}
	logger.Debug("parsed graph definition", zap.String("key", key), zap.Int("elements", g.ElementCount()))
	return g, nil
}

func (c *DefinitionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func cacheKey(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
