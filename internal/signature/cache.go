package signature

import (
	"sync"
	"time"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/memory"
	"antigravity2api-go/internal/monitoring"
)

type entry struct {
	signature string
	storedAt  time.Time
}

// Cache remembers the most recent thought signature per model so the
// next request in a multi-turn thinking conversation can re-thread
// history the upstream validator accepts. Keys are the model id alone;
// concurrent conversations on one model overwrite each other, which the
// upstream tolerates via its placeholder validator.
type Cache struct {
	mu   sync.Mutex
	text map[string]entry
	tool map[string]entry

	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewCache builds a cache with the default bounds.
func NewCache() *Cache {
	return &Cache{
		text:       make(map[string]entry),
		tool:       make(map[string]entry),
		maxEntries: constants.SignatureCacheMaxEntries,
		ttl:        constants.SignatureCacheTTL,
		now:        time.Now,
	}
}

// StoreText records a reasoning signature for the model.
func (c *Cache) StoreText(model, sig string) {
	if model == "" || sig == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(c.text, model, sig)
	c.publishSizes()
}

// StoreTool records a tool-call signature for the model.
func (c *Cache) StoreTool(model, sig string) {
	if model == "" || sig == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(c.tool, model, sig)
	c.publishSizes()
}

func (c *Cache) store(m map[string]entry, model, sig string) {
	if _, exists := m[model]; !exists && len(m) >= c.maxEntries {
		c.evictOldest(m)
	}
	m[model] = entry{signature: sig, storedAt: c.now()}
}

func (c *Cache) evictOldest(m map[string]entry) {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range m {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.storedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(m, oldestKey)
	}
}

// Text returns the live reasoning signature for the model, if any.
func (c *Cache) Text(model string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(c.text, model)
}

// Tool returns the live tool-call signature for the model, if any.
func (c *Cache) Tool(model string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(c.tool, model)
}

func (c *Cache) lookup(m map[string]entry, model string) (string, bool) {
	e, ok := m[model]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(m, model)
		return "", false
	}
	return e.signature, true
}

// Cleanup is the memory regulator subscriber. Expired entries go on any
// tick; HIGH and above drops both maps entirely.
func (c *Cache) Cleanup(p memory.Pressure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p >= memory.PressureHigh {
		c.text = make(map[string]entry)
		c.tool = make(map[string]entry)
		c.publishSizes()
		return
	}

	cutoff := c.now().Add(-c.ttl)
	for _, m := range []map[string]entry{c.text, c.tool} {
		for k, e := range m {
			if e.storedAt.Before(cutoff) {
				delete(m, k)
			}
		}
	}
	c.publishSizes()
}

func (c *Cache) publishSizes() {
	monitoring.SignatureCacheEntries.WithLabelValues("text").Set(float64(len(c.text)))
	monitoring.SignatureCacheEntries.WithLabelValues("tool").Set(float64(len(c.tool)))
}

// Stats reports current entry counts for introspection routes.
func (c *Cache) Stats() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]int{
		"text": len(c.text),
		"tool": len(c.tool),
	}
}
