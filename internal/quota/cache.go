package quota

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/memory"
	"antigravity2api-go/internal/monitoring"
)

// Persister stores the serialized quota document. The storage backends
// satisfy this.
type Persister interface {
	LoadQuotas(ctx context.Context) ([]byte, error)
	SaveQuotas(ctx context.Context, data []byte) error
}

// ModelQuota is the per-model remaining allowance reported upstream.
// Remaining is percentage points (the upstream fraction scaled by 100).
type ModelQuota struct {
	Remaining int    `json:"remaining"`
	ResetTime string `json:"resetTime,omitempty"`
}

// Entry groups quotas for one credential, keyed by its refresh token.
type Entry struct {
	LastUpdated int64                 `json:"lastUpdated"`
	Models      map[string]ModelQuota `json:"models"`
}

type document struct {
	Meta struct {
		LastCleanup int64 `json:"lastCleanup"`
		TTL         int64 `json:"ttl"`
	} `json:"meta"`
	Quotas map[string]Entry `json:"quotas"`
}

// Cache keeps per-credential model quotas with a short read TTL and an
// hourly persistence sweep.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]Entry
	persister Persister

	readTTL     time.Duration
	sweepTTL    time.Duration
	lastCleanup time.Time
	now         func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCache builds an empty cache bound to the persister.
func NewCache(p Persister) *Cache {
	return &Cache{
		entries:   make(map[string]Entry),
		persister: p,
		readTTL:   constants.QuotaReadTTL,
		sweepTTL:  constants.QuotaSweepTTL,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Load hydrates the cache from the persisted document. A missing
// document is not an error.
func (c *Cache) Load(ctx context.Context) error {
	data, err := c.persister.LoadQuotas(ctx)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if doc.Quotas != nil {
		c.entries = doc.Quotas
	}
	if doc.Meta.LastCleanup > 0 {
		c.lastCleanup = time.UnixMilli(doc.Meta.LastCleanup)
	}
	return nil
}

// Update replaces the model quotas for a credential and stamps it fresh.
func (c *Cache) Update(ctx context.Context, refreshToken string, models map[string]ModelQuota) {
	if refreshToken == "" {
		return
	}
	c.mu.Lock()
	c.entries[refreshToken] = Entry{
		LastUpdated: c.now().UnixMilli(),
		Models:      models,
	}
	c.persistLocked(ctx)
	c.mu.Unlock()
}

// Get returns the entry only while it is fresher than the read TTL.
func (c *Cache) Get(refreshToken string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[refreshToken]
	if !ok {
		return Entry{}, false
	}
	if c.now().UnixMilli()-e.LastUpdated >= c.readTTL.Milliseconds() {
		return Entry{}, false
	}
	return e, true
}

// MarkExhausted zeroes the remaining allowance for one model.
func (c *Cache) MarkExhausted(ctx context.Context, refreshToken, model, resetTime string) {
	if refreshToken == "" || model == "" {
		return
	}
	c.mu.Lock()
	e, ok := c.entries[refreshToken]
	if !ok || e.Models == nil {
		e = Entry{Models: make(map[string]ModelQuota)}
	}
	e.Models[model] = ModelQuota{Remaining: 0, ResetTime: resetTime}
	e.LastUpdated = c.now().UnixMilli()
	c.entries[refreshToken] = e
	c.persistLocked(ctx)
	c.mu.Unlock()

	monitoring.QuotaExhaustedTotal.WithLabelValues(model).Inc()
}

// StartSweeper launches the hourly retention sweep.
func (c *Cache) StartSweeper() {
	go func() {
		ticker := time.NewTicker(constants.QuotaSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep(context.Background())
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the sweeper.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Sweep drops entries older than the retention window and persists.
func (c *Cache) Sweep(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().UnixMilli() - c.sweepTTL.Milliseconds()
	dropped := 0
	for k, e := range c.entries {
		if e.LastUpdated < cutoff {
			delete(c.entries, k)
			dropped++
		}
	}
	c.lastCleanup = c.now()
	c.persistLocked(ctx)

	if dropped > 0 {
		log.Debugf("quota sweep dropped %d stale entries", dropped)
	}
}

// Cleanup is the memory regulator subscriber: HIGH prunes entries past
// the retention window, CRITICAL empties the map.
func (c *Cache) Cleanup(p memory.Pressure) {
	switch {
	case p >= memory.PressureCritical:
		c.mu.Lock()
		c.entries = make(map[string]Entry)
		c.persistLocked(context.Background())
		c.mu.Unlock()
	case p >= memory.PressureHigh:
		c.Sweep(context.Background())
	}
}

// Snapshot returns a copy of all entries regardless of freshness.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]Entry, len(c.entries))
	for k, e := range c.entries {
		models := make(map[string]ModelQuota, len(e.Models))
		for m, q := range e.Models {
			models[m] = q
		}
		out[k] = Entry{LastUpdated: e.LastUpdated, Models: models}
	}
	return out
}

func (c *Cache) persistLocked(ctx context.Context) {
	if c.persister == nil {
		return
	}
	var doc document
	doc.Meta.LastCleanup = c.lastCleanup.UnixMilli()
	doc.Meta.TTL = c.sweepTTL.Milliseconds()
	doc.Quotas = c.entries

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		log.Warnf("marshal quota document: %v", err)
		return
	}
	if err := c.persister.SaveQuotas(ctx, data); err != nil {
		log.Warnf("persist quota document: %v", err)
	}
}
