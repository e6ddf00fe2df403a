package quota

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"antigravity2api-go/internal/memory"
)

type memPersister struct {
	mu   sync.Mutex
	data []byte
}

func (p *memPersister) LoadQuotas(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data, nil
}

func (p *memPersister) SaveQuotas(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append([]byte(nil), data...)
	return nil
}

func newTestCache() (*Cache, *memPersister, *time.Time) {
	p := &memPersister{}
	c := NewCache(p)
	clock := time.Unix(10000, 0)
	c.now = func() time.Time { return clock }
	return c, p, &clock
}

func TestGetHonorsReadTTL(t *testing.T) {
	c, _, clock := newTestCache()
	ctx := context.Background()

	c.Update(ctx, "rt-1", map[string]ModelQuota{"gemini-3-flash": {Remaining: 80}})

	e, ok := c.Get("rt-1")
	require.True(t, ok)
	require.Equal(t, 80, e.Models["gemini-3-flash"].Remaining)

	*clock = clock.Add(4 * time.Minute)
	_, ok = c.Get("rt-1")
	require.True(t, ok, "4 minutes is inside the read TTL")

	*clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("rt-1")
	require.False(t, ok, "6 minutes is past the read TTL")
}

func TestMarkExhausted(t *testing.T) {
	c, _, _ := newTestCache()
	ctx := context.Background()

	c.Update(ctx, "rt-1", map[string]ModelQuota{"claude-opus-4-6-thinking": {Remaining: 50}})
	c.MarkExhausted(ctx, "rt-1", "claude-opus-4-6-thinking", "2026-01-02T15:04:05Z")

	e, ok := c.Get("rt-1")
	require.True(t, ok)
	require.Equal(t, 0, e.Models["claude-opus-4-6-thinking"].Remaining)
	require.Equal(t, "2026-01-02T15:04:05Z", e.Models["claude-opus-4-6-thinking"].ResetTime)
}

func TestSweepDropsStaleAndPersists(t *testing.T) {
	c, p, clock := newTestCache()
	ctx := context.Background()

	c.Update(ctx, "rt-old", map[string]ModelQuota{"m": {Remaining: 10}})
	*clock = clock.Add(61 * time.Minute)
	c.Update(ctx, "rt-new", map[string]ModelQuota{"m": {Remaining: 20}})

	c.Sweep(ctx)

	snap := c.Snapshot()
	require.NotContains(t, snap, "rt-old")
	require.Contains(t, snap, "rt-new")

	var doc struct {
		Meta struct {
			LastCleanup int64 `json:"lastCleanup"`
			TTL         int64 `json:"ttl"`
		} `json:"meta"`
		Quotas map[string]Entry `json:"quotas"`
	}
	require.NoError(t, json.Unmarshal(p.data, &doc))
	require.Equal(t, clock.UnixMilli(), doc.Meta.LastCleanup)
	require.Equal(t, int64(3600000), doc.Meta.TTL)
	require.NotContains(t, doc.Quotas, "rt-old")
	require.Contains(t, doc.Quotas, "rt-new")
}

func TestLoadRoundTrip(t *testing.T) {
	c, p, _ := newTestCache()
	ctx := context.Background()

	c.Update(ctx, "rt-1", map[string]ModelQuota{"gemini-3-pro-high": {Remaining: 100}})

	fresh := NewCache(p)
	fresh.now = c.now
	require.NoError(t, fresh.Load(ctx))

	e, ok := fresh.Get("rt-1")
	require.True(t, ok)
	require.Equal(t, 100, e.Models["gemini-3-pro-high"].Remaining)
}

func TestPressureCleanup(t *testing.T) {
	c, _, clock := newTestCache()
	ctx := context.Background()

	c.Update(ctx, "rt-old", map[string]ModelQuota{"m": {Remaining: 10}})
	*clock = clock.Add(61 * time.Minute)
	c.Update(ctx, "rt-new", map[string]ModelQuota{"m": {Remaining: 20}})

	c.Cleanup(memory.PressureHigh)
	snap := c.Snapshot()
	require.NotContains(t, snap, "rt-old")
	require.Contains(t, snap, "rt-new")

	c.Cleanup(memory.PressureCritical)
	require.Empty(t, c.Snapshot())
}
