package credential

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/oauth"
	"antigravity2api-go/internal/storage"
)

type fakeRefresher struct {
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &oauth.TokenResponse{AccessToken: "at-" + refreshToken, ExpiresIn: 3600}, nil
}

type fakeProjects struct{ err error }

func (f *fakeProjects) ResolveProject(ctx context.Context, accessToken string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "proj-1", nil
}

func freshCred(rt string) *Credential {
	return &Credential{
		RefreshToken: rt,
		AccessToken:  "at-" + rt,
		ExpiresIn:    3600,
		Timestamp:    time.Now().UnixMilli(),
		Enable:       true,
		HasQuota:     true,
		ProjectID:    "proj-1",
		SessionID:    NewSessionID(),
	}
}

func newTestPool(t *testing.T, strategy string, creds ...*Credential) (*Pool, *Store) {
	t.Helper()
	backend := storage.NewFileBackend(t.TempDir())
	require.NoError(t, backend.Initialize(context.Background()))
	store := NewStore(backend)
	for _, c := range creds {
		require.NoError(t, store.Add(context.Background(), c))
	}
	pool := NewPool(store, &fakeRefresher{}, &fakeProjects{}, RotationConfig{Strategy: strategy, RequestCountPerToken: 3}, false)
	return pool, store
}

func TestIsExpiredFormula(t *testing.T) {
	now := time.Now()
	c := &Credential{AccessToken: "at", ExpiresIn: 3600, Timestamp: now.UnixMilli()}

	// expired exactly at timestamp + (expires_in - 300) seconds
	require.False(t, c.IsExpired(now))
	require.False(t, c.IsExpired(now.Add(3299*time.Second)))
	require.True(t, c.IsExpired(now.Add(3300*time.Second)))
	require.True(t, c.IsExpired(now.Add(3600*time.Second)))

	// no access token is always expired
	require.True(t, (&Credential{}).IsExpired(now))
}

func TestRoundRobinFairness(t *testing.T) {
	creds := []*Credential{freshCred("a"), freshCred("b"), freshCred("c")}
	pool, _ := newTestPool(t, config.StrategyRoundRobin, creds...)

	counts := make(map[string]int)
	for i := 0; i < 10*len(creds); i++ {
		c, err := pool.GetToken(context.Background())
		require.NoError(t, err)
		counts[c.RefreshToken]++
	}
	for _, c := range creds {
		require.GreaterOrEqual(t, counts[c.RefreshToken], 8, "credential %s starved", c.RefreshToken)
	}
}

func TestQuotaExhaustedRotation(t *testing.T) {
	c0, c1, c2 := freshCred("c0"), freshCred("c1"), freshCred("c2")
	c1.HasQuota = false
	pool, _ := newTestPool(t, config.StrategyQuotaExhausted, c0, c1, c2)
	ctx := context.Background()

	got, err := pool.GetToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "c0", got.RefreshToken)

	got, err = pool.GetToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "c2", got.RefreshToken)

	pool.MarkQuotaExhausted(ctx, c0)

	got, err = pool.GetToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "c2", got.RefreshToken)

	pool.MarkQuotaExhausted(ctx, c2)

	// all exhausted: optimistic reset, first credential again
	got, err = pool.GetToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "c0", got.RefreshToken)
	require.True(t, c0.HasQuota)
	require.True(t, c1.HasQuota)
	require.True(t, c2.HasQuota)
}

func TestRequestCountStrategy(t *testing.T) {
	c0, c1 := freshCred("c0"), freshCred("c1")
	pool, _ := newTestPool(t, config.StrategyRequestCount, c0, c1)
	ctx := context.Background()

	var order []string
	for i := 0; i < 8; i++ {
		c, err := pool.GetToken(ctx)
		require.NoError(t, err)
		order = append(order, c.RefreshToken)
	}
	// threshold 3: three on c0, three on c1, back to c0
	require.Equal(t, []string{"c0", "c0", "c0", "c1", "c1", "c1", "c0", "c0"}, order)
}

func TestRefreshFatalDisablesAndPersists(t *testing.T) {
	expired := freshCred("dead")
	expired.Timestamp = time.Now().Add(-2 * time.Hour).UnixMilli()
	live := freshCred("live")

	backend := storage.NewFileBackend(t.TempDir())
	require.NoError(t, backend.Initialize(context.Background()))
	store := NewStore(backend)
	require.NoError(t, store.Add(context.Background(), expired))
	require.NoError(t, store.Add(context.Background(), live))

	refresher := &fakeRefresher{err: &oauth.RefreshError{StatusCode: http.StatusBadRequest, Body: "invalid_grant"}}
	pool := NewPool(store, refresher, &fakeProjects{}, RotationConfig{Strategy: config.StrategyRoundRobin}, false)

	got, err := pool.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "live", got.RefreshToken)
	require.False(t, expired.Enable)

	// disabled row survives on disk with enable=false
	data, err := backend.LoadAccounts(context.Background())
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row["refresh_token"] == "dead" {
			require.Equal(t, false, row["enable"])
		}
	}
}

func TestRefreshTransientSkipsWithoutDisabling(t *testing.T) {
	expired := freshCred("flaky")
	expired.Timestamp = time.Now().Add(-2 * time.Hour).UnixMilli()
	live := freshCred("live")

	backend := storage.NewFileBackend(t.TempDir())
	require.NoError(t, backend.Initialize(context.Background()))
	store := NewStore(backend)
	require.NoError(t, store.Add(context.Background(), expired))
	require.NoError(t, store.Add(context.Background(), live))

	refresher := &fakeRefresher{err: &oauth.RefreshError{StatusCode: http.StatusServiceUnavailable}}
	pool := NewPool(store, refresher, &fakeProjects{}, RotationConfig{Strategy: config.StrategyRoundRobin}, false)

	got, err := pool.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "live", got.RefreshToken)
	require.True(t, expired.Enable)
}

func TestIneligibleProjectDisables(t *testing.T) {
	noProject := freshCred("no-project")
	noProject.ProjectID = ""
	live := freshCred("live")

	backend := storage.NewFileBackend(t.TempDir())
	require.NoError(t, backend.Initialize(context.Background()))
	store := NewStore(backend)
	require.NoError(t, store.Add(context.Background(), noProject))
	require.NoError(t, store.Add(context.Background(), live))

	pool := NewPool(store, &fakeRefresher{}, &fakeProjects{err: oauth.ErrIneligible}, RotationConfig{Strategy: config.StrategyRoundRobin}, false)

	got, err := pool.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "live", got.RefreshToken)
	require.False(t, noProject.Enable)
}

func TestSkipDiscoverySynthesizesProject(t *testing.T) {
	c := freshCred("c")
	c.ProjectID = ""
	backend := storage.NewFileBackend(t.TempDir())
	require.NoError(t, backend.Initialize(context.Background()))
	store := NewStore(backend)
	require.NoError(t, store.Add(context.Background(), c))

	pool := NewPool(store, &fakeRefresher{}, &fakeProjects{err: oauth.ErrIneligible}, RotationConfig{Strategy: config.StrategyRoundRobin}, true)

	got, err := pool.GetToken(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, got.ProjectID)
}

func TestConcurrentQuotaFlipsAndAdminWrites(t *testing.T) {
	c0, c1 := freshCred("c0"), freshCred("c1")
	pool, store := newTestPool(t, config.StrategyQuotaExhausted, c0, c1)
	ctx := context.Background()

	// 配额标记、管理面写入和轮转选择同时进行；
	// 凭证字段的每一次读写都必须经过 store 的锁。
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				pool.MarkQuotaExhausted(ctx, c0)
				pool.RestoreQuota(ctx, c0)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			_ = store.Update(ctx, "c1", func(c *Credential) { c.Enable = true })
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			for _, snap := range store.Snapshot() {
				_ = snap.HasQuota && snap.Enable
			}
			_, _ = pool.GetToken(ctx)
		}
	}()
	wg.Wait()

	got, err := pool.GetToken(ctx)
	require.NoError(t, err)
	require.True(t, got.HasQuota)
}

func TestGetTokenEmptyPool(t *testing.T) {
	pool, _ := newTestPool(t, config.StrategyRoundRobin)
	_, err := pool.GetToken(context.Background())
	require.ErrorIs(t, err, ErrNoToken)
}

func TestUpdateRotationConfigResetsCounters(t *testing.T) {
	c0, c1 := freshCred("c0"), freshCred("c1")
	pool, _ := newTestPool(t, config.StrategyRequestCount, c0, c1)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := pool.GetToken(ctx)
		require.NoError(t, err)
	}
	pool.UpdateRotationConfig(RotationConfig{Strategy: config.StrategyRequestCount, RequestCountPerToken: 3})

	// counters start over after the hot swap
	var order []string
	for i := 0; i < 4; i++ {
		c, err := pool.GetToken(ctx)
		require.NoError(t, err)
		order = append(order, c.RefreshToken)
	}
	require.Equal(t, []string{"c0", "c0", "c0", "c1"}, order)
}
