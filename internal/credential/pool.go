package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/monitoring"
	"antigravity2api-go/internal/oauth"
)

// ErrNoToken 所有凭证都不可用。
var ErrNoToken = errors.New("no available token")

// Refresher exchanges a refresh token for a fresh access token.
// *oauth.Manager satisfies this.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error)
}

// ProjectResolver discovers the companion project for a credential.
// *oauth.ProjectDetector satisfies this.
type ProjectResolver interface {
	ResolveProject(ctx context.Context, accessToken string) (string, error)
}

// RotationConfig is the live strategy snapshot the pool rotates under.
type RotationConfig struct {
	Strategy             string
	RequestCountPerToken int
}

// Pool hands out live credentials under the configured rotation
// strategy, refreshing expired tokens and disabling fatally rejected
// ones along the way.
type Pool struct {
	store     *Store
	refresher Refresher
	projects  ProjectResolver

	mu            sync.Mutex
	cfg           RotationConfig
	currentIndex  int
	requestCounts map[string]int

	skipDiscovery bool
	now           func() time.Time
}

// NewPool wires a pool to its collaborators.
func NewPool(store *Store, refresher Refresher, projects ProjectResolver, rc RotationConfig, skipDiscovery bool) *Pool {
	if !validStrategy(rc.Strategy) {
		rc.Strategy = config.StrategyRoundRobin
	}
	if rc.RequestCountPerToken <= 0 {
		rc.RequestCountPerToken = 10
	}
	return &Pool{
		store:         store,
		refresher:     refresher,
		projects:      projects,
		cfg:           rc,
		requestCounts: make(map[string]int),
		skipDiscovery: skipDiscovery,
		now:           time.Now,
	}
}

func validStrategy(s string) bool {
	switch s {
	case config.StrategyRoundRobin, config.StrategyQuotaExhausted, config.StrategyRequestCount:
		return true
	}
	return false
}

// UpdateRotationConfig hot-swaps the strategy and resets the counters.
func (p *Pool) UpdateRotationConfig(rc RotationConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !validStrategy(rc.Strategy) {
		rc.Strategy = config.StrategyRoundRobin
	}
	if rc.RequestCountPerToken <= 0 {
		rc.RequestCountPerToken = p.cfg.RequestCountPerToken
	}
	p.cfg = rc
	p.currentIndex = 0
	p.requestCounts = make(map[string]int)
	log.Infof("rotation config updated: strategy=%s request_count_per_token=%d", rc.Strategy, rc.RequestCountPerToken)
}

// Config returns the live rotation snapshot.
func (p *Pool) Config() RotationConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// GetToken returns a credential ready to call upstream. Selection scans
// circularly from currentIndex for at most one full lap; candidates are
// refreshed or disabled as the scan encounters them. ErrNoToken means
// the lap completed without a usable credential.
func (p *Pool) GetToken(ctx context.Context) (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	creds := p.store.Snapshot()
	n := len(creds)
	if n == 0 {
		return nil, ErrNoToken
	}
	if p.currentIndex >= n {
		p.currentIndex = 0
	}

	allSkipped := true
	for step := 0; step < n; step++ {
		idx := (p.currentIndex + step) % n
		cand := creds[idx]

		if !cand.Enable {
			continue
		}
		if p.cfg.Strategy == config.StrategyQuotaExhausted && !cand.HasQuota {
			continue
		}
		allSkipped = false

		if !p.ensureUsable(ctx, &cand) {
			continue
		}

		p.currentIndex = idx
		p.postAdvance(&cand, n)
		monitoring.CredentialRotationsTotal.WithLabelValues(p.cfg.Strategy).Inc()
		return &cand, nil
	}

	// 全部因配额被跳过：乐观地认为新的计费窗口已开始，
	// 恢复所有 hasQuota 并直接用第一条。
	if p.cfg.Strategy == config.StrategyQuotaExhausted && allSkipped {
		if err := p.store.UpdateAll(ctx, func(c *Credential) { c.HasQuota = true }); err != nil {
			log.Warnf("persist optimistic quota reset: %v", err)
		}
		creds = p.store.Snapshot()
		for idx := range creds {
			cand := creds[idx]
			if !cand.Enable {
				continue
			}
			if !p.ensureUsable(ctx, &cand) {
				continue
			}
			p.currentIndex = idx
			monitoring.CredentialRotationsTotal.WithLabelValues(p.cfg.Strategy).Inc()
			return &cand, nil
		}
	}

	return nil, ErrNoToken
}

// ensureUsable refreshes an expired token and fills a missing project
// id. cand is the caller's working copy; the durable write goes
// through the store. Returns false when the candidate must be skipped
// this lap.
func (p *Pool) ensureUsable(ctx context.Context, cand *Credential) bool {
	if cand.IsExpired(p.now()) {
		tok, err := p.refresher.Refresh(ctx, cand.RefreshToken)
		if err != nil {
			var refreshErr *oauth.RefreshError
			if errors.As(err, &refreshErr) && refreshErr.Fatal() {
				log.Warnf("credential %s rejected by token endpoint (%d), disabling", redactToken(cand.RefreshToken), refreshErr.StatusCode)
				p.disable(ctx, cand.RefreshToken, "refresh_rejected")
				return false
			}
			log.Warnf("credential %s refresh failed: %v", redactToken(cand.RefreshToken), err)
			return false
		}
		now := p.now()
		cand.ApplyRefresh(tok.AccessToken, int64(tok.ExpiresIn), now)
		err = p.store.Update(ctx, cand.RefreshToken, func(c *Credential) {
			c.ApplyRefresh(tok.AccessToken, int64(tok.ExpiresIn), now)
		})
		if err != nil {
			log.Warnf("persist refreshed credential: %v", err)
		}
	}

	if cand.ProjectID == "" {
		if p.skipDiscovery {
			cand.ProjectID = oauth.SynthesizeProjectID()
		} else {
			project, err := p.projects.ResolveProject(ctx, cand.AccessToken)
			if errors.Is(err, oauth.ErrIneligible) {
				log.Warnf("credential %s ineligible for code assist, disabling", redactToken(cand.RefreshToken))
				p.disable(ctx, cand.RefreshToken, "ineligible")
				return false
			}
			if err != nil {
				log.Warnf("project discovery for %s: %v", redactToken(cand.RefreshToken), err)
				return false
			}
			cand.ProjectID = project
		}
		projectID := cand.ProjectID
		err := p.store.Update(ctx, cand.RefreshToken, func(c *Credential) {
			c.ProjectID = projectID
		})
		if err != nil {
			log.Warnf("persist project id: %v", err)
		}
	}
	return true
}

// postAdvance applies the strategy's post-selection movement.
func (p *Pool) postAdvance(cand *Credential, n int) {
	switch p.cfg.Strategy {
	case config.StrategyRoundRobin:
		p.currentIndex = (p.currentIndex + 1) % n
	case config.StrategyRequestCount:
		// 计数发生在轮转判断里：每次成功 GetToken 恰好加一。
		p.requestCounts[cand.RefreshToken]++
		if p.requestCounts[cand.RefreshToken] >= p.cfg.RequestCountPerToken {
			p.requestCounts[cand.RefreshToken] = 0
			p.currentIndex = (p.currentIndex + 1) % n
		}
	case config.StrategyQuotaExhausted:
		// 与 round_robin 相同推进；耗尽的凭证在扫描时被跳过。
		p.currentIndex = (p.currentIndex + 1) % n
	}
}

func (p *Pool) disable(ctx context.Context, refreshToken, reason string) {
	monitoring.CredentialDisabledTotal.WithLabelValues(reason).Inc()
	err := p.store.Update(ctx, refreshToken, func(c *Credential) { c.Enable = false })
	if err != nil {
		log.Warnf("persist disabled credential: %v", err)
	}
}

// MarkQuotaExhausted flags the credential so the quota_exhausted scan
// skips it on the next lap.
func (p *Pool) MarkQuotaExhausted(ctx context.Context, cand *Credential) {
	err := p.store.Update(ctx, cand.RefreshToken, func(c *Credential) { c.HasQuota = false })
	if err != nil {
		log.Warnf("persist quota exhaustion: %v", err)
	}
}

// RestoreQuota clears the exhaustion flag.
func (p *Pool) RestoreQuota(ctx context.Context, cand *Credential) {
	err := p.store.Update(ctx, cand.RefreshToken, func(c *Credential) { c.HasQuota = true })
	if err != nil {
		log.Warnf("persist quota restore: %v", err)
	}
}
