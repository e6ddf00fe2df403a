package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/monitoring"
	"antigravity2api-go/internal/storage"
)

// Store owns the credential document. It is the only writer of the
// accounts document; the pool and the admin routes mutate credentials
// exclusively through it.
type Store struct {
	backend storage.Backend

	mu    sync.RWMutex
	creds []*Credential
	// lastSaved suppresses watcher reloads triggered by our own writes.
	lastSaved []byte
}

// NewStore binds a store to its persistence backend.
func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// diskCredential 磁盘行。enable/hasQuota 缺省按 true 处理，
// 老文件没有这两个字段。
type diskCredential struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Timestamp    int64  `json:"timestamp,omitempty"`
	Enable       *bool  `json:"enable,omitempty"`
	HasQuota     *bool  `json:"hasQuota,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Load reads the document and replaces the in-memory list. Each loaded
// credential gets a fresh session id.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	s.mu.RLock()
	unchanged := s.lastSaved != nil && bytes.Equal(data, s.lastSaved)
	s.mu.RUnlock()
	if unchanged {
		return nil
	}

	var rows []diskCredential
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("parse accounts: %w", err)
		}
	}

	creds := make([]*Credential, 0, len(rows))
	for _, row := range rows {
		if row.RefreshToken == "" {
			continue
		}
		c := &Credential{
			RefreshToken: row.RefreshToken,
			AccessToken:  row.AccessToken,
			ExpiresIn:    row.ExpiresIn,
			Timestamp:    row.Timestamp,
			Enable:       row.Enable == nil || *row.Enable,
			HasQuota:     row.HasQuota == nil || *row.HasQuota,
			ProjectID:    row.ProjectID,
			Email:        row.Email,
			SessionID:    NewSessionID(),
		}
		creds = append(creds, c)
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	s.publishGauges()
	log.Infof("loaded %d credentials", len(creds))
	return nil
}

// Snapshot returns value copies of the current credentials. Copies are
// safe to read without locking; all mutation goes through Update.
func (s *Store) Snapshot() []Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Credential, 0, len(s.creds))
	for _, c := range s.creds {
		out = append(out, *c)
	}
	return out
}

// Get finds a credential by its refresh token and returns a copy.
func (s *Store) Get(refreshToken string) (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.creds {
		if c.RefreshToken == refreshToken {
			return *c, true
		}
	}
	return Credential{}, false
}

// Add inserts a credential; a duplicate refresh token is rejected.
func (s *Store) Add(ctx context.Context, c *Credential) error {
	if c == nil || c.RefreshToken == "" {
		return fmt.Errorf("credential requires a refresh_token")
	}
	s.mu.Lock()
	for _, existing := range s.creds {
		if existing.RefreshToken == c.RefreshToken {
			s.mu.Unlock()
			return fmt.Errorf("credential already exists")
		}
	}
	if c.SessionID == "" {
		c.SessionID = NewSessionID()
	}
	s.creds = append(s.creds, c)
	s.mu.Unlock()

	s.publishGauges()
	return s.persist(ctx)
}

// Update applies a mutation to one credential and persists the file.
func (s *Store) Update(ctx context.Context, refreshToken string, mutate func(*Credential)) error {
	s.mu.Lock()
	var target *Credential
	for _, c := range s.creds {
		if c.RefreshToken == refreshToken {
			target = c
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return &storage.ErrNotFound{Key: refreshToken}
	}
	mutate(target)
	s.mu.Unlock()

	s.publishGauges()
	return s.persist(ctx)
}

// Delete removes a credential by refresh token.
func (s *Store) Delete(ctx context.Context, refreshToken string) error {
	s.mu.Lock()
	idx := -1
	for i, c := range s.creds {
		if c.RefreshToken == refreshToken {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return &storage.ErrNotFound{Key: refreshToken}
	}
	s.creds = append(s.creds[:idx], s.creds[idx+1:]...)
	s.mu.Unlock()

	s.publishGauges()
	return s.persist(ctx)
}

// UpdateAll applies a mutation to every credential and persists once.
func (s *Store) UpdateAll(ctx context.Context, mutate func(*Credential)) error {
	s.mu.Lock()
	for _, c := range s.creds {
		mutate(c)
	}
	s.mu.Unlock()

	s.publishGauges()
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.RLock()
	rows := make([]diskCredential, 0, len(s.creds))
	for _, c := range s.creds {
		enable, hasQuota := c.Enable, c.HasQuota
		rows = append(rows, diskCredential{
			RefreshToken: c.RefreshToken,
			AccessToken:  c.AccessToken,
			ExpiresIn:    c.ExpiresIn,
			Timestamp:    c.Timestamp,
			Enable:       &enable,
			HasQuota:     &hasQuota,
			ProjectID:    c.ProjectID,
			Email:        c.Email,
		})
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	if err := s.backend.SaveAccounts(ctx, data); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	s.mu.Lock()
	s.lastSaved = data
	s.mu.Unlock()
	return nil
}

func (s *Store) publishGauges() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active, disabled := 0, 0
	for _, c := range s.creds {
		if c.Enable {
			active++
		} else {
			disabled++
		}
	}
	monitoring.ActiveCredentials.Set(float64(active))
	monitoring.DisabledCredentials.Set(float64(disabled))
}
