package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	log "github.com/sirupsen/logrus"
)

// GitMirrorOptions captures configuration for the audit mirror.
type GitMirrorOptions struct {
	Path        string
	RemoteURL   string
	Branch      string
	Username    string
	Password    string
	AuthorName  string
	AuthorEmail string
}

// GitMirror wraps another backend and commits every document save into
// a local git repository, giving the data dir an audit trail. Mirror
// failures are logged and never fail the underlying save.
type GitMirror struct {
	Backend
	opts     GitMirrorOptions
	mu       sync.Mutex
	repo     *git.Repository
	worktree *git.Worktree
}

// NewGitMirror wraps inner with a commit-per-save mirror.
func NewGitMirror(inner Backend, opts GitMirrorOptions) *GitMirror {
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "antigravity2api"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "antigravity2api@localhost"
	}
	return &GitMirror{Backend: inner, opts: opts}
}

func (g *GitMirror) Initialize(ctx context.Context) error {
	if err := g.Backend.Initialize(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := os.MkdirAll(g.opts.Path, 0o755); err != nil {
		return fmt.Errorf("create mirror dir %s: %w", g.opts.Path, err)
	}
	repo, err := git.PlainOpen(g.opts.Path)
	if err == git.ErrRepositoryNotExists {
		repo, err = git.PlainInit(g.opts.Path, false)
	}
	if err != nil {
		return fmt.Errorf("open mirror repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("mirror worktree: %w", err)
	}
	if g.opts.RemoteURL != "" {
		if _, err := repo.Remote(git.DefaultRemoteName); err == git.ErrRemoteNotFound {
			_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
				Name: git.DefaultRemoteName,
				URLs: []string{g.opts.RemoteURL},
			})
			if err != nil {
				return fmt.Errorf("mirror remote: %w", err)
			}
		}
	}
	g.repo = repo
	g.worktree = wt
	return nil
}

func (g *GitMirror) Name() string { return g.Backend.Name() + "+git" }

func (g *GitMirror) SaveAccounts(ctx context.Context, data []byte) error {
	if err := g.Backend.SaveAccounts(ctx, data); err != nil {
		return err
	}
	g.commit("accounts.json", data)
	return nil
}

func (g *GitMirror) SaveQuotas(ctx context.Context, data []byte) error {
	if err := g.Backend.SaveQuotas(ctx, data); err != nil {
		return err
	}
	g.commit("quotas.json", data)
	return nil
}

func (g *GitMirror) commit(name string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.worktree == nil {
		return
	}
	path := filepath.Join(g.opts.Path, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		log.Warnf("git mirror write %s: %v", name, err)
		return
	}
	if _, err := g.worktree.Add(name); err != nil {
		log.Warnf("git mirror add %s: %v", name, err)
		return
	}
	status, err := g.worktree.Status()
	if err != nil || status.IsClean() {
		return
	}
	_, err = g.worktree.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.opts.AuthorName,
			Email: g.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		log.Warnf("git mirror commit %s: %v", name, err)
		return
	}
	g.push()
}

// push 配置了远端才推送；失败只记日志，下次提交再带上。
func (g *GitMirror) push() {
	if g.opts.RemoteURL == "" {
		return
	}
	var auth *githttp.BasicAuth
	if g.opts.Username != "" {
		auth = &githttp.BasicAuth{Username: g.opts.Username, Password: g.opts.Password}
	}
	err := g.repo.Push(&git.PushOptions{Auth: auth})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		log.Warnf("git mirror push: %v", err)
	}
}
