package storage

import (
	"fmt"
	"path/filepath"

	"antigravity2api-go/internal/config"
)

// FromConfig builds the configured backend, optionally wrapped with the
// git audit mirror, always wrapped with operation metrics.
func FromConfig(cfg *config.Config) (Backend, error) {
	var backend Backend
	switch cfg.Storage.Backend {
	case "file", "":
		backend = NewFileBackend(cfg.Storage.DataDir)
	case "redis":
		backend = NewRedisBackend(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB, cfg.Storage.RedisPrefix)
	case "mongodb":
		backend = NewMongoBackend(cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	case "postgres":
		backend = NewPostgresBackend(cfg.Storage.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.GitRemoteURL != "" || cfg.Storage.GitMirror {
		backend = NewGitMirror(backend, GitMirrorOptions{
			Path:        filepath.Join(cfg.Storage.DataDir, "mirror"),
			RemoteURL:   cfg.Storage.GitRemoteURL,
			Branch:      cfg.Storage.GitBranch,
			Username:    cfg.Storage.GitUsername,
			Password:    cfg.Storage.GitPassword,
			AuthorName:  cfg.Storage.GitAuthorName,
			AuthorEmail: cfg.Storage.GitAuthorEmail,
		})
	}
	return NewInstrumented(backend), nil
}
