package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend persists both documents as JSON files under a data
// directory. This is the default backend and the only one the
// credential hot-reload watcher understands.
type FileBackend struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileBackend creates a file-based storage backend rooted at baseDir.
func NewFileBackend(baseDir string) *FileBackend {
	return &FileBackend{baseDir: baseDir}
}

func (f *FileBackend) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", f.baseDir, err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) Health(ctx context.Context) error {
	_, err := os.Stat(f.baseDir)
	return err
}

func (f *FileBackend) Name() string { return "file" }

// AccountsPath 返回凭证文件路径，供 fsnotify 热重载监听。
func (f *FileBackend) AccountsPath() string {
	return filepath.Join(f.baseDir, "accounts.json")
}

// QuotasPath returns the quota document path.
func (f *FileBackend) QuotasPath() string {
	return filepath.Join(f.baseDir, "quotas.json")
}

func (f *FileBackend) LoadAccounts(ctx context.Context) ([]byte, error) {
	return f.read(f.AccountsPath())
}

func (f *FileBackend) SaveAccounts(ctx context.Context, data []byte) error {
	return f.write(f.AccountsPath(), data)
}

func (f *FileBackend) LoadQuotas(ctx context.Context) ([]byte, error) {
	return f.read(f.QuotasPath())
}

func (f *FileBackend) SaveQuotas(ctx context.Context, data []byte) error {
	return f.write(f.QuotasPath(), data)
}

func (f *FileBackend) read(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// write 先写临时文件再原子替换，避免进程崩溃留下半截 JSON。
func (f *FileBackend) write(path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
