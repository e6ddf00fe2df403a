package storage

import "context"

// 持久化文档名。所有后端都以整份文档为粒度读写。
const (
	DocAccounts = "accounts"
	DocQuotas   = "quotas"
)

// Backend is the persistence interface for the gateway's two documents:
// the credential array (accounts.json) and the quota snapshot
// (quotas.json). Writes always replace the whole document; the callers
// serialize their own writes, so backends only need last-writer-wins.
type Backend interface {
	// Initialize sets up the storage backend.
	Initialize(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	// Health checks if the storage backend is reachable.
	Health(ctx context.Context) error

	// LoadAccounts returns the raw credential document. A missing
	// document yields (nil, nil), not an error.
	LoadAccounts(ctx context.Context) ([]byte, error)

	// SaveAccounts replaces the credential document.
	SaveAccounts(ctx context.Context, data []byte) error

	// LoadQuotas returns the raw quota document. A missing document
	// yields (nil, nil), not an error.
	LoadQuotas(ctx context.Context) ([]byte, error)

	// SaveQuotas replaces the quota document.
	SaveQuotas(ctx context.Context, data []byte) error

	// Name identifies the backend for logs and metrics labels.
	Name() string
}

// ErrNotFound is returned when a document key is not found.
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return "key not found: " + e.Key
}

// ErrNotSupported is returned when an operation is not supported.
type ErrNotSupported struct {
	Operation string
}

func (e *ErrNotSupported) Error() string {
	return "operation not supported: " + e.Operation
}
