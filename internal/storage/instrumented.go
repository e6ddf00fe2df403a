package storage

import (
	"context"
	"time"

	"antigravity2api-go/internal/monitoring"
)

// Instrumented wraps a backend with prometheus operation metrics.
type Instrumented struct {
	inner Backend
}

// NewInstrumented wraps the backend.
func NewInstrumented(inner Backend) *Instrumented {
	return &Instrumented{inner: inner}
}

func (i *Instrumented) Initialize(ctx context.Context) error {
	return i.observe("initialize", func() error { return i.inner.Initialize(ctx) })
}

func (i *Instrumented) Close() error {
	return i.observe("close", i.inner.Close)
}

func (i *Instrumented) Health(ctx context.Context) error {
	return i.observe("health", func() error { return i.inner.Health(ctx) })
}

func (i *Instrumented) Name() string { return i.inner.Name() }

func (i *Instrumented) LoadAccounts(ctx context.Context) (data []byte, err error) {
	err = i.observe("load_accounts", func() error {
		data, err = i.inner.LoadAccounts(ctx)
		return err
	})
	return data, err
}

func (i *Instrumented) SaveAccounts(ctx context.Context, data []byte) error {
	return i.observe("save_accounts", func() error { return i.inner.SaveAccounts(ctx, data) })
}

func (i *Instrumented) LoadQuotas(ctx context.Context) (data []byte, err error) {
	err = i.observe("load_quotas", func() error {
		data, err = i.inner.LoadQuotas(ctx)
		return err
	})
	return data, err
}

func (i *Instrumented) SaveQuotas(ctx context.Context, data []byte) error {
	return i.observe("save_quotas", func() error { return i.inner.SaveQuotas(ctx, data) })
}

func (i *Instrumented) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil {
		status = "error"
	}
	monitoring.StorageOperationsTotal.WithLabelValues(i.inner.Name(), op, status).Inc()
	monitoring.StorageOperationDuration.WithLabelValues(i.inner.Name(), op).Observe(time.Since(start).Seconds())
	return err
}
