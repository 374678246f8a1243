// Package storage provides the string-keyed blob stores that workout
// snapshots are persisted to.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/claude/mapty/internal/config"
)

// BlobStore is an opaque string-keyed value store.
type BlobStore interface {
	// Get returns the value under key, or ok=false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

var (
	_ BlobStore = (*SQLite)(nil)
	_ BlobStore = (*Postgres)(nil)
	_ BlobStore = (*Redis)(nil)
	_ BlobStore = (*Memory)(nil)
)

// Open connects the blob store selected by cfg.Driver. For postgres the
// migrations in migrationsPath are applied first.
func Open(ctx context.Context, cfg config.StorageConfig, migrationsPath string) (BlobStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLite.Path)
	case config.DriverPostgres:
		dsn := cfg.Postgres.DSN()
		if err := RunMigrations(dsn, migrationsPath); err != nil {
			return nil, err
		}
		return NewPostgres(ctx, dsn)
	case config.DriverRedis:
		return NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case config.DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// Memory keeps blobs in process memory. Nothing survives a restart.
type Memory struct {
	mu    sync.Mutex
	blobs map[string]string

	// Fail, when set, is returned from every call.
	Fail error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return "", false, m.Fail
	}
	v, ok := m.blobs[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.blobs[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	delete(m.blobs, key)
	return nil
}

func (m *Memory) Close() error { return nil }
