package historycache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dexcollector/pkg/storage/postgres"

	"github.com/google/renameio/v2"
	"github.com/redis/go-redis/v9"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Read(_ context.Context, namespace string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[namespace]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (m *MemoryStore) Write(_ context.Context, namespace string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.blobs[namespace] = cp
	return nil
}

// FileStore writes each namespace to <dir>/<namespace>.json, atomically.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(namespace string) string {
	return filepath.Join(f.dir, namespace+".json")
}

func (f *FileStore) Read(_ context.Context, namespace string) ([]byte, error) {
	b, err := os.ReadFile(f.path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

func (f *FileStore) Write(_ context.Context, namespace string, blob []byte) error {
	return renameio.WriteFile(f.path(namespace), blob, 0644)
}

// RedisStore keeps each namespace as a single string key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	b, err := r.client.Get(ctx, namespace).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (r *RedisStore) Write(ctx context.Context, namespace string, blob []byte) error {
	return r.client.Set(ctx, namespace, blob, 0).Err()
}

// PostgresStore keeps each namespace as one row of the history_blob table.
type PostgresStore struct {
	client *postgres.PostgresClient
}

func NewPostgresStore(client *postgres.PostgresClient) *PostgresStore {
	return &PostgresStore{client: client}
}

func (p *PostgresStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	return p.client.ReadHistoryBlob(ctx, namespace)
}

func (p *PostgresStore) Write(ctx context.Context, namespace string, blob []byte) error {
	return p.client.WriteHistoryBlob(ctx, namespace, blob)
}
