// Package historycache persists fetched history as one namespaced JSON object
// keyed by string identifiers (for example "token_chart_0x..."). The whole
// object is read and rewritten on every mutation; there is no eviction.
package historycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// DefaultNamespace is the blob name used when none is configured.
const DefaultNamespace = "cheeseswap_history_cache_v1"

var ErrNotFound = errors.New("historycache: key not found")

// Store reads and writes the serialized blob of a namespace.
// Read returns (nil, nil) when nothing has been written yet.
type Store interface {
	Read(ctx context.Context, namespace string) ([]byte, error)
	Write(ctx context.Context, namespace string, blob []byte) error
}

type Cache struct {
	store     Store
	namespace string
	logger    *zap.Logger

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

func New(store Store, namespace string, logger *zap.Logger) *Cache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Cache{
		store:     store,
		namespace: namespace,
		logger:    logger,
	}
}

func (c *Cache) Namespace() string {
	return c.namespace
}

// readStore never fails: an unreadable or corrupt blob is treated as empty.
func (c *Cache) readStore(ctx context.Context) map[string]json.RawMessage {
	blob, err := c.store.Read(ctx, c.namespace)
	if err != nil {
		c.logger.Warn("Failed to read history cache", zap.String("namespace", c.namespace), zap.Error(err))
		return map[string]json.RawMessage{}
	}
	if len(blob) == 0 {
		return map[string]json.RawMessage{}
	}

	var store map[string]json.RawMessage
	if err := json.Unmarshal(blob, &store); err != nil || store == nil {
		c.logger.Warn("Failed to parse history cache", zap.String("namespace", c.namespace), zap.Error(err))
		return map[string]json.RawMessage{}
	}
	return store
}

func (c *Cache) writeStore(ctx context.Context, store map[string]json.RawMessage) error {
	blob, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("encode history cache: %w", err)
	}
	if err := c.store.Write(ctx, c.namespace, blob); err != nil {
		c.logger.Warn("Failed to write history cache", zap.String("namespace", c.namespace), zap.Error(err))
		return fmt.Errorf("write history cache: %w", err)
	}
	return nil
}

// LoadRaw returns the stored JSON for key.
func (c *Cache) LoadRaw(ctx context.Context, key string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.readStore(ctx)[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Load decodes the value stored under key into out.
func (c *Cache) Load(ctx context.Context, key string, out any) error {
	raw, err := c.LoadRaw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Save stores value under key, replacing any previous value.
func (c *Cache) Save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.readStore(ctx)
	store[key] = raw
	return c.writeStore(ctx, store)
}

// Remove deletes key. Removing a missing key still rewrites the blob.
func (c *Cache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.readStore(ctx)
	delete(store, key)
	return c.writeStore(ctx, store)
}

// Keys lists stored keys in sorted order.
func (c *Cache) Keys(ctx context.Context) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.readStore(ctx)
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExportAll serializes the whole namespace.
func (c *Cache) ExportAll(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := json.Marshal(c.readStore(ctx))
	if err != nil {
		c.logger.Warn("Failed to serialize history cache", zap.Error(err))
		return nil, fmt.Errorf("export history cache: %w", err)
	}
	return blob, nil
}

// ImportAll loads a previously exported blob. Without overwrite, imported
// keys are merged over the existing ones; with overwrite the blob replaces
// the namespace entirely.
func (c *Cache) ImportAll(ctx context.Context, blob []byte, overwrite bool) error {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(blob, &parsed); err != nil {
		c.logger.Warn("Failed to import history cache", zap.Error(err))
		return fmt.Errorf("import history cache: %w", err)
	}
	if parsed == nil {
		parsed = map[string]json.RawMessage{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if overwrite {
		return c.writeStore(ctx, parsed)
	}

	merged := c.readStore(ctx)
	for k, v := range parsed {
		merged[k] = v
	}
	return c.writeStore(ctx, merged)
}

// TokenChartKey is the key under which a token's filled day chart is kept.
func TokenChartKey(address string) string {
	return "token_chart_" + address
}
