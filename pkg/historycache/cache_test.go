package historycache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dexcollector/internal/analytics"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingStore struct{}

func (failingStore) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("read failed")
}

func (failingStore) Write(context.Context, string, []byte) error {
	return errors.New("write failed")
}

func exerciseRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	c := New(store, "test_ns_"+t.Name(), zap.NewNop())

	chart := []analytics.DayPoint{
		{Date: 86400, PriceUSD: 1.5, DailyVolumeUSD: 10},
		{Date: 172800, PriceUSD: 1.5, Filled: true},
	}
	key := TokenChartKey("0xabc")
	require.NoError(t, c.Save(ctx, key, chart))

	var got []analytics.DayPoint
	require.NoError(t, c.Load(ctx, key, &got))
	assert.Equal(t, chart, got)

	require.NoError(t, c.Remove(ctx, key))
	assert.ErrorIs(t, c.Load(ctx, key, &got), ErrNotFound)
}

// go test -v --run TestMemoryRoundTrip
func TestMemoryRoundTrip(t *testing.T) {
	exerciseRoundTrip(t, NewMemoryStore())
}

// go test -v --run TestFileRoundTrip
func TestFileRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseRoundTrip(t, store)
}

// go test -v --run TestRedisRoundTrip
func TestRedisRoundTrip(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	store := NewRedisStore(client)
	exerciseRoundTrip(t, store)
	client.Del(context.Background(), "test_ns_"+t.Name())
}

// go test -v --run TestFileSurvivesRestart
func TestFileSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, New(store, "", zap.NewNop()).Save(ctx, "k", map[string]int{"v": 1}))

	_, err = os.Stat(filepath.Join(dir, DefaultNamespace+".json"))
	require.NoError(t, err)

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, New(reopened, "", zap.NewNop()).Load(ctx, "k", &got))
	assert.Equal(t, 1, got["v"])
}

// go test -v --run TestExportImport
func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := New(NewMemoryStore(), "", zap.NewNop())
	require.NoError(t, src.Save(ctx, "a", 1))
	require.NoError(t, src.Save(ctx, "b", "two"))

	blob, err := src.ExportAll(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":"two"}`, string(blob))

	dst := New(NewMemoryStore(), "", zap.NewNop())
	require.NoError(t, dst.Save(ctx, "b", "old"))
	require.NoError(t, dst.Save(ctx, "c", true))

	// merge keeps unrelated keys and lets imported ones win
	require.NoError(t, dst.ImportAll(ctx, blob, false))
	assert.Equal(t, []string{"a", "b", "c"}, dst.Keys(ctx))
	var b string
	require.NoError(t, dst.Load(ctx, "b", &b))
	assert.Equal(t, "two", b)

	// overwrite replaces the namespace
	require.NoError(t, dst.ImportAll(ctx, []byte(`{"z":0}`), true))
	assert.Equal(t, []string{"z"}, dst.Keys(ctx))

	assert.Error(t, dst.ImportAll(ctx, []byte(`not json`), false))
	assert.Equal(t, []string{"z"}, dst.Keys(ctx), "failed import leaves the store untouched")
}

// go test -v --run TestCorruptBlobReadsEmpty
func TestCorruptBlobReadsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Write(ctx, DefaultNamespace, []byte(`{broken`)))

	c := New(store, "", zap.NewNop())
	assert.Empty(t, c.Keys(ctx))

	// saving over a corrupt blob starts fresh
	require.NoError(t, c.Save(ctx, "k", 1))
	assert.Equal(t, []string{"k"}, c.Keys(ctx))
}

// go test -v --run TestStoreFailures
func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	c := New(failingStore{}, "", zap.NewNop())

	assert.ErrorIs(t, c.Load(ctx, "k", new(int)), ErrNotFound)
	assert.Error(t, c.Save(ctx, "k", 1))
	assert.Error(t, c.Remove(ctx, "k"))

	blob, err := c.ExportAll(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(blob))
}
