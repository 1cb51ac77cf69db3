package globaldata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"dexcollector/pkg/subgraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow  = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	blockArg = regexp.MustCompile(`block: \{number: (\d+)\}`)
)

func factoryJSON(volume, liquidity, txs string, pairs int) string {
	return fmt.Sprintf(`{"id":"0xf","totalVolumeUSD":"%s","totalVolumeETH":"0","untrackedVolumeUSD":"0","totalLiquidityUSD":"%s","totalLiquidityETH":"1","txCount":"%s","pairCount":%d}`,
		volume, liquidity, txs, pairs)
}

func newTestFetcher(t *testing.T, factories map[string]string) (*Fetcher, *atomic.Int64) {
	t.Helper()
	oneDayAgo := testNow.AddDate(0, 0, -1).Unix()
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		block := ""
		if m := blockArg.FindStringSubmatch(req.Query); m != nil {
			block = m[1]
		}

		switch {
		case strings.Contains(req.Query, "$timestampFrom"):
			number := "50"
			if int64(req.Variables["timestampFrom"].(float64)) == oneDayAgo {
				number = "100"
			}
			fmt.Fprintf(w, `{"data":{"blocks":[{"id":"b","number":"%s","timestamp":"1"}]}}`, number)
		case strings.Contains(req.Query, "bundles("):
			price := "2000"
			if block == "100" {
				price = "1000"
			}
			fmt.Fprintf(w, `{"data":{"bundles":[{"id":"1","ethPrice":"%s"}]}}`, price)
		case strings.Contains(req.Query, "pancakeFactories("):
			list := "[]"
			if f, ok := factories[block]; ok {
				list = "[" + f + "]"
			}
			fmt.Fprintf(w, `{"data":{"pancakeFactories":%s}}`, list)
		default:
			fmt.Fprint(w, `{"data":{}}`)
		}
	}))
	t.Cleanup(srv.Close)

	exchange := subgraph.NewClient(srv.URL, 5*time.Second)
	blocks := subgraph.NewBlockClient(subgraph.NewClient(srv.URL, 5*time.Second))
	f := NewFetcher(exchange, blocks, "0xF")
	f.now = func() time.Time { return testNow }
	return f, &calls
}

// go test -v --run TestFetchGlobalData
func TestFetchGlobalData(t *testing.T) {
	f, _ := newTestFetcher(t, map[string]string{
		"":    factoryJSON("10000", "2000", "500", 42),
		"100": factoryJSON("8000", "1000", "300", 40),
		"50":  factoryJSON("7000", "1000", "200", 38),
	})

	data, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 2000, data.OneDayVolumeUSD, 1e-9)
	assert.InDelta(t, 100, data.VolumeChangeUSD, 1e-9)
	assert.InDelta(t, 200, data.OneDayTxns, 1e-9)
	assert.InDelta(t, 100, data.TxnChange, 1e-9)
	assert.InDelta(t, 100, data.LiquidityChangeUSD, 1e-9)
	assert.InDelta(t, 6, data.Fees24hUSD, 1e-9)
	assert.InDelta(t, 30, data.FeesAllTimeUSD, 1e-9)
	assert.InDelta(t, 100, data.EthPriceChange, 1e-9)
	assert.Equal(t, int64(42), data.PairCount)
}

// go test -v --run TestFetchGlobalDataYoungFactory
func TestFetchGlobalDataYoungFactory(t *testing.T) {
	f, _ := newTestFetcher(t, map[string]string{
		"": factoryJSON("10000", "2000", "500", 3),
	})

	data, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10000, data.OneDayVolumeUSD, 1e-9)
	assert.Zero(t, data.VolumeChangeUSD)
	assert.Zero(t, data.LiquidityChangeUSD)
}

// go test -v --run TestGlobalDataGet
func TestGlobalDataGet(t *testing.T) {
	f, calls := newTestFetcher(t, map[string]string{
		"": factoryJSON("10000", "2000", "500", 3),
	})
	ctx := context.Background()

	_, ok := f.Latest()
	assert.False(t, ok)

	_, err := f.Get(ctx, time.Minute)
	require.NoError(t, err)
	first := calls.Load()

	_, err = f.Get(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first, calls.Load(), "fresh snapshot served from memory")

	_, ok = f.Latest()
	assert.True(t, ok)

	missing, _ := newTestFetcher(t, map[string]string{})
	_, err = missing.Fetch(ctx)
	assert.ErrorIs(t, err, subgraph.ErrNoData)
}
