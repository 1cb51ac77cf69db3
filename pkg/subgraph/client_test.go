package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubgraph answers every POST with respond(query, variables).
func fakeSubgraph(t *testing.T, respond func(query string, vars map[string]any) string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, respond(req.Query, req.Variables))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// go test -v --run TestQueryCacheFirst
func TestQueryCacheFirst(t *testing.T) {
	srv, calls := fakeSubgraph(t, func(string, map[string]any) string {
		return `{"data":{"bundles":[{"id":"1","ethPrice":"1850.25"}]}}`
	})
	c := NewClient(srv.URL, 5*time.Second, WithCache(16, time.Minute))
	ctx := context.Background()

	p, err := c.EthPrice(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "1850.25", p.String())

	_, err = c.EthPrice(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load(), "second call served from cache")

	_, err = c.EthPrice(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "different block is a different query")

	c.Purge()
	_, err = c.EthPrice(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

// go test -v --run TestQueryErrors
func TestQueryErrors(t *testing.T) {
	srv, _ := fakeSubgraph(t, func(q string, _ map[string]any) string {
		if strings.Contains(q, "bundles") {
			return `{"data":null,"errors":[{"message":"indexing error"}]}`
		}
		return `{"data":{"bundles":[]}}`
	})
	c := NewClient(srv.URL, 5*time.Second)

	err := c.Query(context.Background(), EthPriceQuery(0), nil, nil)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"indexing error"}, gqlErr.Messages)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer bad.Close()
	err = NewClient(bad.URL, time.Second).Query(context.Background(), MetaQuery, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

// go test -v --run TestEthPriceNoData
func TestEthPriceNoData(t *testing.T) {
	srv, _ := fakeSubgraph(t, func(string, map[string]any) string {
		return `{"data":{"bundles":[]}}`
	})
	_, err := NewClient(srv.URL, time.Second).EthPrice(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrNoData))
}

var aliasRe = regexp.MustCompile(`t(\d+): blocks`)

// go test -v --run TestBlocksFromTimestamps
func TestBlocksFromTimestamps(t *testing.T) {
	srv, calls := fakeSubgraph(t, func(q string, _ map[string]any) string {
		parts := []string{}
		for _, m := range aliasRe.FindAllStringSubmatch(q, -1) {
			if m[1] == "300" {
				parts = append(parts, fmt.Sprintf(`"t%s":[]`, m[1]))
				continue
			}
			parts = append(parts, fmt.Sprintf(`"t%s":[{"number":"%s0"}]`, m[1], m[1]))
		}
		return `{"data":{` + strings.Join(parts, ",") + `}}`
	})
	bc := NewBlockClient(NewClient(srv.URL, 5*time.Second))

	blocks, err := bc.BlocksFromTimestamps(context.Background(), []int64{500, 100, 300, 200, 400}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load(), "5 timestamps in chunks of 2")
	assert.Equal(t, []Block{
		{Timestamp: 100, Number: 1000},
		{Timestamp: 200, Number: 2000},
		{Timestamp: 400, Number: 4000},
		{Timestamp: 500, Number: 5000},
	}, blocks)

	empty, err := bc.BlocksFromTimestamps(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// go test -v --run TestBlockFromTimestamp
func TestBlockFromTimestamp(t *testing.T) {
	srv, _ := fakeSubgraph(t, func(q string, vars map[string]any) string {
		from := vars["timestampFrom"].(float64)
		to := vars["timestampTo"].(float64)
		if to-from != blockWindow {
			return `{"data":{"blocks":[]}}`
		}
		return `{"data":{"blocks":[{"id":"0xabc","number":"123456","timestamp":"1000"}]}}`
	})
	bc := NewBlockClient(NewClient(srv.URL, 5*time.Second))

	n, err := bc.BlockFromTimestamp(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), n)
}

// go test -v --run TestPricesByBlock
func TestPricesByBlock(t *testing.T) {
	srv, _ := fakeSubgraph(t, func(q string, _ map[string]any) string {
		assert.Contains(t, q, `token(id: "0xtoken"`)
		return `{"data":{
			"t100":{"derivedETH":"0.5"},
			"b100":{"ethPrice":"2000"},
			"t200":null,
			"b200":{"ethPrice":"2100"}
		}}`
	})
	c := NewClient(srv.URL, 5*time.Second)

	prices, err := c.PricesByBlock(context.Background(), "0xTOKEN",
		[]Block{{Timestamp: 100, Number: 1}, {Timestamp: 200, Number: 2}}, 200)
	require.NoError(t, err)

	require.NotNil(t, prices[100].DerivedETH)
	assert.Equal(t, "0.5", prices[100].DerivedETH.String())
	assert.Equal(t, "2000", prices[100].EthPrice.String())
	assert.Nil(t, prices[200].DerivedETH)
	assert.Equal(t, "2100", prices[200].EthPrice.String())
}

// go test -v --run TestTokenDataDecode
func TestTokenDataDecode(t *testing.T) {
	srv, _ := fakeSubgraph(t, func(q string, _ map[string]any) string {
		assert.Contains(t, q, "block: {number: 42}")
		return `{"data":{
			"tokens":[{"id":"0xt","name":"Token","symbol":"TKN","derivedETH":"0.01","tradeVolume":"10","tradeVolumeUSD":"1000.5","untrackedVolumeUSD":"1200","totalLiquidity":"300","txCount":"77"}],
			"pairs0":[{"id":"0xp0"}],
			"pairs1":[{"id":"0xp1"}]
		}}`
	})
	c := NewClient(srv.URL, 5*time.Second)

	res, err := c.TokenData(context.Background(), "0xT", 42)
	require.NoError(t, err)
	require.Len(t, res.Tokens, 1)
	assert.Equal(t, "TKN", res.Tokens[0].Symbol)
	assert.Equal(t, int64(77), res.Tokens[0].TxCount.IntPart())
	assert.Equal(t, 1000.5, res.Tokens[0].TradeVolumeUSD.InexactFloat64())
	assert.Equal(t, "0xp0", res.Pairs0[0].ID)
	assert.Equal(t, "0xp1", res.Pairs1[0].ID)
}

// go test -v --run TestLatestIndexedBlockBypassesCache
func TestLatestIndexedBlockBypassesCache(t *testing.T) {
	var n atomic.Int64
	srv, _ := fakeSubgraph(t, func(string, map[string]any) string {
		return fmt.Sprintf(`{"data":{"_meta":{"block":{"number":%d}}}}`, n.Add(1))
	})
	c := NewClient(srv.URL, 5*time.Second, WithCache(16, time.Minute))

	first, err := c.LatestIndexedBlock(context.Background())
	require.NoError(t, err)
	second, err := c.LatestIndexedBlock(context.Background())
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

// go test -v --run TestTokenDayDatasBypassesCache
func TestTokenDayDatasBypassesCache(t *testing.T) {
	srv, calls := fakeSubgraph(t, func(string, map[string]any) string {
		return `{"data":{"tokenDayDatas":[{"id":"a-19000","date":1641600000,"priceUSD":"1.5"}]}}`
	})
	c := NewClient(srv.URL, 5*time.Second, WithCache(16, time.Minute))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		days, err := c.TokenDayDatas(ctx, "0xABC", 0, 1000)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, "1.5", days[0].PriceUSD.String())
	}
	assert.Equal(t, int64(2), calls.Load(), "every page hits the subgraph")
}
