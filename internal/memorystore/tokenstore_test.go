package memorystore

import (
	"fmt"
	"sync"
	"testing"

	"dexcollector/internal/analytics"
	"dexcollector/pkg/subgraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestTokenStoreMerge
func TestTokenStoreMerge(t *testing.T) {
	s := NewTokenStore()
	addr := "0xAbC0000000000000000000000000000000000001"

	s.Update(addr, TokenData{ID: addr, Symbol: "ABC", PriceUSD: 2})
	s.UpdateAllPairs(addr, []subgraph.Pair{{ID: "0xpair"}})
	s.UpdateChartData(addr, []analytics.DayPoint{{Date: 86400}})
	s.UpdatePriceData(addr, analytics.Week, 3600, []analytics.Candle{{Timestamp: 1, Open: 1, Close: 2}})
	s.UpdatePriceData(addr, analytics.Year, analytics.DailyInterval, []analytics.Candle{})
	s.UpdateTokenTxns(addr, &subgraph.Transactions{Swaps: []subgraph.Swap{{ID: "0xswap"}}})

	st, ok := s.Get(addr)
	require.True(t, ok)
	assert.Equal(t, "ABC", st.Data.Symbol)
	assert.Len(t, st.Pairs, 1)
	assert.Len(t, st.ChartData, 1)
	assert.Len(t, st.Txns.Swaps, 1)
	assert.Len(t, st.PriceData, 2)

	// later updates of one slot keep the others
	s.Update(addr, TokenData{ID: addr, Symbol: "ABC", PriceUSD: 3})
	st, _ = s.Get(addr)
	assert.Equal(t, 3.0, st.Data.PriceUSD)
	assert.Len(t, st.Pairs, 1)

	candles, ok := s.PriceData(addr, analytics.Week, 3600)
	require.True(t, ok)
	assert.Len(t, candles, 1)
	_, ok = s.PriceData(addr, analytics.Week, 60)
	assert.False(t, ok)

	// lookups are case-insensitive
	_, ok = s.Get("0xabc0000000000000000000000000000000000001")
	assert.True(t, ok)
}

// go test -v --run TestTokenStoreCopies
func TestTokenStoreCopies(t *testing.T) {
	s := NewTokenStore()
	s.Update("0x1", TokenData{ID: "0x1", PriceUSD: 1})

	st, _ := s.Get("0x1")
	st.Data.PriceUSD = 99

	again, _ := s.Get("0x1")
	assert.Equal(t, 1.0, again.Data.PriceUSD)

	_, ok := s.Get("0x2")
	assert.False(t, ok)
}

// go test -v --run TestTokenStoreTopTokens
func TestTokenStoreTopTokens(t *testing.T) {
	s := NewTokenStore()
	s.UpdateTopTokens([]TokenData{{ID: "0x1"}, {ID: "0x2"}, {}})
	s.UpdateChartData("0x3", nil)

	assert.Len(t, s.TopTokens(), 2)
	assert.Equal(t, 3, s.CountAll())
	assert.Len(t, s.All(), 3)
}

// go test -v -race --run TestTokenStoreConcurrent
func TestTokenStoreConcurrent(t *testing.T) {
	s := NewTokenStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := fmt.Sprintf("0x%d", i%5)
			s.Update(addr, TokenData{ID: addr, PriceUSD: float64(i)})
			s.UpdatePriceData(addr, analytics.Month, int64(i), nil)
			_ = s.All()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, s.CountAll())
}
