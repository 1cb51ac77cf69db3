package tokendata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dexcollector/internal/analytics"
	"dexcollector/internal/memorystore"
	"dexcollector/pkg/historycache"
	"dexcollector/pkg/subgraph"

	"go.uber.org/zap"
)

// staleAfter is how long stored token data, transactions, price candles and
// charts are served before they are fetched again.
const staleAfter = 5 * time.Minute

// refreshTracker remembers when a key was last fetched.
type refreshTracker struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// due reports whether key should be fetched and, if so, marks it fetched at now.
func (r *refreshTracker) due(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		r.last = make(map[string]time.Time)
	}
	if t, ok := r.last[key]; ok && now.Sub(t) < staleAfter {
		return false
	}
	r.last[key] = now
	return true
}

func (r *refreshTracker) forget(key string) {
	r.mu.Lock()
	delete(r.last, key)
	r.mu.Unlock()
}

// TokenData returns the stored statistics of address, fetching them when
// missing or stale.
func (s *Service) TokenData(ctx context.Context, address string) (*memorystore.TokenData, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}
	if st, ok := s.store.Get(address); ok && st.Data != nil && s.now().Sub(st.Data.UpdatedAt) < staleAfter {
		return st.Data, nil
	}

	ethPrice, ethPriceOld, err := s.EthPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth price: %w", err)
	}
	data, err := s.GetTokenData(ctx, address, ethPrice, ethPriceOld)
	if err != nil {
		return nil, err
	}
	s.store.Update(address, *data)
	return data, nil
}

// TokenPairs returns the pairs of address, fetching them once.
func (s *Service) TokenPairs(ctx context.Context, address string) ([]subgraph.Pair, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}
	if st, ok := s.store.Get(address); ok && st.Pairs != nil {
		return st.Pairs, nil
	}

	pairs, err := s.GetTokenPairs(ctx, address)
	if err != nil {
		return nil, err
	}
	s.store.UpdateAllPairs(address, pairs)
	return pairs, nil
}

// TokenTransactions returns recent transactions across all pairs of address.
func (s *Service) TokenTransactions(ctx context.Context, address string) (*subgraph.Transactions, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}
	key := "txns:" + address
	due := s.txns.due(key, s.now())
	if st, ok := s.store.Get(address); ok && st.Txns != nil && !due {
		return st.Txns, nil
	}

	pairs, err := s.TokenPairs(ctx, address)
	if err != nil {
		s.txns.forget(key)
		return nil, err
	}
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.ID)
	}

	txns, err := s.GetTokenTransactions(ctx, ids)
	if err != nil {
		s.txns.forget(key)
		return nil, err
	}
	s.store.UpdateTokenTxns(address, txns)
	return txns, nil
}

// TokenChartData returns the day chart of address. A chart missing from
// memory is first loaded from the history cache; a refresh is then handed
// to the backfill worker (or run inline when the worker cannot take it).
// A nil result with no error means the first fetch is still running. A
// failed fetch is retried on the next call.
func (s *Service) TokenChartData(ctx context.Context, address string) ([]analytics.DayPoint, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}

	st, ok := s.store.Get(address)
	if (!ok || st.ChartData == nil) && s.cache != nil {
		var cached []analytics.DayPoint
		switch err := s.cache.Load(ctx, historycache.TokenChartKey(address), &cached); {
		case err == nil && len(cached) > 0:
			s.store.UpdateChartData(address, cached)
		case err != nil && !errors.Is(err, historycache.ErrNotFound):
			s.logger.Warn("Error loading cached token chart", zap.String("address", address), zap.Error(err))
		}
	}

	if s.charts.due(address, s.now()) {
		if err := s.worker.Run(ctx, address); err != nil {
			s.charts.forget(address)
			if st, _ := s.store.Get(address); st.ChartData == nil {
				return nil, err
			}
		}
	}

	st, _ = s.store.Get(address)
	return st.ChartData, nil
}

// TokenPriceData returns candles of address for a preset window. Long
// windows are sampled at a coarser interval, and the candles are stored
// under that effective interval.
func (s *Service) TokenPriceData(ctx context.Context, address string, window analytics.Timeframe, interval int64) ([]analytics.Candle, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 3600
	}
	effective := analytics.EffectiveInterval(window, interval)

	key := fmt.Sprintf("prices:%s:%s:%d", address, window, effective)
	due := s.prices.due(key, s.now())
	candles, ok := s.store.PriceData(address, window, effective)
	if ok && !due {
		return candles, nil
	}

	var latest int64
	if s.latestBlock != nil {
		if latest, err = s.latestBlock(ctx); err != nil {
			s.logger.Warn("Latest block unavailable, not filtering price blocks", zap.Error(err))
			latest = 0
		}
	}

	candles, err = s.GetIntervalTokenData(ctx, address, analytics.StartTime(window, s.now()), effective, latest)
	if err != nil {
		s.prices.forget(key)
		return nil, err
	}
	s.store.UpdatePriceData(address, window, effective, candles)
	return candles, nil
}

// AllTokenData returns every stored token state.
func (s *Service) AllTokenData() map[string]memorystore.TokenState {
	return s.store.All()
}

// TopTokens returns the stored token snapshots ordered by USD liquidity.
func (s *Service) TopTokens() []memorystore.TokenData {
	tokens := s.store.TopTokens()
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].TotalLiquidityUSD != tokens[j].TotalLiquidityUSD {
			return tokens[i].TotalLiquidityUSD > tokens[j].TotalLiquidityUSD
		}
		return tokens[i].ID < tokens[j].ID
	})
	return tokens
}

// WarmFromCache loads every cached token chart into the store and returns
// how many were loaded.
func (s *Service) WarmFromCache(ctx context.Context) int {
	if s.cache == nil {
		return 0
	}
	loaded := 0
	for _, key := range s.cache.Keys(ctx) {
		suffix, ok := strings.CutPrefix(key, historycache.TokenChartKey(""))
		if !ok {
			continue
		}
		address, err := s.checkAddress(suffix)
		if err != nil {
			continue
		}
		var chart []analytics.DayPoint
		if err := s.cache.Load(ctx, key, &chart); err != nil || len(chart) == 0 {
			continue
		}
		s.store.UpdateChartData(address, chart)
		loaded++
	}
	return loaded
}
