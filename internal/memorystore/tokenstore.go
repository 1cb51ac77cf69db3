package memorystore

import (
	"strings"
	"sync"

	"dexcollector/internal/analytics"
	"dexcollector/pkg/subgraph"
)

// TokenStore holds per-token state keyed by lowercase address. Updates to
// different tokens only contend on the per-token lock.
type TokenStore struct {
	globalMu sync.RWMutex
	data     map[string]*tokenEntry
}

type tokenEntry struct {
	mu    sync.Mutex
	state TokenState
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*tokenEntry),
	}
}

func normalize(address string) string {
	return strings.ToLower(address)
}

// entry returns the entry for address, creating it on first use.
func (s *TokenStore) entry(address string) *tokenEntry {
	address = normalize(address)

	// Fast path: shared lock only
	s.globalMu.RLock()
	e, ok := s.data[address]
	s.globalMu.RUnlock()
	if ok {
		return e
	}

	s.globalMu.Lock()
	defer s.globalMu.Unlock()
	if e, ok = s.data[address]; !ok {
		e = &tokenEntry{}
		s.data[address] = e
	}
	return e
}

func (s *TokenStore) mutate(address string, fn func(*TokenState)) {
	e := s.entry(address)
	e.mu.Lock()
	fn(&e.state)
	e.mu.Unlock()
}

// Update replaces the token snapshot of address.
func (s *TokenStore) Update(address string, data TokenData) {
	s.mutate(address, func(st *TokenState) { st.Data = &data })
}

// UpdateTopTokens stores every token of the overview list under its own id.
func (s *TokenStore) UpdateTopTokens(tokens []TokenData) {
	for _, t := range tokens {
		if t.ID == "" {
			continue
		}
		s.Update(t.ID, t)
	}
}

func (s *TokenStore) UpdateTokenTxns(address string, txns *subgraph.Transactions) {
	s.mutate(address, func(st *TokenState) { st.Txns = txns })
}

func (s *TokenStore) UpdateChartData(address string, chart []analytics.DayPoint) {
	s.mutate(address, func(st *TokenState) { st.ChartData = chart })
}

func (s *TokenStore) UpdatePriceData(address string, window analytics.Timeframe, interval int64, candles []analytics.Candle) {
	s.mutate(address, func(st *TokenState) {
		if st.PriceData == nil {
			st.PriceData = make(map[PriceKey][]analytics.Candle)
		}
		st.PriceData[PriceKey{Window: window, Interval: interval}] = candles
	})
}

func (s *TokenStore) UpdateAllPairs(address string, pairs []subgraph.Pair) {
	s.mutate(address, func(st *TokenState) { st.Pairs = pairs })
}

// Get returns a copy of the state of address.
func (s *TokenStore) Get(address string) (TokenState, bool) {
	s.globalMu.RLock()
	e, ok := s.data[normalize(address)]
	s.globalMu.RUnlock()
	if !ok {
		return TokenState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone(), true
}

// PriceData returns the candles stored for (window, interval), if any.
func (s *TokenStore) PriceData(address string, window analytics.Timeframe, interval int64) ([]analytics.Candle, bool) {
	st, ok := s.Get(address)
	if !ok {
		return nil, false
	}
	c, ok := st.PriceData[PriceKey{Window: window, Interval: interval}]
	return c, ok
}

// All returns a copy of every token's state.
func (s *TokenStore) All() map[string]TokenState {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	result := make(map[string]TokenState, len(s.data))
	for addr, e := range s.data {
		e.mu.Lock()
		result[addr] = e.state.clone()
		e.mu.Unlock()
	}
	return result
}

// TopTokens returns every token with a snapshot, in no particular order.
func (s *TokenStore) TopTokens() []TokenData {
	all := s.All()
	out := make([]TokenData, 0, len(all))
	for _, st := range all {
		if st.Data != nil {
			out = append(out, *st.Data)
		}
	}
	return out
}

// CountAll returns the number of tokens with any state.
func (s *TokenStore) CountAll() int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()
	return len(s.data)
}
