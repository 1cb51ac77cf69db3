package memorystore

import (
	"time"

	"dexcollector/internal/analytics"
	"dexcollector/pkg/subgraph"
)

// TokenData is a token snapshot with the derived 24h statistics computed
// from the current, 24h-ago and 48h-ago snapshots.
type TokenData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`

	DerivedETH         float64 `json:"derivedETH"`
	TradeVolume        float64 `json:"tradeVolume"`
	TradeVolumeUSD     float64 `json:"tradeVolumeUSD"`
	UntrackedVolumeUSD float64 `json:"untrackedVolumeUSD"`
	TotalLiquidity     float64 `json:"totalLiquidity"`
	TxCount            float64 `json:"txCount"`

	PriceUSD           float64 `json:"priceUSD"`
	TotalLiquidityUSD  float64 `json:"totalLiquidityUSD"`
	OneDayVolumeUSD    float64 `json:"oneDayVolumeUSD"`
	OneDayVolumeETH    float64 `json:"oneDayVolumeETH,omitempty"`
	VolumeChangeUSD    float64 `json:"volumeChangeUSD"`
	OneDayVolumeUT     float64 `json:"oneDayVolumeUT"`
	VolumeChangeUT     float64 `json:"volumeChangeUT"`
	PriceChangeUSD     float64 `json:"priceChangeUSD"`
	LiquidityChangeUSD float64 `json:"liquidityChangeUSD"`
	OneDayTxns         float64 `json:"oneDayTxns"`
	TxnChange          float64 `json:"txnChange"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// PriceKey identifies a candle series by window and bucket size (seconds).
type PriceKey struct {
	Window   analytics.Timeframe
	Interval int64
}

// TokenState is everything collected for one token address. Slices held in
// the state are replaced, never mutated in place.
type TokenState struct {
	Data      *TokenData                      `json:"data,omitempty"`
	Txns      *subgraph.Transactions          `json:"txns,omitempty"`
	ChartData []analytics.DayPoint            `json:"chartData,omitempty"`
	PriceData map[PriceKey][]analytics.Candle `json:"-"`
	Pairs     []subgraph.Pair                 `json:"pairs,omitempty"`
}

func (s TokenState) clone() TokenState {
	cp := s
	if s.Data != nil {
		d := *s.Data
		cp.Data = &d
	}
	if s.PriceData != nil {
		cp.PriceData = make(map[PriceKey][]analytics.Candle, len(s.PriceData))
		for k, v := range s.PriceData {
			cp.PriceData[k] = v
		}
	}
	return cp
}
