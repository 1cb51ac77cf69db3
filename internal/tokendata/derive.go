package tokendata

import (
	"strings"

	"dexcollector/internal/analytics"
	"dexcollector/internal/memorystore"
	"dexcollector/pkg/subgraph"

	"github.com/shopspring/decimal"
)

func f64(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// history is a token snapshot at a past block; nil fields mean the token
// did not exist (or was not indexed) at that block.
type history struct {
	oneDay *subgraph.Token
	twoDay *subgraph.Token
}

func (h history) oneDayValue(fn func(subgraph.Token) decimal.Decimal) float64 {
	if h.oneDay == nil {
		return 0
	}
	return f64(fn(*h.oneDay))
}

func (h history) twoDayValue(fn func(subgraph.Token) decimal.Decimal) float64 {
	if h.twoDay == nil {
		return 0
	}
	return f64(fn(*h.twoDay))
}

func tradeVolumeUSD(t subgraph.Token) decimal.Decimal     { return t.TradeVolumeUSD }
func untrackedVolumeUSD(t subgraph.Token) decimal.Decimal { return t.UntrackedVolumeUSD }
func txCount(t subgraph.Token) decimal.Decimal            { return t.TxCount }
func derivedETH(t subgraph.Token) decimal.Decimal         { return t.DerivedETH }
func totalLiquidity(t subgraph.Token) decimal.Decimal     { return t.TotalLiquidity }

// derive computes the 24h statistics of cur against its past snapshots.
func (s *Service) derive(cur subgraph.Token, h history, ethPrice, ethPriceOld float64, withUntracked bool) memorystore.TokenData {
	data := memorystore.TokenData{
		ID:                 strings.ToLower(cur.ID),
		Name:               cur.Name,
		Symbol:             cur.Symbol,
		DerivedETH:         f64(cur.DerivedETH),
		TradeVolume:        f64(cur.TradeVolume),
		TradeVolumeUSD:     f64(cur.TradeVolumeUSD),
		UntrackedVolumeUSD: f64(cur.UntrackedVolumeUSD),
		TotalLiquidity:     f64(cur.TotalLiquidity),
		TxCount:            f64(cur.TxCount),
		UpdatedAt:          s.now().UTC(),
	}

	data.OneDayVolumeUSD, data.VolumeChangeUSD = analytics.TwoDayPercentChange(
		data.TradeVolumeUSD,
		h.oneDayValue(tradeVolumeUSD),
		h.twoDayValue(tradeVolumeUSD),
	)
	data.OneDayTxns, data.TxnChange = analytics.TwoDayPercentChange(
		data.TxCount,
		h.oneDayValue(txCount),
		h.twoDayValue(txCount),
	)
	if withUntracked {
		data.OneDayVolumeUT, data.VolumeChangeUT = analytics.TwoDayPercentChange(
			data.UntrackedVolumeUSD,
			h.oneDayValue(untrackedVolumeUSD),
			h.twoDayValue(untrackedVolumeUSD),
		)
	}

	data.PriceUSD = data.DerivedETH * ethPrice
	data.PriceChangeUSD = analytics.PercentChange(data.PriceUSD, h.oneDayValue(derivedETH)*ethPriceOld)

	data.TotalLiquidityUSD = data.TotalLiquidity * ethPrice * data.DerivedETH
	oldLiquidityUSD := h.oneDayValue(totalLiquidity) * ethPriceOld * h.oneDayValue(derivedETH)
	data.LiquidityChangeUSD = analytics.PercentChange(data.TotalLiquidityUSD, oldLiquidityUSD)

	// token created within the last day: lifetime totals are the daily totals
	if h.oneDay == nil {
		data.OneDayVolumeUSD = data.TradeVolumeUSD
		data.OneDayVolumeETH = data.TradeVolume * data.DerivedETH
		data.OneDayTxns = data.TxCount
	}

	if s.opts.WrappedNative != "" && data.ID == strings.ToLower(s.opts.WrappedNative) {
		data.Name = s.opts.WrappedNativeName
		data.Symbol = s.opts.WrappedNativeSymbol
	}
	return data
}
