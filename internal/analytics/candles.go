package analytics

import (
	"sort"
)

const (
	// DownsampleThreshold is the number of timestamps above which a series is thinned.
	DownsampleThreshold = 1200
	// DownsampleTarget is the approximate length of a thinned series.
	DownsampleTarget = 800
)

// PricePoint is a token price observed at a block.
type PricePoint struct {
	Timestamp  int64   `json:"timestamp"`
	DerivedETH float64 `json:"derivedETH"`
	PriceUSD   float64 `json:"priceUSD"`
}

// Candle is an open/close pair for one interval.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
}

// Timestamps returns start, start+interval, ... strictly below end.
func Timestamps(start, end, interval int64) []int64 {
	if interval <= 0 || start >= end {
		return nil
	}
	out := make([]int64, 0, (end-start)/interval+1)
	for ts := start; ts < end; ts += interval {
		out = append(out, ts)
	}
	return out
}

// Downsample keeps every ceil(len/target)-th timestamp once the series is
// longer than threshold. The last timestamp is always kept.
func Downsample(ts []int64, threshold, target int) []int64 {
	if len(ts) <= threshold || target <= 0 {
		return ts
	}
	factor := (len(ts) + target - 1) / target

	sampled := make([]int64, 0, target+1)
	for i := 0; i < len(ts); i += factor {
		sampled = append(sampled, ts[i])
	}
	if last := ts[len(ts)-1]; sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}
	return sampled
}

// Candles pairs each price with the next one: open is the price at the start
// of the interval, close the price at the start of the following interval.
func Candles(values []PricePoint) []Candle {
	if len(values) < 2 {
		return []Candle{}
	}
	sorted := make([]PricePoint, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	out := make([]Candle, 0, len(sorted)-1)
	for i := 0; i < len(sorted)-1; i++ {
		out = append(out, Candle{
			Timestamp: sorted[i].Timestamp,
			Open:      sorted[i].PriceUSD,
			Close:     sorted[i+1].PriceUSD,
		})
	}
	return out
}
