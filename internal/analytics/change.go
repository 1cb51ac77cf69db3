// Package analytics holds the arithmetic behind token statistics: percent
// changes across 24h/48h snapshots, day-bucket gap filling, timeframe math and
// candle construction. Nothing in here performs I/O.
package analytics

import "math"

// FeeRate is the swap fee charged by the exchange on every trade.
const FeeRate = 0.003

// PercentChange returns the percent change from before to now.
// A zero or missing baseline yields 0 rather than NaN or Inf.
func PercentChange(now, before float64) float64 {
	change := (now - before) / before * 100
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return 0
	}
	return change
}

// TwoDayPercentChange compares the last 24h delta of a cumulative counter with
// the 24h delta before it. It returns the most recent delta and the percent
// change between the two deltas.
func TwoDayPercentChange(now, oneDayAgo, twoDaysAgo float64) (float64, float64) {
	currentChange := now - oneDayAgo
	previousChange := oneDayAgo - twoDaysAgo

	adjusted := (currentChange - previousChange) / previousChange * 100
	if math.IsNaN(adjusted) || math.IsInf(adjusted, 0) {
		return currentChange, 0
	}
	return currentChange, adjusted
}

// FeesUSD estimates fees collected on the given volume.
func FeesUSD(volumeUSD float64) float64 {
	return volumeUSD * FeeRate
}
