package analytics

import (
	"math"
	"sort"
	"time"
)

const oneDay = int64(24 * 60 * 60)

// LiquidPair is a pair reference carried on a day bucket.
type LiquidPair struct {
	ID     string   `json:"id"`
	Token0 PairSide `json:"token0"`
	Token1 PairSide `json:"token1"`
}

type PairSide struct {
	ID         string  `json:"id"`
	DerivedETH float64 `json:"derivedETH"`
}

// DayPoint is one day bucket of a token chart.
type DayPoint struct {
	ID                  string       `json:"id,omitempty"`
	Date                int64        `json:"date"`
	DayString           int64        `json:"dayString,omitempty"`
	PriceUSD            float64      `json:"priceUSD"`
	TotalLiquidityToken float64      `json:"totalLiquidityToken"`
	TotalLiquidityUSD   float64      `json:"totalLiquidityUSD"`
	TotalLiquidityETH   float64      `json:"totalLiquidityETH"`
	DailyVolumeETH      float64      `json:"dailyVolumeETH"`
	DailyVolumeToken    float64      `json:"dailyVolumeToken"`
	DailyVolumeUSD      float64      `json:"dailyVolumeUSD"`
	MostLiquidPairs     []LiquidPair `json:"mostLiquidPairs,omitempty"`
	Filled              bool         `json:"filled,omitempty"`
}

func dayIndex(ts int64) int64 {
	return int64(math.Round(float64(ts) / float64(oneDay)))
}

// FillDayGaps inserts a zero-volume bucket for every day missing between the
// first point and one day before now. Filled buckets carry forward the price,
// liquidity and pair list of the most recent real bucket. The returned slice
// is sorted by date; the input is not modified.
func FillDayGaps(points []DayPoint, now time.Time) []DayPoint {
	if len(points) == 0 {
		return []DayPoint{}
	}

	out := make([]DayPoint, len(points), len(points)*2)
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	byDay := make(map[int64]DayPoint, len(out))
	for _, p := range out {
		byDay[dayIndex(p.Date)] = p
	}

	latest := out[0]
	end := now.UTC().Truncate(time.Minute).Unix() - oneDay

	for ts := out[0].Date; ts < end; ts += oneDay {
		next := ts + oneDay
		if p, ok := byDay[dayIndex(next)]; ok {
			latest = p
			continue
		}
		out = append(out, DayPoint{
			Date:              next,
			DayString:         next,
			DailyVolumeUSD:    0,
			PriceUSD:          latest.PriceUSD,
			TotalLiquidityUSD: latest.TotalLiquidityUSD,
			MostLiquidPairs:   latest.MostLiquidPairs,
			Filled:            true,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
