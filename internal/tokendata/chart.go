package tokendata

import (
	"context"
	"fmt"
	"sort"

	"dexcollector/internal/analytics"
	"dexcollector/pkg/subgraph"

	"go.uber.org/zap"
)

// blockBatch is the number of timestamps resolved per blocks query.
const blockBatch = 1000

func toDayPoint(d subgraph.TokenDayData) analytics.DayPoint {
	p := analytics.DayPoint{
		ID:                  d.ID,
		Date:                d.Date,
		PriceUSD:            f64(d.PriceUSD),
		TotalLiquidityToken: f64(d.TotalLiquidityToken),
		TotalLiquidityUSD:   f64(d.TotalLiquidityUSD),
		TotalLiquidityETH:   f64(d.TotalLiquidityETH),
		DailyVolumeETH:      f64(d.DailyVolumeETH),
		DailyVolumeToken:    f64(d.DailyVolumeToken),
		DailyVolumeUSD:      f64(d.DailyVolumeUSD),
	}
	if len(d.MostLiquidPairs) > 0 {
		p.MostLiquidPairs = make([]analytics.LiquidPair, 0, len(d.MostLiquidPairs))
		for _, pair := range d.MostLiquidPairs {
			p.MostLiquidPairs = append(p.MostLiquidPairs, analytics.LiquidPair{
				ID:     pair.ID,
				Token0: analytics.PairSide{ID: pair.Token0.ID, DerivedETH: f64(pair.Token0.DerivedETH)},
				Token1: analytics.PairSide{ID: pair.Token1.ID, DerivedETH: f64(pair.Token1.DerivedETH)},
			})
		}
	}
	return p
}

// GetTokenChartData pages through the complete day history of address and
// fills days without trades.
func (s *Service) GetTokenChartData(ctx context.Context, address string) ([]analytics.DayPoint, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}

	var points []analytics.DayPoint
	for skip := 0; ; skip += s.opts.PageSize {
		page, err := s.exchange.TokenDayDatas(ctx, address, skip, s.opts.PageSize)
		if err != nil {
			return nil, err
		}
		for _, d := range page {
			points = append(points, toDayPoint(d))
		}
		if len(page) < s.opts.PageSize {
			break
		}
	}

	return analytics.FillDayGaps(points, s.now()), nil
}

// GetIntervalTokenData builds open/close candles of the token's USD price
// sampled every interval seconds from start until now. Blocks above
// latestBlock (when positive) are skipped since the subgraph cannot answer
// for them yet.
func (s *Service) GetIntervalTokenData(ctx context.Context, address string, start, interval, latestBlock int64) ([]analytics.Candle, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}

	timestamps := analytics.Timestamps(start, s.now().Unix(), interval)
	if len(timestamps) == 0 {
		return []analytics.Candle{}, nil
	}
	if sampled := analytics.Downsample(timestamps, analytics.DownsampleThreshold, analytics.DownsampleTarget); len(sampled) != len(timestamps) {
		s.logger.Debug("Downsampled token timestamps",
			zap.String("address", address), zap.Int("from", len(timestamps)), zap.Int("to", len(sampled)))
		timestamps = sampled
	}

	blocks, err := s.blocks.BlocksFromTimestamps(ctx, timestamps, blockBatch)
	if err != nil {
		return nil, err
	}
	if latestBlock > 0 {
		kept := blocks[:0]
		for _, b := range blocks {
			if b.Number <= latestBlock {
				kept = append(kept, b)
			}
		}
		blocks = kept
	}
	if len(blocks) == 0 {
		return []analytics.Candle{}, nil
	}

	prices, err := s.exchange.PricesByBlock(ctx, address, blocks, s.opts.SplitSize)
	if err != nil {
		return nil, fmt.Errorf("interval data %s: %w", address, err)
	}

	values := make([]analytics.PricePoint, 0, len(prices))
	for ts, p := range prices {
		// a block without the token or the bundle cannot be priced
		if p.DerivedETH == nil || p.EthPrice == nil {
			continue
		}
		derived := f64(*p.DerivedETH)
		values = append(values, analytics.PricePoint{
			Timestamp:  ts,
			DerivedETH: derived,
			PriceUSD:   derived * f64(*p.EthPrice),
		})
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Timestamp < values[j].Timestamp })

	return analytics.Candles(values), nil
}
