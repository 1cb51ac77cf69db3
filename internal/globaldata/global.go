// Package globaldata computes exchange-wide statistics from the factory entity.
package globaldata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dexcollector/internal/analytics"
	"dexcollector/pkg/subgraph"

	"golang.org/x/sync/errgroup"
)

// GlobalData is the factory snapshot with its 24h deltas.
type GlobalData struct {
	TotalVolumeUSD     float64 `json:"totalVolumeUSD"`
	TotalLiquidityUSD  float64 `json:"totalLiquidityUSD"`
	TotalLiquidityETH  float64 `json:"totalLiquidityETH"`
	OneDayVolumeUSD    float64 `json:"oneDayVolumeUSD"`
	VolumeChangeUSD    float64 `json:"volumeChangeUSD"`
	OneDayTxns         float64 `json:"oneDayTxns"`
	TxnChange          float64 `json:"txnChange"`
	LiquidityChangeUSD float64 `json:"liquidityChangeUSD"`
	PairCount          int64   `json:"pairCount"`
	Fees24hUSD         float64 `json:"fees24hUSD"`
	FeesAllTimeUSD     float64 `json:"feesAllTimeUSD"`
	EthPrice           float64 `json:"ethPrice"`
	EthPriceOld        float64 `json:"ethPriceOld"`
	EthPriceChange     float64 `json:"ethPriceChange"`

	UpdatedAt time.Time `json:"updatedAt"`
}

type Fetcher struct {
	exchange *subgraph.Client
	blocks   *subgraph.BlockClient
	factory  string
	now      func() time.Time

	mu   sync.RWMutex
	last *GlobalData
}

func NewFetcher(exchange *subgraph.Client, blocks *subgraph.BlockClient, factory string) *Fetcher {
	return &Fetcher{
		exchange: exchange,
		blocks:   blocks,
		factory:  factory,
		now:      time.Now,
	}
}

// factoryAt returns the factory as of block; a factory not yet deployed reads as zero.
func (f *Fetcher) factoryAt(ctx context.Context, block int64) (*subgraph.Factory, error) {
	fac, err := f.exchange.Factory(ctx, f.factory, block)
	if errors.Is(err, subgraph.ErrNoData) {
		return &subgraph.Factory{}, nil
	}
	return fac, err
}

// Fetch queries the current, 24h-ago and 48h-ago factory counters and ETH price.
func (f *Fetcher) Fetch(ctx context.Context) (*GlobalData, error) {
	now := f.now().UTC().Truncate(time.Minute)

	var oneDayBlock, twoDayBlock int64
	bg, bctx := errgroup.WithContext(ctx)
	bg.Go(func() (err error) {
		oneDayBlock, err = f.blocks.BlockFromTimestamp(bctx, now.AddDate(0, 0, -1).Unix())
		return err
	})
	bg.Go(func() (err error) {
		twoDayBlock, err = f.blocks.BlockFromTimestamp(bctx, now.AddDate(0, 0, -2).Unix())
		return err
	})
	if err := bg.Wait(); err != nil {
		return nil, fmt.Errorf("resolve past blocks: %w", err)
	}

	var cur, oneDay, twoDay *subgraph.Factory
	var ethNow, ethOld float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = f.exchange.Factory(gctx, f.factory, 0)
		return err
	})
	g.Go(func() (err error) {
		oneDay, err = f.factoryAt(gctx, oneDayBlock)
		return err
	})
	g.Go(func() (err error) {
		twoDay, err = f.factoryAt(gctx, twoDayBlock)
		return err
	})
	g.Go(func() error {
		p, err := f.exchange.EthPrice(gctx, 0)
		ethNow = p.InexactFloat64()
		return err
	})
	g.Go(func() error {
		p, err := f.exchange.EthPrice(gctx, oneDayBlock)
		ethOld = p.InexactFloat64()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := &GlobalData{
		TotalVolumeUSD:    cur.TotalVolumeUSD.InexactFloat64(),
		TotalLiquidityUSD: cur.TotalLiquidityUSD.InexactFloat64(),
		TotalLiquidityETH: cur.TotalLiquidityETH.InexactFloat64(),
		PairCount:         cur.PairCount,
		EthPrice:          ethNow,
		EthPriceOld:       ethOld,
		EthPriceChange:    analytics.PercentChange(ethNow, ethOld),
		UpdatedAt:         f.now().UTC(),
	}
	data.OneDayVolumeUSD, data.VolumeChangeUSD = analytics.TwoDayPercentChange(
		data.TotalVolumeUSD,
		oneDay.TotalVolumeUSD.InexactFloat64(),
		twoDay.TotalVolumeUSD.InexactFloat64(),
	)
	data.OneDayTxns, data.TxnChange = analytics.TwoDayPercentChange(
		cur.TxCount.InexactFloat64(),
		oneDay.TxCount.InexactFloat64(),
		twoDay.TxCount.InexactFloat64(),
	)
	data.LiquidityChangeUSD = analytics.PercentChange(data.TotalLiquidityUSD, oneDay.TotalLiquidityUSD.InexactFloat64())
	data.Fees24hUSD = analytics.FeesUSD(data.OneDayVolumeUSD)
	data.FeesAllTimeUSD = analytics.FeesUSD(data.TotalVolumeUSD)
	return data, nil
}

// Refresh fetches and remembers the latest snapshot.
func (f *Fetcher) Refresh(ctx context.Context) (*GlobalData, error) {
	data, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.last = data
	f.mu.Unlock()
	return data, nil
}

// Latest returns the last refreshed snapshot, if any.
func (f *Fetcher) Latest() (*GlobalData, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.last == nil {
		return nil, false
	}
	cp := *f.last
	return &cp, true
}

// Get returns the remembered snapshot, refreshing when none exists yet or
// it is older than maxAge.
func (f *Fetcher) Get(ctx context.Context, maxAge time.Duration) (*GlobalData, error) {
	if data, ok := f.Latest(); ok && f.now().Sub(data.UpdatedAt) < maxAge {
		return data, nil
	}
	return f.Refresh(ctx)
}
