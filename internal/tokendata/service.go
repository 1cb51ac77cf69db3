// Package tokendata fetches token statistics, pairs, transactions and chart
// history from the exchange subgraph and keeps them in a TokenStore.
package tokendata

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"dexcollector/internal/analytics"
	"dexcollector/internal/backfill"
	"dexcollector/internal/memorystore"
	"dexcollector/pkg/historycache"
	"dexcollector/pkg/storage/postgres"
	"dexcollector/pkg/subgraph"

	"go.uber.org/zap"
)

var (
	ErrInvalidAddress = errors.New("tokendata: invalid token address")
	ErrBlacklisted    = errors.New("tokendata: token is blacklisted")
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// LatestBlockFunc reports the newest block price lookups may reference.
type LatestBlockFunc func(ctx context.Context) (int64, error)

// ChartArchive persists filled day buckets outside the history cache.
type ChartArchive interface {
	UpsertTokenDays(ctx context.Context, records []postgres.TokenDayRecord) error
}

type Options struct {
	WrappedNative       string
	WrappedNativeName   string
	WrappedNativeSymbol string
	PageSize            int // tokenDayDatas page size
	SplitSize           int // blocks per aliased price query
	Blacklist           []string
	BackfillWorkers     int
	BackfillQueue       int
}

type Service struct {
	exchange    *subgraph.Client
	blocks      *subgraph.BlockClient
	store       *memorystore.TokenStore
	cache       *historycache.Cache
	archive     ChartArchive
	worker      *backfill.Worker
	latestBlock LatestBlockFunc
	logger      *zap.Logger
	opts        Options
	blacklist   map[string]struct{}
	now         func() time.Time

	txns   refreshTracker
	charts refreshTracker
	prices refreshTracker
}

func NewService(
	exchange *subgraph.Client,
	blocks *subgraph.BlockClient,
	store *memorystore.TokenStore,
	cache *historycache.Cache,
	logger *zap.Logger,
	opts Options,
) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.SplitSize <= 0 {
		opts.SplitSize = 200
	}

	s := &Service{
		exchange:  exchange,
		blocks:    blocks,
		store:     store,
		cache:     cache,
		logger:    logger,
		opts:      opts,
		blacklist: make(map[string]struct{}, len(opts.Blacklist)),
		now:       time.Now,
	}
	for _, addr := range opts.Blacklist {
		s.blacklist[strings.ToLower(addr)] = struct{}{}
	}
	s.worker = backfill.NewWorker(s.GetTokenChartData, s.storeChart, logger, opts.BackfillWorkers, opts.BackfillQueue)
	s.worker.SetErrorHandler(func(address string, _ error) { s.charts.forget(address) })
	return s
}

// SetArchive enables persisting backfilled charts.
func (s *Service) SetArchive(a ChartArchive) {
	s.archive = a
}

// SetLatestBlock installs the source used to drop blocks the subgraph has not indexed yet.
func (s *Service) SetLatestBlock(fn LatestBlockFunc) {
	s.latestBlock = fn
}

// Start launches the chart backfill workers.
func (s *Service) Start(ctx context.Context) {
	s.worker.Start(ctx)
}

func (s *Service) Close() {
	s.worker.Close()
}

func (s *Service) Store() *memorystore.TokenStore {
	return s.store
}

// checkAddress validates address and returns it lowercased.
func (s *Service) checkAddress(address string) (string, error) {
	if !addressPattern.MatchString(address) {
		return "", ErrInvalidAddress
	}
	address = strings.ToLower(address)
	if _, ok := s.blacklist[address]; ok {
		return "", ErrBlacklisted
	}
	return address, nil
}

func (s *Service) isBlacklisted(address string) bool {
	_, ok := s.blacklist[strings.ToLower(address)]
	return ok
}

// storeChart receives backfill results.
func (s *Service) storeChart(ctx context.Context, address string, chart []analytics.DayPoint) {
	s.store.UpdateChartData(address, chart)

	if s.cache != nil {
		if err := s.cache.Save(ctx, historycache.TokenChartKey(address), chart); err != nil {
			s.logger.Warn("Failed to cache token chart", zap.String("address", address), zap.Error(err))
		}
	}

	if s.archive != nil {
		records := make([]postgres.TokenDayRecord, 0, len(chart))
		for _, p := range chart {
			records = append(records, postgres.ToTokenDayRecord(address, p))
		}
		if err := s.archive.UpsertTokenDays(ctx, records); err != nil {
			s.logger.Warn("Failed to archive token chart", zap.String("address", address), zap.Error(err))
		}
	}
}
