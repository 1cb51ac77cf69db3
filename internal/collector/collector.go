package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dexcollector/config"
	"dexcollector/internal/api"
	"dexcollector/internal/globaldata"
	"dexcollector/internal/memorystore"
	"dexcollector/internal/scheduler"
	"dexcollector/internal/tokendata"
	"dexcollector/pkg/chainws"
	"dexcollector/pkg/historycache"
	"dexcollector/pkg/storage/postgres"
	"dexcollector/pkg/subgraph"

	"go.uber.org/zap"
)

// Collector owns every long-running component started by StartCollector.
type Collector struct {
	Tokens *tokendata.Service
	Global *globaldata.Fetcher
	Cache  *historycache.Cache
	Server *api.Server

	logger  *zap.Logger
	cancel  context.CancelFunc
	updater <-chan struct{}
	closers []func() error
}

// StartCollector wires the subgraph clients, token store, history cache,
// backfill worker, periodic top token refresh, optional chain head stream
// and the HTTP API, and starts them in the background.
func StartCollector(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Collector, error) {
	ctx, cancel := context.WithCancel(ctx)
	c := &Collector{logger: logger, cancel: cancel}

	// Initialize PostgreSQL client when the cache or chart archive needs it
	var pg *postgres.PostgresClient
	if needsPostgres(cfg) {
		var err error
		pg, err = postgres.Initialize(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		c.closers = append(c.closers, pg.Close)
	}

	store, closeStore, err := OpenHistoryStore(ctx, cfg, pg)
	if err != nil {
		c.shutdown()
		return nil, fmt.Errorf("failed to open history cache: %w", err)
	}
	c.closers = append(c.closers, closeStore)
	c.Cache = historycache.New(store, cfg.Cache.Namespace, logger)

	// Subgraph clients share the cache-first policy
	exchange := subgraph.NewClient(cfg.Subgraph.ExchangeURL, cfg.Subgraph.Timeout,
		subgraph.WithName("exchange"), subgraph.WithCache(cfg.Subgraph.CacheSize, cfg.Subgraph.CacheTTL))
	blocks := subgraph.NewBlockClient(subgraph.NewClient(cfg.Subgraph.BlocksURL, cfg.Subgraph.Timeout,
		subgraph.WithName("blocks"), subgraph.WithCache(cfg.Subgraph.CacheSize, cfg.Subgraph.CacheTTL)))

	c.Tokens = tokendata.NewService(exchange, blocks, memorystore.NewTokenStore(), c.Cache, logger, tokendata.Options{
		WrappedNative:       cfg.Chain.WrappedNative,
		WrappedNativeName:   cfg.Chain.WrappedNativeName,
		WrappedNativeSymbol: cfg.Chain.WrappedNativeSymbol,
		PageSize:            cfg.Subgraph.PageSize,
		SplitSize:           cfg.Subgraph.SplitSize,
		Blacklist:           cfg.Collector.Blacklist,
		BackfillWorkers:     cfg.Collector.BackfillWorkers,
		BackfillQueue:       cfg.Collector.BackfillQueue,
	})
	if cfg.Collector.PersistCharts && pg != nil {
		c.Tokens.SetArchive(pg)
	}
	c.Global = globaldata.NewFetcher(exchange, blocks, cfg.Subgraph.Factory)

	if n := c.Tokens.WarmFromCache(ctx); n > 0 {
		logger.Info("loaded cached token charts", zap.Int("count", n))
	}
	c.Tokens.Start(ctx)
	c.closers = append(c.closers, func() error { c.Tokens.Close(); return nil })

	// Latest indexed block from the subgraph; the chain head stands in when
	// the subgraph cannot answer.
	var heads *chainws.HeadTracker
	if cfg.Chain.WSURL != "" {
		heads = &chainws.HeadTracker{}
		wsClient := chainws.NewWSClient(cfg.Chain.WSURL, logger)
		wsClient.SetMessageHandler(chainws.MakeMessageHandler(logger, heads))
		if err := wsClient.Connect(ctx); err != nil {
			logger.Warn("chain head stream unavailable, relying on subgraph meta", zap.Error(err))
			heads = nil
		} else {
			go wsClient.Listen(ctx)
			c.closers = append(c.closers, wsClient.Close)
		}
	}
	c.Tokens.SetLatestBlock(func(ctx context.Context) (int64, error) {
		n, err := exchange.LatestIndexedBlock(ctx)
		if err == nil {
			return n, nil
		}
		if heads != nil && heads.Latest() > 0 {
			return heads.Latest(), nil
		}
		return 0, err
	})

	updater := &scheduler.Updater{
		Interval: cfg.Collector.TopTokenRefresh,
		Logger:   logger,
		Tasks: []scheduler.Task{
			{Name: "top tokens", Run: func(ctx context.Context) error {
				n, err := c.Tokens.RefreshTopTokens(ctx)
				if err == nil {
					logger.Info("refreshed top tokens", zap.Int("count", n))
				}
				return err
			}},
			{Name: "global data", Run: func(ctx context.Context) error {
				_, err := c.Global.Refresh(ctx)
				return err
			}},
			{Name: "store stats", Run: func(context.Context) error {
				logger.Info("current stored tokens", zap.Int("count", c.Tokens.Store().CountAll()), zap.Int64("chain_head", latestHead(heads)))
				return nil
			}},
		},
	}
	c.updater = updater.Start(ctx)

	c.Server = api.New(cfg.Server, c.Tokens, c.Global, c.Cache, logger)
	if pg != nil {
		c.Server.AddHealthCheck("postgres", func(ctx context.Context) error {
			if !pg.IsHealthy(ctx) {
				return errors.New("postgres unreachable")
			}
			return nil
		})
	}
	if heads != nil {
		c.Server.AddHealthCheck("chain_head", func(context.Context) error {
			if heads.Latest() == 0 {
				return errors.New("no block header received yet")
			}
			return nil
		})
	}
	c.Server.Start()

	return c, nil
}

func latestHead(h *chainws.HeadTracker) int64 {
	if h == nil {
		return 0
	}
	return h.Latest()
}

// Close stops the API server, background loops and connections.
func (c *Collector) Close(ctx context.Context) error {
	var errs []error
	if c.Server != nil {
		if err := c.Server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.cancel()
	if c.updater != nil {
		select {
		case <-c.updater:
		case <-ctx.Done():
		case <-time.After(10 * time.Second):
		}
	}
	if err := c.shutdown(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// shutdown runs the closers in reverse order of registration.
func (c *Collector) shutdown() error {
	c.cancel()
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
