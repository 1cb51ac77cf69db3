package tokendata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dexcollector/internal/memorystore"
	"dexcollector/pkg/subgraph"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// topTokenConcurrency bounds the per-token fallback queries of GetTopTokens.
const topTokenConcurrency = 8

// PastBlocks resolves the blocks mined one and two days before now.
func (s *Service) PastBlocks(ctx context.Context) (int64, int64, error) {
	now := s.now().UTC().Truncate(time.Minute)

	var oneDay, twoDay int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		oneDay, err = s.blocks.BlockFromTimestamp(gctx, now.AddDate(0, 0, -1).Unix())
		return err
	})
	g.Go(func() (err error) {
		twoDay, err = s.blocks.BlockFromTimestamp(gctx, now.AddDate(0, 0, -2).Unix())
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return oneDay, twoDay, nil
}

// EthPrice returns the current ETH/USD price and the price 24h ago.
func (s *Service) EthPrice(ctx context.Context) (float64, float64, error) {
	current, err := s.exchange.EthPrice(ctx, 0)
	if err != nil {
		return 0, 0, err
	}

	oneDayBlock, err := s.blocks.BlockFromTimestamp(ctx, s.now().UTC().Truncate(time.Minute).AddDate(0, 0, -1).Unix())
	if err != nil {
		return 0, 0, err
	}
	old, err := s.exchange.EthPrice(ctx, oneDayBlock)
	if err != nil {
		return 0, 0, err
	}
	return f64(current), f64(old), nil
}

func byID(tokens []subgraph.Token) map[string]subgraph.Token {
	out := make(map[string]subgraph.Token, len(tokens))
	for _, t := range tokens {
		if t.ID == "" {
			continue
		}
		out[strings.ToLower(t.ID)] = t
	}
	return out
}

// tokenAt fetches address as of block; a token absent at that block yields nil.
func (s *Service) tokenAt(ctx context.Context, address string, block int64) (*subgraph.Token, error) {
	res, err := s.exchange.TokenData(ctx, address, block)
	if err != nil {
		return nil, err
	}
	if len(res.Tokens) == 0 {
		return nil, nil
	}
	return &res.Tokens[0], nil
}

// GetTopTokens fetches the top tokens with their 24h statistics. Tokens
// missing from the historical top lists are looked up individually.
func (s *Service) GetTopTokens(ctx context.Context, ethPrice, ethPriceOld float64) ([]memorystore.TokenData, error) {
	oneDayBlock, twoDayBlock, err := s.PastBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve past blocks: %w", err)
	}

	var current, oneDayTokens, twoDayTokens []subgraph.Token
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		current, err = s.exchange.TokensCurrent(gctx)
		return err
	})
	g.Go(func() (err error) {
		oneDayTokens, err = s.exchange.TokensAtBlock(gctx, oneDayBlock)
		return err
	})
	g.Go(func() (err error) {
		twoDayTokens, err = s.exchange.TokensAtBlock(gctx, twoDayBlock)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	oneDayData := byID(oneDayTokens)
	twoDayData := byID(twoDayTokens)

	results := make([]*memorystore.TokenData, len(current))
	fg, fctx := errgroup.WithContext(ctx)
	fg.SetLimit(topTokenConcurrency)
	for i, token := range current {
		id := strings.ToLower(token.ID)
		if id == "" || s.isBlacklisted(id) {
			continue
		}
		fg.Go(func() error {
			var h history
			if t, ok := oneDayData[id]; ok {
				h.oneDay = &t
			} else if t, err := s.tokenAt(fctx, id, oneDayBlock); err == nil {
				h.oneDay = t
			} else {
				s.logger.Debug("24h snapshot unavailable", zap.String("token", id), zap.Error(err))
			}
			if t, ok := twoDayData[id]; ok {
				h.twoDay = &t
			} else if t, err := s.tokenAt(fctx, id, twoDayBlock); err == nil {
				h.twoDay = t
			} else {
				s.logger.Debug("48h snapshot unavailable", zap.String("token", id), zap.Error(err))
			}

			data := s.derive(token, h, ethPrice, ethPriceOld, false)
			results[i] = &data
			return nil
		})
	}
	if err := fg.Wait(); err != nil {
		return nil, err
	}

	out := make([]memorystore.TokenData, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// GetTokenData fetches one token with its 24h statistics including
// untracked volume.
func (s *Service) GetTokenData(ctx context.Context, address string, ethPrice, ethPriceOld float64) (*memorystore.TokenData, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}

	oneDayBlock, twoDayBlock, err := s.PastBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve past blocks: %w", err)
	}

	var cur *subgraph.Token
	var h history
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = s.tokenAt(gctx, address, 0)
		return err
	})
	g.Go(func() (err error) {
		h.oneDay, err = s.tokenAt(gctx, address, oneDayBlock)
		return err
	})
	g.Go(func() (err error) {
		h.twoDay, err = s.tokenAt(gctx, address, twoDayBlock)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("token %s: %w", address, subgraph.ErrNoData)
	}

	data := s.derive(*cur, h, ethPrice, ethPriceOld, true)
	return &data, nil
}

// GetTokenPairs returns the pairs holding address on either side.
func (s *Service) GetTokenPairs(ctx context.Context, address string) ([]subgraph.Pair, error) {
	address, err := s.checkAddress(address)
	if err != nil {
		return nil, err
	}
	res, err := s.exchange.TokenData(ctx, address, 0)
	if err != nil {
		return nil, err
	}
	pairs := make([]subgraph.Pair, 0, len(res.Pairs0)+len(res.Pairs1))
	pairs = append(pairs, res.Pairs0...)
	pairs = append(pairs, res.Pairs1...)
	return pairs, nil
}

// GetTokenTransactions returns recent mints, burns and swaps across pairs.
func (s *Service) GetTokenTransactions(ctx context.Context, pairs []string) (*subgraph.Transactions, error) {
	if len(pairs) == 0 {
		return &subgraph.Transactions{Mints: []subgraph.Mint{}, Burns: []subgraph.Burn{}, Swaps: []subgraph.Swap{}}, nil
	}
	return s.exchange.FilteredTransactions(ctx, pairs)
}

// RefreshTopTokens fetches the top token list and stores it.
func (s *Service) RefreshTopTokens(ctx context.Context) (int, error) {
	ethPrice, ethPriceOld, err := s.EthPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("eth price: %w", err)
	}
	tokens, err := s.GetTopTokens(ctx, ethPrice, ethPriceOld)
	if err != nil {
		return 0, err
	}
	s.store.UpdateTopTokens(tokens)
	return len(tokens), nil
}
