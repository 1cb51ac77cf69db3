package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenData fetches a token and its pairs. block <= 0 means latest.
func (c *Client) TokenData(ctx context.Context, address string, block int64) (*TokenDataResponse, error) {
	var out TokenDataResponse
	if err := c.Query(ctx, TokenDataQuery(address, block), nil, &out); err != nil {
		return nil, fmt.Errorf("token data %s@%d: %w", address, block, err)
	}
	return &out, nil
}

// TokensCurrent lists the top tokens by lifetime volume.
func (c *Client) TokensCurrent(ctx context.Context) ([]Token, error) {
	var out struct {
		Tokens []Token `json:"tokens"`
	}
	if err := c.Query(ctx, TokensCurrentQuery, nil, &out); err != nil {
		return nil, fmt.Errorf("tokens current: %w", err)
	}
	return out.Tokens, nil
}

// TokensAtBlock lists the top tokens as of block.
func (c *Client) TokensAtBlock(ctx context.Context, block int64) ([]Token, error) {
	var out struct {
		Tokens []Token `json:"tokens"`
	}
	if err := c.Query(ctx, TokensDynamicQuery(block), nil, &out); err != nil {
		return nil, fmt.Errorf("tokens at block %d: %w", block, err)
	}
	return out.Tokens, nil
}

// TokenDayDatas returns one page of day buckets starting at skip. Pages
// always come from the network so a chart refresh sees the latest day.
func (c *Client) TokenDayDatas(ctx context.Context, address string, skip, pageSize int) ([]TokenDayData, error) {
	var out struct {
		TokenDayDatas []TokenDayData `json:"tokenDayDatas"`
	}
	vars := map[string]any{
		"tokenAddr": strings.ToLower(address),
		"skip":      skip,
	}
	if err := c.QueryNetworkOnly(ctx, TokenChartQuery(pageSize), vars, &out); err != nil {
		return nil, fmt.Errorf("token day data %s skip %d: %w", address, skip, err)
	}
	return out.TokenDayDatas, nil
}

// FilteredTransactions returns recent mints, burns and swaps for the given pairs.
func (c *Client) FilteredTransactions(ctx context.Context, pairs []string) (*Transactions, error) {
	var out Transactions
	vars := map[string]any{"allPairs": pairs}
	if err := c.Query(ctx, FilteredTransactionsQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("filtered transactions: %w", err)
	}
	return &out, nil
}

// PriceAtBlock is the raw per-block result of PricesByBlock.
type PriceAtBlock struct {
	DerivedETH *decimal.Decimal
	EthPrice   *decimal.Decimal
}

// PricesByBlock fetches the token's derivedETH and the ETH/USD price at every
// block, keyed by the block's timestamp. Missing entities leave the
// corresponding field nil.
func (c *Client) PricesByBlock(ctx context.Context, address string, blocks []Block, split int) (map[int64]PriceAtBlock, error) {
	build := func(chunk []Block) string { return PricesByBlockQuery(address, chunk) }
	raw, err := SplitQuery(ctx, c, build, blocks, split)
	if err != nil {
		return nil, fmt.Errorf("prices by block %s: %w", address, err)
	}

	out := make(map[int64]PriceAtBlock, len(blocks))
	for alias, msg := range raw {
		if len(alias) == 0 || string(msg) == "null" {
			continue
		}
		switch alias[0] {
		case 't':
			ts, ok := aliasTimestamp(alias, 't')
			if !ok {
				continue
			}
			var tok struct {
				DerivedETH decimal.Decimal `json:"derivedETH"`
			}
			if err := json.Unmarshal(msg, &tok); err != nil {
				continue
			}
			p := out[ts]
			p.DerivedETH = &tok.DerivedETH
			out[ts] = p
		case 'b':
			ts, ok := aliasTimestamp(alias, 'b')
			if !ok {
				continue
			}
			var bundle Bundle
			if err := json.Unmarshal(msg, &bundle); err != nil {
				continue
			}
			p := out[ts]
			p.EthPrice = &bundle.EthPrice
			out[ts] = p
		}
	}
	return out, nil
}

// EthPrice returns the ETH/USD price, optionally as of a block.
func (c *Client) EthPrice(ctx context.Context, block int64) (decimal.Decimal, error) {
	var out struct {
		Bundles []Bundle `json:"bundles"`
	}
	if err := c.Query(ctx, EthPriceQuery(block), nil, &out); err != nil {
		return decimal.Zero, fmt.Errorf("eth price @%d: %w", block, err)
	}
	if len(out.Bundles) == 0 {
		return decimal.Zero, fmt.Errorf("eth price @%d: %w", block, ErrNoData)
	}
	return out.Bundles[0].EthPrice, nil
}

// Factory returns exchange-wide counters, optionally as of a block.
func (c *Client) Factory(ctx context.Context, factory string, block int64) (*Factory, error) {
	var out struct {
		Factories []Factory `json:"pancakeFactories"`
	}
	if err := c.Query(ctx, GlobalDataQuery(factory, block), nil, &out); err != nil {
		return nil, fmt.Errorf("factory @%d: %w", block, err)
	}
	if len(out.Factories) == 0 {
		return nil, fmt.Errorf("factory @%d: %w", block, ErrNoData)
	}
	return &out.Factories[0], nil
}

// LatestIndexedBlock returns the head block the subgraph has processed.
func (c *Client) LatestIndexedBlock(ctx context.Context) (int64, error) {
	var out struct {
		Meta struct {
			Block struct {
				Number int64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}
	if err := c.QueryNetworkOnly(ctx, MetaQuery, nil, &out); err != nil {
		return 0, fmt.Errorf("subgraph meta: %w", err)
	}
	return out.Meta.Block.Number, nil
}
