package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// blockWindow is how far past a timestamp we look for the next block, in seconds.
const blockWindow = 600

// BlockClient resolves timestamps to block numbers using a blocks subgraph.
type BlockClient struct {
	client *Client
}

func NewBlockClient(c *Client) *BlockClient {
	return &BlockClient{client: c}
}

type blockRow struct {
	Number    string `json:"number"`
	Timestamp string `json:"timestamp"`
}

// BlockFromTimestamp returns the first block mined strictly after ts and
// within ten minutes of it.
func (b *BlockClient) BlockFromTimestamp(ctx context.Context, ts int64) (int64, error) {
	var out struct {
		Blocks []blockRow `json:"blocks"`
	}
	vars := map[string]any{
		"timestampFrom": ts,
		"timestampTo":   ts + blockWindow,
	}
	if err := b.client.Query(ctx, GetBlockQuery, vars, &out); err != nil {
		return 0, fmt.Errorf("block for timestamp %d: %w", ts, err)
	}
	if len(out.Blocks) == 0 {
		return 0, fmt.Errorf("block for timestamp %d: %w", ts, ErrNoData)
	}
	n, err := strconv.ParseInt(out.Blocks[0].Number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block number %q: %w", out.Blocks[0].Number, err)
	}
	return n, nil
}

// BlocksFromTimestamps resolves many timestamps in chunks of skip. Timestamps
// with no block in their window are left out. The result is sorted by timestamp.
func (b *BlockClient) BlocksFromTimestamps(ctx context.Context, timestamps []int64, skip int) ([]Block, error) {
	if len(timestamps) == 0 {
		return []Block{}, nil
	}

	fetched, err := SplitQuery(ctx, b.client, GetBlocksQuery, timestamps, skip)
	if err != nil {
		return nil, fmt.Errorf("blocks from timestamps: %w", err)
	}

	blocks := make([]Block, 0, len(fetched))
	for alias, raw := range fetched {
		ts, ok := aliasTimestamp(alias, 't')
		if !ok {
			continue
		}
		var rows []blockRow
		if err := json.Unmarshal(raw, &rows); err != nil || len(rows) == 0 {
			continue
		}
		n, err := strconv.ParseInt(rows[0].Number, 10, 64)
		if err != nil {
			continue
		}
		blocks = append(blocks, Block{Timestamp: ts, Number: n})
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Timestamp < blocks[j].Timestamp })
	return blocks, nil
}

// aliasTimestamp parses aliases of the form t1600000000.
func aliasTimestamp(alias string, prefix byte) (int64, bool) {
	if len(alias) < 2 || alias[0] != prefix {
		return 0, false
	}
	ts, err := strconv.ParseInt(strings.TrimPrefix(alias, string(prefix)), 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
