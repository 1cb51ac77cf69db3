package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxSplitConcurrency bounds the chunks of one SplitQuery in flight at once.
const maxSplitConcurrency = 4

// SplitQuery breaks list into chunks of at most skip elements, builds one
// aliased query per chunk and merges every aliased result into a single map.
// Any failing chunk fails the whole call.
func SplitQuery[T any](ctx context.Context, c *Client, build func(chunk []T) string, list []T, skip int) (map[string]json.RawMessage, error) {
	if skip <= 0 {
		skip = len(list)
	}
	merged := make(map[string]json.RawMessage, len(list))
	if len(list) == 0 {
		return merged, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSplitConcurrency)

	for start := 0; start < len(list); start += skip {
		chunk := list[start:min(start+skip, len(list))]
		g.Go(func() error {
			var part map[string]json.RawMessage
			if err := c.Query(gctx, build(chunk), nil, &part); err != nil {
				return fmt.Errorf("split query chunk of %d: %w", len(chunk), err)
			}
			mu.Lock()
			for k, v := range part {
				merged[k] = v
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}
