package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrNoData is returned when a query succeeds but the entity does not exist.
var ErrNoData = errors.New("subgraph: no data")

// GraphQLError carries the errors array of a failed query.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Client issues GraphQL queries against one subgraph endpoint. Successful
// results are kept in an expiring LRU and served cache-first.
type Client struct {
	name       string
	url        string
	httpClient *http.Client
	cache      *expirable.LRU[uint64, json.RawMessage]
}

type Option func(*Client)

// WithCache enables cache-first lookups for up to size results, each kept for ttl.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size > 0 {
			c.cache = expirable.NewLRU[uint64, json.RawMessage](size, nil, ttl)
		}
	}
}

// WithName labels the client in metrics.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

func NewClient(url string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		name:       "exchange",
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) URL() string {
	return c.url
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Query runs query with vars and decodes the data member into out (if non-nil).
func (c *Client) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	key := xxhash.Sum64(body)
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			cacheHits.WithLabelValues(c.name).Inc()
			return decodeData(data, out)
		}
	}

	data, err := c.do(ctx, body)
	if err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Add(key, data)
	}
	return decodeData(data, out)
}

// QueryNetworkOnly is Query without the result cache.
func (c *Client) QueryNetworkOnly(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	data, err := c.do(ctx, body)
	if err != nil {
		return err
	}
	return decodeData(data, out)
}

// Purge drops every cached result.
func (c *Client) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

func (c *Client) do(ctx context.Context, body []byte) (json.RawMessage, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		queryDuration.WithLabelValues(c.name, status).Observe(time.Since(start).Seconds())
	}()

	// Construct the POST request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status = "error"
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("subgraph error: status %d: %s", resp.StatusCode, b)
	}

	var raw Response
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		status = "error"
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(raw.Errors) > 0 {
		status = "error"
		gqlErr := &GraphQLError{}
		for _, e := range raw.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return nil, gqlErr
	}

	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		status = "error"
		return nil, ErrNoData
	}

	return raw.Data, nil
}

func decodeData(data json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
