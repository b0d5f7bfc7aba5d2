package nessie

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dvloznov/banking-insights/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Defaults for talking to the enterprise API. The key comes from the
// NESSIE_API_KEY environment variable via the pull command.
const (
	DefaultBaseURL  = "http://api.nessieisreal.com/enterprise"
	DefaultPageSize = 50

	defaultRetries    = 3
	defaultRetryDelay = 2 * time.Second
	defaultPageDelay  = 500 * time.Millisecond
)

// Collection endpoints the pipeline consumes.
var Endpoints = []string{"accounts", "customers", "bills", "transfers"}

// Client pulls record collections from a Nessie-style enterprise API with
// _limit/_skip pagination and simple fixed-delay retries.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int

	retries    int
	retryDelay time.Duration
	pageDelay  time.Duration

	httpClient *http.Client
}

// NewClient creates a client for the given API base URL and key.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		pageSize:   DefaultPageSize,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		pageDelay:  defaultPageDelay,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchCollection pulls every page of one endpoint and returns the merged
// collection as a {"results": [...]} JSON document, the same shape the
// snapshot loader reads.
func (c *Client) FetchCollection(ctx context.Context, endpoint string) ([]byte, error) {
	log := logger.FromContext(ctx)

	var all []json.RawMessage
	skip := 0
	for {
		page, err := c.fetchPage(ctx, endpoint, skip)
		if err != nil {
			return nil, fmt.Errorf("FetchCollection %s: %w", endpoint, err)
		}
		all = append(all, page...)
		if len(page) < c.pageSize {
			break
		}
		skip += c.pageSize

		// Pause between pages so we don't trip the API's rate limit.
		select {
		case <-time.After(c.pageDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	log.Info().Str("endpoint", endpoint).Int("records", len(all)).Msg("Fetched collection")

	merged, err := json.Marshal(map[string]interface{}{"results": all})
	if err != nil {
		return nil, fmt.Errorf("FetchCollection %s: marshal: %w", endpoint, err)
	}
	return merged, nil
}

// FetchAll pulls every collection endpoint concurrently and returns the raw
// merged documents keyed by endpoint name.
func (c *Client) FetchAll(ctx context.Context) (map[string][]byte, error) {
	results := make([][]byte, len(Endpoints))

	g, gctx := errgroup.WithContext(ctx)
	for i, endpoint := range Endpoints {
		g.Go(func() error {
			data, err := c.FetchCollection(gctx, endpoint)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(Endpoints))
	for i, endpoint := range Endpoints {
		out[endpoint] = results[i]
	}
	return out, nil
}

// fetchPage retrieves one page of records, retrying transient failures.
func (c *Client) fetchPage(ctx context.Context, endpoint string, skip int) ([]json.RawMessage, error) {
	log := logger.FromContext(ctx)

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, url.Values{
		"key":    {c.apiKey},
		"_limit": {strconv.Itoa(c.pageSize)},
		"_skip":  {strconv.Itoa(skip)},
	}.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			log.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("Retrying page fetch")
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		page, err := c.doFetch(ctx, u)
		if err == nil {
			return page, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) doFetch(ctx context.Context, u string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// Pages arrive either wrapped ({"results": [...]}) or as a bare array.
	var wrapped struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal page: %w", err)
	}
	return records, nil
}
