// Package feed is the REST client for the auction-house API, which serves
// the paginated active-listings feed and the recently-ended feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/skyquery/skyquery/internal/config"
	"github.com/skyquery/skyquery/internal/domain"
)

// Client fetches auction pages over HTTP. All requests share one rate
// limiter so concurrent page fans stay inside the API budget.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a feed client from the feed section of the config.
func NewClient(cfg config.FeedConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout.Duration,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
	}
}

// GetPage returns one page of active listings. Page numbers start at zero;
// page zero also carries the feed epoch and the total page count.
func (c *Client) GetPage(ctx context.Context, page int) (*domain.AuctionPage, error) {
	body, err := c.doGet(ctx, "/auctions?page="+strconv.Itoa(page))
	if err != nil {
		return nil, fmt.Errorf("feed: get page %d: %w", page, err)
	}

	var out domain.AuctionPage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("feed: decode page %d: %w", page, err)
	}

	return &out, nil
}

// GetEnded returns the recently-ended listings feed.
func (c *Client) GetEnded(ctx context.Context) (*domain.EndedPage, error) {
	body, err := c.doGet(ctx, "/auctions_ended")
	if err != nil {
		return nil, fmt.Errorf("feed: get ended: %w", err)
	}

	var out domain.EndedPage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("feed: decode ended: %w", err)
	}

	return &out, nil
}

// doGet sends an unauthenticated GET request, waiting on the rate limiter
// before dispatch.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %w: %s", resp.StatusCode, domain.ErrFeedUnavailable, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
