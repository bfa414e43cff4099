package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/lysyi3m/rss-inbox/app/database"
)

// Poller performs a single fetch-and-ingest round trip for one registered
// feed. Retry of failed fetches is the task queue's responsibility, not the
// poller's.
type Poller struct {
	ingester   *Ingester
	feedRepo   database.FeedRepository
	httpClient *http.Client
	userAgent  string
}

func NewPoller(ingester *Ingester, feedRepo database.FeedRepository, httpClient *http.Client, userAgent string) *Poller {
	return &Poller{
		ingester:   ingester,
		feedRepo:   feedRepo,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// FetchOne loads the feed, performs one HTTP GET on its link and hands the
// body to the ingester.
func (p *Poller) FetchOne(ctx context.Context, feedID string) (*Result, error) {
	registered, err := p.feedRepo.GetFeed(feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	if registered == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, feedID)
	}

	data, err := p.fetch(ctx, registered.Link)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", feedID, err)
	}

	return p.ingester.Run(data)
}

func (p *Poller) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
