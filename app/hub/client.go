// Package hub drives the push-protocol handshake with the external hub.
// Subscribe and unsubscribe are transport-level requests only: the hub
// confirms or denies asynchronously by challenging the push callback, so
// neither call touches the feed's subscribed flag.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/feed"
)

const (
	ModeSubscribe   = "subscribe"
	ModeUnsubscribe = "unsubscribe"
)

// Config carries the hub credentials and endpoints. Passed in explicitly at
// construction; the client never reads ambient configuration.
type Config struct {
	Endpoint    string
	Username    string
	Password    string
	Secret      string
	CallbackURL string
}

type Client struct {
	cfg        Config
	feedRepo   database.FeedRepository
	httpClient *http.Client
	userAgent  string
}

func NewClient(cfg Config, feedRepo database.FeedRepository, httpClient *http.Client, userAgent string) *Client {
	return &Client{
		cfg:        cfg,
		feedRepo:   feedRepo,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (c *Client) Subscribe(ctx context.Context, feedID string) error {
	return c.send(ctx, feedID, ModeSubscribe)
}

func (c *Client) Unsubscribe(ctx context.Context, feedID string) error {
	return c.send(ctx, feedID, ModeUnsubscribe)
}

func (c *Client) send(ctx context.Context, feedID string, mode string) error {
	registered, err := c.feedRepo.GetFeed(feedID)
	if err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}
	if registered == nil {
		return fmt.Errorf("%w: %s", feed.ErrUnknownFeed, feedID)
	}

	form := url.Values{}
	form.Set("hub.mode", mode)
	form.Set("hub.topic", registered.Link)
	form.Set("hub.callback", c.cfg.CallbackURL)
	form.Set("hub.verify", "async")
	form.Set("hub.secret", c.cfg.Secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create hub request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hub rejected %s for feed %s: %s", mode, feedID, resp.Status)
	}

	slog.Info("Hub accepted request", "mode", mode, "feed", feedID, "topic", registered.Link)
	return nil
}
