package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/feed"
	"github.com/lysyi3m/rss-inbox/app/hub"
	"github.com/lysyi3m/rss-inbox/app/identity"
	"github.com/lysyi3m/rss-inbox/app/registry"
	"github.com/lysyi3m/rss-inbox/app/tasks"
)

func NewHandler(reg *registry.Registry, feedRepo database.FeedRepository,
	itemRepo database.ItemRepository, ingester *feed.Ingester, poller *feed.Poller,
	hubClient *hub.Client, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		registry:  reg,
		feedRepo:  feedRepo,
		itemRepo:  itemRepo,
		ingester:  ingester,
		poller:    poller,
		hubClient: hubClient,
		scheduler: scheduler,
		version:   version,
	}
}

// RegisterFeed adds a feed. The body is the raw feed URL; the response is
// the feed's identity. Registering an already-known URL is a no-op that
// returns the same identity.
func (h *Handler) RegisterFeed(c *gin.Context) {
	rawURL, ok := h.readBody(c)
	if !ok {
		return
	}

	id, err := h.registry.Register(rawURL, registry.Options{})
	if err != nil {
		h.fail(c, "register_feed", err)
		return
	}

	c.String(http.StatusOK, id+"\n")
}

// UnregisterFeed removes every feed record matching the URL's canonical
// link. Items stay behind as orphaned references.
func (h *Handler) UnregisterFeed(c *gin.Context) {
	rawURL, ok := h.readBody(c)
	if !ok {
		return
	}

	if _, err := h.registry.Unregister(rawURL); err != nil {
		h.fail(c, "unregister_feed", err)
		return
	}

	c.String(http.StatusOK, "Deleted\n")
}

// ListFeeds outputs the currently known feeds, one per line.
func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.registry.List(100)
	if err != nil {
		h.fail(c, "list_feeds", err)
		return
	}

	var out strings.Builder
	for _, f := range feeds {
		if f.Owner != nil {
			fmt.Fprintf(&out, "%s URL: %s Private: %s\n", f.ID, f.Link, *f.Owner)
		} else {
			fmt.Fprintf(&out, "%s URL: %s\n", f.ID, f.Link)
		}
	}

	c.String(http.StatusOK, out.String())
}

// FetchFeed performs one synchronous fetch-and-ingest for the feed identity
// in the body and responds with the count of entries processed.
func (h *Handler) FetchFeed(c *gin.Context) {
	feedID, ok := h.readBody(c)
	if !ok {
		return
	}

	result, err := h.poller.FetchOne(c.Request.Context(), feedID)
	if err != nil {
		h.fail(c, "fetch_feed", err)
		return
	}

	c.String(http.StatusOK, "%d\n", result.Processed)
}

// ScheduleFetches enqueues one fetch task per registered feed.
func (h *Handler) ScheduleFetches(c *gin.Context) {
	enqueued, err := h.scheduler.ScheduleAll()
	if err != nil {
		h.fail(c, "schedule_fetches", err)
		return
	}

	c.String(http.StatusOK, "Scheduled %d fetches\n", enqueued)
}

// SubscribeFeed triggers the subscribe handshake with the push hub for the
// feed identity in the body. Confirmation arrives asynchronously via the
// hub's verification challenge.
func (h *Handler) SubscribeFeed(c *gin.Context) {
	feedID, ok := h.readBody(c)
	if !ok {
		return
	}

	if err := h.hubClient.Subscribe(c.Request.Context(), feedID); err != nil {
		h.fail(c, "subscribe_feed", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UnsubscribeFeed triggers the unsubscribe handshake with the push hub.
func (h *Handler) UnsubscribeFeed(c *gin.Context) {
	feedID, ok := h.readBody(c)
	if !ok {
		return
	}

	if err := h.hubClient.Unsubscribe(c.Request.Context(), feedID); err != nil {
		h.fail(c, "unsubscribe_feed", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ReceivePush is the hub-facing endpoint. A request carrying hub.challenge
// is a verification round-trip and is answered by echoing the challenge;
// anything else is treated as a content notification and ingested.
func (h *Handler) ReceivePush(c *gin.Context) {
	if challenge := c.Query("hub.challenge"); challenge != "" {
		h.verifySubscription(c, challenge)
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read request body\n")
		return
	}

	result, err := h.ingester.Run(data)
	if err != nil {
		h.fail(c, "receive_push", err)
		return
	}

	if len(result.Failures) > 0 {
		slog.Warn("Push delivery had failed entries", "feed", result.Feed.ID, "failed_entries", len(result.Failures))
	}

	c.String(http.StatusOK, "%d\n", result.Processed)
}

// verifySubscription completes the hub's asynchronous confirmation. When the
// challenge names a topic we know, the subscribed flag tracks the confirmed
// mode; a topic that resolves to no registered feed is denied so the hub
// cannot confirm a subscription that was never requested.
func (h *Handler) verifySubscription(c *gin.Context, challenge string) {
	mode := c.Query("hub.mode")
	topic := c.Query("hub.topic")

	if topic != "" && (mode == hub.ModeSubscribe || mode == hub.ModeUnsubscribe) {
		link, err := identity.Canonicalize(topic)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}

		registered, err := h.feedRepo.GetFeedByLink(link)
		if err != nil {
			h.fail(c, "verify_subscription", err)
			return
		}
		if registered == nil {
			slog.Warn("Denying verification for unknown topic", "topic", topic)
			c.Status(http.StatusNotFound)
			return
		}

		if err := h.feedRepo.SetSubscribed(registered.ID, mode == hub.ModeSubscribe); err != nil {
			h.fail(c, "verify_subscription", err)
			return
		}

		slog.Info("Subscription verified", "feed", registered.ID, "mode", mode)
	}

	c.String(http.StatusOK, challenge)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}
	if itemCount, err := h.itemRepo.GetTotalItemCount(); err == nil {
		health["items"] = itemCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) readBody(c *gin.Context) (string, bool) {
	data, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read request body\n")
		return "", false
	}

	body := strings.TrimSpace(string(data))
	if body == "" {
		c.String(http.StatusBadRequest, "empty request body\n")
		return "", false
	}

	return body, true
}

func (h *Handler) fail(c *gin.Context, operation string, err error) {
	slog.Error("Request failed", "operation", operation, "error", err)
	c.String(statusFromError(err), "%v\n", err)
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, feed.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, feed.ErrUnknownFeed):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
