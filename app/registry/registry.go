// Package registry manages the lifecycle of feed subscriptions: idempotent
// registration, removal, and listing.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/identity"
)

type Registry struct {
	feedRepo database.FeedRepository
}

func New(feedRepo database.FeedRepository) *Registry {
	return &Registry{feedRepo: feedRepo}
}

// Options tag a registration. The zero value is a public feed without
// content extraction.
type Options struct {
	Owner          string
	ExtractContent bool
}

// Register canonicalizes the URL and performs an atomic get-or-create keyed
// by its identity. Re-registering the same URL returns the existing feed's
// identity; no second record is ever created.
func (r *Registry) Register(url string, opts Options) (string, error) {
	link, err := identity.Canonicalize(url)
	if err != nil {
		return "", err
	}

	feed := database.Feed{
		ID:             identity.Digest(link),
		Link:           link,
		ExtractContent: opts.ExtractContent,
	}
	if opts.Owner != "" {
		feed.Owner = &opts.Owner
	}

	stored, created, err := r.feedRepo.GetOrCreateFeed(feed)
	if err != nil {
		return "", fmt.Errorf("failed to register feed: %w", err)
	}

	if created {
		slog.Info("Feed registered", "id", stored.ID, "link", stored.Link)
	} else {
		slog.Debug("Feed already registered", "id", stored.ID, "link", stored.Link)
	}

	return stored.ID, nil
}

// Unregister deletes every feed record matching the canonical link. Lookup
// is by link rather than id so call sites that only hold the raw URL work,
// and so any duplicated rows are all removed. Items of the feed are left in
// place as orphaned references.
func (r *Registry) Unregister(url string) (int64, error) {
	link, err := identity.Canonicalize(url)
	if err != nil {
		return 0, err
	}

	deleted, err := r.feedRepo.DeleteFeedsByLink(link)
	if err != nil {
		return 0, fmt.Errorf("failed to unregister feed: %w", err)
	}

	slog.Info("Feed unregistered", "link", link, "deleted", deleted)
	return deleted, nil
}

// List returns up to limit registered feeds. Private feeds are included;
// filtering by requester identity is the caller's concern.
func (r *Registry) List(limit int) ([]database.Feed, error) {
	return r.feedRepo.ListFeeds(limit)
}
