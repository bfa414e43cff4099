package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/identity"
)

// ItemVersion is the schema version stamped on newly ingested items, so a
// future ingestion-format change can be told apart from stored records.
const ItemVersion = 1

var ErrUnknownFeed = errors.New("feed is not registered")

// EntryError records a single entry that could not be ingested. It never
// aborts the sibling entries of the same payload.
type EntryError struct {
	Link string
	Err  error
}

// Result aggregates one ingestion run. Processed counts every successfully
// handled entry including no-op duplicates, not just new items.
type Result struct {
	Feed      *database.Feed
	Processed int
	New       int
	Failures  []EntryError
}

// Ingester resolves a parsed entry stream to its owning feed, deduplicates,
// and persists items.
type Ingester struct {
	parser   *Parser
	feedRepo database.FeedRepository
	itemRepo database.ItemRepository
}

func NewIngester(parser *Parser, feedRepo database.FeedRepository, itemRepo database.ItemRepository) *Ingester {
	return &Ingester{
		parser:   parser,
		feedRepo: feedRepo,
		itemRepo: itemRepo,
	}
}

// Run ingests one raw feed payload. Parse failures and unknown feeds abort
// before anything is written; entry-level failures are isolated and
// collected in the result. The owning feed is resolved by canonical self
// link and is never auto-registered, so unsolicited hub deliveries cannot
// grow the registry.
func (i *Ingester) Run(data []byte) (*Result, error) {
	doc, err := i.parser.Run(data)
	if err != nil {
		return nil, err
	}

	selfLink, err := identity.Canonicalize(doc.SelfLink)
	if err != nil {
		return nil, fmt.Errorf("bad self link: %w", err)
	}

	owner, err := i.feedRepo.GetFeedByLink(selfLink)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve feed: %w", err)
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, selfLink)
	}

	result := &Result{Feed: owner}
	now := time.Now().UTC()

	for _, entry := range doc.Entries {
		created, err := i.ingestEntry(owner, entry, now)
		if err != nil {
			slog.Error("Failed to ingest entry", "feed", owner.ID, "link", entry.Link, "error", err)
			result.Failures = append(result.Failures, EntryError{Link: entry.Link, Err: err})
			continue
		}

		result.Processed++
		if created {
			result.New++
		}
	}

	return result, nil
}

func (i *Ingester) ingestEntry(owner *database.Feed, entry Entry, now time.Time) (bool, error) {
	link, err := identity.Canonicalize(entry.Link)
	if err != nil {
		return false, err
	}

	item := database.Item{
		ID:               identity.Digest(link),
		FeedID:           &owner.ID,
		Owner:            owner.Owner,
		Title:            entry.Title,
		Link:             link,
		Content:          entry.Content,
		Retrieved:        now,
		Created:          entry.Published,
		Version:          ItemVersion,
		ExtractionStatus: database.ExtractionSkipped,
	}

	if entry.Summary != "" {
		item.Summary = &entry.Summary
	}
	if owner.ExtractContent {
		item.ExtractionStatus = database.ExtractionPending
	}

	return i.itemRepo.UpsertItem(item)
}
