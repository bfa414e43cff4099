package database

import (
	"time"
)

type FeedRepository interface {
	GetOrCreateFeed(feed Feed) (*Feed, bool, error)
	GetFeed(id string) (*Feed, error)
	GetFeedByLink(link string) (*Feed, error)
	DeleteFeedsByLink(link string) (int64, error)
	ListFeeds(limit int) ([]Feed, error)
	SetSubscribed(id string, subscribed bool) error
	GetFeedCount() (int, error)
}

type ItemForExtraction struct {
	ID   string
	Link string
}

type ItemRepository interface {
	UpsertItem(item Item) (bool, error)
	GetItem(id string) (*Item, error)
	GetItemCount(feedID string) (int, error)
	GetTotalItemCount() (int, error)

	GetItemsForExtraction(feedID string, limit int) ([]ItemForExtraction, error)
	UpdateExtractedContent(itemID string, content string, extractedAt time.Time) error
	UpdateExtractionStatus(itemID string, status string, extractedAt *time.Time, errorMsg string) error
}
