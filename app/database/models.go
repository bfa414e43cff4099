package database

import (
	"time"
)

// Feed is a registered subscription. The id is the SHA-224 digest of the
// canonical link and never changes once assigned.
type Feed struct {
	ID             string
	Link           string     // Canonical feed URL
	Subscribed     bool       // Whether the push hub has confirmed a subscription
	Owner          *string    // When set, the feed and its items are private to that identity
	ExtractContent bool       // Fetch article pages and replace thin feed content
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Item is one ingested entry. The id is the SHA-224 digest of the canonical
// entry link, so re-ingesting the same entry can never create a second row.
type Item struct {
	ID        string
	FeedID    *string    // Owning feed; nullable, rows outlive feed deletion
	Owner     *string    // Inherited from the owning feed at ingestion time
	Title     string
	Link      string     // Canonical entry URL
	Content   string
	Summary   *string    // Absent when the source entry lacks one
	Retrieved time.Time  // Ingestion time, refreshed on re-delivery
	Created   *time.Time // Publish date from the source; absent when not provided
	Version   int        // Schema version of the ingested record, starts at 1

	ExtractionStatus string // pending, success, failed, skipped
	ExtractedAt      *time.Time
	ExtractionError  string
}

const (
	ExtractionPending = "pending"
	ExtractionSuccess = "success"
	ExtractionFailed  = "failed"
	ExtractionSkipped = "skipped"
)
