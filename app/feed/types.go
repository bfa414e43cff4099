package feed

import "time"

// Document is a parsed feed: the URL the feed identifies itself by and its
// entries in document order.
type Document struct {
	SelfLink string
	Title    string
	Entries  []Entry
}

// Entry is one normalized feed entry. Summary is best-effort and may be
// empty; Published is absent when the source provides no publish date.
type Entry struct {
	Title     string
	Link      string
	Content   string
	Summary   string
	Published *time.Time
}
