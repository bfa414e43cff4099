package feed

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/identity"
)

const testFeedURL = "http://example.com/feed"

const testFeedDocument = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>http://example.com/feed</link>
    <description>Test Description</description>
    <item>
      <title>Hello</title>
      <link>http://example.com/post/1</link>
      <description>World summary</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Undated</title>
      <link>http://example.com/post/2</link>
      <description>No publish date here</description>
    </item>
  </channel>
</rss>`

func newTestIngester(t *testing.T) (*Ingester, database.FeedRepository, database.ItemRepository) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)

	return NewIngester(NewParser(), feedRepo, itemRepo), feedRepo, itemRepo
}

func registerTestFeed(t *testing.T, feedRepo database.FeedRepository, rawURL string) *database.Feed {
	t.Helper()

	link, err := identity.Canonicalize(rawURL)
	if err != nil {
		t.Fatalf("Failed to canonicalize %q: %v", rawURL, err)
	}

	stored, _, err := feedRepo.GetOrCreateFeed(database.Feed{
		ID:   identity.Digest(link),
		Link: link,
	})
	if err != nil {
		t.Fatalf("Failed to register feed: %v", err)
	}

	return stored
}

func TestIngestScenario(t *testing.T) {
	ingester, feedRepo, itemRepo := newTestIngester(t)
	registered := registerTestFeed(t, feedRepo, testFeedURL)

	result, err := ingester.Run([]byte(testFeedDocument))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Feed.ID != registered.ID {
		t.Errorf("Expected feed %s, got: %s", registered.ID, result.Feed.ID)
	}
	if result.Processed != 2 {
		t.Errorf("Expected 2 processed entries, got: %d", result.Processed)
	}
	if result.New != 2 {
		t.Errorf("Expected 2 new items, got: %d", result.New)
	}
	if len(result.Failures) != 0 {
		t.Errorf("Expected no failures, got: %+v", result.Failures)
	}

	itemID, err := identity.Identify("http://example.com/post/1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	item, err := itemRepo.GetItem(itemID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if item == nil {
		t.Fatal("Expected item to be stored")
	}
	if item.Title != "Hello" {
		t.Errorf("Expected title 'Hello', got: %s", item.Title)
	}
	if item.Content != "World summary" {
		t.Errorf("Expected content 'World summary', got: %s", item.Content)
	}
	if item.Version != ItemVersion {
		t.Errorf("Expected version %d, got: %d", ItemVersion, item.Version)
	}
	if item.FeedID == nil || *item.FeedID != registered.ID {
		t.Errorf("Expected item to reference feed %s, got: %v", registered.ID, item.FeedID)
	}
	if item.Created == nil {
		t.Fatal("Expected created to be set from the publish date")
	}
	if item.Summary == nil || *item.Summary != "World summary" {
		t.Errorf("Expected summary to be stored, got: %v", item.Summary)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	ingester, feedRepo, itemRepo := newTestIngester(t)
	registered := registerTestFeed(t, feedRepo, testFeedURL)

	if _, err := ingester.Run([]byte(testFeedDocument)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	itemID, _ := identity.Identify("http://example.com/post/1")
	before, err := itemRepo.GetItem(itemID)
	if err != nil || before == nil {
		t.Fatalf("Expected item after first ingestion, got: %v, %v", before, err)
	}

	time.Sleep(20 * time.Millisecond)

	result, err := ingester.Run([]byte(testFeedDocument))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Processed != 2 {
		t.Errorf("Expected duplicate delivery to still count 2 processed entries, got: %d", result.Processed)
	}
	if result.New != 0 {
		t.Errorf("Expected no new items on re-ingestion, got: %d", result.New)
	}

	count, err := itemRepo.GetItemCount(registered.ID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected exactly 2 items after re-ingestion, got: %d", count)
	}

	after, err := itemRepo.GetItem(itemID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !after.Retrieved.After(before.Retrieved) {
		t.Errorf("Expected retrieved to be refreshed, got %v then %v", before.Retrieved, after.Retrieved)
	}
	if after.Created == nil || !after.Created.Equal(*before.Created) {
		t.Errorf("Expected created to be unchanged, got %v then %v", before.Created, after.Created)
	}
}

func TestIngestMissingPublishDate(t *testing.T) {
	ingester, feedRepo, itemRepo := newTestIngester(t)
	registerTestFeed(t, feedRepo, testFeedURL)

	if _, err := ingester.Run([]byte(testFeedDocument)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	itemID, _ := identity.Identify("http://example.com/post/2")
	item, err := itemRepo.GetItem(itemID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if item == nil {
		t.Fatal("Expected item to be stored")
	}
	// created must stay absent, never defaulted to ingestion time
	if item.Created != nil {
		t.Errorf("Expected created to be absent, got: %v", item.Created)
	}
	if item.Retrieved.IsZero() {
		t.Error("Expected retrieved to be set")
	}
}

func TestIngestUnknownFeed(t *testing.T) {
	ingester, _, itemRepo := newTestIngester(t)

	_, err := ingester.Run([]byte(testFeedDocument))
	if !errors.Is(err, ErrUnknownFeed) {
		t.Fatalf("Expected ErrUnknownFeed, got: %v", err)
	}

	count, err := itemRepo.GetTotalItemCount()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no writes for an unknown feed, got %d items", count)
	}
}

func TestIngestMalformedDocument(t *testing.T) {
	ingester, feedRepo, _ := newTestIngester(t)
	registerTestFeed(t, feedRepo, testFeedURL)

	if _, err := ingester.Run([]byte("definitely not XML")); !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse, got: %v", err)
	}
}

func TestIngestIsolatesBadEntries(t *testing.T) {
	ingester, feedRepo, itemRepo := newTestIngester(t)
	registered := registerTestFeed(t, feedRepo, testFeedURL)

	document := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>http://example.com/feed</link>
    <description>Test Description</description>
    <item>
      <title>Broken</title>
      <link>not-a-valid-url</link>
      <description>Entry with an unusable link</description>
    </item>
    <item>
      <title>Fine</title>
      <link>http://example.com/post/3</link>
      <description>Entry that should survive</description>
    </item>
  </channel>
</rss>`

	result, err := ingester.Run([]byte(document))
	if err != nil {
		t.Fatalf("Expected the batch to survive a bad entry, got: %v", err)
	}

	if result.Processed != 1 {
		t.Errorf("Expected 1 processed entry, got: %d", result.Processed)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Expected 1 failed entry, got: %d", len(result.Failures))
	}
	if result.Failures[0].Link != "not-a-valid-url" {
		t.Errorf("Unexpected failed entry link: %s", result.Failures[0].Link)
	}

	count, err := itemRepo.GetItemCount(registered.ID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 stored item, got: %d", count)
	}
}
