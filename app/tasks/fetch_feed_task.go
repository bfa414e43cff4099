package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-inbox/app/feed"
)

// FetchFeedTask polls one registered feed and ingests whatever it returns.
type FetchFeedTask struct {
	Task
	poller *feed.Poller
}

func NewFetchFeedTask(feedID string, poller *feed.Poller) *FetchFeedTask {
	return &FetchFeedTask{
		Task:   NewTask(TaskTypeFetchFeed, feedID),
		poller: poller,
	}
}

func (t *FetchFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.poller.FetchOne(ctx, t.FeedID)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedID,
		"duration", t.GetDuration(),
		"processed", result.Processed,
		"new", result.New,
		"failed_entries", len(result.Failures))

	return nil
}
