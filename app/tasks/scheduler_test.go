package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/identity"
)

type fakeTask struct {
	Task
	execute func(ctx context.Context) error
}

func (t *fakeTask) Execute(ctx context.Context) error {
	return t.execute(ctx)
}

func newTestFeedRepo(t *testing.T) database.FeedRepository {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return database.NewFeedRepository(db)
}

func TestNewTaskDefaults(t *testing.T) {
	task := NewTask(TaskTypeFetchFeed, "feed-1")

	if task.GetType() != TaskTypeFetchFeed {
		t.Errorf("Expected type %s, got: %s", TaskTypeFetchFeed, task.GetType())
	}
	if task.GetFeedID() != "feed-1" {
		t.Errorf("Expected feed ID 'feed-1', got: %s", task.GetFeedID())
	}
	if task.GetRetryCount() != 0 {
		t.Errorf("Expected retry count 0, got: %d", task.GetRetryCount())
	}
	if task.GetMaxRetries() != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got: %d", DefaultMaxRetries, task.GetMaxRetries())
	}
	if task.GetID() == "" {
		t.Error("Expected a non-empty task ID")
	}
}

func TestTaskRetryBudget(t *testing.T) {
	task := NewTask(TaskTypeFetchFeed, "feed-1")

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}

	if task.CanRetry() {
		t.Errorf("Expected no retries left after %d attempts", DefaultMaxRetries)
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeFetchFeed, "feed-1")

	if task.GetDuration() != 0 {
		t.Errorf("Expected zero duration before start, got: %v", task.GetDuration())
	}

	task.Start()
	time.Sleep(5 * time.Millisecond)

	if task.GetDuration() <= 0 {
		t.Errorf("Expected positive duration after start, got: %v", task.GetDuration())
	}
}

func TestSchedulerExecutesEnqueuedTasks(t *testing.T) {
	scheduler := NewScheduler(nil, nil, nil, nil, nil, "test-agent/1.0", 0, 2)
	scheduler.Start()
	defer scheduler.Stop()

	done := make(chan string, 2)
	for _, id := range []string{"feed-1", "feed-2"} {
		feedID := id
		task := &fakeTask{
			Task: NewTask(TaskTypeFetchFeed, feedID),
			execute: func(ctx context.Context) error {
				done <- feedID
				return nil
			},
		}
		if err := scheduler.EnqueueTask(task); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	executed := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			executed[id] = true
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for task execution")
		}
	}

	if !executed["feed-1"] || !executed["feed-2"] {
		t.Errorf("Expected both tasks to run, got: %v", executed)
	}
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	scheduler := NewScheduler(nil, nil, nil, nil, nil, "test-agent/1.0", 0, 1)
	scheduler.Start()
	defer scheduler.Stop()

	var attempts atomic.Int32
	done := make(chan struct{})

	task := &fakeTask{
		Task: NewTask(TaskTypeFetchFeed, "feed-1"),
		execute: func(ctx context.Context) error {
			if attempts.Add(1) == 1 {
				return errors.New("transient failure")
			}
			close(done)
			return nil
		},
	}

	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for the retry")
	}

	if got := attempts.Load(); got != 2 {
		t.Errorf("Expected 2 attempts, got: %d", got)
	}
}

func TestScheduleAllFansOut(t *testing.T) {
	feedRepo := newTestFeedRepo(t)

	register := func(rawURL string, extract bool) {
		link, err := identity.Canonicalize(rawURL)
		if err != nil {
			t.Fatalf("Failed to canonicalize %q: %v", rawURL, err)
		}
		if _, _, err := feedRepo.GetOrCreateFeed(database.Feed{
			ID:             identity.Digest(link),
			Link:           link,
			ExtractContent: extract,
		}); err != nil {
			t.Fatalf("Failed to register feed: %v", err)
		}
	}

	register("http://a.example.com/feed", false)
	register("http://b.example.com/feed", true)

	scheduler := NewScheduler(feedRepo, nil, nil, nil, nil, "test-agent/1.0", 0, 1)

	enqueued, err := scheduler.ScheduleAll()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if enqueued != 2 {
		t.Errorf("Expected 2 enqueued fetches, got: %d", enqueued)
	}

	// one fetch per feed plus one extraction for the extract-enabled feed
	if got := len(scheduler.taskQueue); got != 3 {
		t.Fatalf("Expected 3 queued tasks, got: %d", got)
	}

	types := map[TaskType]int{}
	for i := 0; i < 3; i++ {
		task := <-scheduler.taskQueue
		types[task.GetType()]++
	}
	if types[TaskTypeFetchFeed] != 2 || types[TaskTypeExtractContent] != 1 {
		t.Errorf("Unexpected task mix: %v", types)
	}
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	scheduler := NewScheduler(nil, nil, nil, nil, nil, "test-agent/1.0", 0, 1)

	for {
		task := &fakeTask{Task: NewTask(TaskTypeFetchFeed, "feed-1")}
		if err := scheduler.EnqueueTask(task); err != nil {
			return
		}
		if len(scheduler.taskQueue) > cap(scheduler.taskQueue) {
			t.Fatal("Queue grew past its capacity without rejecting")
		}
	}
}
