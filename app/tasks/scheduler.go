package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler is the in-process work queue: a buffered task channel drained by
// a fixed worker pool, with a periodic tick that fans out one fetch task per
// registered feed. Failed tasks are redelivered with exponential backoff
// until their retry budget is exhausted, which gives callers at-least-once
// execution without any retry logic of their own.
type Scheduler struct {
	feedRepo         database.FeedRepository
	itemRepo         database.ItemRepository
	poller           *feed.Poller
	contentExtractor *feed.ContentExtractor
	httpClient       *http.Client
	userAgent        string
	interval         time.Duration
	workerCount      int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(feedRepo database.FeedRepository, itemRepo database.ItemRepository,
	poller *feed.Poller, contentExtractor *feed.ContentExtractor, httpClient *http.Client,
	userAgent string, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		feedRepo:         feedRepo,
		itemRepo:         itemRepo,
		poller:           poller,
		contentExtractor: contentExtractor,
		httpClient:       httpClient,
		userAgent:        userAgent,
		interval:         interval,
		workerCount:      workerCount,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.interval <= 0 {
		slog.Info("Periodic polling disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.ScheduleAll(); err != nil {
					slog.Error("Periodic fan-out failed", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// ScheduleAll enqueues one fetch task for every registered feed, plus an
// extraction task for feeds with content extraction enabled. Pure fan-out;
// it never blocks on an individual fetch.
func (s *Scheduler) ScheduleAll() (int, error) {
	feeds, err := s.feedRepo.ListFeeds(0)
	if err != nil {
		return 0, fmt.Errorf("failed to list feeds: %w", err)
	}

	enqueued := 0
	for _, registered := range feeds {
		fetchTask := NewFetchFeedTask(registered.ID, s.poller)
		if err := s.EnqueueTask(fetchTask); err != nil {
			slog.Warn("Failed to enqueue FetchFeedTask", "feed", registered.ID, "error", err)
			continue
		}
		enqueued++

		if !registered.ExtractContent {
			continue
		}

		extractTask := NewExtractContentTask(registered.ID, s.httpClient, s.contentExtractor, s.itemRepo, s.userAgent)
		if err := s.EnqueueTask(extractTask); err != nil {
			slog.Warn("Failed to enqueue ExtractContentTask", "feed", registered.ID, "error", err)
		}
	}

	slog.Debug("Fan-out complete", "feeds", len(feeds), "enqueued", enqueued)
	return enqueued, nil
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
