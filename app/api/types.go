package api

import (
	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/feed"
	"github.com/lysyi3m/rss-inbox/app/hub"
	"github.com/lysyi3m/rss-inbox/app/registry"
	"github.com/lysyi3m/rss-inbox/app/tasks"
)

type Handler struct {
	registry  *registry.Registry
	feedRepo  database.FeedRepository
	itemRepo  database.ItemRepository
	ingester  *feed.Ingester
	poller    *feed.Poller
	hubClient *hub.Client
	scheduler tasks.TaskSchedulerInterface
	version   string
}
