package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Feed registry
	r.POST("/feed", handler.RegisterFeed)
	r.DELETE("/feed", handler.UnregisterFeed)

	// Polling
	r.POST("/fetch", handler.FetchFeed)

	// Push protocol: subscribe/unsubscribe handshakes plus the hub-facing
	// callback that handles both verification and content delivery
	r.PUT("/push", handler.SubscribeFeed)
	r.DELETE("/push", handler.UnsubscribeFeed)
	r.POST("/push", handler.ReceivePush)

	// Admin surface, guarded when an access key is configured
	admin := r.Group("/")
	if apiAccessKey != "" {
		admin.Use(authMiddleware(apiAccessKey))
	}
	admin.GET("/feed", handler.ListFeeds)
	admin.GET("/fetch", handler.ScheduleFetches)

	r.GET("/health", handler.GetHealth)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "RSS Inbox",
			"description": "Syndicated-content ingestion: polled and push-delivered feeds into a deduplicated store",
			"endpoints": map[string]string{
				"register":    "POST /feed (body: feed URL)",
				"unregister":  "DELETE /feed (body: feed URL)",
				"list":        "GET /feed",
				"fetch":       "POST /fetch (body: feed identity)",
				"fan_out":     "GET /fetch",
				"subscribe":   "PUT /push (body: feed identity)",
				"unsubscribe": "DELETE /push (body: feed identity)",
				"push":        "POST /push (hub verification or content delivery)",
				"health":      "GET /health",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware guards the admin endpoints with a pre-shared key
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey != apiAccessKey {
			c.String(http.StatusUnauthorized, "invalid or missing API key\n")
			c.Abort()
			return
		}

		c.Next()
	}
}
