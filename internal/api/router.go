package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
	"podstudio/internal/workflow"
)

// Runs launches generation runs in the background.
type Runs interface {
	Launch(ctx context.Context, episodeID string) (workflow.State, error)
	Active() int
}

// States reads and resets workflow records.
type States interface {
	Status(ctx context.Context, episodeID string) (workflow.State, error)
	Reset(ctx context.Context, episodeID string) (workflow.State, error)
}

// Episodes resolves episodes before a run is admitted.
type Episodes interface {
	GetEpisode(ctx context.Context, episodeID string) (*podcast.Episode, error)
}

// Dependencies bundles the collaborators served by the router.
type Dependencies struct {
	Runs     Runs
	States   States
	Episodes Episodes
	Token    string
}

// RequestIDHeader carries the correlation id of each request.
const RequestIDHeader = "X-Request-ID"

// NewRouter constructs a gin engine with every route registered.
func NewRouter(deps Dependencies, logger *slog.Logger) *gin.Engine {
	h := &handlers{
		runs:     deps.Runs,
		states:   deps.States,
		episodes: deps.Episodes,
		logger:   logging.NewComponentLogger(logger, "api"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestContext(), h.accessLog())

	r.GET("/api/health", h.health)

	episodes := r.Group("/api/episodes/:id", bearerAuth(deps.Token))
	episodes.POST("/generate", h.generate)
	episodes.GET("/status", h.status)
	episodes.POST("/reset", h.reset)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: "route not found", Kind: services.KindNotFound})
	})
	return r
}

// requestContext assigns a correlation id and stores it on the request
// context so downstream logs carry it.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (h *handlers) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger := logging.WithContext(c.Request.Context(), h.logger)
		logger.Debug("api request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
}
