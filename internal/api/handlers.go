package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"podstudio/internal/logging"
	"podstudio/internal/services"
)

type handlers struct {
	runs     Runs
	states   States
	episodes Episodes
	logger   *slog.Logger
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *handlers) health(c *gin.Context) {
	active := 0
	if h.runs != nil {
		active = h.runs.Active()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_runs": active})
}

func (h *handlers) generate(c *gin.Context) {
	episodeID, ok := h.episodeID(c)
	if !ok {
		return
	}
	ctx := services.WithEpisodeID(c.Request.Context(), episodeID)
	episode, err := h.episodes.GetEpisode(ctx, episodeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if episode == nil {
		h.fail(c, services.Wrap(services.ErrNotFound, "api", "generate", fmt.Sprintf("episode %q does not exist", episodeID), nil))
		return
	}
	state, err := h.runs.Launch(ctx, episodeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	logging.WithContext(ctx, h.logger).Info("generation run accepted",
		logging.RunID(state.RunID),
	)
	c.JSON(http.StatusAccepted, state)
}

func (h *handlers) status(c *gin.Context) {
	episodeID, ok := h.episodeID(c)
	if !ok {
		return
	}
	state, err := h.states.Status(c.Request.Context(), episodeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *handlers) reset(c *gin.Context) {
	episodeID, ok := h.episodeID(c)
	if !ok {
		return
	}
	ctx := services.WithEpisodeID(c.Request.Context(), episodeID)
	state, err := h.states.Reset(ctx, episodeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	logging.WithContext(ctx, h.logger).Info("workflow reset by api request")
	c.JSON(http.StatusOK, state)
}

func (h *handlers) episodeID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		h.fail(c, services.Wrap(services.ErrValidation, "api", "episode id", "episode id is required", nil))
		return "", false
	}
	return id, true
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(c.Request.Context(), h.logger).Error("api request failed",
			logging.String("path", c.FullPath()),
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
		)
	}
	c.JSON(status, errorBody{Error: err.Error(), Kind: services.Kind(err)})
}

// StatusForError maps an error kind to an HTTP status code.
func StatusForError(err error) int {
	switch services.Kind(err) {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindPrecondition:
		return http.StatusUnprocessableEntity
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindTimeout:
		return http.StatusGatewayTimeout
	case services.KindExternal:
		return http.StatusBadGateway
	case services.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
