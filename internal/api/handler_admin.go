package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitbot/internal/jobs"
	"habitbot/pkg/outbox"
)

type AdminHandler struct {
	jobs *jobs.Jobs
	// replayService is nil when delivery does not go through the outbox.
	replayService *outbox.ReplayService
	logger        *zap.Logger
}

func NewAdminHandler(j *jobs.Jobs, replayService *outbox.ReplayService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		jobs:          j,
		replayService: replayService,
		logger:        logger,
	}
}

// Digest handles GET /api/digest and returns today's digest without sending it.
func (h *AdminHandler) Digest(c *gin.Context) {
	msg, err := h.jobs.BuildDigest(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "build digest", err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// RunJob handles POST /api/jobs/:name/run
// 立即执行一次定时任务，不经过调度器的时间槽去重
func (h *AdminHandler) RunJob(c *gin.Context) {
	var run func(ctx context.Context) error
	switch name := c.Param("name"); name {
	case jobs.MorningDigestName:
		run = h.jobs.MorningDigest
	case jobs.NotesReminderName:
		run = h.jobs.NotesReminder
	case jobs.NotesCleanupName:
		run = h.jobs.Cleanup
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job " + name})
		return
	}

	if err := run(c.Request.Context()); err != nil {
		writeError(c, h.logger, "run job", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "done", "job": c.Param("name")})
}

// ReplayOutboxEvent 重放指定的 Outbox 事件
// POST /api/admin/outbox/replay?id=xxx
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	if h.replayService == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "outbox delivery is not enabled"})
		return
	}

	idStr := c.Query("id")
	if idStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id parameter"})
		return
	}

	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return
	}

	if err := h.replayService.ReplayEvent(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, outbox.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		h.logger.Error("Failed to replay event",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to replay event",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "replayed",
		"event_id": eventID,
	})
}

// ReplayFailedEvents 重放所有失败的事件
// POST /api/admin/outbox/replay-failed?limit=100
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	if h.replayService == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "outbox delivery is not enabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	successCount, err := h.replayService.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to replay failed events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to replay failed events",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "completed",
		"success_count": successCount,
		"limit":         limit,
	})
}
