package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitbot/internal/model"
	"habitbot/internal/service"
)

type ScheduleHandler struct {
	planner *service.Planner
	logger  *zap.Logger
}

func NewScheduleHandler(planner *service.Planner, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{planner: planner, logger: logger}
}

// List handles GET /api/schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	entries, err := h.planner.ListAllSchedules(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "list schedules", err)
		return
	}
	if entries == nil {
		entries = []model.ScheduleEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"schedules": entries, "today": h.planner.Today()})
}

// Get handles GET /api/schedules/:day
func (h *ScheduleHandler) Get(c *gin.Context) {
	day, ok := intParam(c, "day")
	if !ok {
		return
	}

	text, found, err := h.planner.GetScheduleForDay(c.Request.Context(), day)
	if err != nil {
		writeError(c, h.logger, "get schedule", err)
		return
	}
	if !found {
		writeError(c, h.logger, "get schedule", model.NotFound("schedule for day", day))
		return
	}
	c.JSON(http.StatusOK, model.ScheduleEntry{DayOfWeek: day, Text: text})
}

// Put handles PUT /api/schedules/:day
func (h *ScheduleHandler) Put(c *gin.Context) {
	day, ok := intParam(c, "day")
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.planner.SetScheduleForDay(c.Request.Context(), day, req.Text); err != nil {
		writeError(c, h.logger, "set schedule", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/schedules/:day
func (h *ScheduleHandler) Delete(c *gin.Context) {
	day, ok := intParam(c, "day")
	if !ok {
		return
	}

	deleted, err := h.planner.DeleteScheduleForDay(c.Request.Context(), day)
	if err != nil {
		writeError(c, h.logger, "delete schedule", err)
		return
	}
	if !deleted {
		writeError(c, h.logger, "delete schedule", model.NotFound("schedule for day", day))
		return
	}
	c.Status(http.StatusNoContent)
}
