package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitbot/internal/model"
	"habitbot/internal/service"
)

type HabitHandler struct {
	tracker *service.Tracker
	logger  *zap.Logger
}

func NewHabitHandler(tracker *service.Tracker, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{tracker: tracker, logger: logger}
}

type habitView struct {
	model.Habit
	Stats model.HabitStats `json:"stats"`
}

// List handles GET /api/habits
func (h *HabitHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	habits, err := h.tracker.ListHabits(ctx)
	if err != nil {
		writeError(c, h.logger, "list habits", err)
		return
	}
	stats, err := h.tracker.AllStats(ctx, habits)
	if err != nil {
		writeError(c, h.logger, "habit stats", err)
		return
	}

	out := make([]habitView, 0, len(habits))
	for _, hb := range habits {
		out = append(out, habitView{Habit: hb, Stats: stats[hb.ID]})
	}
	c.JSON(http.StatusOK, gin.H{"habits": out})
}

// Create handles POST /api/habits
func (h *HabitHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id, err := h.tracker.AddHabit(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, h.logger, "add habit", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Delete handles DELETE /api/habits/:id
func (h *HabitHandler) Delete(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	deleted, err := h.tracker.DeleteHabit(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "delete habit", err)
		return
	}
	if !deleted {
		writeError(c, h.logger, "delete habit", model.NotFound("habit", id))
		return
	}
	c.Status(http.StatusNoContent)
}

// Done handles POST /api/habits/:id/done with an optional {"date": "YYYY-MM-DD"} body.
// Without a date the completion is recorded for today.
func (h *HabitHandler) Done(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	ctx := c.Request.Context()
	var (
		recorded bool
		err      error
	)
	if req.Date == "" {
		recorded, err = h.tracker.MarkDoneToday(ctx, id)
	} else {
		day, perr := model.ParseDate(req.Date)
		if perr != nil {
			writeError(c, h.logger, "mark done", model.Validationf("invalid date %q", req.Date))
			return
		}
		recorded, err = h.tracker.MarkDone(ctx, id, day)
	}
	if err != nil {
		writeError(c, h.logger, "mark done", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": recorded})
}

// Stats handles GET /api/habits/:id/stats[?on=YYYY-MM-DD]
func (h *HabitHandler) Stats(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var (
		st  model.HabitStats
		err error
	)
	if on := c.Query("on"); on != "" {
		day, perr := model.ParseDate(on)
		if perr != nil {
			writeError(c, h.logger, "habit stats", model.Validationf("invalid date %q", on))
			return
		}
		st, err = h.tracker.StatsOn(ctx, id, day)
	} else {
		st, err = h.tracker.HabitStats(ctx, id)
	}
	if err != nil {
		writeError(c, h.logger, "habit stats", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
