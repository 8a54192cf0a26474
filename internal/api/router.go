// Package api is the admin REST surface over the tracker, planner and notebook.
package api

import (
	"github.com/gin-gonic/gin"

	"habitbot/pkg/rbac"
)

type Handlers struct {
	Auth      *AuthHandler
	Habits    *HabitHandler
	Schedules *ScheduleHandler
	Notes     *NoteHandler
	Admin     *AdminHandler
}

// Register mounts POST /auth/token and the protected /api group on r.
func Register(r *gin.Engine, h Handlers, jwtSecret string) {
	// Public
	r.POST("/auth/token", h.Auth.Token)

	// Protected
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		read := RequirePermission(rbac.PermissionReadHabits)
		write := RequirePermission(rbac.PermissionWriteHabits)
		api.GET("/habits", read, h.Habits.List)
		api.POST("/habits", write, h.Habits.Create)
		api.DELETE("/habits/:id", write, h.Habits.Delete)
		api.POST("/habits/:id/done", write, h.Habits.Done)
		api.GET("/habits/:id/stats", read, h.Habits.Stats)

		read = RequirePermission(rbac.PermissionReadSchedules)
		write = RequirePermission(rbac.PermissionWriteSchedules)
		api.GET("/schedules", read, h.Schedules.List)
		api.GET("/schedules/:day", read, h.Schedules.Get)
		api.PUT("/schedules/:day", write, h.Schedules.Put)
		api.DELETE("/schedules/:day", write, h.Schedules.Delete)

		read = RequirePermission(rbac.PermissionReadNotes)
		write = RequirePermission(rbac.PermissionWriteNotes)
		api.GET("/notes", read, h.Notes.List)
		api.POST("/notes", write, h.Notes.Create)
		api.DELETE("/notes/:id", write, h.Notes.Delete)
		api.POST("/notes/cleanup", write, h.Notes.Cleanup)

		api.GET("/digest", RequirePermission(rbac.PermissionReadHabits), h.Admin.Digest)
		api.POST("/jobs/:name/run", RequirePermission(rbac.PermissionRunJobs), h.Admin.RunJob)

		replay := RequirePermission(rbac.PermissionReplayOutbox)
		api.POST("/admin/outbox/replay", replay, h.Admin.ReplayOutboxEvent)
		api.POST("/admin/outbox/replay-failed", replay, h.Admin.ReplayFailedEvents)
	}
}
