package api

import (
	"net/http"

	"github.com/daftuyda/Igris/internal/service"
	"github.com/gin-gonic/gin"
)

func ListTasks(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := app.Service().ListTasks(c.Request.Context(), currentUserID(c))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to fetch tasks")
			return
		}
		HandleSuccess(c, app.Logger(), tasks, map[string]any{"count": len(tasks)})
	}
}

func GetTodayTasks(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := app.Service().TodayTasks(c.Request.Context(), currentUserID(c))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to fetch today's tasks")
			return
		}
		HandleSuccess(c, app.Logger(), view, nil)
	}
}

func PostTask(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid request")
			return
		}
		task, err := app.Service().CreateTask(c.Request.Context(), currentUserID(c), &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to create task")
			return
		}
		HandleCreated(c, app.Logger(), task)
	}
}

func PutTask(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid request")
			return
		}
		task, err := app.Service().UpdateTask(c.Request.Context(), currentUserID(c), c.Param("id"), &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to update task")
			return
		}
		HandleSuccess(c, app.Logger(), task, nil)
	}
}

func PostProgress(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.ProgressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid request: amount required")
			return
		}
		if err := service.Validate(&req); err != nil {
			HandleServiceError(c, app.Logger(), err, "Invalid progress")
			return
		}
		task, err := app.Service().AdjustCount(c.Request.Context(), currentUserID(c), c.Param("id"), req.Amount)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to update progress")
			return
		}
		HandleSuccess(c, app.Logger(), task, nil)
	}
}

func PostToggle(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := app.Service().ToggleTask(c.Request.Context(), currentUserID(c), c.Param("id"))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to toggle task")
			return
		}
		HandleSuccess(c, app.Logger(), task, nil)
	}
}

func DeleteTask(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Service().DeleteTask(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to delete task")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
