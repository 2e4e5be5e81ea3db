package api

import (
	"net/http"

	"github.com/daftuyda/Igris/internal/auth"
	"github.com/gin-gonic/gin"
)

func NewRouter(app App, provider auth.Provider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), RequestLogger(app.Logger()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", auth.AuthMiddleware(provider, app.Logger()))
	api.GET("/profile", GetProfile(app))
	api.GET("/level", GetLevel(app))
	api.GET("/xp-log", GetXPLog(app))
	api.PUT("/timezone", PutTimezone(app))
	api.POST("/evaluate", PostEvaluate(app))

	api.GET("/tasks", ListTasks(app))
	api.GET("/tasks/today", GetTodayTasks(app))
	api.POST("/tasks", PostTask(app))
	api.PUT("/tasks/:id", PutTask(app))
	api.POST("/tasks/:id/progress", PostProgress(app))
	api.POST("/tasks/:id/toggle", PostToggle(app))
	api.DELETE("/tasks/:id", DeleteTask(app))

	return r
}
