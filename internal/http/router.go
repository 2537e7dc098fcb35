/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/HamedShams/devops-pulse/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

func NewRouter(cfg config.Config, log zerolog.Logger, svc services.Operations) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().
			Str("rid", c.GetString("request_id")).
			Str("m", c.Request.Method).
			Str("p", c.FullPath()).
			Int("s", c.Writer.Status()).
			Msg("http")
	})

	h := NewHandlers(cfg, log, svc)

	r.GET("/", h.Info)
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/sprints", h.Sprints)
	api.GET("/sprints/current/metrics", h.CurrentSprintMetrics)
	api.GET("/sprints/:id/workitems", h.SprintWorkItems)

	api.POST("/workitems", h.CreateWorkItem)
	api.GET("/workitems/:id", h.GetWorkItem)
	api.PATCH("/workitems/:id", h.UpdateWorkItem)
	api.PATCH("/workitems/:id/state", h.UpdateWorkItemState)
	api.DELETE("/workitems/:id", h.DeleteWorkItem)
	api.GET("/tasks", h.AllTasks)

	api.GET("/boards", h.Boards)
	api.GET("/boards/:id/columns", h.BoardColumns)

	api.POST("/ai/analyze-sprint", h.AnalyzeSprint)
	api.POST("/ai/workitem-recommendations", h.WorkItemRecommendations)

	api.GET("/mcp/status", h.RelayStatus)
	api.POST("/mcp/command", h.RelayCommand)
	api.POST("/mcp/query", h.RelayQuery)

	r.NoRoute(h.NotFound)
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
