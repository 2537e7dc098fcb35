/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/HamedShams/devops-pulse/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const version = "1.0.0"

type Handlers struct {
	cfg     config.Config
	log     zerolog.Logger
	svc     services.Operations
	started time.Time
	now     func() time.Time
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc services.Operations) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, started: time.Now(), now: time.Now}
}

func (h *Handlers) ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "timestamp": h.now().UnixMilli()})
}

// fail writes the error envelope. Validation failures are 400, everything
// else 500.
func (h *Handlers) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	if domain.IsValidation(err) {
		code = http.StatusBadRequest
	} else {
		h.log.Error().Err(err).Str("rid", c.GetString("request_id")).Str("p", c.FullPath()).Msg("request failed")
	}
	c.JSON(code, gin.H{"success": false, "error": err.Error(), "timestamp": h.now().UnixMilli()})
}

// bind decodes the JSON body and turns binding failures into validation errors.
func bind(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0].Field()
		return domain.Required(strings.ToLower(f[:1]) + f[1:])
	}
	return &domain.ValidationError{Field: "body", Reason: err.Error()}
}

func pathID(c *gin.Context) (int, error) {
	raw := c.Param("id")
	if raw == "" {
		return 0, domain.Required("id")
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: "id", Reason: "must be an integer"}
	}
	return id, nil
}

func (h *Handlers) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "devops-pulse",
		"version":     version,
		"description": "Azure DevOps sprint metrics and AI analysis proxy",
		"endpoints": gin.H{
			"health":    "/health",
			"sprints":   "/api/sprints",
			"metrics":   "/api/sprints/current/metrics",
			"workitems": "/api/workitems",
			"tasks":     "/api/tasks",
			"boards":    "/api/boards",
			"ai":        "/api/ai",
			"relay":     "/api/mcp",
		},
	})
}

func (h *Handlers) Health(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   now.UTC().Format(time.RFC3339),
		"uptime":      now.Sub(h.started).Seconds(),
		"environment": h.cfg.AppEnv,
	})
}

func (h *Handlers) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Route not found", "timestamp": h.now().UnixMilli()})
}

func (h *Handlers) Sprints(c *gin.Context) {
	out, err := h.svc.Sprints(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) SprintWorkItems(c *gin.Context) {
	out, err := h.svc.SprintWorkItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

// CurrentSprintMetrics answers with data null when no sprint is current.
func (h *Handlers) CurrentSprintMetrics(c *gin.Context) {
	out, err := h.svc.CurrentSprintMetrics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

type createWorkItemRequest struct {
	WorkItemType string `json:"workItemType"`
	Type         string `json:"type"`
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	AssignedTo   string `json:"assignedTo"`
}

func (h *Handlers) CreateWorkItem(c *gin.Context) {
	var req createWorkItemRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	typ := req.WorkItemType
	if typ == "" {
		typ = req.Type
	}
	if typ == "" {
		h.fail(c, domain.Required("workItemType"))
		return
	}
	out, err := h.svc.CreateWorkItem(c.Request.Context(), domain.NewWorkItem{
		Type: typ, Title: req.Title, Description: req.Description, AssignedTo: req.AssignedTo,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) GetWorkItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.GetWorkItem(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) UpdateWorkItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req struct {
		Updates domain.FieldUpdates `json:"updates"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.UpdateWorkItem(c.Request.Context(), id, req.Updates)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) UpdateWorkItemState(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.UpdateWorkItemState(c.Request.Context(), id, req.State)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) DeleteWorkItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	deleted, err := h.svc.DeleteWorkItem(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": deleted})
}

func (h *Handlers) AllTasks(c *gin.Context) {
	out, err := h.svc.AllTasks(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) Boards(c *gin.Context) {
	out, err := h.svc.Boards(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) BoardColumns(c *gin.Context) {
	out, err := h.svc.BoardColumns(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

type analyzeSprintRequest struct {
	SprintData *domain.SprintMetrics `json:"sprintData" binding:"required"`
	WorkItems  []domain.WorkItem     `json:"workItems" binding:"required"`
	Context    string                `json:"context"`
}

func (h *Handlers) AnalyzeSprint(c *gin.Context) {
	var req analyzeSprintRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.AnalyzeSprint(c.Request.Context(), domain.AnalysisRequest{
		SprintData: *req.SprintData, WorkItems: req.WorkItems, Context: req.Context,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) WorkItemRecommendations(c *gin.Context) {
	var req struct {
		WorkItem *domain.WorkItem `json:"workItem" binding:"required"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.WorkItemRecommendations(c.Request.Context(), *req.WorkItem)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) RelayStatus(c *gin.Context) {
	h.ok(c, h.svc.RelayStatus(c.Request.Context()))
}

func (h *Handlers) RelayCommand(c *gin.Context) {
	var req struct {
		Command string          `json:"command" binding:"required"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.RelayCommand(c.Request.Context(), req.Command, req.Payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}

func (h *Handlers) RelayQuery(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.RelayQuery(c.Request.Context(), req.Query)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, out)
}
