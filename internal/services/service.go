/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNoActiveSprint is returned by operations that need a current sprint.
var ErrNoActiveSprint = errors.New("no active sprint found")

// Operations is the operation set behind both the REST and the tool front
// ends. Implementations hold no per-call state.
type Operations interface {
	Sprints(ctx context.Context) ([]domain.Sprint, error)
	SprintWorkItems(ctx context.Context, sprintID string) ([]domain.WorkItem, error)
	// CurrentSprintMetrics returns nil, nil when no sprint is current.
	CurrentSprintMetrics(ctx context.Context) (*domain.SprintMetrics, error)

	CreateWorkItem(ctx context.Context, in domain.NewWorkItem) (*domain.WorkItem, error)
	GetWorkItem(ctx context.Context, id int) (*domain.WorkItem, error)
	UpdateWorkItem(ctx context.Context, id int, updates domain.FieldUpdates) (*domain.WorkItem, error)
	UpdateWorkItemState(ctx context.Context, id int, state string) (*domain.WorkItem, error)
	DeleteWorkItem(ctx context.Context, id int) (bool, error)
	AllTasks(ctx context.Context) ([]domain.WorkItem, error)

	Boards(ctx context.Context) ([]domain.Board, error)
	BoardColumns(ctx context.Context, boardID string) ([]domain.BoardColumn, error)

	AnalyzeSprint(ctx context.Context, req domain.AnalysisRequest) (*domain.AIAnalysisResult, error)
	AnalyzeCurrentSprint(ctx context.Context, extra string) (*domain.AIAnalysisResult, error)
	WorkItemRecommendations(ctx context.Context, wi domain.WorkItem) (string, error)

	RelayStatus(ctx context.Context) domain.RelayStatus
	RelayCommand(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error)
	RelayQuery(ctx context.Context, query string) (json.RawMessage, error)
}

type tracker interface {
	Sprints(ctx context.Context) ([]domain.Sprint, error)
	SprintWorkItems(ctx context.Context, sprintID string) ([]domain.WorkItem, error)
	CurrentSprintMetrics(ctx context.Context) (*domain.SprintMetrics, error)
	CreateWorkItem(ctx context.Context, in domain.NewWorkItem) (*domain.WorkItem, error)
	GetWorkItem(ctx context.Context, id int) (*domain.WorkItem, error)
	UpdateWorkItem(ctx context.Context, id int, updates domain.FieldUpdates) (*domain.WorkItem, error)
	UpdateWorkItemState(ctx context.Context, id int, state string) (*domain.WorkItem, error)
	DeleteWorkItem(ctx context.Context, id int) (bool, error)
	AllTasks(ctx context.Context) ([]domain.WorkItem, error)
	Boards(ctx context.Context) ([]domain.Board, error)
	BoardColumns(ctx context.Context, boardID string) ([]domain.BoardColumn, error)
}

type analyst interface {
	AnalyzeSprint(ctx context.Context, req domain.AnalysisRequest) (*domain.AIAnalysisResult, error)
	WorkItemRecommendations(ctx context.Context, wi domain.WorkItem) (string, error)
}

type relay interface {
	Enabled() bool
	Status(ctx context.Context) domain.RelayStatus
	SendCommand(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error)
	Query(ctx context.Context, query string) (json.RawMessage, error)
}

type Service struct {
	log   zerolog.Logger
	azdo  tracker
	llm   analyst
	relay relay
}

var _ Operations = (*Service)(nil)

func NewService(logger zerolog.Logger, azdo tracker, llm analyst, rl relay) *Service {
	return &Service{log: logger, azdo: azdo, llm: llm, relay: rl}
}

func (s *Service) Sprints(ctx context.Context) ([]domain.Sprint, error) {
	return s.azdo.Sprints(ctx)
}

func (s *Service) SprintWorkItems(ctx context.Context, sprintID string) ([]domain.WorkItem, error) {
	if strings.TrimSpace(sprintID) == "" {
		return nil, domain.Required("sprintId")
	}
	return s.azdo.SprintWorkItems(ctx, sprintID)
}

func (s *Service) CurrentSprintMetrics(ctx context.Context) (*domain.SprintMetrics, error) {
	return s.azdo.CurrentSprintMetrics(ctx)
}

func (s *Service) CreateWorkItem(ctx context.Context, in domain.NewWorkItem) (*domain.WorkItem, error) {
	if strings.TrimSpace(in.Type) == "" {
		return nil, domain.Required("type")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.Required("title")
	}
	return s.azdo.CreateWorkItem(ctx, in)
}

func (s *Service) GetWorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	return s.azdo.GetWorkItem(ctx, id)
}

func (s *Service) UpdateWorkItem(ctx context.Context, id int, updates domain.FieldUpdates) (*domain.WorkItem, error) {
	if updates.Len() == 0 {
		return nil, domain.Required("updates")
	}
	return s.azdo.UpdateWorkItem(ctx, id, updates)
}

func (s *Service) UpdateWorkItemState(ctx context.Context, id int, state string) (*domain.WorkItem, error) {
	if strings.TrimSpace(state) == "" {
		return nil, domain.Required("state")
	}
	return s.azdo.UpdateWorkItemState(ctx, id, state)
}

func (s *Service) DeleteWorkItem(ctx context.Context, id int) (bool, error) {
	return s.azdo.DeleteWorkItem(ctx, id)
}

func (s *Service) AllTasks(ctx context.Context) ([]domain.WorkItem, error) {
	return s.azdo.AllTasks(ctx)
}

func (s *Service) Boards(ctx context.Context) ([]domain.Board, error) {
	return s.azdo.Boards(ctx)
}

func (s *Service) BoardColumns(ctx context.Context, boardID string) ([]domain.BoardColumn, error) {
	if strings.TrimSpace(boardID) == "" {
		return nil, domain.Required("boardId")
	}
	return s.azdo.BoardColumns(ctx, boardID)
}

func (s *Service) AnalyzeSprint(ctx context.Context, req domain.AnalysisRequest) (*domain.AIAnalysisResult, error) {
	return s.llm.AnalyzeSprint(ctx, req)
}

// AnalyzeCurrentSprint gathers the current sprint's metrics and items and
// runs the analysis. Nothing is undone when a later step fails.
func (s *Service) AnalyzeCurrentSprint(ctx context.Context, extra string) (*domain.AIAnalysisResult, error) {
	metrics, err := s.azdo.CurrentSprintMetrics(ctx)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		return nil, ErrNoActiveSprint
	}
	items, err := s.azdo.SprintWorkItems(ctx, metrics.SprintID)
	if err != nil {
		return nil, err
	}
	return s.llm.AnalyzeSprint(ctx, domain.AnalysisRequest{SprintData: *metrics, WorkItems: items, Context: extra})
}

func (s *Service) WorkItemRecommendations(ctx context.Context, wi domain.WorkItem) (string, error) {
	return s.llm.WorkItemRecommendations(ctx, wi)
}

func (s *Service) RelayStatus(ctx context.Context) domain.RelayStatus {
	return s.relay.Status(ctx)
}

func (s *Service) RelayCommand(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error) {
	if strings.TrimSpace(command) == "" {
		return nil, domain.Required("command")
	}
	return s.relay.SendCommand(ctx, command, payload)
}

func (s *Service) RelayQuery(ctx context.Context, query string) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.Required("query")
	}
	return s.relay.Query(ctx, query)
}
