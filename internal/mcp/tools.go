package mcp

import (
	"context"
	"time"

	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/google/jsonschema-go/jsonschema"
)

type sprintSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	FinishDate *time.Time `json:"finishDate,omitempty"`
	TimeFrame  string     `json:"timeFrame"`
}

type itemSummary struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	State         string   `json:"state"`
	Type          string   `json:"type"`
	AssignedTo    string   `json:"assignedTo,omitempty"`
	RemainingWork *float64 `json:"remainingWork,omitempty"`
}

type itemList struct {
	Count int           `json:"count"`
	Items []itemSummary `json:"items"`
}

type itemRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	State string `json:"state"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

type itemDetail struct {
	itemSummary
	Description   string   `json:"description,omitempty"`
	IterationPath string   `json:"iterationPath,omitempty"`
	CompletedWork *float64 `json:"completedWork,omitempty"`
}

type columnSummary struct {
	Name       string `json:"name"`
	ItemLimit  int    `json:"itemLimit"`
	ColumnType string `json:"columnType"`
}

func summarize(w domain.WorkItem) itemSummary {
	return itemSummary{
		ID:            w.ID,
		Title:         w.Fields.Title,
		State:         w.Fields.State,
		Type:          w.Fields.WorkItemType,
		AssignedTo:    w.AssigneeName(),
		RemainingWork: w.Fields.RemainingWork,
	}
}

func listOf(items []domain.WorkItem) itemList {
	out := itemList{Count: len(items), Items: make([]itemSummary, 0, len(items))}
	for _, w := range items {
		out.Items = append(out.Items, summarize(w))
	}
	return out
}

func refOf(w *domain.WorkItem) itemRef {
	return itemRef{ID: w.ID, Title: w.Fields.Title, State: w.Fields.State, Type: w.Fields.WorkItemType, URL: w.URL}
}

func str(desc string) *jsonschema.Schema { return &jsonschema.Schema{Type: "string", Description: desc} }

func (s *Server) catalog() []tool {
	return []tool{
		{
			name:        "get_sprints",
			description: "List all sprints (iterations) of the project's default team.",
			call: func(ctx context.Context, _ arguments) (any, error) {
				sprints, err := s.ops.Sprints(ctx)
				if err != nil {
					return nil, err
				}
				out := make([]sprintSummary, 0, len(sprints))
				for _, sp := range sprints {
					out = append(out, sprintSummary{
						ID: sp.ID, Name: sp.Name, Path: sp.Path,
						StartDate: sp.Attributes.StartDate, FinishDate: sp.Attributes.FinishDate,
						TimeFrame: sp.Attributes.TimeFrame,
					})
				}
				return out, nil
			},
		},
		{
			name:        "get_sprint_work_items",
			description: "List the work items assigned to a sprint.",
			properties:  map[string]*jsonschema.Schema{"sprintId": str("Sprint (iteration) id")},
			required:    []string{"sprintId"},
			call: func(ctx context.Context, a arguments) (any, error) {
				id, err := a.str("sprintId")
				if err != nil {
					return nil, err
				}
				items, err := s.ops.SprintWorkItems(ctx, id)
				if err != nil {
					return nil, err
				}
				return listOf(items), nil
			},
		},
		{
			name:        "get_current_sprint_metrics",
			description: "Compute item counts, work hours and velocity for the current sprint.",
			call: func(ctx context.Context, _ arguments) (any, error) {
				m, err := s.ops.CurrentSprintMetrics(ctx)
				if err != nil {
					return nil, err
				}
				if m == nil {
					return noticeText(noActiveSprint), nil
				}
				return m, nil
			},
		},
		{
			name:        "create_work_item",
			description: "Create a work item such as a Task, Bug or User Story.",
			properties: map[string]*jsonschema.Schema{
				"type":        str("Work item type, e.g. Task, Bug, User Story"),
				"title":       str("Title"),
				"description": str("Optional HTML description"),
				"assignedTo":  str("Optional assignee (display name or email)"),
			},
			required: []string{"type", "title"},
			call: func(ctx context.Context, a arguments) (any, error) {
				var in domain.NewWorkItem
				var err error
				if in.Type, err = a.str("type"); err != nil {
					return nil, err
				}
				if in.Title, err = a.str("title"); err != nil {
					return nil, err
				}
				if in.Description, err = a.str("description"); err != nil {
					return nil, err
				}
				if in.AssignedTo, err = a.str("assignedTo"); err != nil {
					return nil, err
				}
				wi, err := s.ops.CreateWorkItem(ctx, in)
				if err != nil {
					return nil, err
				}
				return refOf(wi), nil
			},
		},
		{
			name:        "get_work_item",
			description: "Fetch one work item by id.",
			properties:  map[string]*jsonschema.Schema{"id": {Type: "number", Description: "Work item id"}},
			required:    []string{"id"},
			call: func(ctx context.Context, a arguments) (any, error) {
				id, err := a.id("id")
				if err != nil {
					return nil, err
				}
				wi, err := s.ops.GetWorkItem(ctx, id)
				if err != nil {
					return nil, err
				}
				return itemDetail{
					itemSummary:   summarize(*wi),
					Description:   wi.Fields.Description,
					IterationPath: wi.Fields.IterationPath,
					CompletedWork: wi.Fields.CompletedWork,
				}, nil
			},
		},
		{
			name:        "update_work_item",
			description: "Update fields of a work item. Keys are field reference names such as System.State.",
			properties: map[string]*jsonschema.Schema{
				"id": {Type: "number", Description: "Work item id"},
				"updates": {
					Type:                 "object",
					Description:          "Field reference name to new value",
					AdditionalProperties: &jsonschema.Schema{Types: []string{"string", "number", "null"}},
				},
			},
			required: []string{"id", "updates"},
			call: func(ctx context.Context, a arguments) (any, error) {
				id, err := a.id("id")
				if err != nil {
					return nil, err
				}
				u, err := a.updates("updates")
				if err != nil {
					return nil, err
				}
				wi, err := s.ops.UpdateWorkItem(ctx, id, u)
				if err != nil {
					return nil, err
				}
				return refOf(wi), nil
			},
		},
		{
			name:        "analyze_sprint",
			description: "Run an AI analysis of the current sprint: impact, risks, release readiness and guidelines.",
			properties:  map[string]*jsonschema.Schema{"context": str("Optional extra context for the analysis")},
			call: func(ctx context.Context, a arguments) (any, error) {
				extra, err := a.str("context")
				if err != nil {
					return nil, err
				}
				res, err := s.ops.AnalyzeCurrentSprint(ctx, extra)
				if noSprint(err) {
					return noticeText(noActiveSprint), nil
				}
				if err != nil {
					return nil, err
				}
				return res, nil
			},
		},
		{
			name:        "get_all_tasks",
			description: "List the project's Task work items, newest first.",
			call: func(ctx context.Context, _ arguments) (any, error) {
				items, err := s.ops.AllTasks(ctx)
				if err != nil {
					return nil, err
				}
				return listOf(items), nil
			},
		},
		{
			name:        "get_boards",
			description: "List the team's boards.",
			call: func(ctx context.Context, _ arguments) (any, error) {
				return s.ops.Boards(ctx)
			},
		},
		{
			name:        "get_board_columns",
			description: "List the columns of a board.",
			properties:  map[string]*jsonschema.Schema{"boardId": str("Board id or name")},
			required:    []string{"boardId"},
			call: func(ctx context.Context, a arguments) (any, error) {
				id, err := a.str("boardId")
				if err != nil {
					return nil, err
				}
				cols, err := s.ops.BoardColumns(ctx, id)
				if err != nil {
					return nil, err
				}
				out := make([]columnSummary, 0, len(cols))
				for _, c := range cols {
					out = append(out, columnSummary{Name: c.Name, ItemLimit: c.ItemLimit, ColumnType: c.ColumnType})
				}
				return out, nil
			},
		},
	}
}
