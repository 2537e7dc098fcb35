package domain

import (
	"encoding/json"
	"time"
)

// Azure DevOps field reference names used by this service.
const (
	FieldTitle         = "System.Title"
	FieldState         = "System.State"
	FieldWorkItemType  = "System.WorkItemType"
	FieldAssignedTo    = "System.AssignedTo"
	FieldDescription   = "System.Description"
	FieldIterationPath = "System.IterationPath"
	FieldRemainingWork = "Microsoft.VSTS.Scheduling.RemainingWork"
	FieldCompletedWork = "Microsoft.VSTS.Scheduling.CompletedWork"
)

const (
	TimeFramePast    = "past"
	TimeFrameCurrent = "current"
	TimeFrameFuture  = "future"
)

type Identity struct {
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName,omitempty"`
	ID          string `json:"id,omitempty"`
}

type WorkItemFields struct {
	Title         string     `json:"System.Title"`
	State         string     `json:"System.State"`
	WorkItemType  string     `json:"System.WorkItemType"`
	AssignedTo    *Identity  `json:"System.AssignedTo,omitempty"`
	Description   string     `json:"System.Description,omitempty"`
	RemainingWork *float64   `json:"Microsoft.VSTS.Scheduling.RemainingWork,omitempty"`
	CompletedWork *float64   `json:"Microsoft.VSTS.Scheduling.CompletedWork,omitempty"`
	IterationPath string     `json:"System.IterationPath,omitempty"`
	CreatedDate   *time.Time `json:"System.CreatedDate,omitempty"`
}

type WorkItem struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev,omitempty"`
	Fields WorkItemFields `json:"fields"`
	URL    string         `json:"url,omitempty"`
}

func (w WorkItem) AssigneeName() string {
	if w.Fields.AssignedTo == nil {
		return ""
	}
	return w.Fields.AssignedTo.DisplayName
}

// NewWorkItem is the input of a create call. Description and AssignedTo are
// sent only when non-empty.
type NewWorkItem struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssignedTo  string `json:"assignedTo,omitempty"`
}

type SprintAttributes struct {
	StartDate  *time.Time `json:"startDate,omitempty"`
	FinishDate *time.Time `json:"finishDate,omitempty"`
	TimeFrame  string     `json:"timeFrame"`
}

type Sprint struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Path       string           `json:"path"`
	Attributes SprintAttributes `json:"attributes"`
	URL        string           `json:"url,omitempty"`
}

// SprintMetrics is derived on every request. Velocity is the completed work
// of this sprint alone, not a rolling average.
type SprintMetrics struct {
	SprintID        string  `json:"sprintId"`
	SprintName      string  `json:"sprintName"`
	TotalItems      int     `json:"totalWorkItems"`
	CompletedItems  int     `json:"completedWorkItems"`
	InProgressItems int     `json:"inProgressWorkItems"`
	RemainingWork   float64 `json:"remainingWork"`
	CompletedWork   float64 `json:"completedWork"`
	Velocity        float64 `json:"velocity"`
}

type AIAnalysisResult struct {
	Impact           string   `json:"impact"`
	Recommendations  []string `json:"recommendations"`
	RiskLevel        string   `json:"riskLevel"`
	ReleaseReadiness bool     `json:"releaseReadiness"`
	Guidelines       []string `json:"guidelines"`
}

type AnalysisRequest struct {
	SprintData SprintMetrics `json:"sprintData"`
	WorkItems  []WorkItem    `json:"workItems"`
	Context    string        `json:"context,omitempty"`
}

type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type BoardColumn struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	ItemLimit     int               `json:"itemLimit"`
	StateMappings map[string]string `json:"stateMappings"`
	ColumnType    string            `json:"columnType"`
	IsSplit       *bool             `json:"isSplit,omitempty"`
	Description   string            `json:"description,omitempty"`
}

const (
	RelayCommand  = "command"
	RelayQuery    = "query"
	RelayResponse = "response"
)

// RelayMessage is the envelope posted to the control-point relay. Payload is
// opaque to this service.
type RelayMessage struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

type RelayStatus struct {
	Enabled bool   `json:"enabled"`
	Online  bool   `json:"online"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}
