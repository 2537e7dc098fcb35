package azdo

import (
	"context"
	"net/http"
	"net/url"

	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/rs/zerolog"
)

type iterationWorkItems struct {
	WorkItemRelations []struct {
		Rel    string `json:"rel"`
		Source *struct {
			ID int `json:"id"`
		} `json:"source"`
		Target *struct {
			ID  int    `json:"id"`
			URL string `json:"url"`
		} `json:"target"`
	} `json:"workItemRelations"`
}

// Sprints lists every iteration of the project's default team, unfiltered.
func (c *Client) Sprints(ctx context.Context) ([]domain.Sprint, error) {
	var res listResponse[domain.Sprint]
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/_apis/work/teamsettings/iterations", nil), "", nil, &res); err != nil {
		return nil, c.fail(err, "fetch sprints", "project "+c.project, nil)
	}
	if res.Value == nil {
		return []domain.Sprint{}, nil
	}
	return res.Value, nil
}

// SprintWorkItems resolves the iteration's work-item links, then fetches the
// linked items in one bulk call. Links without a target are skipped.
func (c *Client) SprintWorkItems(ctx context.Context, sprintID string) ([]domain.WorkItem, error) {
	if sprintID == "" {
		return nil, domain.Required("sprintId")
	}
	var refs iterationWorkItems
	u := c.apiURL("/_apis/work/teamsettings/iterations/"+url.PathEscape(sprintID)+"/workitems", nil)
	if err := c.doJSON(ctx, http.MethodGet, u, "", nil, &refs); err != nil {
		return nil, c.fail(err, "fetch sprint work items", "sprint "+sprintID, func(e *zerolog.Event) *zerolog.Event {
			return e.Str("sprint_id", sprintID)
		})
	}
	ids := make([]int, 0, len(refs.WorkItemRelations))
	for _, rel := range refs.WorkItemRelations {
		if rel.Target == nil || rel.Target.ID == 0 {
			continue
		}
		ids = append(ids, rel.Target.ID)
	}
	return c.workItemsByIDs(ctx, ids)
}

// CurrentSprintMetrics computes metrics for the first sprint whose time frame
// is "current". It returns nil, nil when there is none.
func (c *Client) CurrentSprintMetrics(ctx context.Context) (*domain.SprintMetrics, error) {
	sprints, err := c.Sprints(ctx)
	if err != nil {
		return nil, err
	}
	current := CurrentSprint(sprints)
	if current == nil {
		c.log.Info().Int("sprints", len(sprints)).Msg("no current sprint")
		return nil, nil
	}
	items, err := c.SprintWorkItems(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	m := CalculateSprintMetrics(*current, items)
	return &m, nil
}

// CurrentSprint trusts the tracker to flag a single sprint as current and
// takes the first match.
func CurrentSprint(sprints []domain.Sprint) *domain.Sprint {
	for i := range sprints {
		if sprints[i].Attributes.TimeFrame == domain.TimeFrameCurrent {
			return &sprints[i]
		}
	}
	return nil
}

// CalculateSprintMetrics is pure. Missing hour fields count as zero and
// velocity is the sprint's completed work.
func CalculateSprintMetrics(sprint domain.Sprint, items []domain.WorkItem) domain.SprintMetrics {
	m := domain.SprintMetrics{
		SprintID:   sprint.ID,
		SprintName: sprint.Name,
		TotalItems: len(items),
	}
	for _, wi := range items {
		switch wi.Fields.State {
		case "Done", "Closed":
			m.CompletedItems++
		case "Active", "In Progress":
			m.InProgressItems++
		}
		if wi.Fields.RemainingWork != nil {
			m.RemainingWork += *wi.Fields.RemainingWork
		}
		if wi.Fields.CompletedWork != nil {
			m.CompletedWork += *wi.Fields.CompletedWork
		}
	}
	m.Velocity = m.CompletedWork
	return m
}
