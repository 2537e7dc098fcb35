/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package azdo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/rs/zerolog"
)

const (
	contentJSON      = "application/json"
	contentJSONPatch = "application/json-patch+json"

	// MaxBulkIDs caps the ids sent in one bulk work-item fetch.
	MaxBulkIDs = 200
)

// Client talks to the Azure DevOps work-item, iteration and board APIs of a
// single project. No client timeout and no retries: a failed call fails the
// request that issued it.
type Client struct {
	orgURL     string
	project    string
	token      string
	apiVersion string
	http       *http.Client
	log        zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		orgURL:     strings.TrimRight(cfg.AzureOrgURL, "/"),
		project:    cfg.AzureProject,
		token:      cfg.AzurePAT,
		apiVersion: cfg.AzureAPIVersion,
		http:       &http.Client{},
		log:        log.With().Str("component", "azdo").Logger(),
	}
}

// patchOp is one JSON Patch operation on a work item.
type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type wiqlResult struct {
	WorkItems []struct {
		ID  int    `json:"id"`
		URL string `json:"url"`
	} `json:"workItems"`
}

type listResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

// apiURL joins segments under {org}/{project}; segments are escaped by the caller.
func (c *Client) apiURL(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api-version", c.apiVersion)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.orgURL + "/" + url.PathEscape(c.project) + path + "?" + q.Encode()
}

// doJSON performs one call and decodes a 2xx body into out (if non-nil).
// Anything else comes back as *domain.RemoteCallError with Op left for the
// caller to fill in.
func (c *Client) doJSON(ctx context.Context, method, u, contentType string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &domain.RemoteCallError{Service: "azure devops", Err: err}
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return &domain.RemoteCallError{Service: "azure devops", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", contentJSON)
	req.SetBasicAuth("", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.RemoteCallError{Service: "azure devops", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &domain.RemoteCallError{
			Service:    "azure devops",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(b)),
			Message:    remoteMessage(b, resp.Status),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return &domain.RemoteCallError{Service: "azure devops", StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// remoteMessage pulls the "message" member Azure DevOps puts in error bodies.
func remoteMessage(body []byte, status string) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return status
}

// fail stamps op and detail onto err, logs it with the remote context and
// returns it.
func (c *Client) fail(err error, op, detail string, ev func(*zerolog.Event) *zerolog.Event) error {
	rerr, ok := err.(*domain.RemoteCallError)
	if !ok {
		rerr = &domain.RemoteCallError{Service: "azure devops", Err: err}
	}
	rerr.Op = op
	rerr.Detail = detail
	e := c.log.Error().
		Int("status", rerr.StatusCode).
		Str("status_text", rerr.Status).
		Str("body", rerr.Body).
		Str("message", rerr.Message).
		AnErr("cause", rerr.Err)
	if ev != nil {
		e = ev(e)
	}
	e.Msg(op + " failed")
	return rerr
}

func (c *Client) CreateWorkItem(ctx context.Context, in domain.NewWorkItem) (*domain.WorkItem, error) {
	if strings.TrimSpace(in.Type) == "" {
		return nil, domain.Required("type")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.Required("title")
	}
	ops := []patchOp{{Op: "add", Path: "/fields/" + domain.FieldTitle, Value: in.Title}}
	if in.Description != "" {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/" + domain.FieldDescription, Value: in.Description})
	}
	if in.AssignedTo != "" {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/" + domain.FieldAssignedTo, Value: in.AssignedTo})
	}
	// type names such as "User Story" contain spaces
	u := c.apiURL("/_apis/wit/workitems/$"+url.PathEscape(in.Type), nil)
	var out domain.WorkItem
	if err := c.doJSON(ctx, http.MethodPost, u, contentJSONPatch, ops, &out); err != nil {
		return nil, c.fail(err, "create work item", fmt.Sprintf("type %q", in.Type), func(e *zerolog.Event) *zerolog.Event {
			return e.Str("type", in.Type).Str("title", in.Title)
		})
	}
	c.log.Info().Int("id", out.ID).Str("type", in.Type).Msg("work item created")
	return &out, nil
}

func (c *Client) UpdateWorkItem(ctx context.Context, id int, updates domain.FieldUpdates) (*domain.WorkItem, error) {
	if updates.Len() == 0 {
		return nil, domain.Required("updates")
	}
	ops := make([]patchOp, 0, updates.Len())
	updates.Each(func(name string, v domain.FieldValue) {
		ops = append(ops, patchOp{Op: "replace", Path: "/fields/" + name, Value: v.Any()})
	})
	u := c.apiURL("/_apis/wit/workitems/"+strconv.Itoa(id), nil)
	var out domain.WorkItem
	if err := c.doJSON(ctx, http.MethodPatch, u, contentJSONPatch, ops, &out); err != nil {
		raw, _ := json.Marshal(updates)
		return nil, c.fail(err, "update work item", fmt.Sprintf("id %d", id), func(e *zerolog.Event) *zerolog.Event {
			return e.Int("id", id).RawJSON("updates", raw)
		})
	}
	return &out, nil
}

func (c *Client) UpdateWorkItemState(ctx context.Context, id int, state string) (*domain.WorkItem, error) {
	if strings.TrimSpace(state) == "" {
		return nil, domain.Required("state")
	}
	return c.UpdateWorkItem(ctx, id, domain.NewFieldUpdates().With(domain.FieldState, domain.StringValue(state)))
}

func (c *Client) DeleteWorkItem(ctx context.Context, id int) (bool, error) {
	u := c.apiURL("/_apis/wit/workitems/"+strconv.Itoa(id), nil)
	if err := c.doJSON(ctx, http.MethodDelete, u, "", nil, nil); err != nil {
		return false, c.fail(err, "delete work item", fmt.Sprintf("id %d", id), func(e *zerolog.Event) *zerolog.Event {
			return e.Int("id", id)
		})
	}
	c.log.Info().Int("id", id).Msg("work item deleted")
	return true, nil
}

func (c *Client) GetWorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	u := c.apiURL("/_apis/wit/workitems/"+strconv.Itoa(id), nil)
	var out domain.WorkItem
	if err := c.doJSON(ctx, http.MethodGet, u, "", nil, &out); err != nil {
		return nil, c.fail(err, "get work item", fmt.Sprintf("id %d", id), func(e *zerolog.Event) *zerolog.Event {
			return e.Int("id", id)
		})
	}
	return &out, nil
}

// AllTasks returns the project's Task items, newest first, capped at MaxBulkIDs.
func (c *Client) AllTasks(ctx context.Context) ([]domain.WorkItem, error) {
	query := fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.WorkItemType] = 'Task' AND [System.TeamProject] = '%s' ORDER BY [System.CreatedDate] DESC",
		strings.ReplaceAll(c.project, "'", "''"),
	)
	var res wiqlResult
	if err := c.doJSON(ctx, http.MethodPost, c.apiURL("/_apis/wit/wiql", nil), contentJSON, map[string]string{"query": query}, &res); err != nil {
		return nil, c.fail(err, "query tasks", "project "+c.project, func(e *zerolog.Event) *zerolog.Event {
			return e.Str("wiql", query)
		})
	}
	ids := make([]int, 0, len(res.WorkItems))
	for _, wi := range res.WorkItems {
		ids = append(ids, wi.ID)
	}
	if len(ids) > MaxBulkIDs {
		ids = ids[:MaxBulkIDs]
	}
	return c.workItemsByIDs(ctx, ids)
}

// workItemsByIDs is the single bulk fetch shared by task and sprint listings.
// An empty id list never reaches the API, which rejects it.
func (c *Client) workItemsByIDs(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	if len(ids) == 0 {
		return []domain.WorkItem{}, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))
	var res listResponse[domain.WorkItem]
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/_apis/wit/workitems", q), "", nil, &res); err != nil {
		return nil, c.fail(err, "fetch work items", fmt.Sprintf("%d ids", len(ids)), func(e *zerolog.Event) *zerolog.Event {
			return e.Ints("ids", ids)
		})
	}
	if res.Value == nil {
		return []domain.WorkItem{}, nil
	}
	return res.Value, nil
}
