package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method      string
	Path        string
	RequestURI  string
	Query       string
	ContentType string
	Body        string
	User, Pass  string
}

type fakeDevOps struct {
	mu     sync.Mutex
	calls  []recorded
	routes map[string]http.HandlerFunc // "METHOD /path"
}

func (f *fakeDevOps) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	user, pass, _ := r.BasicAuth()
	f.mu.Lock()
	f.calls = append(f.calls, recorded{
		Method: r.Method, Path: r.URL.Path, RequestURI: r.RequestURI, Query: r.URL.RawQuery,
		ContentType: r.Header.Get("Content-Type"), Body: string(b), User: user, Pass: pass,
	})
	f.mu.Unlock()
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no route ` + r.URL.Path + `"}`))
		return
	}
	h(w, r)
}

func (f *fakeDevOps) callsTo(method, path string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, routes map[string]http.HandlerFunc) (*Client, *fakeDevOps) {
	t.Helper()
	fake := &fakeDevOps{routes: routes}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg := config.Config{
		AzureOrgURL:     srv.URL + "/org",
		AzureProject:    "proj",
		AzurePAT:        "pat-123",
		AzureAPIVersion: "7.0",
	}
	return NewClient(cfg, zerolog.Nop()), fake
}

func TestCreateWorkItem_EscapesTypeAndBuildsPatch(t *testing.T) {
	c, fake := newTestClient(t, map[string]http.HandlerFunc{
		"POST /org/proj/_apis/wit/workitems/$User Story": jsonHandler(200, `{"id":42,"rev":1,"fields":{"System.Title":"T","System.WorkItemType":"User Story"}}`),
	})

	wi, err := c.CreateWorkItem(context.Background(), domain.NewWorkItem{Type: "User Story", Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, 42, wi.ID)

	calls := fake.callsTo(http.MethodPost, "/org/proj/_apis/wit/workitems/$User Story")
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Contains(t, call.RequestURI, "User%20Story")
	assert.NotContains(t, call.RequestURI, "User Story")
	assert.Contains(t, call.Query, "api-version=7.0")
	assert.Equal(t, "application/json-patch+json", call.ContentType)
	assert.Equal(t, "pat-123", call.Pass)

	var ops []patchOp
	require.NoError(t, json.Unmarshal([]byte(call.Body), &ops))
	require.Len(t, ops, 1)
	assert.Equal(t, patchOp{Op: "add", Path: "/fields/System.Title", Value: "T"}, ops[0])
}

func TestCreateWorkItem_OptionalFieldsInOrder(t *testing.T) {
	c, fake := newTestClient(t, map[string]http.HandlerFunc{
		"POST /org/proj/_apis/wit/workitems/$Bug": jsonHandler(200, `{"id":7}`),
	})

	_, err := c.CreateWorkItem(context.Background(), domain.NewWorkItem{
		Type: "Bug", Title: "Crash", Description: "stack trace", AssignedTo: "dev@example.com",
	})
	require.NoError(t, err)

	var ops []patchOp
	require.NoError(t, json.Unmarshal([]byte(fake.callsTo(http.MethodPost, "/org/proj/_apis/wit/workitems/$Bug")[0].Body), &ops))
	paths := []string{}
	for _, op := range ops {
		paths = append(paths, op.Path)
	}
	assert.Equal(t, []string{"/fields/System.Title", "/fields/System.Description", "/fields/System.AssignedTo"}, paths)
}

func TestCreateWorkItem_RemoteErrorCarriesStatus(t *testing.T) {
	c, _ := newTestClient(t, map[string]http.HandlerFunc{
		"POST /org/proj/_apis/wit/workitems/$Task": jsonHandler(401, `{"message":"TF400813: The user is not authorized"}`),
	})

	_, err := c.CreateWorkItem(context.Background(), domain.NewWorkItem{Type: "Task", Title: "X"})
	require.Error(t, err)

	var rerr *domain.RemoteCallError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 401, rerr.StatusCode)
	assert.Equal(t, "create work item", rerr.Op)
	assert.Contains(t, err.Error(), "TF400813")
	assert.Contains(t, err.Error(), "401")
}

func TestCreateWorkItem_RequiresTitle(t *testing.T) {
	c, fake := newTestClient(t, nil)
	_, err := c.CreateWorkItem(context.Background(), domain.NewWorkItem{Type: "Task"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, fake.calls)
}

func TestUpdateWorkItem_ReplaceOpsFollowMappingOrder(t *testing.T) {
	c, fake := newTestClient(t, map[string]http.HandlerFunc{
		"PATCH /org/proj/_apis/wit/workitems/15": jsonHandler(200, `{"id":15,"rev":3}`),
	})

	updates := domain.NewFieldUpdates().
		With("System.State", domain.StringValue("Active")).
		With("Microsoft.VSTS.Scheduling.RemainingWork", domain.NumberValue(4)).
		With("System.AssignedTo", domain.NullValue())

	wi, err := c.UpdateWorkItem(context.Background(), 15, updates)
	require.NoError(t, err)
	assert.Equal(t, 3, wi.Rev)

	var ops []patchOp
	require.NoError(t, json.Unmarshal([]byte(fake.callsTo(http.MethodPatch, "/org/proj/_apis/wit/workitems/15")[0].Body), &ops))
	require.Len(t, ops, 3)
	assert.Equal(t, patchOp{Op: "replace", Path: "/fields/System.State", Value: "Active"}, ops[0])
	assert.Equal(t, patchOp{Op: "replace", Path: "/fields/Microsoft.VSTS.Scheduling.RemainingWork", Value: float64(4)}, ops[1])
	assert.Equal(t, patchOp{Op: "replace", Path: "/fields/System.AssignedTo", Value: nil}, ops[2])
}

func TestUpdateWorkItem_ErrorMentionsID(t *testing.T) {
	c, _ := newTestClient(t, map[string]http.HandlerFunc{
		"PATCH /org/proj/_apis/wit/workitems/9": jsonHandler(400, `{"message":"field is read only"}`),
	})
	_, err := c.UpdateWorkItem(context.Background(), 9, domain.NewFieldUpdates().With("System.Id", domain.NumberValue(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id 9")
	assert.Contains(t, err.Error(), "field is read only")
}

func TestUpdateWorkItemState_SingleStateOp(t *testing.T) {
	c, fake := newTestClient(t, map[string]http.HandlerFunc{
		"PATCH /org/proj/_apis/wit/workitems/3": jsonHandler(200, `{"id":3}`),
	})
	_, err := c.UpdateWorkItemState(context.Background(), 3, "Done")
	require.NoError(t, err)

	var ops []patchOp
	require.NoError(t, json.Unmarshal([]byte(fake.callsTo(http.MethodPatch, "/org/proj/_apis/wit/workitems/3")[0].Body), &ops))
	assert.Equal(t, []patchOp{{Op: "replace", Path: "/fields/System.State", Value: "Done"}}, ops)
}

func TestDeleteAndGetWorkItem(t *testing.T) {
	c, _ := newTestClient(t, map[string]http.HandlerFunc{
		"DELETE /org/proj/_apis/wit/workitems/5": jsonHandler(200, `{"id":5,"code":200}`),
		"GET /org/proj/_apis/wit/workitems/5":    jsonHandler(404, `{"message":"TF401232: Work item 5 does not exist"}`),
	})

	ok, err := c.DeleteWorkItem(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.GetWorkItem(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id 5")
	assert.Contains(t, err.Error(), "404")
}

func TestAllTasks_NoIDsSkipsBulkFetch(t *testing.T) {
	c, fake := newTestClient(t, map[string]http.HandlerFunc{
		"POST /org/proj/_apis/wit/wiql": jsonHandler(200, `{"workItems":[]}`),
	})

	items, err := c.AllTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Empty(t, fake.callsTo(http.MethodGet, "/org/proj/_apis/wit/workitems"))

	wiql := fake.callsTo(http.MethodPost, "/org/proj/_apis/wit/wiql")
	require.Len(t, wiql, 1)
	assert.Contains(t, wiql[0].Body, "[System.WorkItemType] = 'Task'")
	assert.Contains(t, wiql[0].Body, "[System.TeamProject] = 'proj'")
	assert.Contains(t, wiql[0].Body, "ORDER BY [System.CreatedDate] DESC")
}

func TestAllTasks_CapsBulkFetchAt200(t *testing.T) {
	refs := make([]string, 0, 250)
	for i := 1; i <= 250; i++ {
		refs = append(refs, fmt.Sprintf(`{"id":%d}`, i))
	}
	c, fake := newTestClient(t, map[string]http.HandlerFunc{
		"POST /org/proj/_apis/wit/wiql": jsonHandler(200, `{"workItems":[`+strings.Join(refs, ",")+`]}`),
		"GET /org/proj/_apis/wit/workitems": jsonHandler(200, `{"count":1,"value":[{"id":1,"fields":{"System.Title":"a"}}]}`),
	})

	items, err := c.AllTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)

	bulk := fake.callsTo(http.MethodGet, "/org/proj/_apis/wit/workitems")
	require.Len(t, bulk, 1)
	q, err := url.ParseQuery(bulk[0].Query)
	require.NoError(t, err)
	ids := strings.Split(q.Get("ids"), ",")
	assert.Len(t, ids, MaxBulkIDs)
	assert.Equal(t, "1", ids[0])
	assert.Equal(t, "200", ids[199])
}
