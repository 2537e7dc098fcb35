package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis_EmbeddedObject(t *testing.T) {
	reply := `blah {"impact":"ok","recommendations":[],"riskLevel":"low","releaseReadiness":true,"guidelines":[]} trailing`

	res, err := ParseAnalysis(reply)
	require.NoError(t, err)
	assert.Equal(t, &domain.AIAnalysisResult{
		Impact:           "ok",
		Recommendations:  []string{},
		RiskLevel:        "low",
		ReleaseReadiness: true,
		Guidelines:       []string{},
	}, res)
}

func TestParseAnalysis_NoJSONFallsBack(t *testing.T) {
	res, err := ParseAnalysis("no json here")
	require.NoError(t, err)
	assert.Equal(t, "no json here", res.Impact)
	assert.Equal(t, "medium", res.RiskLevel)
	assert.False(t, res.ReleaseReadiness)
	assert.NotEmpty(t, res.Recommendations)
	assert.Empty(t, res.Guidelines)
}

func TestParseAnalysis_BrokenJSONIsFatal(t *testing.T) {
	for _, reply := range []string{"{not valid json", `prefix {"impact": } suffix`} {
		_, err := ParseAnalysis(reply)
		require.Error(t, err, reply)
		var perr *domain.ParseError
		assert.ErrorAs(t, err, &perr, reply)
	}
}

func TestParseAnalysis_NestedBraces(t *testing.T) {
	reply := "Here you go:\n```json\n{\"impact\":\"fine {mostly}\",\"recommendations\":[\"a\",\"b\"],\"riskLevel\":\"high\",\"releaseReadiness\":false,\"guidelines\":[\"g\"]}\n```"
	res, err := ParseAnalysis(reply)
	require.NoError(t, err)
	assert.Equal(t, "fine {mostly}", res.Impact)
	assert.Equal(t, []string{"a", "b"}, res.Recommendations)
	assert.Equal(t, "high", res.RiskLevel)
}

func sampleRequest() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		SprintData: domain.SprintMetrics{
			SprintID: "it-2", SprintName: "Sprint 2", TotalItems: 2, CompletedItems: 1,
			InProgressItems: 1, RemainingWork: 3.5, CompletedWork: 6, Velocity: 6,
		},
		WorkItems: []domain.WorkItem{{
			ID: 1,
			Fields: domain.WorkItemFields{
				Title: "Login page", State: "Active", WorkItemType: "Task",
				AssignedTo:  &domain.Identity{DisplayName: "Jane Roe", UniqueName: "jane@example.com"},
				Description: "secret internal notes",
			},
		}},
		Context: "release on Friday",
	}
}

func TestBuildSprintPrompt(t *testing.T) {
	req := sampleRequest()
	p := BuildSprintPrompt(req)

	assert.Equal(t, p, BuildSprintPrompt(req))
	assert.Contains(t, p, "Sprint: Sprint 2")
	assert.Contains(t, p, "Remaining Work: 3.5 hours")
	assert.Contains(t, p, "Velocity: 6")
	assert.Contains(t, p, `"title": "Login page"`)
	assert.Contains(t, p, "Additional Context: release on Friday")
	assert.Contains(t, p, `"riskLevel"`)
	assert.NotContains(t, p, "Jane Roe")
	assert.NotContains(t, p, "secret internal notes")
}

func TestBuildRecommendationPrompt_DefaultsDescription(t *testing.T) {
	p := BuildRecommendationPrompt(domain.WorkItem{Fields: domain.WorkItemFields{Title: "Fix", WorkItemType: "Bug", State: "New"}})
	assert.Contains(t, p, "Title: Fix")
	assert.Contains(t, p, "Description: No description provided")
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeChat(t *testing.T, status int, content string, seen *chatRequest) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(b, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-test",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": content},
			}},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(config.Config{AIBaseURL: srv.URL + "/v1", AIKey: "sk-test", AIModel: "gpt-test"}, zerolog.Nop())
}

func TestAnalyzeSprint_SendsTwoMessagesAndParses(t *testing.T) {
	var seen chatRequest
	c := fakeChat(t, 200, `Sure! {"impact":"on track","recommendations":["ship"],"riskLevel":"low","releaseReadiness":true,"guidelines":["test"]}`, &seen)

	res, err := c.AnalyzeSprint(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "on track", res.Impact)
	assert.True(t, res.ReleaseReadiness)

	assert.Equal(t, "gpt-test", seen.Model)
	assert.Equal(t, 0.7, seen.Temperature)
	assert.Equal(t, 2000, seen.MaxTokens)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "user", seen.Messages[1].Role)
	assert.Contains(t, seen.Messages[1].Content, "Sprint: Sprint 2")
}

func TestAnalyzeSprint_FallbackAndParseError(t *testing.T) {
	res, err := fakeChat(t, 200, "The sprint looks fine.", nil).AnalyzeSprint(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "The sprint looks fine.", res.Impact)

	_, err = fakeChat(t, 200, "{not valid json", nil).AnalyzeSprint(context.Background(), sampleRequest())
	var perr *domain.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestAnalyzeSprint_RemoteError(t *testing.T) {
	_, err := fakeChat(t, 401, "", nil).AnalyzeSprint(context.Background(), sampleRequest())
	require.Error(t, err)
	var rerr *domain.RemoteCallError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 401, rerr.StatusCode)
	assert.Contains(t, err.Error(), "analyze sprint")
}

func TestWorkItemRecommendations(t *testing.T) {
	var seen chatRequest
	text, err := fakeChat(t, 200, "1. Split the task", &seen).WorkItemRecommendations(context.Background(), domain.WorkItem{ID: 4, Fields: domain.WorkItemFields{Title: "Big task"}})
	require.NoError(t, err)
	assert.Equal(t, "1. Split the task", text)
	require.Len(t, seen.Messages, 1)
	assert.Contains(t, seen.Messages[0].Content, "Title: Big task")

	text, err = fakeChat(t, 200, "", nil).WorkItemRecommendations(context.Background(), domain.WorkItem{ID: 4})
	require.NoError(t, err)
	assert.Equal(t, noRecommendations, text)
}
