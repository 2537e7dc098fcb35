package openai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/HamedShams/devops-pulse/internal/domain"
)

const analysisInstructions = `Please analyze this sprint and provide:
1. Impact Analysis: How is the sprint progressing and what is the impact on delivery?
2. Recommendations: Specific actions the team should take.
3. Risk Level: Assess the risk as low, medium, or high.
4. Release Readiness: Is the sprint on track for release? (true/false)
5. Guidelines: Best practices the team should follow for the rest of the sprint.

Respond in JSON format:
{
  "impact": "string",
  "recommendations": ["string"],
  "riskLevel": "low" | "medium" | "high",
  "releaseReadiness": boolean,
  "guidelines": ["string"]
}`

// itemSummary is all the model sees of a work item; assignee and description
// stay out of the prompt.
type itemSummary struct {
	Title string `json:"title"`
	State string `json:"state"`
	Type  string `json:"type"`
}

// BuildSprintPrompt is deterministic for a given request.
func BuildSprintPrompt(req domain.AnalysisRequest) string {
	m := req.SprintData
	items := make([]itemSummary, 0, len(req.WorkItems))
	for _, wi := range req.WorkItems {
		items = append(items, itemSummary{Title: wi.Fields.Title, State: wi.Fields.State, Type: wi.Fields.WorkItemType})
	}
	itemsJSON, _ := json.MarshalIndent(items, "", "  ")

	var b strings.Builder
	b.WriteString("Analyze the following sprint data and provide insights:\n\n")
	fmt.Fprintf(&b, "Sprint: %s\n", m.SprintName)
	fmt.Fprintf(&b, "Total Work Items: %d\n", m.TotalItems)
	fmt.Fprintf(&b, "Completed: %d\n", m.CompletedItems)
	fmt.Fprintf(&b, "In Progress: %d\n", m.InProgressItems)
	fmt.Fprintf(&b, "Remaining Work: %s hours\n", formatHours(m.RemainingWork))
	fmt.Fprintf(&b, "Completed Work: %s hours\n", formatHours(m.CompletedWork))
	fmt.Fprintf(&b, "Velocity: %s\n\n", formatHours(m.Velocity))
	fmt.Fprintf(&b, "Work Items:\n%s\n\n", itemsJSON)
	if c := strings.TrimSpace(req.Context); c != "" {
		fmt.Fprintf(&b, "Additional Context: %s\n\n", c)
	}
	b.WriteString(analysisInstructions)
	return b.String()
}

func BuildRecommendationPrompt(wi domain.WorkItem) string {
	desc := strings.TrimSpace(wi.Fields.Description)
	if desc == "" {
		desc = "No description provided"
	}
	return fmt.Sprintf(`Provide recommendations for the following work item:

Title: %s
Type: %s
State: %s
Description: %s

Suggest next steps, potential blockers, and how to get it done efficiently.`,
		wi.Fields.Title, wi.Fields.WorkItemType, wi.Fields.State, desc)
}

// ParseAnalysis extracts the JSON object from a model reply. The object runs
// from the first '{' to the last '}', or to the end of the reply when no
// closing brace follows. No '{' at all yields the fallback result.
func ParseAnalysis(reply string) (*domain.AIAnalysisResult, error) {
	start := strings.Index(reply, "{")
	if start < 0 {
		return fallbackAnalysis(reply), nil
	}
	end := strings.LastIndex(reply, "}")
	fragment := reply[start:]
	if end > start {
		fragment = reply[start : end+1]
	}
	var res domain.AIAnalysisResult
	if err := json.Unmarshal([]byte(fragment), &res); err != nil {
		return nil, &domain.ParseError{Fragment: fragment, Err: err}
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	if res.Guidelines == nil {
		res.Guidelines = []string{}
	}
	return &res, nil
}

func fallbackAnalysis(reply string) *domain.AIAnalysisResult {
	return &domain.AIAnalysisResult{
		Impact:           reply,
		Recommendations:  []string{"Review the AI analysis above for detailed insights"},
		RiskLevel:        "medium",
		ReleaseReadiness: false,
		Guidelines:       []string{},
	}
}

func formatHours(h float64) string { return strconv.FormatFloat(h, 'f', -1, 64) }

func itoa(i int) string { return strconv.Itoa(i) }
