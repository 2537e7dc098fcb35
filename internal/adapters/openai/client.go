/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/HamedShams/devops-pulse/internal/domain"
	oai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"
)

const (
	temperature = 0.7
	maxTokens   = 2000

	systemPersona = "You are an expert Agile coach and software delivery analyst. You review sprint data and give practical, specific advice to engineering teams."

	noRecommendations = "No recommendations available"
)

type Client struct {
	model string
	cli   oai.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	model := cfg.AIModel
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.AIKey), option.WithMaxRetries(0)}
	if cfg.AIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.AIBaseURL))
	}
	return &Client{model: model, cli: oai.NewClient(opts...), log: log.With().Str("component", "openai").Logger()}
}

// AnalyzeSprint asks the model for the five-facet sprint analysis. A reply
// without JSON degrades to a fallback result; a reply with broken JSON fails.
func (c *Client) AnalyzeSprint(ctx context.Context, req domain.AnalysisRequest) (*domain.AIAnalysisResult, error) {
	prompt := BuildSprintPrompt(req)
	c.log.Info().Str("model", c.model).Str("sprint", req.SprintData.SprintName).Int("items", len(req.WorkItems)).Msg("openai AnalyzeSprint call")
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPersona),
			oai.UserMessage(prompt),
		},
		Temperature: oai.Float(temperature),
		MaxTokens:   oai.Int(maxTokens),
	}
	reply, err := c.complete(ctx, "analyze sprint", req.SprintData.SprintName, params)
	if err != nil {
		return nil, err
	}
	res, err := ParseAnalysis(reply)
	if err != nil {
		c.log.Error().Err(err).Str("reply", reply).Msg("analysis reply unparsable")
		return nil, err
	}
	return res, nil
}

// WorkItemRecommendations returns the model's text as is.
func (c *Client) WorkItemRecommendations(ctx context.Context, wi domain.WorkItem) (string, error) {
	c.log.Info().Str("model", c.model).Int("id", wi.ID).Msg("openai WorkItemRecommendations call")
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(BuildRecommendationPrompt(wi)),
		},
		Temperature: oai.Float(temperature),
		MaxTokens:   oai.Int(maxTokens),
	}
	detail := ""
	if wi.ID != 0 {
		detail = "work item " + itoa(wi.ID)
	}
	reply, err := c.complete(ctx, "get work item recommendations", detail, params)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return noRecommendations, nil
	}
	return reply, nil
}

// complete returns the first choice's content, or "" when there is none.
func (c *Client) complete(ctx context.Context, op, detail string, params oai.ChatCompletionNewParams) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		rerr := &domain.RemoteCallError{Service: "openai", Op: op, Detail: detail, Err: err}
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			rerr.StatusCode = apiErr.StatusCode
			rerr.Message = apiErr.Message
			rerr.Body = apiErr.RawJSON()
		}
		c.log.Error().Err(err).Int("status", rerr.StatusCode).Str("body", rerr.Body).Str("model", c.model).Msg(op + " failed")
		return "", rerr
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
