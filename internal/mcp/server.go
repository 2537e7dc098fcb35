// Package mcp exposes the tracker operations as Model Context Protocol tools
// over stdio for an AI-agent host.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/HamedShams/devops-pulse/internal/services"
	"github.com/google/jsonschema-go/jsonschema"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const noActiveSprint = "No active sprint found"

// noticeText is a non-error plain-text tool reply.
type noticeText string

type tool struct {
	name        string
	description string
	properties  map[string]*jsonschema.Schema
	required    []string
	call        func(ctx context.Context, args arguments) (any, error)
}

type Server struct {
	server *gomcp.Server
	ops    services.Operations
	log    zerolog.Logger
	tools  []tool
}

func NewServer(ops services.Operations, log zerolog.Logger, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{ops: ops, log: log.With().Str("component", "mcp").Logger()}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "devops-pulse", Version: version}, nil)
	s.tools = s.catalog()
	for _, t := range s.tools {
		s.register(t)
	}
	return s
}

// Run serves newline-delimited JSON-RPC on stdin/stdout until the peer
// disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

func (s *Server) MCPServer() *gomcp.Server { return s.server }

func (s *Server) register(t tool) {
	schema := &jsonschema.Schema{Type: "object", Properties: t.properties, Required: t.required}
	if schema.Properties == nil {
		schema.Properties = map[string]*jsonschema.Schema{}
	}
	s.server.AddTool(&gomcp.Tool{Name: t.name, Description: t.description, InputSchema: schema},
		func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			return s.dispatch(ctx, t, req.Params.Arguments), nil
		})
}

// dispatch never returns a protocol error: failures become isError results.
func (s *Server) dispatch(ctx context.Context, t tool, raw json.RawMessage) *gomcp.CallToolResult {
	args, err := parseArguments(raw)
	if err != nil {
		return errorResult("invalid params: " + err.Error())
	}
	for _, name := range t.required {
		if !args.has(name) {
			return errorResult("invalid params: missing required argument: " + name)
		}
	}
	s.log.Debug().Str("tool", t.name).Msg("tool call")
	out, err := t.call(ctx, args)
	if err != nil {
		if domain.IsValidation(err) {
			return errorResult("invalid params: " + err.Error())
		}
		s.log.Error().Err(err).Str("tool", t.name).Msg("tool call failed")
		return errorResult("Error: " + err.Error())
	}
	if txt, ok := out.(noticeText); ok {
		return textResult(string(txt))
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errorResult("Error: " + err.Error())
	}
	return textResult(string(b))
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{Content: []gomcp.Content{&gomcp.TextContent{Text: text}}}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

type arguments map[string]json.RawMessage

func parseArguments(raw json.RawMessage) (arguments, error) {
	args := arguments{}
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be an object: %w", err)
	}
	return args, nil
}

func (a arguments) has(name string) bool {
	v, ok := a[name]
	return ok && string(v) != "null"
}

func (a arguments) str(name string) (string, error) {
	v, ok := a[name]
	if !ok || string(v) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", &domain.ValidationError{Field: name, Reason: "must be a string"}
	}
	return s, nil
}

// id accepts a JSON number or a numeric string.
func (a arguments) id(name string) (int, error) {
	v := a[name]
	var n int
	if err := json.Unmarshal(v, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, nil
		}
	}
	return 0, &domain.ValidationError{Field: name, Reason: "must be an integer"}
}

func (a arguments) updates(name string) (domain.FieldUpdates, error) {
	var u domain.FieldUpdates
	if err := json.Unmarshal(a[name], &u); err != nil {
		return u, &domain.ValidationError{Field: name, Reason: "must be an object of field values"}
	}
	return u, nil
}

func noSprint(err error) bool { return errors.Is(err, services.ErrNoActiveSprint) }
