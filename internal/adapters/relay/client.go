/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package relay forwards opaque commands and queries to an optional local
// control-point service. Whether the relay is on is decided once, at
// construction.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mode is either Disabled or Enabled.
type Mode interface{ isMode() }

type Disabled struct{ Reason string }

type Enabled struct {
	URL  string
	HTTP *http.Client
}

func (Disabled) isMode() {}
func (Enabled) isMode()  {}

type Client struct {
	mode Mode
	log  zerolog.Logger
	now  func() time.Time
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	log = log.With().Str("component", "relay").Logger()
	var mode Mode
	switch {
	case !cfg.RelayEnabled:
		mode = Disabled{Reason: "relay disabled by configuration"}
	case cfg.RelayURL == "":
		mode = Disabled{Reason: "relay url not set"}
	default:
		mode = Enabled{URL: cfg.RelayURL, HTTP: &http.Client{Timeout: cfg.RelayTimeout}}
	}
	if d, ok := mode.(Disabled); ok {
		log.Info().Str("reason", d.Reason).Msg("relay disabled")
	} else {
		log.Info().Str("url", cfg.RelayURL).Msg("relay enabled")
	}
	return &Client{mode: mode, log: log, now: time.Now}
}

func (c *Client) Mode() Mode { return c.mode }

func (c *Client) Enabled() bool {
	_, ok := c.mode.(Enabled)
	return ok
}

// SendCommand posts a command envelope to {url}/command and returns the
// relay's reply verbatim.
func (c *Client) SendCommand(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	body, err := json.Marshal(struct {
		Command string          `json:"command"`
		Payload json.RawMessage `json:"payload"`
	}{command, payload})
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/command", domain.RelayCommand, "send relay command", body)
}

func (c *Client) Query(ctx context.Context, query string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/query", domain.RelayQuery, "query relay", body)
}

// Status never fails: a disabled or unreachable relay is reported offline.
func (c *Client) Status(ctx context.Context) domain.RelayStatus {
	en, ok := c.mode.(Enabled)
	if !ok {
		return domain.RelayStatus{Enabled: false, Online: false, Message: c.mode.(Disabled).Reason}
	}
	st := domain.RelayStatus{Enabled: true, URL: en.URL}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, en.URL+"/health", nil)
	if err != nil {
		st.Message = err.Error()
		return st
	}
	resp, err := en.HTTP.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("relay health check failed")
		st.Message = "relay unreachable"
		return st
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	st.Online = resp.StatusCode < 300
	if !st.Online {
		st.Message = fmt.Sprintf("relay health returned %d", resp.StatusCode)
	}
	return st
}

func (c *Client) post(ctx context.Context, path, kind, op string, payload json.RawMessage) (json.RawMessage, error) {
	en, ok := c.mode.(Enabled)
	if !ok {
		return nil, &domain.NotConfiguredError{Component: "relay"}
	}
	msg := domain.RelayMessage{ID: uuid.NewString(), Type: kind, Payload: payload, Timestamp: c.now().UnixMilli()}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, en.URL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	// remote detail goes to the log only; callers see a generic error
	generic := &domain.RemoteCallError{Service: "relay", Op: op, Message: "relay request failed"}
	resp, err := en.HTTP.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("message_id", msg.ID).Str("type", kind).Msg(op + " failed")
		return nil, generic
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		c.log.Error().Int("status", resp.StatusCode).Str("body", string(out)).Str("message_id", msg.ID).Msg(op + " failed")
		return nil, generic
	}
	out = bytes.TrimSpace(out)
	if len(out) == 0 || !json.Valid(out) {
		// non-JSON replies are passed through as a JSON string
		quoted, _ := json.Marshal(string(out))
		return quoted, nil
	}
	return out, nil
}
