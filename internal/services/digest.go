package services

import (
	"context"
	"encoding/json"
)

// RunSprintDigest logs the current sprint's metrics and, with the relay on,
// forwards them as a "sprint_metrics" command.
func (s *Service) RunSprintDigest(ctx context.Context) error {
	m, err := s.azdo.CurrentSprintMetrics(ctx)
	if err != nil {
		return err
	}
	if m == nil {
		s.log.Info().Msg("digest: no current sprint")
		return nil
	}
	s.log.Info().
		Str("sprint", m.SprintName).
		Int("total", m.TotalItems).
		Int("completed", m.CompletedItems).
		Int("in_progress", m.InProgressItems).
		Float64("remaining_hours", m.RemainingWork).
		Float64("velocity", m.Velocity).
		Msg("digest: sprint metrics")
	if !s.relay.Enabled() {
		return nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.relay.SendCommand(ctx, "sprint_metrics", payload)
	return err
}
