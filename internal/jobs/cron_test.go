package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingService struct {
	runs int
	err  error
}

func (s *countingService) RunSprintDigest(ctx context.Context) error {
	s.runs++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("digest ran without a deadline")
	}
	return s.err
}

func TestNewCron_EmptySpecIsDisabled(t *testing.T) {
	cr, err := NewCron(config.Config{}, zerolog.Nop(), &countingService{})
	require.NoError(t, err)
	assert.False(t, cr.Enabled())
	cr.Start()
	cr.Stop()
}

func TestNewCron_RejectsBadSpec(t *testing.T) {
	_, err := NewCron(config.Config{DigestCron: "every monday"}, zerolog.Nop(), &countingService{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest_cron")
}

func TestNewCron_SchedulesDigest(t *testing.T) {
	svc := &countingService{err: errors.New("tracker down")}
	cr, err := NewCron(config.Config{DigestCron: "0 9 * * 1", TZ: "Europe/Berlin"}, zerolog.Nop(), svc)
	require.NoError(t, err)
	require.True(t, cr.Enabled())
	require.Len(t, cr.c.Entries(), 1)

	cr.digest()
	assert.Equal(t, 1, svc.runs)
}
