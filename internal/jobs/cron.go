package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type service interface{ RunSprintDigest(ctx context.Context) error }

const digestTimeout = 2 * time.Minute

type Cron struct {
	log      zerolog.Logger
	svc      service
	c        *cron.Cron
	schedule string
}

// NewCron schedules the sprint digest on cfg.DigestCron (five fields, in
// cfg.TZ). An empty expression yields a Cron whose Start and Stop do nothing.
func NewCron(cfg config.Config, log zerolog.Logger, svc service) (*Cron, error) {
	cr := &Cron{log: log.With().Str("component", "cron").Logger(), svc: svc, schedule: cfg.DigestCron}
	if cfg.DigestCron == "" {
		return cr, nil
	}
	c := cron.New(cron.WithLocation(cfg.Location()), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	if _, err := c.AddFunc(cfg.DigestCron, cr.digest); err != nil {
		return nil, fmt.Errorf("digest_cron %q: %w", cfg.DigestCron, err)
	}
	cr.c = c
	return cr, nil
}

func (cr *Cron) Enabled() bool { return cr.c != nil }

func (cr *Cron) Start() {
	if cr.c == nil {
		return
	}
	cr.log.Info().Str("schedule", cr.schedule).Msg("cron: sprint digest scheduled")
	cr.c.Start()
}

// Stop waits for a running digest to finish.
func (cr *Cron) Stop() {
	if cr.c == nil {
		return
	}
	<-cr.c.Stop().Done()
}

func (cr *Cron) digest() {
	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()
	cr.log.Info().Msg("cron: sprint digest")
	if err := cr.svc.RunSprintDigest(ctx); err != nil {
		cr.log.Error().Err(err).Msg("cron: digest failed")
	}
}
