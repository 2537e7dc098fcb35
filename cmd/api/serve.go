package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/HamedShams/devops-pulse/internal/http"
	"github.com/HamedShams/devops-pulse/internal/jobs"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and the sprint digest scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, svc, err := bootstrap(os.Stdout)
		if err != nil {
			return err
		}

		cr, err := jobs.NewCron(cfg, log, svc)
		if err != nil {
			return err
		}
		cr.Start()
		defer cr.Stop()

		srv := &http.Server{Addr: cfg.HTTPAddr(), Handler: httpapi.NewRouter(cfg, log, svc)}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		log.Info().Str("addr", cfg.HTTPAddr()).Str("env", cfg.AppEnv).Msg("http listening")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info().Msg("shutting down...")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}
