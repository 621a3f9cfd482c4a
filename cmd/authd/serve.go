package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rolegate/authd/internal/api"
	"github.com/rolegate/authd/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. In database mode the built-in roles, permissions and the
configured admin account are seeded before the listener starts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	if app.bootstrap != nil {
		if err := app.runBootstrap(ctx, cfg.Admin); err != nil {
			return err
		}
	}

	e := api.NewRouter(api.Dependencies{
		Authenticator: app.authenticator,
		Users:         app.users,
		Checks:        app.readinessChecks(),
		Production:    !cfg.IsDevelopment(),
		Log:           logger.Component("http"),
	})

	g, gctx := errgroup.WithContext(ctx)

	if app.dispatcher != nil {
		app.dispatcher.Start(gctx)
		g.Go(func() error {
			app.dispatcher.Wait()
			return nil
		})
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
