package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/cwygoda/scraperr/internal/adapter/http"
	"github.com/cwygoda/scraperr/internal/adapter/processor"
	"github.com/cwygoda/scraperr/internal/adapter/sqlite"
	"github.com/cwygoda/scraperr/internal/config"
	"github.com/cwygoda/scraperr/internal/domain"
	"github.com/cwygoda/scraperr/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{AppEnv: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("scraperr stopped")
	}
	log.Info().Msg("shutdown complete")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().Str("addr", cfg.Addr()).Str("db", cfg.DBPath).Str("schema_policy", cfg.SchemaPolicy).Msg("starting scraperr")

	policy, err := sqlite.ParseSchemaPolicy(cfg.SchemaPolicy)
	if err != nil {
		return err
	}

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.DBPath, policy, logger.Component(log, "sqlite"))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer repo.Close()

	svc := domain.NewJobService(repo, processor.NewPlaceholder())
	srv := httpAdapter.NewServer(svc, cfg.Addr(), logger.Component(log, "http"), cfg.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
