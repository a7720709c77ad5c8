package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/dental-api/internal/app"
	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/repository/sqlite"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/logger"
	"github.com/jwalitptl/dental-api/pkg/messaging/redis"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dental-api",
		Short:         "Dental clinic management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Setup(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("failed to release resources")
		}
	}()

	return a.Run(ctx)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the SQLite schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), sqlite.Up)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), sqlite.Down)
		},
	})
	return cmd
}

func runMigrations(ctx context.Context, direction sqlite.Direction) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if backend := cfg.ResolvedBackend(); backend != config.BackendSQLite {
		return fmt.Errorf("migrations only apply to the sqlite backend, configured backend is %s", backend)
	}

	db, err := sqlite.NewDB(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.Migrate(db, direction); err != nil {
		return err
	}
	log.Info().Str("direction", string(direction)).Str("path", cfg.Database.DSN()).Msg("migrations applied")
	return nil
}

func eventsCmd() *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream domain events published on Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tailEvents(cmd.Context(), channel)
		},
	}
	cmd.Flags().StringVar(&channel, "channel", event.DefaultChannel, "pub/sub channel to follow")
	return cmd
}

func tailEvents(parent context.Context, channel string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required to follow events")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker, err := redis.NewRedisBroker(ctx, redis.Config{URL: cfg.Redis.URL})
	if err != nil {
		return err
	}
	defer broker.Close()

	events, err := event.Subscribe(ctx, broker, channel)
	if err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("following events")
	for evt := range events {
		log.Info().
			Str("event_id", evt.ID).
			Str("type", string(evt.Type)).
			Str("resource_id", evt.ResourceID).
			Str("clinic_id", evt.ClinicID).
			Time("occurred_at", evt.OccurredAt).
			Msg("event")
	}
	return nil
}
