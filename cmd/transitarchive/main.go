// Package main provides the transitarchive operator CLI.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/transitarchive/transitarchive/internal/blob"
	"github.com/transitarchive/transitarchive/internal/catalog"
	"github.com/transitarchive/transitarchive/internal/fetch"
	"github.com/transitarchive/transitarchive/internal/ingest"
	"github.com/transitarchive/transitarchive/pkg/config"
)

var version = "dev"

var configPath string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "transitarchive",
		Short: "Immutable archive of transit schedule and realtime feeds",
		Long: `Transitarchive ingests GTFS static schedules and GTFS-RT feeds for
multiple agencies, archives every fetch as an immutable snapshot, and
tracks which schedule version is effective at any instant.`,
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yml", "path to config file")

	rootCmd.AddCommand(
		newMigrateCmd(),
		newIngestCmd(),
		newStaticCmd(),
		newAgenciesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stack bundles the collaborators a CLI command needs.
type stack struct {
	cfg     *config.Config
	db      *sql.DB
	catalog *catalog.SQLStore
	storage blob.Store
	fetcher *fetch.Client
}

func openStack(ctx context.Context) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	var storage blob.Store
	switch cfg.Storage.Backend {
	case "s3":
		storage, err = blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	case "gcs":
		storage, err = blob.NewGCSStore(ctx, cfg.Storage.Bucket)
		if err != nil {
			db.Close()
			return nil, err
		}
	default:
		storage = blob.NewLocalStore(cfg.Storage.LocalDir)
	}

	return &stack{
		cfg:     cfg,
		db:      db,
		catalog: catalog.NewSQLStore(db),
		storage: storage,
		fetcher: fetch.NewClient(time.Duration(cfg.FetchTimeoutSeconds) * time.Second),
	}, nil
}

func (s *stack) close() {
	s.db.Close()
}

func (s *stack) coordinator() *ingest.Coordinator {
	archiver := ingest.NewArchiver(s.catalog, s.storage)
	return ingest.NewCoordinator(s.catalog, archiver, s.fetcher, s.cfg.FeedAPIKey, nil)
}
