// Command transitarchived is the transit feed archive service.
// It serves the ingestion trigger and read API, and runs the periodic
// ingestion scheduler.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/transitarchive/transitarchive/internal/api"
	"github.com/transitarchive/transitarchive/internal/blob"
	"github.com/transitarchive/transitarchive/internal/catalog"
	"github.com/transitarchive/transitarchive/internal/fetch"
	"github.com/transitarchive/transitarchive/internal/ingest"
	"github.com/transitarchive/transitarchive/internal/platform"
	"github.com/transitarchive/transitarchive/pkg/config"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	if err := platform.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	cat := catalog.NewSQLStore(db)
	fetcher := fetch.NewClient(time.Duration(cfg.FetchTimeoutSeconds) * time.Second)
	archiver := ingest.NewArchiver(cat, storage)
	versioner := ingest.NewVersioner(cat, storage, fetcher, nil)
	coordinator := ingest.NewCoordinator(cat, archiver, fetcher, cfg.FeedAPIKey, nil)
	scheduler := ingest.NewScheduler(cat, coordinator, time.Duration(cfg.Scheduler.IntervalSeconds)*time.Second)

	mux := http.NewServeMux()
	api.NewHandler(cat, coordinator, versioner, scheduler).RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", healthHandler(db))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.CORS(api.APIKeyAuth(cfg.APIKey)(mux)),
	}

	if cfg.Scheduler.Enabled {
		go scheduler.Start(ctx)
	}

	go func() {
		log.Printf("starting transitarchived on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	switch cfg.Backend {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case "gcs":
		return blob.NewGCSStore(ctx, cfg.Bucket)
	default:
		return blob.NewLocalStore(cfg.LocalDir), nil
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
