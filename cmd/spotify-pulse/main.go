// Command spotify-pulse runs the listening-stats pipeline and its dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lwaltman/spotify-pulse/internal/auth"
	"github.com/lwaltman/spotify-pulse/internal/capture"
	"github.com/lwaltman/spotify-pulse/internal/config"
	"github.com/lwaltman/spotify-pulse/internal/db"
	"github.com/lwaltman/spotify-pulse/internal/objectstore"
	"github.com/lwaltman/spotify-pulse/internal/pipeline"
	"github.com/lwaltman/spotify-pulse/internal/present"
	apiclient "github.com/lwaltman/spotify-pulse/internal/spotify"
	"github.com/lwaltman/spotify-pulse/internal/transform"
	"github.com/lwaltman/spotify-pulse/internal/web"
	webfs "github.com/lwaltman/spotify-pulse/web"
)

func main() {
	once := flag.Bool("once", false, "run one capture-and-process cycle from the terminal and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "spotify-pulse",
	})

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	captureSvc := capture.New(store, logger)
	handler := transform.NewHandler(store, database.Stats(), logger)
	pipe := pipeline.New(captureSvc, handler, cfg.Namespace(), logger)
	presenter := present.NewAdapter(store)

	if once {
		return runOnce(ctx, cfg, pipe, logger)
	}

	// Create sub-filesystems for templates and static files
	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.Addr,
		ClientID:     cfg.SpotifyID,
		ClientSecret: cfg.SpotifySecret,
		Pipeline:     pipe,
		Presenter:    presenter,
		Daily:        database.Stats(),
		Logger:       logger,
		TemplatesFS:  templates,
		StaticFS:     static,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}

// runOnce authenticates through the terminal OAuth flow, runs a single
// capture-and-process cycle, and prints the resulting keys.
func runOnce(ctx context.Context, cfg *config.Config, pipe *pipeline.Service, logger *log.Logger) error {
	authenticator, err := auth.New(cfg.SpotifyID, cfg.SpotifySecret)
	if err != nil {
		return err
	}

	client, err := authenticator.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticating with Spotify: %w", err)
	}

	result, err := pipe.Run(ctx, apiclient.New(client))
	if err != nil {
		return err
	}

	logger.Info("pipeline run complete",
		"raw_key", result.RawKey,
		"processed_key", result.ProcessedKey,
	)
	return nil
}

// newObjectStore picks S3 when a bucket is configured, the local filesystem
// otherwise.
func newObjectStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (objectstore.Store, error) {
	if cfg.Bucket == "" {
		logger.Info("no S3 bucket configured, storing snapshots locally", "dir", cfg.DataDir)
		return objectstore.NewFS(cfg.DataDir), nil
	}

	store, err := objectstore.NewS3(ctx, objectstore.S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating S3 store: %w", err)
	}
	logger.Info("storing snapshots in S3", "bucket", cfg.Bucket, "region", cfg.Region)
	return store, nil
}
