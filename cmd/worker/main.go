package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/featherlift/featherlift-go/internal/awsauth"
	"github.com/featherlift/featherlift-go/internal/cache"
	"github.com/featherlift/featherlift-go/internal/config"
	"github.com/featherlift/featherlift-go/internal/db"
	"github.com/featherlift/featherlift-go/internal/logger"
	"github.com/featherlift/featherlift-go/internal/optimiser"
	"github.com/featherlift/featherlift-go/internal/port"
	"github.com/featherlift/featherlift-go/internal/queue"
	"github.com/featherlift/featherlift-go/internal/repository/mariadb"
	"github.com/featherlift/featherlift-go/internal/storage"
	"github.com/featherlift/featherlift-go/internal/usecase/offload"
)

const retentionSweepInterval = 24 * time.Hour

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf(ctx, "❌  Configuration error: %v", err)
		os.Exit(1)
	}

	logger.Init()

	database := initDb(ctx, cfg)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Warnf(ctx, "DB close error: %v", err)
		}
	}()

	httpClient := &http.Client{Timeout: 60 * time.Second}
	creds := awsauth.Credentials{
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Region:          cfg.AWSRegion,
	}
	strg := storage.NewS3Storage(httpClient, creds)
	que := queue.NewSQSQueue(httpClient, creds, cfg.ReceiveWaitSeconds)

	var ca port.Cache
	if cfg.RedisAddr != "" {
		ca = cache.NewCache(cfg.RedisAddr, cfg.RedisPassword)
	} else {
		ca = cache.NewNoop()
		logger.Warn(ctx, "⚠️  Redis not configured, stats caching is disabled")
	}

	fo := optimiser.NewFileOptimiser(optimiser.NewWebPEncoder(), externalCompressor(cfg, httpClient), cfg.CompressionQuality)

	jobRepo := mariadb.NewJobRepository(database.DB)
	stackRepo := mariadb.NewStackRepository(database.DB)
	lib := mariadb.NewMediaLibrary(database.DB, fo, cfg.MediaRoot, cfg.MediaBaseURL, cfg.RenditionWidths)

	opts := offloadOptions(ctx, cfg, stackRepo)
	uploader := offload.NewUploader(jobRepo, lib, strg, fo, stackRepo, opts)
	downloader := offload.NewDownloader(jobRepo, lib, strg, stackRepo, opts)
	drainer := offload.NewDrainer(jobRepo, que, stackRepo, ca, uploader, downloader, cfg.DrainMaxMessages)

	runWorker(ctx, drainer, jobRepo, cfg)
}

func initDb(ctx context.Context, cfg *config.Settings) *db.Database {
	logger.Info(ctx, "initialising database...")

	database, err := db.New(cfg.MariaDBDSN, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
	if err != nil {
		logger.Errorf(ctx, "❌  Failed to connect to db: %v", err)
		os.Exit(1)
	}
	return database
}

func externalCompressor(cfg *config.Settings, client *http.Client) optimiser.ExternalCompressor {
	if cfg.CompressionService == "tinypng" && cfg.TinyPNGAPIKey != "" {
		return optimiser.NewTinyPNG(client, cfg.TinyPNGAPIKey)
	}
	return nil
}

// offloadOptions seeds the CDN domain from the stored stack descriptor; a
// freshly provisioned distribution is picked up on the next start.
func offloadOptions(ctx context.Context, cfg *config.Settings, stacks port.StackRepository) offload.Options {
	opts := offload.Options{
		Region:                 cfg.AWSRegion,
		KeyPrefix:              cfg.KeyPrefix,
		UseCloudFront:          cfg.UseCloudFront,
		ResizeMaxWidth:         cfg.ResizeMaxWidth,
		ResizeMaxHeight:        cfg.ResizeMaxHeight,
		CompressImages:         cfg.CompressImages,
		UploadRenditions:       cfg.UploadRenditions,
		DeleteLocalAfterUpload: cfg.DeleteLocalAfterUpload,
	}
	if cfg.UseCloudFront {
		stack, err := stacks.GetStack(ctx)
		if err != nil {
			logger.Warnf(ctx, "could not load the stack descriptor: %v", err)
		} else if stack != nil {
			opts.CDNDomain = stack.CDNDomain
		}
	}
	return opts
}

// runWorker alternates between queue drains and a daily retention sweep
// until a shutdown signal arrives. A drain pass that finds nothing is
// silent; the long-poll receive already spaces the calls out.
func runWorker(ctx context.Context, drainer port.Drainer, repo port.JobRepository, cfg *config.Settings) {
	drainTicker := time.NewTicker(cfg.DrainInterval)
	defer drainTicker.Stop()
	sweepTicker := time.NewTicker(retentionSweepInterval)
	defer sweepTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	logger.Infof(ctx, "🚀 Worker started (drain every %s)", cfg.DrainInterval)

	for {
		select {
		case <-drainTicker.C:
			drain(ctx, drainer)
		case <-sweepTicker.C:
			sweep(ctx, repo, cfg.LogRetentionDays)
		case <-sigCh:
			logger.Info(ctx, "🛑 Shutdown signal received, exiting…")
			logger.Info(ctx, "✅  Worker gracefully stopped")
			return
		}
	}
}

func drain(ctx context.Context, drainer port.Drainer) {
	processed, err := drainer.Drain(ctx)
	if err != nil {
		if errors.Is(err, offload.ErrStackNotProvisioned) {
			logger.Warn(ctx, "⚠️  Skipping drain, the AWS stack is not provisioned yet")
			return
		}
		logger.Errorf(ctx, "❌  Drain failed: %v", err)
		return
	}
	if processed > 0 {
		logger.Infof(ctx, "✅  Drained %d messages from the queue", processed)
	}
}

func sweep(ctx context.Context, repo port.JobRepository, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := repo.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		logger.Errorf(ctx, "❌  Retention sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		logger.Infof(ctx, "✅  Pruned %d finished jobs older than %d days", deleted, retentionDays)
	}
}
