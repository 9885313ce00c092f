package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/featherlift/featherlift-go/internal/awsauth"
	"github.com/featherlift/featherlift-go/internal/cache"
	"github.com/featherlift/featherlift-go/internal/cdn"
	"github.com/featherlift/featherlift-go/internal/config"
	"github.com/featherlift/featherlift-go/internal/db"
	"github.com/featherlift/featherlift-go/internal/handler"
	"github.com/featherlift/featherlift-go/internal/handler/api"
	"github.com/featherlift/featherlift-go/internal/logger"
	"github.com/featherlift/featherlift-go/internal/optimiser"
	"github.com/featherlift/featherlift-go/internal/port"
	"github.com/featherlift/featherlift-go/internal/provision"
	"github.com/featherlift/featherlift-go/internal/queue"
	"github.com/featherlift/featherlift-go/internal/repository/mariadb"
	"github.com/featherlift/featherlift-go/internal/storage"
	"github.com/featherlift/featherlift-go/internal/usecase/offload"
	"github.com/featherlift/featherlift-go/internal/vision"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf(ctx, "❌  Configuration error: %v", err)
		os.Exit(1)
	}

	logger.Init()

	database := initDb(ctx, cfg)

	r := initRouter(ctx, cfg.JWTSecret)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	creds := awsauth.Credentials{
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Region:          cfg.AWSRegion,
	}
	strg := storage.NewS3Storage(httpClient, creds)
	que := queue.NewSQSQueue(httpClient, creds, cfg.ReceiveWaitSeconds)
	dist := cdn.NewCloudFrontCDN(httpClient, creds)

	var ca port.Cache
	if cfg.RedisAddr != "" {
		ca = cache.NewCache(cfg.RedisAddr, cfg.RedisPassword)
		logger.Info(ctx, "✅  Redis cache enabled")
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

	enqueuerSvc := offload.NewEnqueuer(jobRepo, que, lib, stackRepo, ca)
	r.Post("/jobs/upload", api.EnqueueUploadHandler(enqueuerSvc))
	r.Post("/jobs/download", api.EnqueueDownloadHandler(enqueuerSvc))

	retrierSvc := offload.NewRetrier(jobRepo, enqueuerSvc)
	r.Post("/jobs/retry", api.RetryFailedHandler(retrierSvc))

	altSvc := offload.NewAltTextGenerator(jobRepo, lib, visionCompleter(ctx, cfg, httpClient), ca, offload.AltOptions{
		SiteBrief:    cfg.AISiteBrief,
		SkipExisting: cfg.AISkipExistingAlt,
	})
	r.Post("/jobs/alt", api.GenerateAltTextHandler(altSvc))

	drainerSvc := offload.NewDrainer(jobRepo, que, stackRepo, ca, uploader, downloader, cfg.DrainMaxMessages)
	r.Post("/queue/drain", api.DrainQueueHandler(drainerSvc))

	provisionerSvc := provision.NewProvisioner(stackRepo, strg, que, dist, lib, provision.Config{
		SiteName:                  cfg.SiteName,
		SiteURL:                   cfg.SiteURL,
		NamingStrategy:            cfg.BucketNameStrategy,
		CustomBucketName:          cfg.BucketName,
		PreserveBucketPermissions: cfg.PreserveBucketPermissions,
		UseCloudFront:             cfg.UseCloudFront,
	})
	r.Post("/provision", api.ProvisionStackHandler(provisionerSvc))

	inspectorSvc := offload.NewInspector(jobRepo, ca)
	r.Get("/jobs", api.ListJobsHandler(inspectorSvc))
	r.With(api.WithJobID()).Get("/jobs/{id}", api.GetJobHandler(inspectorSvc))
	r.Get("/stats", api.GetStatsHandler(inspectorSvc))

	listenRouter(ctx, r, cfg, database)
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

func initRouter(ctx context.Context, jwtSecret string) *chi.Mux {
	logger.Info(ctx, "initialising router...")

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(api.WithJWTAuth(jwtSecret))

	r.NotFound(handler.NotFoundHandler())
	r.MethodNotAllowed(api.MethodNotAllowedHandler())

	return r
}

func externalCompressor(cfg *config.Settings, client *http.Client) optimiser.ExternalCompressor {
	if cfg.CompressionService == "tinypng" && cfg.TinyPNGAPIKey != "" {
		return optimiser.NewTinyPNG(client, cfg.TinyPNGAPIKey)
	}
	return nil
}

func visionCompleter(ctx context.Context, cfg *config.Settings, client *http.Client) port.VisionCompleter {
	switch cfg.AIAgent {
	case "anthropic":
		model := cfg.AIModel
		if model == "" {
			model = "claude-3-haiku-20240307"
		}
		return vision.NewAnthropic(client, cfg.AnthropicAPIKey, model)
	case "custom":
		return vision.NewCustom(client, cfg.CustomAIEndpoint, cfg.CustomAIAPIKey)
	case "openai":
	default:
		logger.Warnf(ctx, "⚠️  Unknown AI_AGENT %q, falling back to openai", cfg.AIAgent)
	}
	model := cfg.AIModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	return vision.NewOpenAI(client, cfg.OpenAIAPIKey, model)
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

func listenRouter(ctx context.Context, r *chi.Mux, cfg *config.Settings, database *db.Database) {
	srv := &http.Server{Addr: ":" + strconv.Itoa(cfg.ServerPort), Handler: r}

	// start serving
	go func() {
		logger.Infof(ctx, "🚀 API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "❌  Listen error: %v", err)
			os.Exit(1)
		}
	}()

	// block until we get SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "🛑 Shutdown signal received, exiting…")

	// graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "❌  Server shutdown failed: %v", err)
		os.Exit(1)
	}
	logger.Info(ctx, "✅  Server gracefully stopped")

	if err := database.Close(); err != nil {
		logger.Errorf(ctx, "DB close error: %v", err)
		os.Exit(1)
	}
}
