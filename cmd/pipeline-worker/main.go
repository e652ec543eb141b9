package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/conjurecontent/backend/internal/assembler"
	"github.com/conjurecontent/backend/internal/composer"
	"github.com/conjurecontent/backend/internal/jobstore"
	"github.com/conjurecontent/backend/internal/scheduler"
	"github.com/conjurecontent/backend/internal/speech"
	"github.com/conjurecontent/backend/internal/textgen"
	"github.com/conjurecontent/backend/internal/uploader"
	"github.com/conjurecontent/backend/pkg/config"
	"github.com/conjurecontent/backend/pkg/db"
	"github.com/conjurecontent/backend/pkg/logger"
	"github.com/conjurecontent/backend/pkg/metrics"
	"github.com/conjurecontent/backend/pkg/migrate"
	"github.com/conjurecontent/backend/pkg/redis"
)

const lockKeyFormat = "cc:pipeline-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "pipeline-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "pipeline-worker"

	logg = logger.New(logger.Options{
		ServiceName: "pipeline-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	if err := os.MkdirAll(cfg.Pipeline.WorkDir, 0o750); err != nil {
		logg.Error(context.Background(), "failed to prepare work dir", err)
		os.Exit(1)
	}

	jobService, err := jobstore.NewService(jobstore.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create job service", err)
		os.Exit(1)
	}

	textGen, err := textgen.NewClient(cfg.OpenAI)
	if err != nil {
		logg.Error(context.Background(), "failed to create text generation client", err)
		os.Exit(1)
	}
	synthesizer, err := speech.NewSynthesizer(cfg.OpenAI)
	if err != nil {
		logg.Error(context.Background(), "failed to create speech synthesizer", err)
		os.Exit(1)
	}

	mediaAssembler, err := assembler.New(assembler.Params{
		Logger:        logg,
		TextGenerator: textGen,
		Synthesizer:   synthesizer,
		Composer:      composer.New(cfg.Pipeline),
		WorkDir:       cfg.Pipeline.WorkDir,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create media assembler", err)
		os.Exit(1)
	}

	videoUploader, err := uploader.New(uploader.Params{
		Logger: logg,
		TikTok: cfg.TikTok,
		Upload: cfg.Upload,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create uploader", err)
		os.Exit(1)
	}

	lock, err := scheduler.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cycle lock", err)
		os.Exit(1)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)
	service, err := scheduler.NewService(scheduler.ServiceParams{
		Logger:       logg,
		Store:        jobService,
		Assembler:    mediaAssembler,
		Uploader:     videoUploader,
		Lock:         lock,
		Metrics:      pipelineMetrics,
		PollInterval: cfg.Pipeline.PollInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting pipeline worker")

	go serveMetrics(ctx, logg, cfg.Pipeline.MetricsPort)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "pipeline worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "pipeline worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
