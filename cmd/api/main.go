package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"photoreel/internal/adapter/repo"
	"photoreel/internal/dispatch"
	"photoreel/internal/http/handlers"
	"photoreel/internal/http/httpapi"
	"photoreel/internal/infra"
	"photoreel/internal/infra/geoip"
	"photoreel/internal/lifecycle"
	"photoreel/internal/moderation"
	"photoreel/internal/queue"
	"photoreel/internal/storage"
)

// newPublisher picks the generation queue. Without a queue URL no worker can
// ever see approved submissions, so that is only tolerated in development,
// where the in-memory queue keeps the API usable on its own.
func newPublisher(cfg *infra.Config, awsCfg aws.Config) (queue.Publisher, error) {
	if cfg.QueueURL != "" {
		return queue.NewSQSQueue(infra.NewSQSClient(awsCfg), cfg.QueueURL), nil
	}
	if cfg.AppEnv != "development" {
		return nil, errors.New("GENERATION_QUEUE_URL is required outside development")
	}
	return queue.NewInMemoryQueue(), nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	awsCfg, err := infra.NewAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load aws config")
	}

	publisher, err := newPublisher(cfg, awsCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up generation queue")
	}
	if cfg.QueueURL == "" {
		logger.Warn().Msg("GENERATION_QUEUE_URL unset, using in-memory queue (development only)")
	}

	var signer storage.URLSigner = storage.NoopSigner{}
	if cfg.MediaBucket != "" {
		signer = storage.NewS3Signer(infra.NewS3Client(awsCfg), cfg.MediaBucket)
	}

	geoResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	if closer, ok := geoResolver.(io.Closer); ok {
		defer closer.Close()
	}

	engine := lifecycle.NewEngine(repo.NewSubmissionRepository(dbpool), logger)
	dispatcher := dispatch.NewDispatcher(engine, publisher, logger)
	gateway := moderation.NewGateway(engine, dispatcher, logger)

	app := handlers.NewApp(engine, gateway, signer, cfg.SignedURLTTL, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:             logger,
		ModeratorJWTSecret: []byte(cfg.ModeratorJWTSecret),
		RateLimitPerMinute: cfg.RateLimitPerMin,
		AllowedOrigins:     cfg.AllowedOrigins,
		GeoResolver:        geoResolver,
	})

	server := infra.NewHTTPServer(cfg, router)
	logger.Info().Msgf("API listening on :%s", cfg.Port)
	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
