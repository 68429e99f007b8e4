package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"photoreel/internal/adapter/repo"
	"photoreel/internal/dispatch"
	"photoreel/internal/infra"
	"photoreel/internal/lifecycle"
	"photoreel/internal/providers/prompt"
	"photoreel/internal/providers/video"
	"photoreel/internal/queue"
	"photoreel/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	if cfg.QueueURL == "" {
		logger.Fatal().Msg("worker: GENERATION_QUEUE_URL is required")
	}
	awsCfg, err := infra.NewAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to load aws config")
	}
	q := queue.NewSQSQueue(infra.NewSQSClient(awsCfg), cfg.QueueURL)

	var enhancer prompt.Enhancer
	if cfg.GeminiAPIKey != "" {
		enhancer, err = prompt.NewGeminiEnhancer(prompt.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: gemini enhancer init failed")
		}
	} else {
		logger.Warn().Msg("worker: GEMINI_API_KEY unset, using static prompt enhancer")
		enhancer = prompt.NewStaticEnhancer()
	}

	generator, err := video.NewVeo(video.VeoOptions{
		APIKey:       cfg.GeminiAPIKey,
		Model:        cfg.VeoModel,
		BaseURL:      cfg.GeminiBaseURL,
		OutputPrefix: cfg.VeoOutputURI,
		PollInterval: cfg.VeoPollInterval,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: veo client init failed")
	}

	engine := lifecycle.NewEngine(repo.NewSubmissionRepository(pool), logger)
	dispatcher := dispatch.NewDispatcher(engine, q, logger)

	w := worker.New(engine, q, dispatcher, enhancer, generator, worker.Options{
		MaxRetries:        cfg.MaxRetries,
		RetryBaseDelay:    cfg.RetryBaseDelay,
		RetryMaxDelay:     cfg.RetryMaxDelay,
		GenerationTimeout: cfg.GenerationTimeout,
	}, logger)

	logger.Info().Str("queue", cfg.QueueURL).Msg("worker: consuming generation tasks")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
