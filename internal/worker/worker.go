// Package worker consumes generation tasks, drives the external prompt and
// video services, and records the outcome on the submission.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"photoreel/internal/dispatch"
	"photoreel/internal/domain"
	"photoreel/internal/lifecycle"
	"photoreel/internal/providers/prompt"
	"photoreel/internal/providers/video"
	"photoreel/internal/queue"
)

// Options tunes the worker's retry policy and deadlines.
type Options struct {
	// MaxRetries is how many times a failed generation is requeued before the
	// submission is left in GENERATION_FAILED for operators.
	MaxRetries int
	// RetryBaseDelay seeds the exponential backoff between redeliveries.
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the backoff.
	RetryMaxDelay time.Duration
	// GenerationTimeout bounds one enhancement + generation attempt.
	GenerationTimeout time.Duration
	// IdleSleep is the pause after an empty or failed receive.
	IdleSleep time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 2
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 30 * time.Second
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = 10 * time.Minute
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = 20 * time.Minute
	}
	if o.IdleSleep <= 0 {
		o.IdleSleep = 2 * time.Second
	}
}

// Worker is one stateless consumer of the generation queue. Any number of
// workers may run concurrently; the store's conditional update serializes
// them per submission.
type Worker struct {
	engine     *lifecycle.Engine
	consumer   queue.Consumer
	dispatcher *dispatch.Dispatcher
	enhancer   prompt.Enhancer
	generator  video.Generator
	opts       Options
	logger     zerolog.Logger
}

// New constructs a worker.
func New(
	engine *lifecycle.Engine,
	consumer queue.Consumer,
	dispatcher *dispatch.Dispatcher,
	enhancer prompt.Enhancer,
	generator video.Generator,
	opts Options,
	logger zerolog.Logger,
) *Worker {
	opts.applyDefaults()
	return &Worker{
		engine:     engine,
		consumer:   consumer,
		dispatcher: dispatcher,
		enhancer:   enhancer,
		generator:  generator,
		opts:       opts,
		logger:     logger,
	}
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := w.consumer.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error().Err(err).Msg("worker: receive failed")
			sleep(ctx, w.opts.IdleSleep)
			continue
		}
		if len(msgs) == 0 {
			sleep(ctx, w.opts.IdleSleep)
			continue
		}
		for _, msg := range msgs {
			w.handleTask(ctx, msg.Task)
			// Acked regardless of outcome: failures were recorded on the
			// submission and, when retryable, requeued as a fresh delayed
			// message. Redelivery of this handle only matters after a crash.
			if err := w.consumer.Ack(ctx, msg.Handle); err != nil {
				w.logger.Error().Err(err).Str("submission_id", msg.Task.SubmissionID).Msg("worker: ack failed")
			}
		}
	}
}

// handleTask processes one task message end to end.
func (w *Worker) handleTask(ctx context.Context, task queue.Task) {
	log := w.logger.With().Str("submission_id", task.SubmissionID).Int("attempt", task.Attempt).Logger()

	// Claim: only one worker can move the row out of QUEUED_FOR_GENERATION.
	s, err := w.engine.Apply(ctx, task.SubmissionID,
		domain.StatusQueuedForGeneration, domain.StatusGeneratingVideo, domain.TransitionFields{})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			// Redelivered or raced message; the submission moved on.
			log.Info().Msg("worker: task already claimed or stale, skipping")
		case errors.Is(err, domain.ErrNotFound):
			log.Warn().Msg("worker: submission gone, dropping task")
		default:
			log.Error().Err(err).Msg("worker: claim failed")
		}
		return
	}
	log.Info().Msg("worker: claimed submission")

	genCtx, cancel := context.WithTimeout(ctx, w.opts.GenerationTimeout)
	defer cancel()

	videoRef, genErr := w.generate(genCtx, s)
	if genErr == nil {
		if _, err := w.engine.Apply(ctx, s.ID,
			domain.StatusGeneratingVideo, domain.StatusPendingVideoApproval,
			domain.TransitionFields{VideoRef: &videoRef, ClearError: true}); err != nil {
			log.Error().Err(err).Msg("worker: failed to record success")
			return
		}
		log.Info().Str("video_ref", videoRef).Msg("worker: generation succeeded")
		return
	}

	w.recordFailure(ctx, log, s.ID, task.Attempt, genErr)
}

// generate runs the two external calls for one attempt.
func (w *Worker) generate(ctx context.Context, s *domain.Submission) (string, error) {
	enhanced, err := w.enhancer.Enhance(ctx, s.UserPrompt, s.UploadedPhotoRef)
	if err != nil {
		return "", err
	}
	return w.generator.Generate(ctx, enhanced, s.UploadedPhotoRef)
}

// recordFailure transitions to GENERATION_FAILED and, while the retry budget
// allows, requeues with backoff. Attempt state lives on the row and in the
// message so a worker crash cannot lose retry progress.
func (w *Worker) recordFailure(ctx context.Context, log zerolog.Logger, id string, attempt int, genErr error) {
	attempts := attempt + 1
	msg := genErr.Error()
	if _, err := w.engine.Apply(ctx, id,
		domain.StatusGeneratingVideo, domain.StatusGenerationFailed,
		domain.TransitionFields{ErrorMessage: &msg, Attempts: &attempts}); err != nil {
		log.Error().Err(err).Msg("worker: failed to record failure")
		return
	}

	if attempt >= w.opts.MaxRetries {
		log.Error().Err(genErr).Int("attempts", attempts).Msg("worker: retries exhausted, awaiting manual action")
		return
	}

	delay := Backoff(attempts, w.opts.RetryBaseDelay, w.opts.RetryMaxDelay)
	if err := w.dispatcher.Dispatch(ctx, id, domain.StatusGenerationFailed, attempts, delay); err != nil {
		// The transition or the publish was lost; the manual retry endpoint
		// re-drives both safely.
		log.Error().Err(err).Msg("worker: requeue failed")
		return
	}
	log.Warn().Err(genErr).Int("attempts", attempts).Dur("retry_in", delay).Msg("worker: generation failed, requeued")
}

// Backoff returns the delivery delay before retry attempt n (1-based):
// base doubled per prior attempt, capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
