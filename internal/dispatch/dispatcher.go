// Package dispatch publishes generation tasks as a side effect of submission
// store transitions. Nothing else writes to the generation queue.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"photoreel/internal/domain"
	"photoreel/internal/lifecycle"
	"photoreel/internal/queue"
)

// Dispatcher performs the transition-then-publish step that hands an approved
// submission to the generation workers.
type Dispatcher struct {
	engine    *lifecycle.Engine
	publisher queue.Publisher
	logger    zerolog.Logger
}

// NewDispatcher constructs a dispatcher over the engine and queue publisher.
func NewDispatcher(engine *lifecycle.Engine, publisher queue.Publisher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{engine: engine, publisher: publisher, logger: logger}
}

// Dispatch moves a submission from `from` into QUEUED_FOR_GENERATION and
// publishes a task message carrying the attempt count, delayed by `delay`.
//
// If the transition loses to a concurrent writer but the submission is
// already QUEUED_FOR_GENERATION, the publish still happens: that is the
// recovery path for an approval that transitioned but crashed before its
// publish landed. Duplicate messages are harmless under the worker's claim
// guard.
func (d *Dispatcher) Dispatch(ctx context.Context, id string, from domain.Status, attempt int, delay time.Duration) error {
	_, err := d.engine.Apply(ctx, id, from, domain.StatusQueuedForGeneration, domain.TransitionFields{})
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		current, getErr := d.engine.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		if current.Status != domain.StatusQueuedForGeneration {
			return err
		}
		d.logger.Info().Str("submission_id", id).Msg("dispatch: already queued, re-publishing")
	}

	task := queue.Task{SubmissionID: id, Attempt: attempt}
	if err := d.publisher.Publish(ctx, task, delay); err != nil {
		// Surfaced to the caller; the submission stays QUEUED_FOR_GENERATION
		// and a repeated dispatch re-publishes.
		return fmt.Errorf("publish generation task: %w", err)
	}
	d.logger.Info().
		Str("submission_id", id).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("dispatch: generation task published")
	return nil
}
