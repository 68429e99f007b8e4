// Package moderation applies operator decisions to submissions. It is the
// only writer that moves a submission out of the two pending-approval states.
package moderation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"photoreel/internal/dispatch"
	"photoreel/internal/domain"
	"photoreel/internal/lifecycle"
)

// Gateway validates moderator decisions against the current submission state
// before handing them to the state machine engine.
type Gateway struct {
	engine     *lifecycle.Engine
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger
}

// NewGateway constructs a moderation gateway.
func NewGateway(engine *lifecycle.Engine, dispatcher *dispatch.Dispatcher, logger zerolog.Logger) *Gateway {
	return &Gateway{engine: engine, dispatcher: dispatcher, logger: logger}
}

// Decide records an approve/reject verdict for the given phase. A decision on
// a submission that is not pending that phase fails with
// IllegalTransitionError; rejects are terminal for the phase. Approving a
// photo also dispatches the generation task; a publish failure is surfaced so
// the moderator action can be retried.
func (g *Gateway) Decide(ctx context.Context, id string, phase domain.ModerationPhase, decision domain.Decision) (*domain.Submission, error) {
	pending, target, fields, err := resolveDecision(phase, decision)
	if err != nil {
		return nil, err
	}

	current, err := g.engine.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != pending {
		// Duplicate or stale moderator action (e.g. a double-click).
		return nil, &domain.IllegalTransitionError{From: current.Status, To: target}
	}

	s, err := g.engine.Apply(ctx, id, pending, target, fields)
	if err != nil {
		return nil, err
	}
	g.logger.Info().
		Str("submission_id", id).
		Str("phase", string(phase)).
		Str("decision", string(decision)).
		Msg("moderation: decision recorded")

	if phase == domain.PhasePhoto && decision == domain.DecisionApprove {
		if err := g.dispatcher.Dispatch(ctx, id, domain.StatusPhotoApproved, 0, 0); err != nil {
			return s, fmt.Errorf("dispatch generation task: %w", err)
		}
	}
	return s, nil
}

// Retry is the operator path for a submission stuck in GENERATION_FAILED
// after its retry budget was exhausted (or after a lost requeue). It resets
// the attempt counter and requeues the task.
func (g *Gateway) Retry(ctx context.Context, id string) (*domain.Submission, error) {
	current, err := g.engine.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case domain.StatusGenerationFailed, domain.StatusQueuedForGeneration:
		// QUEUED_FOR_GENERATION is allowed: it covers a transition whose
		// publish was lost, which a retry must re-drive.
	default:
		return nil, &domain.IllegalTransitionError{From: current.Status, To: domain.StatusQueuedForGeneration}
	}

	if err := g.dispatcher.Dispatch(ctx, id, domain.StatusGenerationFailed, 0, 0); err != nil {
		return nil, err
	}
	g.logger.Info().Str("submission_id", id).Msg("moderation: generation retry dispatched")
	return g.engine.Get(ctx, id)
}

func resolveDecision(phase domain.ModerationPhase, decision domain.Decision) (pending, target domain.Status, fields domain.TransitionFields, err error) {
	switch phase {
	case domain.PhasePhoto:
		pending = domain.StatusPendingPhotoApproval
		fields = domain.TransitionFields{StampPhotoModerated: true}
		switch decision {
		case domain.DecisionApprove:
			target = domain.StatusPhotoApproved
		case domain.DecisionReject:
			target = domain.StatusPhotoRejected
		default:
			err = fmt.Errorf("unknown decision %q", decision)
		}
	case domain.PhaseVideo:
		pending = domain.StatusPendingVideoApproval
		fields = domain.TransitionFields{StampVideoModerated: true}
		switch decision {
		case domain.DecisionApprove:
			target = domain.StatusVideoApproved
		case domain.DecisionReject:
			target = domain.StatusVideoRejected
		default:
			err = fmt.Errorf("unknown decision %q", decision)
		}
	default:
		err = fmt.Errorf("unknown moderation phase %q", phase)
	}
	return pending, target, fields, err
}
