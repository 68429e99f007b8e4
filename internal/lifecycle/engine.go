// Package lifecycle holds the submission state machine engine: the only code
// path allowed to mutate a submission's status. Both the moderation gateway
// and the generation worker go through it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photoreel/internal/domain"
)

// createRetries bounds how often creation retries after a code collision.
const createRetries = 5

// Engine validates transitions against the domain table before handing them
// to the store's conditional update. It never retries on its own; retry
// decisions belong to callers.
type Engine struct {
	repo   domain.SubmissionRepository
	logger zerolog.Logger
}

// NewEngine constructs an engine over the given submission store.
func NewEngine(repo domain.SubmissionRepository, logger zerolog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger}
}

// CreateSubmission inserts a new submission in the initial state. Code
// collisions are retried internally with a fresh code.
func (e *Engine) CreateSubmission(ctx context.Context, photoRef, userPrompt string) (*domain.Submission, error) {
	if photoRef == "" {
		return nil, fmt.Errorf("photo reference is required")
	}
	for i := 0; i < createRetries; i++ {
		s := &domain.Submission{
			ID:               uuid.NewString(),
			Code:             domain.NewSubmissionCode(),
			Status:           domain.StatusPendingPhotoApproval,
			UploadedPhotoRef: photoRef,
			UserPrompt:       userPrompt,
		}
		err := e.repo.Create(ctx, s)
		if err == nil {
			e.logger.Info().Str("submission_id", s.ID).Str("code", s.Code).Msg("lifecycle: submission created")
			return s, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) {
			return nil, err
		}
		e.logger.Warn().Str("code", s.Code).Msg("lifecycle: submission code collision, retrying")
	}
	return nil, domain.ErrDuplicateCode
}

// Apply moves a submission along one edge of the state machine. An edge
// missing from the transition table fails with IllegalTransitionError and
// leaves the record untouched; a stored status that no longer matches `from`
// fails with ErrConflict.
func (e *Engine) Apply(ctx context.Context, id string, from, to domain.Status, fields domain.TransitionFields) (*domain.Submission, error) {
	if !from.CanTransition(to) {
		return nil, &domain.IllegalTransitionError{From: from, To: to}
	}
	s, err := e.repo.Transition(ctx, id, from, to, fields)
	if err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("submission_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("lifecycle: transition applied")
	return s, nil
}

// Get returns a submission by internal id.
func (e *Engine) Get(ctx context.Context, id string) (*domain.Submission, error) {
	return e.repo.GetByID(ctx, id)
}

// GetByCode returns a submission by its user-facing code.
func (e *Engine) GetByCode(ctx context.Context, code string) (*domain.Submission, error) {
	return e.repo.GetByCode(ctx, code)
}

// ListByStatus returns submissions in the given statuses, oldest first.
func (e *Engine) ListByStatus(ctx context.Context, statuses []domain.Status, offset, limit int) ([]domain.Submission, error) {
	return e.repo.ListByStatus(ctx, statuses, offset, limit)
}
