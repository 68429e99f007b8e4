package domain

import "context"

// TransitionFields carries the optional column updates that ride along with a
// status transition. Nil pointers leave the stored value untouched.
type TransitionFields struct {
	VideoRef     *string
	ErrorMessage *string
	ClearError   bool
	Attempts     *int
	// StampPhotoModerated / StampVideoModerated set the corresponding
	// *_moderated_at timestamp, which is written exactly once.
	StampPhotoModerated bool
	StampVideoModerated bool
}

// SubmissionRepository is the durable store of submissions. Transition is a
// single-row conditional update: it succeeds only when the stored status still
// equals expected, returning ErrConflict otherwise. That guard is the only
// cross-worker coordination mechanism in the system.
type SubmissionRepository interface {
	Create(ctx context.Context, s *Submission) error
	GetByID(ctx context.Context, id string) (*Submission, error)
	GetByCode(ctx context.Context, code string) (*Submission, error)
	ListByStatus(ctx context.Context, statuses []Status, offset, limit int) ([]Submission, error)
	Transition(ctx context.Context, id string, expected, next Status, fields TransitionFields) (*Submission, error)
}
