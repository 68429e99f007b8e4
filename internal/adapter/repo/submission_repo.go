package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"photoreel/internal/domain"
)

const pgUniqueViolation = "23505"

const submissionColumns = `id, code, status, uploaded_photo_ref, user_prompt,
	generated_video_ref, generation_attempts, error_message,
	created_at, updated_at, photo_moderated_at, video_moderated_at`

// SubmissionRepositoryPG implements domain.SubmissionRepository on PostgreSQL.
type SubmissionRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a submission repository backed by PostgreSQL.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepositoryPG {
	return &SubmissionRepositoryPG{pool: pool}
}

var _ domain.SubmissionRepository = (*SubmissionRepositoryPG)(nil)

// Create inserts a new submission record. A unique violation on the code
// column is reported as domain.ErrDuplicateCode so the caller can retry with
// a fresh code.
func (r *SubmissionRepositoryPG) Create(ctx context.Context, s *domain.Submission) error {
	query := `
INSERT INTO submissions (id, code, status, uploaded_photo_ref, user_prompt)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, query, s.ID, s.Code, s.Status, s.UploadedPhotoRef, nullableString(s.UserPrompt))
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateCode
		}
		return err
	}
	return nil
}

// GetByID fetches a submission by its internal identifier.
func (r *SubmissionRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1;`, submissionColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByCode fetches a submission by its user-facing code.
func (r *SubmissionRepositoryPG) GetByCode(ctx context.Context, code string) (*domain.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE code = $1;`, submissionColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, code))
}

// ListByStatus returns submissions in any of the given statuses, oldest first.
func (r *SubmissionRepositoryPG) ListByStatus(ctx context.Context, statuses []domain.Status, offset, limit int) ([]domain.Submission, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	query := fmt.Sprintf(`
SELECT %s FROM submissions
WHERE status = ANY($1)
ORDER BY created_at ASC
OFFSET $2 LIMIT $3;
`, submissionColumns)
	rows, err := r.pool.Query(ctx, query, values, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Transition performs the status-guarded conditional update. The WHERE clause
// on the current status is what serializes concurrent writers: the loser of a
// race matches zero rows and gets domain.ErrConflict.
func (r *SubmissionRepositoryPG) Transition(ctx context.Context, id string, expected, next domain.Status, fields domain.TransitionFields) (*domain.Submission, error) {
	query := fmt.Sprintf(`
UPDATE submissions
SET status = $3,
    updated_at = now(),
    generated_video_ref = COALESCE($4, generated_video_ref),
    error_message = CASE WHEN $5 THEN NULL ELSE COALESCE($6, error_message) END,
    generation_attempts = COALESCE($7, generation_attempts),
    photo_moderated_at = CASE WHEN $8 THEN now() ELSE photo_moderated_at END,
    video_moderated_at = CASE WHEN $9 THEN now() ELSE video_moderated_at END
WHERE id = $1 AND status = $2
RETURNING %s;
`, submissionColumns)

	row := r.pool.QueryRow(ctx, query,
		id,
		expected,
		next,
		fields.VideoRef,
		fields.ClearError,
		fields.ErrorMessage,
		fields.Attempts,
		fields.StampPhotoModerated,
		fields.StampVideoModerated,
	)
	s, err := r.scanOne(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Zero rows: distinguish a missing row from a lost race.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT true FROM submissions WHERE id = $1;`, id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return nil, domain.ErrConflict
}

func (r *SubmissionRepositoryPG) scanOne(row pgx.Row) (*domain.Submission, error) {
	s, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var s domain.Submission
	var prompt, videoRef, errMsg *string
	if err := row.Scan(
		&s.ID,
		&s.Code,
		&s.Status,
		&s.UploadedPhotoRef,
		&prompt,
		&videoRef,
		&s.GenerationAttempts,
		&errMsg,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.PhotoModeratedAt,
		&s.VideoModeratedAt,
	); err != nil {
		return nil, err
	}
	if prompt != nil {
		s.UserPrompt = *prompt
	}
	if videoRef != nil {
		s.GeneratedVideoRef = *videoRef
	}
	if errMsg != nil {
		s.ErrorMessage = *errMsg
	}
	return &s, nil
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
