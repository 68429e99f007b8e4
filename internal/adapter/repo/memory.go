package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"photoreel/internal/domain"
)

// InMemorySubmissionRepo mirrors the PostgreSQL repository semantics for tests
// and local development, including the conditional-update conflict contract.
type InMemorySubmissionRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Submission
	byCode map[string]string
	clock  func() time.Time
}

// NewInMemorySubmissionRepo constructs an empty in-memory repository.
func NewInMemorySubmissionRepo() *InMemorySubmissionRepo {
	return &InMemorySubmissionRepo{
		byID:   make(map[string]*domain.Submission),
		byCode: make(map[string]string),
		clock:  time.Now,
	}
}

var _ domain.SubmissionRepository = (*InMemorySubmissionRepo)(nil)

func (r *InMemorySubmissionRepo) Create(ctx context.Context, s *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[s.Code]; ok {
		return domain.ErrDuplicateCode
	}
	now := r.clock()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	r.byID[s.ID] = &cp
	r.byCode[s.Code] = s.ID
	return nil
}

func (r *InMemorySubmissionRepo) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *InMemorySubmissionRepo) GetByCode(ctx context.Context, code string) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *InMemorySubmissionRepo) ListByStatus(ctx context.Context, statuses []domain.Status, offset, limit int) ([]domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[domain.Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	var out []domain.Submission
	for _, s := range r.byID {
		if wanted[s.Status] {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemorySubmissionRepo) Transition(ctx context.Context, id string, expected, next domain.Status, fields domain.TransitionFields) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.Status != expected {
		return nil, domain.ErrConflict
	}
	s.Status = next
	now := r.clock()
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Microsecond)
	}
	s.UpdatedAt = now
	if fields.VideoRef != nil {
		s.GeneratedVideoRef = *fields.VideoRef
	}
	if fields.ClearError {
		s.ErrorMessage = ""
	} else if fields.ErrorMessage != nil {
		s.ErrorMessage = *fields.ErrorMessage
	}
	if fields.Attempts != nil {
		s.GenerationAttempts = *fields.Attempts
	}
	if fields.StampPhotoModerated && s.PhotoModeratedAt == nil {
		t := now
		s.PhotoModeratedAt = &t
	}
	if fields.StampVideoModerated && s.VideoModeratedAt == nil {
		t := now
		s.VideoModeratedAt = &t
	}
	cp := *s
	return &cp, nil
}
