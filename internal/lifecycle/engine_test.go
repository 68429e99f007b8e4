package lifecycle

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoreel/internal/adapter/repo"
	"photoreel/internal/domain"
)

func newTestEngine() (*Engine, *repo.InMemorySubmissionRepo) {
	store := repo.NewInMemorySubmissionRepo()
	return NewEngine(store, zerolog.New(io.Discard)), store
}

func TestCreateSubmission(t *testing.T) {
	engine, _ := newTestEngine()
	s, err := engine.CreateSubmission(context.Background(), "pending_photos/abc.jpg", "a duck on a skateboard")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPhotoApproval, s.Status)
	assert.Len(t, s.Code, domain.CodeLength)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := engine.GetByCode(context.Background(), s.Code)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestCreateSubmissionRequiresPhoto(t *testing.T) {
	engine, _ := newTestEngine()
	_, err := engine.CreateSubmission(context.Background(), "", "")
	assert.Error(t, err)
}

func TestApplyIllegalTransitionLeavesRecordUntouched(t *testing.T) {
	engine, _ := newTestEngine()
	s, err := engine.CreateSubmission(context.Background(), "pending_photos/abc.jpg", "")
	require.NoError(t, err)

	before, err := engine.Get(context.Background(), s.ID)
	require.NoError(t, err)

	_, err = engine.Apply(context.Background(), s.ID, domain.StatusPendingPhotoApproval, domain.StatusGeneratingVideo, domain.TransitionFields{})
	var ite *domain.IllegalTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, domain.StatusPendingPhotoApproval, ite.From)

	after, err := engine.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApplyStaleExpectedStatusConflicts(t *testing.T) {
	engine, _ := newTestEngine()
	s, err := engine.CreateSubmission(context.Background(), "pending_photos/abc.jpg", "")
	require.NoError(t, err)

	_, err = engine.Apply(context.Background(), s.ID, domain.StatusPendingPhotoApproval, domain.StatusPhotoApproved, domain.TransitionFields{StampPhotoModerated: true})
	require.NoError(t, err)

	// Replaying the same trigger now observes a stale expected status.
	_, err = engine.Apply(context.Background(), s.ID, domain.StatusPendingPhotoApproval, domain.StatusPhotoApproved, domain.TransitionFields{})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestApplyNotFound(t *testing.T) {
	engine, _ := newTestEngine()
	_, err := engine.Apply(context.Background(), "nope", domain.StatusPendingPhotoApproval, domain.StatusPhotoApproved, domain.TransitionFields{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentTransitionExactlyOneWins(t *testing.T) {
	engine, _ := newTestEngine()
	s, err := engine.CreateSubmission(context.Background(), "pending_photos/abc.jpg", "")
	require.NoError(t, err)
	_, err = engine.Apply(context.Background(), s.ID, domain.StatusPendingPhotoApproval, domain.StatusPhotoApproved, domain.TransitionFields{})
	require.NoError(t, err)
	_, err = engine.Apply(context.Background(), s.ID, domain.StatusPhotoApproved, domain.StatusQueuedForGeneration, domain.TransitionFields{})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Apply(context.Background(), s.ID, domain.StatusQueuedForGeneration, domain.StatusGeneratingVideo, domain.TransitionFields{})
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one claim must succeed")
	assert.Equal(t, workers-1, conflicts)
}

func TestVideoRefSetIffVideoStates(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()
	s, err := engine.CreateSubmission(ctx, "pending_photos/abc.jpg", "")
	require.NoError(t, err)

	steps := []struct {
		from, to domain.Status
		fields   domain.TransitionFields
	}{
		{domain.StatusPendingPhotoApproval, domain.StatusPhotoApproved, domain.TransitionFields{StampPhotoModerated: true}},
		{domain.StatusPhotoApproved, domain.StatusQueuedForGeneration, domain.TransitionFields{}},
		{domain.StatusQueuedForGeneration, domain.StatusGeneratingVideo, domain.TransitionFields{}},
	}
	for _, step := range steps {
		cur, err := engine.Apply(ctx, s.ID, step.from, step.to, step.fields)
		require.NoError(t, err)
		assert.Empty(t, cur.GeneratedVideoRef, "no video ref before generation succeeds")
	}

	ref := "generated_videos/v1.mp4"
	cur, err := engine.Apply(ctx, s.ID, domain.StatusGeneratingVideo, domain.StatusPendingVideoApproval,
		domain.TransitionFields{VideoRef: &ref, ClearError: true})
	require.NoError(t, err)
	assert.Equal(t, ref, cur.GeneratedVideoRef)
	assert.True(t, cur.Status.HasVideo())

	cur, err = engine.Apply(ctx, s.ID, domain.StatusPendingVideoApproval, domain.StatusVideoApproved,
		domain.TransitionFields{StampVideoModerated: true})
	require.NoError(t, err)
	assert.Equal(t, ref, cur.GeneratedVideoRef)
	assert.NotNil(t, cur.VideoModeratedAt)
}

func TestUpdatedAtMonotonic(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()
	s, err := engine.CreateSubmission(ctx, "pending_photos/abc.jpg", "")
	require.NoError(t, err)

	prev := s.UpdatedAt
	cur, err := engine.Apply(ctx, s.ID, domain.StatusPendingPhotoApproval, domain.StatusPhotoApproved, domain.TransitionFields{})
	require.NoError(t, err)
	assert.True(t, cur.UpdatedAt.After(prev))

	prev = cur.UpdatedAt
	cur, err = engine.Apply(ctx, s.ID, domain.StatusPhotoApproved, domain.StatusQueuedForGeneration, domain.TransitionFields{})
	require.NoError(t, err)
	assert.True(t, cur.UpdatedAt.After(prev))
}

// collidingRepo fails the first n Create calls with ErrDuplicateCode,
// recording every code the engine tried.
type collidingRepo struct {
	domain.SubmissionRepository
	mu         sync.Mutex
	collisions int
	triedCodes []string
}

func (r *collidingRepo) Create(ctx context.Context, s *domain.Submission) error {
	r.mu.Lock()
	r.triedCodes = append(r.triedCodes, s.Code)
	collide := r.collisions > 0
	if collide {
		r.collisions--
	}
	r.mu.Unlock()
	if collide {
		return domain.ErrDuplicateCode
	}
	return r.SubmissionRepository.Create(ctx, s)
}

func TestCreateSubmissionRetriesOnCodeCollision(t *testing.T) {
	store := &collidingRepo{
		SubmissionRepository: repo.NewInMemorySubmissionRepo(),
		collisions:           2,
	}
	engine := NewEngine(store, zerolog.New(io.Discard))

	s, err := engine.CreateSubmission(context.Background(), "pending_photos/abc.jpg", "")
	require.NoError(t, err)

	require.Len(t, store.triedCodes, 3)
	seen := make(map[string]struct{}, len(store.triedCodes))
	for _, code := range store.triedCodes {
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 3, "every retry must use a fresh code")
	assert.Equal(t, store.triedCodes[2], s.Code)

	got, err := engine.GetByCode(context.Background(), s.Code)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestCreateSubmissionExhaustsCollisionRetries(t *testing.T) {
	store := &collidingRepo{
		SubmissionRepository: repo.NewInMemorySubmissionRepo(),
		collisions:           createRetries + 1,
	}
	engine := NewEngine(store, zerolog.New(io.Discard))

	_, err := engine.CreateSubmission(context.Background(), "pending_photos/abc.jpg", "")
	require.ErrorIs(t, err, domain.ErrDuplicateCode)
	assert.Len(t, store.triedCodes, createRetries)
}
