package moderation

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoreel/internal/adapter/repo"
	"photoreel/internal/dispatch"
	"photoreel/internal/domain"
	"photoreel/internal/lifecycle"
	"photoreel/internal/queue"
)

func newGateway(t *testing.T) (*Gateway, *lifecycle.Engine, *queue.InMemoryQueue) {
	t.Helper()
	log := zerolog.New(io.Discard)
	store := repo.NewInMemorySubmissionRepo()
	engine := lifecycle.NewEngine(store, log)
	q := queue.NewInMemoryQueue()
	d := dispatch.NewDispatcher(engine, q, log)
	return NewGateway(engine, d, log), engine, q
}

func createSubmission(t *testing.T, engine *lifecycle.Engine) *domain.Submission {
	t.Helper()
	s, err := engine.CreateSubmission(context.Background(), "pending_photos/p.jpg", "dance")
	require.NoError(t, err)
	return s
}

func TestPhotoApprovalQueuesGeneration(t *testing.T) {
	gw, engine, q := newGateway(t)
	s := createSubmission(t, engine)

	_, err := gw.Decide(context.Background(), s.ID, domain.PhasePhoto, domain.DecisionApprove)
	require.NoError(t, err)

	got, err := engine.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueuedForGeneration, got.Status)
	assert.NotNil(t, got.PhotoModeratedAt)
	assert.Equal(t, 1, q.Len())
}

func TestPhotoRejectIsTerminal(t *testing.T) {
	gw, engine, q := newGateway(t)
	s := createSubmission(t, engine)

	got, err := gw.Decide(context.Background(), s.ID, domain.PhasePhoto, domain.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPhotoRejected, got.Status)
	assert.True(t, got.Status.Terminal())
	assert.Zero(t, q.Len(), "rejects never dispatch")
}

func TestDoubleRejectFailsWithIllegalTransition(t *testing.T) {
	gw, engine, _ := newGateway(t)
	s := createSubmission(t, engine)

	_, err := gw.Decide(context.Background(), s.ID, domain.PhasePhoto, domain.DecisionReject)
	require.NoError(t, err)

	before, err := engine.Get(context.Background(), s.ID)
	require.NoError(t, err)

	_, err = gw.Decide(context.Background(), s.ID, domain.PhasePhoto, domain.DecisionReject)
	assert.True(t, domain.IsIllegalTransition(err), "got %v", err)

	after, err := engine.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "stored record unchanged")
}

func TestVideoDecisionRequiresPendingVideoApproval(t *testing.T) {
	gw, engine, _ := newGateway(t)
	s := createSubmission(t, engine)

	_, err := gw.Decide(context.Background(), s.ID, domain.PhaseVideo, domain.DecisionApprove)
	assert.True(t, domain.IsIllegalTransition(err), "got %v", err)
}

func TestVideoApproval(t *testing.T) {
	gw, engine, _ := newGateway(t)
	s := createSubmission(t, engine)
	ctx := context.Background()

	_, err := gw.Decide(ctx, s.ID, domain.PhasePhoto, domain.DecisionApprove)
	require.NoError(t, err)
	_, err = engine.Apply(ctx, s.ID, domain.StatusQueuedForGeneration, domain.StatusGeneratingVideo, domain.TransitionFields{})
	require.NoError(t, err)
	ref := "generated_videos/v.mp4"
	_, err = engine.Apply(ctx, s.ID, domain.StatusGeneratingVideo, domain.StatusPendingVideoApproval,
		domain.TransitionFields{VideoRef: &ref, ClearError: true})
	require.NoError(t, err)

	got, err := gw.Decide(ctx, s.ID, domain.PhaseVideo, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVideoApproved, got.Status)
	assert.NotNil(t, got.VideoModeratedAt)
	assert.Equal(t, ref, got.GeneratedVideoRef)
}

func TestDecideUnknownSubmission(t *testing.T) {
	gw, _, _ := newGateway(t)
	_, err := gw.Decide(context.Background(), "missing", domain.PhasePhoto, domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRetryRequiresFailedGeneration(t *testing.T) {
	gw, engine, _ := newGateway(t)
	s := createSubmission(t, engine)

	_, err := gw.Retry(context.Background(), s.ID)
	assert.True(t, domain.IsIllegalTransition(err), "got %v", err)
}

func TestRetryRequeuesFailedGeneration(t *testing.T) {
	gw, engine, q := newGateway(t)
	s := createSubmission(t, engine)
	ctx := context.Background()

	_, err := gw.Decide(ctx, s.ID, domain.PhasePhoto, domain.DecisionApprove)
	require.NoError(t, err)
	_, err = engine.Apply(ctx, s.ID, domain.StatusQueuedForGeneration, domain.StatusGeneratingVideo, domain.TransitionFields{})
	require.NoError(t, err)
	msg := "boom"
	attempts := 3
	_, err = engine.Apply(ctx, s.ID, domain.StatusGeneratingVideo, domain.StatusGenerationFailed,
		domain.TransitionFields{ErrorMessage: &msg, Attempts: &attempts})
	require.NoError(t, err)

	queued := q.Len()
	got, err := gw.Retry(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueuedForGeneration, got.Status)
	assert.Equal(t, queued+1, q.Len())
}
