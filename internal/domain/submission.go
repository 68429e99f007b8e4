package domain

import "time"

// Status enumerates submission lifecycle states.
type Status string

const (
	StatusPendingPhotoApproval Status = "PENDING_PHOTO_APPROVAL"
	StatusPhotoRejected        Status = "PHOTO_REJECTED"
	StatusPhotoApproved        Status = "PHOTO_APPROVED"
	StatusQueuedForGeneration  Status = "QUEUED_FOR_GENERATION"
	StatusGeneratingVideo      Status = "GENERATING_VIDEO"
	StatusGenerationFailed     Status = "GENERATION_FAILED"
	StatusPendingVideoApproval Status = "PENDING_VIDEO_APPROVAL"
	StatusVideoRejected        Status = "VIDEO_REJECTED"
	StatusVideoApproved        Status = "VIDEO_APPROVED"
)

// Statuses lists every lifecycle state in rough pipeline order.
var Statuses = []Status{
	StatusPendingPhotoApproval,
	StatusPhotoRejected,
	StatusPhotoApproved,
	StatusQueuedForGeneration,
	StatusGeneratingVideo,
	StatusGenerationFailed,
	StatusPendingVideoApproval,
	StatusVideoRejected,
	StatusVideoApproved,
}

// transitions is the closed edge set of the submission state machine.
// Anything not listed here is an illegal transition.
var transitions = map[Status][]Status{
	StatusPendingPhotoApproval: {StatusPhotoRejected, StatusPhotoApproved},
	StatusPhotoApproved:        {StatusQueuedForGeneration},
	StatusQueuedForGeneration:  {StatusGeneratingVideo},
	StatusGeneratingVideo:      {StatusPendingVideoApproval, StatusGenerationFailed},
	StatusGenerationFailed:     {StatusQueuedForGeneration},
	StatusPendingVideoApproval: {StatusVideoRejected, StatusVideoApproved},
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	if ok {
		return true
	}
	switch s {
	case StatusPhotoRejected, StatusVideoRejected, StatusVideoApproved:
		return true
	}
	return false
}

// CanTransition reports whether the edge s -> next exists in the state machine.
func (s Status) CanTransition(next Status) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing edges. GENERATION_FAILED is not
// terminal at the type level; it only becomes effectively terminal once the
// retry budget is exhausted.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// HasVideo reports whether a submission in state s must carry a generated
// video reference.
func (s Status) HasVideo() bool {
	switch s {
	case StatusPendingVideoApproval, StatusVideoRejected, StatusVideoApproved:
		return true
	}
	return false
}

// ModerationPhase identifies which artifact a moderator decision applies to.
type ModerationPhase string

const (
	PhasePhoto ModerationPhase = "photo"
	PhaseVideo ModerationPhase = "video"
)

// Decision is a moderator verdict on a photo or a generated video.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Submission tracks one user photo through moderation and video generation.
type Submission struct {
	ID                 string
	Code               string
	Status             Status
	UploadedPhotoRef   string
	UserPrompt         string
	GeneratedVideoRef  string
	GenerationAttempts int
	ErrorMessage       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	PhotoModeratedAt   *time.Time
	VideoModeratedAt   *time.Time
}
