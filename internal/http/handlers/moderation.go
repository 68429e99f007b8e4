package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"photoreel/internal/domain"
)

type moderationActionRequest struct {
	Action string `json:"action"`
}

// PendingPhotos lists submissions awaiting photo review, with signed photo URLs.
func (a *App) PendingPhotos(w http.ResponseWriter, r *http.Request) {
	a.moderationList(w, r, []domain.Status{domain.StatusPendingPhotoApproval}, true, false)
}

// PendingVideos lists submissions awaiting video review, with signed photo and video URLs.
func (a *App) PendingVideos(w http.ResponseWriter, r *http.Request) {
	a.moderationList(w, r, []domain.Status{domain.StatusPendingVideoApproval}, true, true)
}

// FailedGenerations lists submissions whose generation failed, for manual retry.
func (a *App) FailedGenerations(w http.ResponseWriter, r *http.Request) {
	a.moderationList(w, r, []domain.Status{domain.StatusGenerationFailed}, true, false)
}

func (a *App) moderationList(w http.ResponseWriter, r *http.Request, statuses []domain.Status, withPhoto, withVideo bool) {
	skip, limit := parsePagination(r)
	subs, err := a.Engine.ListByStatus(r.Context(), statuses, skip, limit)
	if err != nil {
		a.domainError(w, err)
		return
	}
	views := make([]submissionView, 0, len(subs))
	for i := range subs {
		views = append(views, a.view(r, &subs[i], withPhoto, withVideo))
	}
	a.json(w, http.StatusOK, map[string]any{"submissions": views})
}

// PhotoAction applies a moderator approve/reject verdict to an uploaded photo.
// Approval also queues the submission for generation.
func (a *App) PhotoAction(w http.ResponseWriter, r *http.Request) {
	a.decide(w, r, domain.PhasePhoto)
}

// VideoAction applies a moderator approve/reject verdict to a generated video.
func (a *App) VideoAction(w http.ResponseWriter, r *http.Request) {
	a.decide(w, r, domain.PhaseVideo)
}

func (a *App) decide(w http.ResponseWriter, r *http.Request, phase domain.ModerationPhase) {
	id := chi.URLParam(r, "id")

	var req moderationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	decision := domain.Decision(strings.ToLower(strings.TrimSpace(req.Action)))
	if decision != domain.DecisionApprove && decision != domain.DecisionReject {
		a.error(w, http.StatusBadRequest, "bad_request", "action must be approve or reject")
		return
	}

	sub, err := a.Gateway.Decide(r.Context(), id, phase, decision)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.view(r, sub, false, false))
}

// RetryGeneration re-queues a failed generation with a reset attempt budget.
func (a *App) RetryGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := a.Gateway.Retry(r.Context(), id)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.view(r, sub, false, false))
}
