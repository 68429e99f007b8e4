package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"photoreel/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type createSubmissionRequest struct {
	PhotoRef   string `json:"photo_ref"`
	UserPrompt string `json:"user_prompt"`
}

type submissionView struct {
	ID                 string     `json:"id"`
	Code               string     `json:"code"`
	Status             string     `json:"status"`
	UserPrompt         string     `json:"user_prompt,omitempty"`
	GenerationAttempts int        `json:"generation_attempts"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	PhotoURL           string     `json:"photo_url,omitempty"`
	VideoURL           string     `json:"video_url,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	PhotoModeratedAt   *time.Time `json:"photo_moderated_at,omitempty"`
	VideoModeratedAt   *time.Time `json:"video_moderated_at,omitempty"`
}

type statusView struct {
	Code     string `json:"code"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url,omitempty"`
}

func (a *App) view(r *http.Request, s *domain.Submission, withPhoto, withVideo bool) submissionView {
	v := submissionView{
		ID:                 s.ID,
		Code:               s.Code,
		Status:             string(s.Status),
		UserPrompt:         s.UserPrompt,
		GenerationAttempts: s.GenerationAttempts,
		ErrorMessage:       s.ErrorMessage,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		PhotoModeratedAt:   s.PhotoModeratedAt,
		VideoModeratedAt:   s.VideoModeratedAt,
	}
	if withPhoto && s.UploadedPhotoRef != "" {
		if url, err := a.Signer.SignedURL(r.Context(), s.UploadedPhotoRef, a.SignedURLTTL); err == nil {
			v.PhotoURL = url
		} else {
			a.Log.Warn().Err(err).Str("submission_id", s.ID).Msg("sign photo url")
		}
	}
	if withVideo && s.GeneratedVideoRef != "" {
		if url, err := a.Signer.SignedURL(r.Context(), s.GeneratedVideoRef, a.SignedURLTTL); err == nil {
			v.VideoURL = url
		} else {
			a.Log.Warn().Err(err).Str("submission_id", s.ID).Msg("sign video url")
		}
	}
	return v
}

func (a *App) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.PhotoRef = strings.TrimSpace(req.PhotoRef)
	if req.PhotoRef == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "photo_ref is required")
		return
	}

	sub, err := a.Engine.CreateSubmission(r.Context(), req.PhotoRef, strings.TrimSpace(req.UserPrompt))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, a.view(r, sub, false, false))
}

// ListSubmissions is the public listing. Only approved videos carry a
// playable URL.
func (a *App) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if len(statuses) == 0 {
		statuses = []domain.Status{domain.StatusVideoApproved}
	}
	skip, limit := parsePagination(r)

	subs, err := a.Engine.ListByStatus(r.Context(), statuses, skip, limit)
	if err != nil {
		a.domainError(w, err)
		return
	}

	views := make([]submissionView, 0, len(subs))
	for i := range subs {
		withVideo := subs[i].Status == domain.StatusVideoApproved
		views = append(views, a.view(r, &subs[i], false, withVideo))
	}
	a.json(w, http.StatusOK, map[string]any{"submissions": views})
}

// SubmissionStatus lets a submitter poll progress by their submission code.
func (a *App) SubmissionStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	sub, err := a.Engine.GetByCode(r.Context(), code)
	if err != nil {
		a.domainError(w, err)
		return
	}

	out := statusView{Code: sub.Code, Status: string(sub.Status)}
	if sub.Status == domain.StatusVideoApproved && sub.GeneratedVideoRef != "" {
		if url, err := a.Signer.SignedURL(r.Context(), sub.GeneratedVideoRef, a.SignedURLTTL); err == nil {
			out.VideoURL = url
		}
	}
	a.json(w, http.StatusOK, out)
}

func parseStatusFilter(raw string) ([]domain.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var statuses []domain.Status
	for _, part := range strings.Split(raw, ",") {
		st := domain.Status(strings.ToUpper(strings.TrimSpace(part)))
		if !st.Valid() {
			return nil, &badStatusError{value: string(st)}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

type badStatusError struct{ value string }

func (e *badStatusError) Error() string { return "unknown status " + strconv.Quote(e.value) }

func parsePagination(r *http.Request) (skip, limit int) {
	limit = defaultListLimit
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return skip, limit
}
