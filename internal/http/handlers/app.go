package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"photoreel/internal/domain"
	"photoreel/internal/lifecycle"
	"photoreel/internal/moderation"
	"photoreel/internal/storage"
)

type App struct {
	Engine       *lifecycle.Engine
	Gateway      *moderation.Gateway
	Signer       storage.URLSigner
	SignedURLTTL time.Duration
	Log          zerolog.Logger
}

func NewApp(engine *lifecycle.Engine, gateway *moderation.Gateway, signer storage.URLSigner, ttl time.Duration, log zerolog.Logger) *App {
	if signer == nil {
		signer = storage.NoopSigner{}
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &App{Engine: engine, Gateway: gateway, Signer: signer, SignedURLTTL: ttl, Log: log}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, msg string) {
	a.json(w, code, map[string]string{"error": slug, "message": msg})
}

// domainError maps lifecycle errors onto HTTP status codes.
func (a *App) domainError(w http.ResponseWriter, err error) {
	var illegal *domain.IllegalTransitionError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "submission not found")
	case errors.As(err, &illegal):
		a.error(w, http.StatusConflict, "illegal_transition", illegal.Error())
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", "submission was modified concurrently")
	default:
		a.Log.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
