package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"photoreel/internal/http/handlers"
	"photoreel/internal/infra/geoip"
	"photoreel/internal/middleware"
)

// Options carries the cross-cutting pieces the router wires around the handlers.
type Options struct {
	Logger             zerolog.Logger
	ModeratorJWTSecret []byte
	RateLimitPerMinute int
	AllowedOrigins     []string
	GeoResolver        geoip.CountryResolver
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Geo(opts.GeoResolver),
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/submissions", func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute))
		}
		r.Post("/", app.CreateSubmission)
		r.Get("/", app.ListSubmissions)
		r.Get("/{code}/status", app.SubmissionStatus)
	})

	r.Route("/moderation", func(r chi.Router) {
		r.Use(middleware.ModeratorAuth(opts.ModeratorJWTSecret))
		r.Get("/pending_photos", app.PendingPhotos)
		r.Get("/pending_videos", app.PendingVideos)
		r.Get("/failed", app.FailedGenerations)
		r.Post("/photos/{id}/action", app.PhotoAction)
		r.Post("/videos/{id}/action", app.VideoAction)
		r.Post("/generations/{id}/retry", app.RetryGeneration)
	})

	return r
}
