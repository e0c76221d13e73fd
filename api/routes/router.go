package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coursecast/coursecast-backend/api/controllers"
	"github.com/coursecast/coursecast-backend/api/middleware"
	"github.com/coursecast/coursecast-backend/internal/media"
	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	MediaService media.Service
	Health       map[string]controllers.Pinger
}

func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.CORS())

	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(deps.Logger, deps.Health))

	r.Route("/api", func(r chi.Router) {
		r.Route("/public", func(r chi.Router) {
			r.Get("/ping", controllers.PublicPing())
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Config.JWT, deps.Logger))

			r.Get("/ping", controllers.PrivatePing())

			r.Route("/v1/media", func(r chi.Router) {
				r.Post("/presign", controllers.MediaPresign(deps.MediaService, deps.Logger))
				r.Get("/{mediaId}", controllers.MediaGet(deps.MediaService, deps.Logger))
			})
		})
	})

	return r
}
