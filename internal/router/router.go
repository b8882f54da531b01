package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/handler"
	mw "github.com/parisxmas/OxiDB/OxiSurvey/internal/middleware"
)

type Handlers struct {
	Surveys   *handler.SurveyHandler
	Responses *handler.ResponseHandler
	Stats     *handler.StatsHandler
	Health    *handler.HealthHandler
}

func New(h Handlers, corsOrigins []string, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", h.Health.Root)
	r.Get("/health", h.Health.Health)

	r.Route("/api/surveys", func(r chi.Router) {
		r.Get("/", h.Surveys.List)
		r.Post("/", h.Surveys.Create)
		r.Delete("/", h.Surveys.Clear)

		r.Get("/search/{query}", h.Surveys.Search)
		r.Get("/stats/storage", h.Stats.Storage)
		r.Post("/analyze-historical", h.Stats.AnalyzeHistorical)

		// Responses
		r.Post("/responses", h.Responses.Submit)
		r.Post("/responses/", h.Responses.Submit)
		r.Get("/responses/{surveyId}", h.Responses.List)

		r.Get("/{surveyId}", h.Surveys.Get)
		r.Put("/{surveyId}", h.Surveys.Update)
		r.Delete("/{surveyId}", h.Surveys.Delete)
		r.Get("/{surveyId}/versions/{version}", h.Surveys.GetVersion)
		r.Get("/{surveyId}/export", h.Stats.Export)
	})

	return r
}
