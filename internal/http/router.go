package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cat-backend/internal/handlers"
	"cat-backend/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QueryService handlers.QueryService
	VectorStore  vectorstore.VectorStore
	Settings     handlers.SettingsStore

	// ModelCatalog is nil when model names are not checked.
	ModelCatalog handlers.ModelCatalog

	HealthChecks  map[string]handlers.HealthCheck
	HealthTimeout time.Duration
	AppName       string
	AppVersion    string

	// RateLimiter is nil when rate limiting is off.
	RateLimiter *RateLimiter
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.QueryService)
	vdbHandler := handlers.NewVDBHandler(deps.VectorStore, deps.QueryService)
	llmHandler := handlers.NewLLMHandler(deps.Settings, deps.ModelCatalog)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks, deps.HealthTimeout)
	infoHandler := handlers.NewInfoHandler(deps.AppName, deps.AppVersion)

	r.Method(http.MethodGet, "/health", healthHandler)
	r.Method(http.MethodGet, "/info", infoHandler)
	r.Method(http.MethodGet, "/actuator/info", infoHandler)
	r.Method(http.MethodOptions, "/actuator/info", infoHandler)

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}

		r.Route("/front", func(r chi.Router) {
			r.Get("/query", queryHandler.Query)
			r.Get("/query/{query_id}", queryHandler.GetQuery)
		})

		r.Route("/vdb", func(r chi.Router) {
			r.Get("/docs", vdbHandler.Docs)
			r.Get("/collections", vdbHandler.ListCollections)
			r.Get("/collections/{name}", vdbHandler.GetCollection)
			r.Put("/collections/{name}", vdbHandler.EnsureCollection)
			r.Delete("/collections/{name}", vdbHandler.DeleteCollection)
			r.Get("/collections/{name}/count", vdbHandler.CountPoints)
		})

		r.Route("/llm", func(r chi.Router) {
			r.Get("/model", llmHandler.GetModel)
			r.Put("/model", llmHandler.SetModel)
			r.Get("/prompt", llmHandler.GetPrompt)
			r.Put("/prompt", llmHandler.SetPrompt)
		})
	})

	return r
}
