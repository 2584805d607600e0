package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solhart/mediakit-api/internal/api"
	apimw "github.com/solhart/mediakit-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimw.TraceMiddleware)
	r.Use(apimw.Metrics)

	assetHandler := api.NewAssetHandler(app.assetService, app.logger)
	authMiddleware := apimw.NewAuthMiddleware(app.config.Auth.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/assets", assetHandler.CreateAsset)
			r.Get("/assets", assetHandler.ListAssets)
			r.Get("/assets/{id}", assetHandler.GetAsset)
			r.Post("/assets/{id}/derive", assetHandler.DeriveAsset)

			r.Get("/jobs/{id}", assetHandler.GetJob)
			r.Post("/jobs/{id}/retry", assetHandler.RetryJob)
		})
	})

	healthHandler := api.NewHealthHandler(app.core)
	r.Get("/healthz", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
