package app

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"quizhub/internal/app/apiresp"
	"quizhub/internal/app/observability"
	"quizhub/internal/attempt"
	"quizhub/internal/auth"
	"quizhub/internal/question"
	"quizhub/internal/quiz"
	"quizhub/internal/report"
	"quizhub/internal/upload"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const requestTimeout = 60 * time.Second

func NewRouter(cfg Config, db *sql.DB, store upload.BlobStore) http.Handler {
	r := chi.NewRouter()
	collector := observability.NewCollector(db)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(collector.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrfHeaderName},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	secureCookie := strings.EqualFold(cfg.AppEnv, "production")
	r.Use(CSRFMiddleware(cfg.CSRFEnforced, secureCookie))

	authSvc := auth.NewService(db, auth.ServiceConfig{
		SessionTTL: time.Duration(cfg.SessionTTLHours) * time.Hour,
	})
	authHandler := auth.NewHandler(authSvc, auth.HandlerConfig{SecureCookie: secureCookie})

	quizSvc := quiz.NewService(db, quiz.Config{PublicBaseURL: cfg.PublicBaseURL})
	quizHandler := quiz.NewHandler(quizSvc)

	questionSvc := question.NewService(db)
	questionHandler := question.NewHandler(questionSvc, question.HandlerConfig{
		ImportMaxBytes: int64(cfg.ImportMaxMB) << 20,
	})

	attemptHandler := attempt.NewHandler(attempt.NewService(db, quizSvc))
	reportHandler := report.NewHandler(report.NewService(db))
	uploadHandler := upload.NewHandler(store, upload.Config{MaxBytes: int64(cfg.UploadMaxMB) << 20})

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)
	submitLimiter := NewIPRateLimiter(cfg.SubmitRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)
	r.Get(strings.TrimSuffix(upload.PublicPrefix, "/")+"/*", uploadHandler.Serve)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(limited chi.Router) {
			limited.Use(RateLimitMiddleware(authLimiter))
			limited.Post("/auth/register", authHandler.Register)
			limited.Post("/auth/login", authHandler.Login)
		})

		api.Get("/import/format", questionHandler.FormatGuide)

		api.Group(func(public chi.Router) {
			public.Use(authHandler.OptionalAuth)
			public.Get("/quizzes", quizHandler.List)
			public.Get("/quizzes/{id}", quizHandler.Get)
			public.Get("/play/{id}", attemptHandler.Play)
			public.With(RateLimitMiddleware(submitLimiter)).Post("/play/{id}/submit", attemptHandler.Submit)
		})

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/logout", authHandler.Logout)

			secure.Post("/quizzes", quizHandler.Create)
			secure.Put("/quizzes/{id}", quizHandler.Update)
			secure.Delete("/quizzes/{id}", quizHandler.Delete)

			secure.Get("/quizzes/{id}/questions", questionHandler.List)
			secure.Post("/quizzes/{id}/questions", questionHandler.Create)
			secure.Put("/quizzes/{id}/questions", questionHandler.Reorder)
			secure.Get("/quizzes/{id}/questions/export", questionHandler.Export)
			secure.Put("/quizzes/{id}/questions/{questionID}", questionHandler.Update)
			secure.Delete("/quizzes/{id}/questions/{questionID}", questionHandler.Delete)

			secure.Post("/quizzes/{id}/bulk-import", questionHandler.BulkImport)
			secure.Post("/quizzes/{id}/import/docx", questionHandler.ImportDocx)
			secure.Post("/quizzes/{id}/import/xlsx", questionHandler.ImportXlsx)

			secure.Get("/quizzes/{id}/attempts", attemptHandler.List)
			secure.Get("/quizzes/{id}/attempts/export", attemptHandler.Export)
			secure.Get("/quizzes/{id}/report", reportHandler.Summary)

			secure.Post("/uploads", uploadHandler.Upload)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apiresp.WriteError(w, r, http.StatusNotFound, "not found")
	})

	return r
}
