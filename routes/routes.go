package routes

import (
	"log/slog"
	"net/http"

	_ "github.com/Dosada05/court-scheduler/docs"
	"github.com/Dosada05/court-scheduler/handlers"
	"github.com/Dosada05/court-scheduler/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Logger             *slog.Logger
	Auth               *middleware.Authenticator
	CORSAllowedOrigins []string
	// Metrics may be nil; /metrics is then not served.
	Metrics http.Handler
}

func SetupRoutes(
	router *chi.Mux,
	opts Options,
	healthHandler *handlers.HealthHandler,
	schedulerHandler *handlers.SchedulerHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", healthHandler.Health)
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Group(func(r chi.Router) {
		r.Use(opts.Auth.Authenticate)

		r.Get("/ws", webSocketHandler.ServeWs)

		r.Route("/tournaments/{tournamentID}/brackets/{bracketID}", func(r chi.Router) {
			// Состояние открыто для зрителей
			r.Get("/state", schedulerHandler.GetState)

			// Изменения только для организаторов
			r.Group(func(r chi.Router) {
				r.Use(opts.Auth.RequireRole(middleware.RoleAdmin, middleware.RoleOrganizer))

				r.Put("/courts", schedulerHandler.UpsertCourts)
				r.Patch("/courts/{courtID}/hold", schedulerHandler.SetCourtHold)
				r.Post("/courts/{courtID}/assign-next", schedulerHandler.AssignNext)
				r.Post("/courts/{courtID}/assign", schedulerHandler.AssignMatch)
				r.Post("/queue/build", schedulerHandler.BuildQueue)
				r.Post("/matches/{matchID}/start", schedulerHandler.StartMatch)
				r.Post("/matches/{matchID}/finish", schedulerHandler.FinishMatch)
				r.Post("/snapshots", schedulerHandler.ArchiveSnapshot)
			})
		})
	})
}
