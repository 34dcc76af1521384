package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/court-scheduler/brackets"
	"github.com/Dosada05/court-scheduler/config"
	"github.com/Dosada05/court-scheduler/db"
	"github.com/Dosada05/court-scheduler/events"
	"github.com/Dosada05/court-scheduler/handlers"
	"github.com/Dosada05/court-scheduler/metrics"
	"github.com/Dosada05/court-scheduler/middleware"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/repositories"
	api "github.com/Dosada05/court-scheduler/routes"
	"github.com/Dosada05/court-scheduler/services"
	"github.com/Dosada05/court-scheduler/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
)

// @title Court Scheduler API
// @version 1.0
// @description Распределение матчей по кортам и очередь групповых матчей.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	printSchema := flag.Bool("print-schema", false, "print the database schema and exit")
	flag.Parse()
	if *printSchema {
		fmt.Print(db.Schema())
		return
	}

	// Настройка логгера; уровень уточняется после загрузки конфигурации
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Bool("auth_enabled", cfg.AuthEnabled()),
		slog.Bool("auto_assign_on_finish", cfg.Scheduler.AutoAssignOnFinish))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Хранилище: Postgres или память
	var (
		store     repositories.BracketStateRepository
		directory repositories.RegistrationDirectory
		ping      func(ctx context.Context) error
	)
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		logger.Info("database connection established")

		if cfg.DBAutoMigrate {
			if err := db.EnsureSchema(ctx, dbConn); err != nil {
				logger.Error("failed to apply schema", slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("database schema ensured")
		}

		store = repositories.NewPostgresBracketStateRepository(dbConn, logger)
		directory = repositories.NewPostgresRegistrationDirectory(dbConn)
		ping = dbConn.PingContext
	} else {
		mem := repositories.NewMemoryStore()
		if err := seedDemo(mem); err != nil {
			logger.Error("failed to seed demo bracket", slog.Any("error", err))
			os.Exit(1)
		}
		store, directory = mem, mem
		logger.Warn("DATABASE_URL is empty, using in-memory store with a demo bracket",
			slog.Int("tournament_id", demoKey.TournamentID),
			slog.Int("bracket_id", demoKey.BracketID))
	}

	// Архив снимков (Cloudflare R2), опционально
	var archiver services.SnapshotArchiver
	r2cfg := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2.AccountID,
		AccessKeyID:     cfg.R2.AccessKeyID,
		SecretAccessKey: cfg.R2.SecretAccessKey,
		BucketName:      cfg.R2.BucketName,
		PublicBaseURL:   cfg.R2.PublicBaseURL,
	}
	if r2cfg.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, r2cfg)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewSnapshotArchive(uploader, cfg.R2.Prefix)
		logger.Info("Cloudflare R2 snapshot archive initialized", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Info("snapshot archive disabled")
	}

	recorder := metrics.NewRecorder()

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(nil, logger, brackets.HubConfig{
		SendBuffer:     cfg.Realtime.SendBuffer,
		MaxMessageSize: cfg.Realtime.MaxMessageSize,
		WriteWait:      cfg.Realtime.WriteWait,
		PongWait:       cfg.Realtime.PongWait,
		PingPeriod:     cfg.Realtime.PingPeriod,
		CommandTimeout: cfg.Realtime.CommandTimeout,
	})
	wsHub.SetObserver(recorder)

	var publisher services.StatePublisher = wsHub
	if cfg.NATS.URL != "" {
		relayCfg := events.DefaultRelayConfig()
		relayCfg.URL = cfg.NATS.URL
		relayCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		relay, err := events.NewRelay(wsHub, relayCfg, logger)
		if err != nil {
			logger.Error("failed to connect NATS relay", slog.Any("error", err))
			os.Exit(1)
		}
		if err := relay.Start(); err != nil {
			logger.Error("failed to start NATS relay", slog.Any("error", err))
			os.Exit(1)
		}
		defer relay.Close()
		publisher = relay
	}

	schedulerService := services.NewSchedulerService(
		store,
		directory,
		publisher,
		archiver,
		recorder,
		clockwork.NewRealClock(),
		logger,
		services.SchedulerConfig{
			AutoAssignOnFinish:   cfg.Scheduler.AutoAssignOnFinish,
			IdempotencyCacheSize: cfg.Scheduler.IdempotencyCacheSize,
		},
	)
	wsHub.SetHandler(services.NewRealtimeHandler(schedulerService))
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация обработчиков HTTP
	auth := middleware.NewAuthenticator(cfg.JWTSecretKey, logger)
	healthHandler := handlers.NewHealthHandler(ping)
	schedulerHandler := handlers.NewSchedulerHandler(schedulerService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, auth, cfg.CORSAllowedOrigins, logger)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			Logger:             logger,
			Auth:               auth,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			Metrics:            recorder.Handler(),
		},
		healthHandler,
		schedulerHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	// websocket-соединения закрывает хаб
	stop()
	logger.Info("application exited")
}

var demoKey = models.BracketKey{TournamentID: 1, BracketID: 1}

// seedDemo stands in for the bracket generator when running without Postgres:
// two pools of four with a full round robin.
func seedDemo(store *repositories.MemoryStore) error {
	pools := []brackets.RoundRobinParams{
		{Pool: "A", Participants: []int{1, 2, 3, 4}},
		{Pool: "B", Participants: []int{5, 6, 7, 8}},
	}

	var matches []*models.Match
	nextID := 1
	for _, p := range pools {
		p.FirstMatchID = nextID
		generated, err := brackets.GenerateRoundRobin(p)
		if err != nil {
			return fmt.Errorf("generate pool %s: %w", p.Pool, err)
		}
		matches = append(matches, generated...)
		nextID += len(generated)
	}

	store.PutBracket(models.Bracket{ID: demoKey.BracketID, TournamentID: demoKey.TournamentID, Name: "Group stage", Kind: models.BracketKindGroup}, matches)
	for i := 1; i <= 8; i++ {
		store.PutRegistration(i, fmt.Sprintf("Player %d", i))
	}
	return nil
}
