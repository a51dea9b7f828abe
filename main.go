package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"examPrepAPI/handlers"
	"examPrepAPI/internal/config"
	"examPrepAPI/internal/metrics"
	"examPrepAPI/internal/notification"
	"examPrepAPI/internal/store"
	"examPrepAPI/middleware"
	"examPrepAPI/services"

	_ "net/http/pprof"
)

var (
	cfg              *config.Config
	dbPool           *pgxpool.Pool
	progressStore    *store.Store
	progressService  *services.ProgressService
	countdownService *services.CountdownService
	deadlineService  *services.DeadlineService
	dispatcher       *services.NotificationDispatcher
	scheduler        *services.Scheduler
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	log.Printf("Event date %s, countdown at %s, deadline sweep at %s (%s)",
		cfg.EventDate.Format("2006-01-02"), cfg.CountdownTime, cfg.DeadlineSweepTime, cfg.Location)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var medium store.Medium
	if cfg.DatabaseURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to parse database URL:", err)
		}

		poolConfig.MaxConns = 25
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute
		poolConfig.HealthCheckPeriod = time.Minute

		dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			log.Fatal("Failed to create connection pool:", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Fatal("Failed to ping database:", err)
		}

		pg := store.NewPostgresMedium(dbPool)
		if err := pg.Init(ctx); err != nil {
			log.Fatal("Failed to initialize progress table:", err)
		}
		medium = pg
		log.Println("Persistence: Postgres")
	} else {
		medium = store.NewFileMedium(cfg.DataFile)
		log.Printf("Persistence: JSON file %s", cfg.DataFile)
	}

	progressStore = store.Open(ctx, medium)

	dispatcher = services.NewNotificationDispatcher()
	fcmService, err := notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM, falling back to mock delivery: %v", err)
		dispatcher.SetPushProvider(&services.MockPushProvider{})
	} else {
		dispatcher.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	progressService = services.NewProgressService(progressStore, cfg.UndoRevertsStreak, cfg.Location)
	countdownService = services.NewCountdownService(cfg.EventDate, cfg.CountdownChannel, dispatcher, cfg.Location)
	deadlineService = services.NewDeadlineService(progressStore, dispatcher, cfg.Location)

	scheduler = services.NewScheduler(cfg.Location)
	scheduler.AddDaily("countdown", cfg.CountdownTime, countdownService.Run)
	scheduler.AddDaily("deadline-sweep", cfg.DeadlineSweepTime, deadlineService.Run)

	middleware.InitPrometheus()
	metrics.Register()
}

func main() {
	defer func() {
		if dbPool != nil {
			log.Println("Closing database connection pool...")
			dbPool.Close()
		}
	}()

	scheduler.Start()

	taskHandler := handlers.NewTaskHandler(progressService, countdownService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if dbPool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := dbPool.Ping(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "examPrep-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER — the gateway-facing command surface
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/task/add", taskHandler.AddTask).Methods("POST")
	api.HandleFunc("/task/done", taskHandler.CompleteTask).Methods("POST")
	api.HandleFunc("/task/undo", taskHandler.UndoTask).Methods("POST")
	api.HandleFunc("/task/list", taskHandler.ListTasks).Methods("GET")
	api.HandleFunc("/stats", taskHandler.GetStats).Methods("GET")
	api.HandleFunc("/leaderboard", taskHandler.GetLeaderboard).Methods("GET")
	api.HandleFunc("/countdown", taskHandler.GetCountdown).Methods("GET")
	api.HandleFunc("/help", taskHandler.GetHelp).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "X-User-ID", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	scheduler.Stop()
	dispatcher.Stop()

	log.Println("Server shutdown complete")
}
