package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tco-prep-backend/internal/config"
	"tco-prep-backend/internal/database"
	"tco-prep-backend/internal/handlers"
	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/router"
	"tco-prep-backend/internal/services"
	"tco-prep-backend/internal/session"
	"tco-prep-backend/internal/store"
	"tco-prep-backend/internal/websocket"
	"tco-prep-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting TCO Prep Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	questionRepo := repository.NewQuestionRepo(pool)
	attemptRepo := repository.NewAttemptRepo(pool)
	flashcardRepo := repository.NewFlashcardRepo(pool)
	noteRepo := repository.NewNoteRepo(pool)
	progressRepo := repository.NewProgressRepo(pool)
	reviewRepo := repository.NewQuestionReviewRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Initialize Local-First Stores ────
	queue := store.NewRedisQueue(redisClients.Queue)
	cache := store.NewRedisCache(redisClients.Queue)
	noteStore := store.NewNoteStore(noteRepo, queue, cache, cfg.SyncRemoteTimeout)
	flashcardStore := store.NewFlashcardStore(flashcardRepo, queue, cache, cfg.SyncRemoteTimeout)
	progressStore := store.NewProgressStore(progressRepo, queue, cache, cfg.SyncRemoteTimeout)
	syncer := store.NewSyncer(queue, noteRepo, flashcardRepo, progressRepo)

	// ──── Step 5: Initialize Gemini Tutor ────
	// The tutor is optional; handlers report 503 when it is absent.
	var tutorService *services.TutorService
	if cfg.GeminiAPIKey != "" {
		tutorService, err = services.NewTutorService(
			cfg.GeminiAPIKey,
			cfg.GeminiConcurrentReqs,
			questionRepo,
			noteRepo,
			jobRepo,
			redisClients.Queue,
		)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer tutorService.Close()
		log.Println("✓ Gemini tutor initialized")
	} else {
		log.Println("⚠ GEMINI_API_KEY not set, tutor features disabled")
	}

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	youtubeService := services.NewYouTubeService()
	fileExtractService := services.NewFileExtractService()
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, emailService, cfg.GoogleClientID)
	sessionRegistry := session.NewRegistry()

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, cfg.FrontendURL)
	questionHandler := handlers.NewQuestionHandler(questionRepo, jobRepo, redisClients.Queue, tutorService)
	practiceHandler := handlers.NewPracticeHandler(
		sessionRegistry,
		questionRepo,
		attemptRepo,
		reviewRepo,
		userRepo,
		cfg.PracticeQuestionCount,
		cfg.PracticePassingScore,
	)
	flashcardHandler := handlers.NewFlashcardHandler(flashcardStore, flashcardRepo)
	noteHandler := handlers.NewNoteHandler(noteStore, noteRepo, jobRepo, redisClients.Queue, cfg.UploadDir)
	progressHandler := handlers.NewProgressHandler(progressStore, progressRepo)
	reviewHandler := handlers.NewReviewHandler(progressRepo, flashcardRepo, reviewRepo, questionRepo, syncer)
	dashboardHandler := handlers.NewDashboardHandler(attemptRepo, flashcardRepo, progressRepo, reviewRepo, userRepo)
	videoHandler := handlers.NewVideoHandler(videoRepo, jobRepo, youtubeService, redisClients.Queue)
	tutorHandler := handlers.NewTutorHandler(tutorService, questionRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		tutorService,
		youtubeService,
		fileExtractService,
		jobRepo,
		questionRepo,
		noteRepo,
		videoRepo,
		syncer,
		cfg.SyncInterval,
		5,
	)
	workerPool.Start()
	log.Println("✓ Worker pool started (5 goroutines)")

	notificationScheduler := services.NewNotificationScheduler(userRepo, reviewRepo, emailService)
	notificationScheduler.Start()
	log.Println("✓ Notification scheduler started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		questionHandler,
		practiceHandler,
		flashcardHandler,
		noteHandler,
		progressHandler,
		reviewHandler,
		dashboardHandler,
		videoHandler,
		tutorHandler,
		userHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		notificationScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ TCO Prep Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
