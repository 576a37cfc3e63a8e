package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tco-prep-backend/internal/handlers"
	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	questionHandler *handlers.QuestionHandler,
	practiceHandler *handlers.PracticeHandler,
	flashcardHandler *handlers.FlashcardHandler,
	noteHandler *handlers.NoteHandler,
	progressHandler *handlers.ProgressHandler,
	reviewHandler *handlers.ReviewHandler,
	dashboardHandler *handlers.DashboardHandler,
	videoHandler *handlers.VideoHandler,
	tutorHandler *handlers.TutorHandler,
	userHandler *handlers.UserHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/google", authHandler.Google)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Post("/resend-verification", authHandler.ResendVerification)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Question Bank Routes ────
		r.Route("/questions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", questionHandler.Create)
			r.Get("/", questionHandler.List)
			r.Get("/domains", questionHandler.DomainCounts)
			r.Get("/{id}", questionHandler.Get)
			r.Delete("/{id}", questionHandler.Delete)
			r.Post("/{id}/explanation", questionHandler.RequestExplanation)
		})

		// ──── Practice Session Routes ────
		r.Route("/practice", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/start", practiceHandler.Start)
			r.Get("/current", practiceHandler.Current)
			r.Post("/answer", practiceHandler.Answer)
			r.Post("/next", practiceHandler.Advance)
			r.Post("/back", practiceHandler.Back)
			r.Post("/abandon", practiceHandler.Abandon)
			r.Get("/attempts", practiceHandler.ListAttempts)
			r.Get("/attempts/{id}", practiceHandler.GetAttempt)
		})

		// ──── Flashcard Routes ────
		r.Route("/flashcards", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", flashcardHandler.Create)
			r.Get("/", flashcardHandler.List)
			r.Get("/due", flashcardHandler.ListDue)
			r.Get("/stats", flashcardHandler.Stats)
			r.Get("/{id}", flashcardHandler.Get)
			r.Put("/{id}", flashcardHandler.Update)
			r.Delete("/{id}", flashcardHandler.Delete)
			r.Post("/{id}/rating", flashcardHandler.Rate)
		})

		// ──── Note Routes ────
		r.Route("/notes", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", noteHandler.Create)
			r.Get("/", noteHandler.List)
			r.Get("/due", noteHandler.ListDue)
			r.Post("/import", noteHandler.Import)
			r.Get("/{id}", noteHandler.Get)
			r.Put("/{id}", noteHandler.Update)
			r.Delete("/{id}", noteHandler.Delete)
			r.Post("/{id}/rating", noteHandler.Rate)
		})

		// ──── Study Progress Routes ────
		r.Route("/progress", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Put("/", progressHandler.Upsert)
			r.Get("/", progressHandler.List)
			r.Get("/section", progressHandler.GetSection)
			r.Get("/modules", progressHandler.ModuleSummary)
		})

		// ──── Review Center Routes ────
		r.Route("/review", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/center", reviewHandler.Center)
			r.Get("/queue", reviewHandler.Queue)
			r.Get("/stats", reviewHandler.DailyStats)
			r.Post("/question-rating", reviewHandler.RateQuestion)
			r.Post("/sync", reviewHandler.Sync)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", dashboardHandler.Overview)
			r.Get("/activity", dashboardHandler.Activity)
			r.Get("/domains", dashboardHandler.DomainScores)
			r.Put("/weekly-goal", dashboardHandler.SetWeeklyGoal)
		})

		// ──── Study Video Routes ────
		r.Route("/videos", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/import", videoHandler.Import)
			r.Get("/", videoHandler.List)
			r.Get("/{id}", videoHandler.Get)
			r.Delete("/{id}", videoHandler.Delete)
		})

		// ──── AI Tutor Routes ────
		r.Route("/tutor", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/chat", tutorHandler.Chat)
			r.Delete("/chat", tutorHandler.ClearChat)
			r.Post("/draft-questions", tutorHandler.DraftQuestions)
		})

		// ──── User & Settings Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.Me)
			r.Put("/me", userHandler.UpdateMe)
			r.Put("/password", userHandler.ChangePassword)
			r.Delete("/me", userHandler.DeleteMe)
			r.Get("/settings", userHandler.GetSettings)
			r.Put("/settings", userHandler.UpdateSettings)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", jobHandler.Get)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
