// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"stackit/internal/cache"
	"stackit/internal/config"
	"stackit/internal/featureflags"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/notifications"
	"stackit/internal/repository"
	"stackit/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const defaultOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	cache          *cache.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo     repository.UserRepository
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	authService         *service.AuthService
	questionService     *service.QuestionService
	answerService       *service.AnswerService
	voteService         *service.VoteService
	notificationService *service.NotificationService
	adminService        *service.AdminService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap layer owns connecting them; the Server owns closing them.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, cacheClient *cache.Client) (*Server, error) {
	return newServer(cfg, db, cacheClient, clockwork.NewRealClock())
}

func newServer(cfg *config.Config, db *gorm.DB, cacheClient *cache.Client, clock clockwork.Clock) (*Server, error) {
	userRepo := repository.NewUserRepository(db, cacheClient)
	questionRepo := repository.NewQuestionRepository(db, cacheClient)
	answerRepo := repository.NewAnswerRepository(db, cacheClient)
	notificationRepo := repository.NewNotificationRepository(db)
	voteStore := repository.NewVoteStore(db, cacheClient)

	server := &Server{
		config:         cfg,
		db:             db,
		cache:          cacheClient,
		promMiddleware: middleware.InitMetrics("stackit-api"),
		userRepo:       userRepo,
		notifier:       notifications.NewNotifier(cacheClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(), clock)
	server.notificationService = service.NewNotificationService(notificationRepo, userRepo, server.notifier)
	server.authService = service.NewAuthService(userRepo, cacheClient, tokens)
	server.questionService = service.NewQuestionService(questionRepo, answerRepo, userRepo)
	server.answerService = service.NewAnswerService(answerRepo, questionRepo, userRepo, server.notificationService)
	server.voteService = service.NewVoteService(voteStore, server.notificationService, server.featureFlags)
	server.adminService = service.NewAdminService(userRepo, questionRepo, answerRepo, cacheClient)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "StackIt API Metrics Dashboard",
	}))

	rdb := s.cache.Cmdable()

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(rdb, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(rdb, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh-token", s.RefreshToken)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	quesans := api.Group("/quesans")
	quesans.Get("/questions", s.GetQuestions)
	quesans.Get("/questions/:id", s.GetQuestion)
	quesans.Get("/answers/:id", s.GetAnswers)

	protected := quesans.Group("", s.AuthRequired())
	protected.Post("/question", middleware.RateLimit(rdb, 5, 5*time.Minute, "create_question"), s.CreateQuestion)
	protected.Post("/question/:id", s.UpdateQuestion)
	protected.Post("/answer", middleware.RateLimit(rdb, 10, 5*time.Minute, "create_answer"), s.CreateAnswer)
	protected.Post("/answer/:id", s.UpdateAnswer)
	protected.Put("/questions/:id/upvote", s.Vote(models.TargetQuestion, models.DirectionUp))
	protected.Put("/questions/:id/downvote", s.Vote(models.TargetQuestion, models.DirectionDown))
	protected.Put("/questions/:id/accept/:answerId", s.AcceptAnswer)
	protected.Put("/answers/:id/upvote", s.Vote(models.TargetAnswer, models.DirectionUp))
	protected.Put("/answers/:id/downvote", s.Vote(models.TargetAnswer, models.DirectionDown))

	notes := api.Group("/notifications", s.AuthRequired())
	notes.Get("/", s.GetNotifications)
	// read-all must be registered before the :notificationId route
	notes.Put("/read-all", s.MarkAllNotificationsRead)
	notes.Put("/:notificationId/read", s.MarkNotificationRead)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/users", s.GetUsers)
	admin.Put("/users/:userId/ban", s.ToggleUserBan)
	admin.Delete("/users/:userId", s.DeleteUser)
	admin.Get("/questions", s.GetAdminQuestions)
	admin.Delete("/questions/:questionId", s.DeleteQuestion)
	admin.Delete("/answers/:answerId", s.DeleteAnswer)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if !s.cache.Available() {
		redisStatus = "unavailable"
	} else if err := s.cache.Ping(ctx); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired verifies the bearer access token, or a websocket ticket on
// /api/ws, and stores the caller in locals and the request context.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/ws") && c.Query("ticket") != "" {
			userID, ok, err := s.cache.ConsumeWSTicket(c.UserContext(), c.Query("ticket"))
			if err != nil || !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			setCaller(c, userID)
			return c.Next()
		}

		tokenString := ""
		if parts := strings.Split(c.Get("Authorization"), " "); len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}

		c.Locals("jti", claims.JTI)
		c.Locals("tokenExp", claims.ExpiresAt)
		setCaller(c, claims.UserID)
		return c.Next()
	}
}

func setCaller(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	c.SetUserContext(ctx)
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(uint)

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Admin access required"))
			}
			return models.RespondWithAppError(c, err)
		}
		if !user.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// NewApp builds the Fiber app with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "StackIt API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires live notifications and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.cache.Available() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start notification wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if err := s.cache.Close(); err != nil {
		middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
