package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/astrasemi/assistant/internal/config"
	"github.com/astrasemi/assistant/internal/constants"
	"github.com/astrasemi/assistant/internal/database"
	"github.com/astrasemi/assistant/internal/handlers"
	"github.com/astrasemi/assistant/internal/llm"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/middleware"
	"github.com/astrasemi/assistant/internal/notify"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	if err := applog.Init(!cfg.IsRelease()); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer applog.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		applog.Log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		applog.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	db := database.GetDB()
	if cfg.Database.Seed {
		err := database.Seed(db, database.SeedInput{
			AdminUsername: cfg.InitialAdmin.Username,
			AdminPassword: cfg.InitialAdmin.Password,
		})
		if err != nil {
			applog.Log.Fatal("Failed to seed database", zap.Error(err))
		}
	}

	// Redis backs the rate limiters only; they fail open while it is down
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		applog.Log.Warn("Redis is unreachable, rate limiting is disabled until it recovers", zap.Error(err))
	}
	cancelPing()

	// Notification queue
	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.RabbitMQ.DSN != "" {
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			applog.Log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			applog.Log.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
		}
		defer ch.Close()

		if err := notify.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
			applog.Log.Fatal("Failed to declare notification queue", zap.Error(err))
		}
		publisher = notify.NewAMQPPublisher(ch, cfg.RabbitMQ.Queue, cfg.RabbitMQ.PublishTimeout)
	} else {
		applog.Log.Info("RABBITMQ_DSN not set, admin notifications are disabled")
	}

	// AI provider; nil disables the analysis endpoints and the LLM briefing path
	aiClient, err := llm.New(cfg.AI)
	if err != nil {
		applog.Log.Fatal("Failed to create AI client", zap.Error(err))
	}
	if aiClient == nil {
		applog.Log.Info("AI provider not configured")
	} else {
		applog.Log.Info("AI provider configured", zap.String("provider", aiClient.Name()))
	}

	// Initialize services
	codec := session.NewCodec(cfg.Session.Secret, cfg.Session.MaxAge)
	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo, repository.NewSessionRepository(db), codec)
	taskService := services.NewTaskService(repository.NewRoleRepository(db), repository.NewTaskRepository(db))
	briefingService := services.NewBriefingService(taskService, repository.NewBriefingRepository(db), aiClient, cfg.AI.BriefingTimeout)
	forumService, err := services.NewForumService(db)
	if err != nil {
		applog.Log.Fatal("Failed to create forum service", zap.Error(err))
	}

	app := application{
		cfg:         cfg,
		codec:       codec,
		rdb:         rdb,
		authService: authService,
		auth:        handlers.NewAuthHandler(authService, codec, cfg.IsRelease()),
		users:       handlers.NewUserHandler(services.NewUserService(db)),
		tasks:       handlers.NewTaskHandler(taskService),
		taskService: taskService,
		briefing:    handlers.NewBriefingHandler(briefingService),
		forum:       handlers.NewForumHandler(forumService),
		password:    handlers.NewPasswordHandler(services.NewResetService(db, publisher)),
		analysis:    handlers.NewAnalysisHandler(services.NewAnalysisService(aiClient, cfg.AI)),
	}

	purgeSessions(authService)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		applog.Log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-quit
	applog.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	applog.Log.Info("Server exited")
}

type application struct {
	cfg         *config.Config
	codec       *session.Codec
	rdb         *redis.Client
	authService *services.AuthService
	taskService *services.TaskService

	auth     *handlers.AuthHandler
	users    *handlers.UserHandler
	tasks    *handlers.TaskHandler
	briefing *handlers.BriefingHandler
	forum    *handlers.ForumHandler
	password *handlers.PasswordHandler
	analysis *handlers.AnalysisHandler
}

func (app *application) router() *gin.Engine {
	cfg := app.cfg

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeaders(cfg.IsRelease()))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Flash store for the post-login return path
	flashStore := cookie.NewStore([]byte(cfg.Session.Secret))
	flashStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.FlashMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsRelease(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.FlashSessionName, flashStore))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "AstraSemi Assistant is running",
		})
	})

	noLimit := func(c *gin.Context) { c.Next() }
	loginLimit, resetLimit := gin.HandlerFunc(noLimit), gin.HandlerFunc(noLimit)
	if cfg.RateLimit.Enabled {
		loginLimit = middleware.NewRateLimiter(app.rdb, middleware.RateLimiterConfig{
			Scope:       "login",
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		}).Middleware()
		resetLimit = middleware.NewRateLimiter(app.rdb, middleware.RateLimiterConfig{
			Scope:       "password",
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		}).Middleware()
	}

	requireUser := []gin.HandlerFunc{middleware.RequireAuth(app.codec), middleware.RequireActiveUser(app.authService)}

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", loginLimit, app.auth.Login)
			auth.POST("/logout", app.auth.Logout)
			auth.GET("/me", app.auth.Me)
		}
		api.GET("/session", app.auth.Session)

		// Password reset: the request is public, the review is admin only
		password := api.Group("/password")
		{
			password.POST("/request", resetLimit, app.password.RequestReset)

			review := password.Group("")
			review.Use(requireUser...)
			review.Use(middleware.RequireAdmin())
			review.GET("/requests", app.password.ListRequests)
			review.POST("/approve", app.password.Approve)
			review.POST("/deny", app.password.Deny)
			review.POST("/clear", app.password.Clear)
		}

		// Role and task routes (protected)
		protected := api.Group("")
		protected.Use(requireUser...)
		{
			protected.GET("/roles", app.tasks.ListRoles)
			protected.GET("/tasks", app.tasks.ListTasks)
			protected.POST("/tasks", app.tasks.CreateTask)
			protected.GET("/tasks/:id", middleware.RequireTask(app.taskService), app.tasks.GetTask)
			protected.PATCH("/tasks/:id", middleware.RequireTask(app.taskService), app.tasks.UpdateTask)

			protected.POST("/briefing", app.briefing.Generate)
			protected.GET("/briefing/history", app.briefing.History)
		}

		// Community routes (protected)
		community := api.Group("/community")
		community.Use(requireUser...)
		{
			community.GET("/posts", app.forum.ListPosts)
			community.POST("/posts", app.forum.CreatePost)
			community.GET("/posts/:id", app.forum.GetPost)
			community.POST("/posts/:id/answers", app.forum.CreateAnswer)
			community.DELETE("/posts/:id/answers/:answerId", app.forum.DeleteAnswer)
			community.POST("/posts/:id/vote", app.forum.Vote)
			community.PATCH("/posts/:id/accept", app.forum.AcceptAnswer)
			community.GET("/contributors", app.forum.Contributors)
			community.GET("/reputation", app.forum.ReputationHistory)
		}

		// Analysis routes (protected)
		analysis := api.Group("/analysis")
		analysis.Use(requireUser...)
		{
			analysis.POST("/csv", app.analysis.SummarizeCSV)
			analysis.POST("/text", app.analysis.InterpretText)
			analysis.POST("/image", app.analysis.ExplainImage)
			analysis.POST("/glossary", app.analysis.ExplainTerm)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(requireUser...)
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/users", app.users.ListUsers)
			admin.POST("/users", app.users.CreateUser)
			admin.PATCH("/users/:id", app.users.UpdateUser)
			admin.PATCH("/posts/:id", app.forum.UpdatePost)
			admin.DELETE("/posts/:id", app.forum.DeletePost)
		}
	}

	app.pages(r)
	return r
}

// pages serves the single-page app. Every page except /login requires a session.
func (app *application) pages(r *gin.Engine) {
	dir := app.cfg.Server.StaticDir
	if dir == "" {
		return
	}

	index := filepath.Join(dir, "index.html")
	serveIndex := func(c *gin.Context) {
		c.File(index)
	}

	r.Static("/assets", filepath.Join(dir, "assets"))
	r.GET("/login", serveIndex)

	guard := middleware.RequirePageSession(app.codec)
	for _, path := range []string{"/", "/dashboard", "/briefing", "/analysis", "/community", "/community/*page", "/admin", "/admin/*page"} {
		r.GET(path, guard, serveIndex)
	}
}

// purgeSessions drops session records that expired while the server was down.
// Requests already reject expired rows, so this only keeps the table small.
func purgeSessions(authService *services.AuthService) {
	removed, err := authService.PurgeExpiredSessions()
	if err != nil {
		applog.Log.Error("Failed to purge expired sessions", zap.Error(err))
		return
	}
	if removed > 0 {
		applog.Log.Info("Expired sessions purged", zap.Int64("removed", removed))
	}
}
