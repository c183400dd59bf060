package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/sneha822/chatshield-backend/config"
	"github.com/sneha822/chatshield-backend/internal/auth"
	"github.com/sneha822/chatshield-backend/internal/cache"
	"github.com/sneha822/chatshield-backend/internal/chat"
	"github.com/sneha822/chatshield-backend/internal/classifier"
	"github.com/sneha822/chatshield-backend/internal/database"
	"github.com/sneha822/chatshield-backend/internal/handlers"
	"github.com/sneha822/chatshield-backend/internal/middleware"
	"github.com/sneha822/chatshield-backend/internal/moderation"
	"github.com/sneha822/chatshield-backend/internal/repository"
	"github.com/sneha822/chatshield-backend/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Connect to Redis
	redis, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Running without Redis - presence and rate limits stay local")
		redis = nil
	} else {
		defer redis.Close()
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	toxicityClassifier := classifier.NewHTTPClassifier(cfg.Classifier.URL, cfg.Classifier.Timeout)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	muteRepo := repository.NewMuteRepository(db)

	// Moderation engine and message pipeline
	registry := websocket.NewRegistry()
	engine := moderation.NewEngine(cfg.Moderation.ToxicThreshold, cfg.Moderation.MuteDuration, muteRepo, nil)
	defer engine.Close()

	pipeline := chat.NewPipeline(registry, engine, toxicityClassifier, roomRepo, msgRepo, cfg.Classifier.FailClosed)
	engine.SetUnmuteFunc(pipeline.NotifyUnmuted)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userRepo, jwtService)
	chatHandler := handlers.NewChatHandler(registry, roomRepo, msgRepo, redis, cfg.API.HistoryLimit)
	moderationHandler := handlers.NewModerationHandler(engine)
	analyticsHandler := handlers.NewAnalyticsHandler(msgRepo)
	healthHandler := handlers.NewHealthHandler(registry, userRepo)
	wsHandler := websocket.NewHandler(registry, jwtService, pipeline, redis, cfg.CORS.AllowedOrigins, cfg.API.RateLimitMessagesPerSec)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitMessagesPerSec)
	rateLimiter.Cleanup()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", healthHandler.Health)
	router.GET("/health/stats", healthHandler.Stats)

	// Public routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// WebSocket endpoint
	router.GET("/ws", wsHandler.HandleWebSocket)

	// Protected routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService))
	{
		// User routes
		api.GET("/me", authHandler.GetMe)
		api.GET("/me/rooms", chatHandler.GetMyRooms)

		// Chat routes
		api.GET("/chat/rooms", chatHandler.GetRooms)
		api.POST("/chat/rooms", middleware.RateLimitMiddleware(rateLimiter), chatHandler.CreateRoom)
		api.GET("/chat/rooms/:room_id/users", chatHandler.GetRoomUsers)
		api.GET("/chat/rooms/:room_id/messages", chatHandler.GetRoomMessages)

		// Moderation routes
		api.GET("/moderation/rooms/:room_id/status", moderationHandler.GetMuteStatus)
		api.GET("/moderation/rooms/:room_id/muted", moderationHandler.GetMutedUsers)
		api.POST("/moderation/rooms/:room_id/unmute/:username", moderationHandler.UnmuteUser)
		api.GET("/moderation/users/:username", moderationHandler.GetUserStats)

		// Analytics routes
		api.GET("/analytics/rooms/:room_id", analyticsHandler.GetRoomAnalytics)
	}

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Starting chatshield server on %s (env: %s)", addr, cfg.Server.Env)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
