package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-agent/assistant"
	"campus-agent/config"
	"campus-agent/web/handlers"
	"campus-agent/web/middleware"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
	config *config.Config
}

func NewServer(asst *assistant.Assistant, logger *zap.Logger, config *config.Config) *Server {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		// Add logger to context
		c.Set("logger", logger)
		c.Next()
	})

	server := &Server{
		router: router,
		logger: logger,
		config: config,
	}

	server.setupRoutes(asst)
	return server
}

func (s *Server) setupRoutes(asst *assistant.Assistant) {
	chatHandler := handlers.NewChatHandler(asst, asst.Sessions(), s.logger)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		MessagesPerMinute: s.config.RateLimitMessagesPerMin,
		BurstSize:         s.config.RateLimitBurstSize,
		CleanupInterval:   s.config.RateLimitCleanup,
	}, s.logger)

	api := s.router.Group("/api")
	api.GET("/sessions", chatHandler.ListSessions)
	api.POST("/sessions", chatHandler.CreateSession)
	api.GET("/sessions/:sessionID", chatHandler.GetSession)
	api.DELETE("/sessions/:sessionID", chatHandler.DeleteSession)
	api.POST("/chat", rateLimiter.Middleware(), chatHandler.SendMessage)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	return srv.Shutdown(context.Background())
}
