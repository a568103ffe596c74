// Package api exposes the read-only status API: health, risk metrics,
// breaker state and the trade ledger. There are no mutating endpoints; the
// scan loop is driven by its own ticker, not by HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mt5-smc-bot/internal/circuit"
	"mt5-smc-bot/internal/database"
	"mt5-smc-bot/internal/risk"
)

// BotAPI is the slice of the scan loop the API reads.
type BotAPI interface {
	Status() map[string]interface{}
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ProductionMode bool
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      ServerConfig
	repo        *database.Repository
	riskManager *risk.Manager
	breaker     *circuit.Breaker
	bot         BotAPI
	logger      zerolog.Logger
}

// NewServer creates a new API server
func NewServer(config ServerConfig, repo *database.Repository, riskManager *risk.Manager, breaker *circuit.Breaker, bot BotAPI, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8088"}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		config:      config,
		repo:        repo,
		riskManager: riskManager,
		breaker:     breaker,
		bot:         bot,
		logger:      logger.With().Str("component", "API").Logger(),
	}
	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/risk", s.handleRiskMetrics)
		api.GET("/breaker", s.handleBreakerState)
		api.GET("/trades/open", s.handleOpenTrades)
		api.GET("/trades/history", s.handleTradeHistory)
	}
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("status API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
