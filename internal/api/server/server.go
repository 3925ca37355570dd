package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerijus-areska/aimu/internal/config"
	database "github.com/nerijus-areska/aimu/internal/db"
	"github.com/nerijus-areska/aimu/internal/library"
	"github.com/nerijus-areska/aimu/internal/station"

	"github.com/nerijus-areska/aimu/internal/api/handlers"
	"github.com/nerijus-areska/aimu/internal/api/middleware"
)

type Server struct {
	cfg    *config.Config
	db     *database.Client
	repo   *library.Repository
	ctrl   *station.Controller
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, db *database.Client, repo *library.Repository, ctrl *station.Controller) *Server {
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		db:     db,
		repo:   repo,
		ctrl:   ctrl,
		router: router,
	}
	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}

	// "Authorization" must be allowed so the frontend can send the JWT
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	s.router.Use(cors.New(corsConfig))
	// the UI polls these every second
	s.router.Use(middleware.SilentLogger("/health", "/api/v1/station", "/api/v1/station/score"))
}

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.cfg.Server.PasswordHash, s.cfg.Server.JWTSecret)
	statsHandler := handlers.NewStatsHandler(s.db.DB, s.ctrl)
	trackHandler := handlers.NewTrackHandler(s.repo, s.ctrl)
	stationHandler := handlers.NewStationHandler(s.ctrl)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "aimu"})
	})

	metricsPath := s.cfg.Server.MetricsPath
	if metricsPath == "" {
		metricsPath = "/_metrics"
	}
	s.router.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		// ==========================================
		// PUBLIC ROUTES (No Token Required)
		// ==========================================
		v1.POST("/auth/login", authHandler.Login)

		v1.GET("/stats", statsHandler.GetStats)
		v1.GET("/station", stationHandler.GetStatus)
		v1.GET("/station/score", stationHandler.GetScore)
		v1.GET("/tracks", trackHandler.GetTracks)
		v1.GET("/tracks/feedback", trackHandler.GetFeedbackHistory)

		// ==========================================
		// PROTECTED ROUTES (JWT Token Required)
		// ==========================================
		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth([]byte(s.cfg.Server.JWTSecret)))
		{
			protected.GET("/tracks/stream", trackHandler.StreamTrack)
			protected.PUT("/tracks/note", trackHandler.UpdateNote)
			protected.POST("/feedback", stationHandler.PostFeedback)
			protected.POST("/station/toggle", stationHandler.Toggle)
			protected.POST("/station/next", stationHandler.Next)
			protected.PUT("/station/highlight", stationHandler.Highlight)
		}
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server on server.addr until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("🌐 API listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
