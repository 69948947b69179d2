package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"promptparty/internal/config"
	"promptparty/internal/db"
	"promptparty/internal/game"
	httpServer "promptparty/internal/http"
	"promptparty/internal/http/middleware"
	"promptparty/internal/imagegen"
	"promptparty/internal/logger"
	"promptparty/internal/repository"
	"promptparty/internal/service"
	"promptparty/internal/session"
	"promptparty/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)
	gin.SetMode(cfg.GinMode)

	// Postgres is optional: without it the server runs fine, it just
	// keeps no game history.
	var dbPool *pgxpool.Pool
	var results *repository.ResultsRepository
	if cfg.DatabaseURL != "" {
		dbPool = db.Connect(context.Background(), cfg.DatabaseURL)
		defer dbPool.Close()
		results = repository.NewResultsRepository(dbPool)
	} else {
		logger.Warn("DATABASE_URL not set, game history disabled")
	}

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, 0)

	hub := ws.NewHub()
	hub.StartCleanup()

	gen := imagegen.New(cfg.ImageAPIURL, cfg.ImageAPIKey, cfg.ImageTimeout)

	timeouts := game.DefaultTimeouts()
	timeouts.Selection = cfg.SelectionTimeout
	timeouts.Judging = cfg.JudgingTimeout
	timeouts.Results = cfg.ResultsTimeout

	var sink game.ResultSink
	if results != nil {
		sink = results
	}
	orch := game.NewOrchestrator(game.Config{
		HandSize:          cfg.HandSize,
		FirstPlacePoints:  cfg.FirstPlacePoints,
		SecondPlacePoints: cfg.SecondPlacePoints,
		ImageBudget:       cfg.ImageTimeout,
		MaxImageJobs:      cfg.MaxConcurrentImageJobs,
		Timeouts:          timeouts,
	}, hub, gen, sink)

	reg := session.NewRegistry(session.Options{
		MaxPlayers:    cfg.MaxPlayers,
		MaxRounds:     cfg.DefaultMaxRounds,
		SweepInterval: cfg.SessionSweepInterval,
		IdleTimeout:   cfg.SessionIdleTimeout,
	}, hub)

	// Socket presence drives player connected flags
	hub.OnConnect = func(code, playerID string) {
		if inst, err := reg.Get(code); err == nil {
			orch.HandleReconnect(inst, playerID)
		}
	}
	hub.OnDisconnect = func(code, playerID string) {
		if inst, err := reg.Get(code); err == nil {
			orch.HandleDisconnect(inst, playerID)
		}
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	reg.StartSweeper(sweepCtx)

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && originAllowed(cfg.AllowedOrigins, origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, reg, orch, hub, results, dbPool, version, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "err", err)
	}

	logger.Info("server exited")
}

func originAllowed(allowed, origin string) bool {
	if allowed == "" || allowed == "*" {
		return true
	}
	for _, o := range strings.Split(allowed, ",") {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}
