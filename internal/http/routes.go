package http

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"promptparty/internal/config"
	"promptparty/internal/game"
	"promptparty/internal/http/handlers"
	"promptparty/internal/http/middleware"
	"promptparty/internal/repository"
	"promptparty/internal/session"
	"promptparty/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes wires the whole HTTP surface. db and results are nil
// when the server runs without Postgres.
func RegisterRoutes(r *gin.Engine, reg *session.Registry, orch *game.Orchestrator, hub *ws.Hub, results *repository.ResultsRepository, db *pgxpool.Pool, version string, cfg *config.Config) {
	h := handlers.NewHandler(reg, orch, results, cfg)
	healthHandler := handlers.NewHealthHandler(db, version, reg.Count)

	// read limits from env, with safe defaults
	apiRateLimit := 60
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateLimit = n
		}
	}
	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	gameRateLimit := cfg.GameRateLimit
	gameRateWindow := time.Duration(cfg.GameRateWindow) * time.Second

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))
	registerAPIRoutes(v1, h, gameRateLimit, gameRateWindow)

	// Legacy /api routes kept for older clients
	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))
	api.GET("/health", healthHandler.Health)
	registerAPIRoutes(api, h, gameRateLimit, gameRateWindow)

	// WebSocket event stream, one room per session
	r.GET("/ws", h.WS(hub))

	// Frontend static files, only when a web root is configured
	if webDir := os.Getenv("WEB_DIR"); webDir != "" {
		r.StaticFS("/assets", gin.Dir(webDir, false))
		r.NoRoute(func(c *gin.Context) {
			c.File(filepath.Join(webDir, "index.html"))
		})
	}
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, gameRateLimit int, gameRateWindow time.Duration) {
	// Session lifecycle. Create gets an extra in-process guard so a
	// burst can't mint codes even when Redis is down.
	api.POST("/sessions", middleware.SimpleRateLimit(10, time.Minute), h.CreateSession)
	api.POST("/sessions/:code/join", h.JoinSession)
	api.GET("/sessions/:code", h.GetSession)
	api.POST("/sessions/:code/start", middleware.JWT(), h.StartGame)
	api.POST("/sessions/:code/leave", middleware.JWT(), h.LeaveSession)

	// Game action rate limiter (per player, not per IP)
	gameRL := middleware.GameRateLimit(gameRateLimit, gameRateWindow)

	// Selections feed image generation, so they get their own cap too
	selectionRL := middleware.GameRateLimitByAction("selection", 10, time.Minute)

	api.POST("/sessions/:code/selection", middleware.JWT(), gameRL, selectionRL, h.SubmitSelection)
	api.POST("/sessions/:code/judgement", middleware.JWT(), gameRL, h.SubmitJudgement)
	api.POST("/sessions/:code/vote", middleware.JWT(), gameRL, h.SubmitVote)

	// Private per-player view of a running game
	api.GET("/games/:id/state", middleware.JWT(), h.GameState)

	// Finished game history (Postgres backed)
	api.GET("/games/recent", h.RecentGames)
	api.GET("/games/:id/rounds", h.GameRounds)
}
