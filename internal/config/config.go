package config

import (
	"os"
	"strconv"
	"time"

	"promptparty/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort        string
	GinMode        string
	LogLevel       string
	LogJSON        bool
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	JWTSecret      string
	AllowedOrigins string

	// Image generation backend
	ImageAPIURL            string
	ImageAPIKey            string
	ImageTimeout           time.Duration
	MaxConcurrentImageJobs int

	// Game tuning
	HandSize          int
	DefaultMaxRounds  int
	MaxPlayers        int
	FirstPlacePoints  int
	SecondPlacePoints int
	SelectionTimeout  time.Duration
	JudgingTimeout    time.Duration // 0 disables the judging fallback timer
	ResultsTimeout    time.Duration

	// Session registry
	SessionSweepInterval time.Duration
	SessionIdleTimeout   time.Duration

	// Submission rate limiting
	GameRateLimit  int
	GameRateWindow int
}

// Load reads config from the environment, with .env as a convenience.
func Load() *Config {
	_ = godotenv.Load()

	ginMode := getEnv("GIN_MODE", "release")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		if ginMode == "release" {
			logger.Fatal("JWT_SECRET is not set")
		}
		jwtSecret = "dev-secret-do-not-use-in-prod"
	}

	return &Config{
		AppPort:        getEnv("PORT", "8080"),
		GinMode:        ginMode,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        os.Getenv("LOG_JSON") == "true",
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      jwtSecret,
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		ImageAPIURL:            os.Getenv("IMAGE_API_URL"),
		ImageAPIKey:            os.Getenv("IMAGE_API_KEY"),
		ImageTimeout:           secondsEnv("IMAGE_TIMEOUT_SECONDS", 60),
		MaxConcurrentImageJobs: intEnv("IMAGE_MAX_CONCURRENT", 4),

		HandSize:          intEnv("GAME_HAND_SIZE", 8),
		DefaultMaxRounds:  intEnv("GAME_MAX_ROUNDS", 5),
		MaxPlayers:        intEnv("GAME_MAX_PLAYERS", 8),
		FirstPlacePoints:  intEnv("GAME_FIRST_POINTS", 3),
		SecondPlacePoints: intEnv("GAME_SECOND_POINTS", 1),
		SelectionTimeout:  secondsEnv("GAME_SELECTION_TIMEOUT_SECONDS", 45),
		JudgingTimeout:    secondsEnv("GAME_JUDGING_TIMEOUT_SECONDS", 90),
		ResultsTimeout:    secondsEnv("GAME_RESULTS_TIMEOUT_SECONDS", 8),

		SessionSweepInterval: minutesEnv("SESSION_SWEEP_MINUTES", 5),
		SessionIdleTimeout:   minutesEnv("SESSION_IDLE_MINUTES", 60),

		GameRateLimit:  intEnv("GAME_RATE_LIMIT", 60),
		GameRateWindow: intEnv("GAME_RATE_WINDOW", 60),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func secondsEnv(key string, fallback int) time.Duration {
	return time.Duration(intEnv(key, fallback)) * time.Second
}

func minutesEnv(key string, fallback int) time.Duration {
	return time.Duration(intEnv(key, fallback)) * time.Minute
}
