package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	LogLevel    string
	Environment string
	CORSOrigins string

	StoreDriver string
	DataDir     string
	DatabaseURL string
	RedisURL    string
	ClientID    string

	AllowVoteReset  bool
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	ErrorTTL        time.Duration
	CloseGuard      time.Duration

	SimFailureRate float64
	SimMinLatency  time.Duration
	SimMaxLatency  time.Duration
	VotingDuration time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "bbolt")),
		DataDir:     getEnv("DATA_DIR", "./data"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		ClientID:    getEnv("CLIENT_ID", "local"),

		AllowVoteReset:  getEnvBool("ALLOW_VOTE_RESET", false),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Second),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		ErrorTTL:        getEnvDuration("ERROR_TTL", 4*time.Second),
		CloseGuard:      getEnvDuration("CLOSE_GUARD", 5*time.Second),

		SimFailureRate: getEnvFloat("SIM_FAILURE_RATE", 0.10),
		SimMinLatency:  getEnvDuration("SIM_MIN_LATENCY", 200*time.Millisecond),
		SimMaxLatency:  getEnvDuration("SIM_MAX_LATENCY", 800*time.Millisecond),
		VotingDuration: getEnvDuration("VOTING_DURATION", 2*time.Hour),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

// getEnvDuration accepts Go duration strings ("750ms", "2h") or a bare
// integer number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms := getEnvInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
