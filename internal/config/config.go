package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr      string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JWTSecret     string
	AdminToken    string
	SessionTTL    time.Duration
	AutoMigrate   bool

	RewardAPIBaseURL  string
	RewardAPIVersion  string
	RewardTokenHeader string
	RewardTimeout     time.Duration
	RewardExpiry      time.Duration
	RewardUsageLimit  int
	RewardCodePrefix  string

	OutcomeCacheTTL time.Duration

	SubmailAppID     string
	SubmailAppKey    string
	SubmailProjectID string

	RewardWorkerEnabled     bool
	RewardWorkerMaxAttempts int
	RewardWorkerBackoff     time.Duration
}

// Load reads the environment. Values from .env fill in anything not already
// set in the process environment.
func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MySQLDSN:      getEnv("MYSQL_DSN", "root:password@tcp(127.0.0.1:3306)/luckyplay?parseTime=true&charset=utf8mb4"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		AdminToken:    getEnv("ADMIN_TOKEN", ""),
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_HOURS", 8)) * time.Hour,
		AutoMigrate:   getEnvBool("AUTO_MIGRATE", false),

		RewardAPIBaseURL:  getEnv("REWARD_API_BASE_URL", ""),
		RewardAPIVersion:  getEnv("REWARD_API_VERSION", "2024-07"),
		RewardTokenHeader: getEnv("REWARD_TOKEN_HEADER", "X-Shopify-Access-Token"),
		RewardTimeout:     time.Duration(getEnvInt("REWARD_TIMEOUT_MS", 5000)) * time.Millisecond,
		RewardExpiry:      time.Duration(getEnvInt("REWARD_EXPIRY_DAYS", 30)) * 24 * time.Hour,
		RewardUsageLimit:  getEnvInt("REWARD_USAGE_LIMIT", 1),
		RewardCodePrefix:  getEnv("REWARD_CODE_PREFIX", "WIN"),

		OutcomeCacheTTL: time.Duration(getEnvInt("OUTCOME_CACHE_TTL_SEC", 86400)) * time.Second,

		SubmailAppID:     getEnv("SUBMAIL_APPID", ""),
		SubmailAppKey:    getEnv("SUBMAIL_APPKEY", ""),
		SubmailProjectID: getEnv("SUBMAIL_PROJECT", ""),

		RewardWorkerEnabled:     getEnvBool("REWARD_WORKER_ENABLED", false),
		RewardWorkerMaxAttempts: getEnvInt("REWARD_WORKER_MAX_ATTEMPTS", 8),
		RewardWorkerBackoff:     time.Duration(getEnvInt("REWARD_WORKER_BACKOFF_SEC", 30)) * time.Second,
	}
	if cfg.RewardTimeout <= 0 {
		cfg.RewardTimeout = 5 * time.Second
	}
	if cfg.RewardUsageLimit < 1 {
		cfg.RewardUsageLimit = 1
	}
	if cfg.RewardWorkerMaxAttempts < 1 {
		cfg.RewardWorkerMaxAttempts = 1
	}
	cfg.RewardCodePrefix = strings.ToUpper(strings.TrimSpace(cfg.RewardCodePrefix))
	return cfg
}

func getEnv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if val == "" {
		return def
	}
	switch val {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
