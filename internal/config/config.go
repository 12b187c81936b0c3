package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yukikurage/agency-api/internal/constants"
)

type Config struct {
	Env        string
	ServerAddr string
	GinMode    string
	LogLevel   string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string
	DBLogLevel string

	RedisHost     string
	RedisPort     string
	SessionSecret string

	JWTSecret string
	JWTTTL    time.Duration

	DefaultMaxUsers          int
	InvitationTTL            time.Duration
	InvitationReaperInterval time.Duration

	AMQPURL      string
	AMQPExchange string

	MetricsEnabled bool
}

// Load reads configuration from the environment, after applying a .env file
// when one is present in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:        getEnv("APP_ENV", "development"),
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "agency"),
		DBPassword: getEnv("DB_PASSWORD", "agencypassword"),
		DBName:     getEnv("DB_NAME", "agency"),
		DBPath:     getEnv("DB_PATH", "agency.db"),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),

		JWTSecret: getEnv("JWT_SECRET", "agency-dev-secret-change-in-production"),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		DefaultMaxUsers:          getEnvInt("DEFAULT_MAX_USERS", constants.DefaultMaxUsers),
		InvitationTTL:            getEnvDuration("INVITATION_TTL", constants.DefaultInvitationTTL),
		InvitationReaperInterval: getEnvDuration("INVITATION_REAPER_INTERVAL", constants.DefaultReaperInterval),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "agency.events"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
