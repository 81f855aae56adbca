package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// StoreBackend selects the ticket store implementation.
type StoreBackend string

const (
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
	StoreMemory   StoreBackend = "memory"
)

// Config holds all runtime settings. Loaded once in main and passed to
// constructors; nothing reads the environment after LoadConfig returns.
type Config struct {
	AppName    string
	ServerPort string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StreamKey     string
	ConsumerGroup string

	StoreBackend StoreBackend
	PostgresDSN  string

	// WorkerEmbedded runs the ticket processor inside the API process.
	WorkerEmbedded bool
	WorkerName     string

	// Mock LLM latency bounds in milliseconds.
	MockLLMMinDelayMs int
	MockLLMMaxDelayMs int
}

// LoadConfig reads .env (if present) and environment variables.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Config{
		AppName:    getEnv("APP_NAME", "ticketflow"),
		ServerPort: getEnv("SERVER_PORT", "8000"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StreamKey:     getEnv("REDIS_STREAM_KEY", "ticket-stream"),
		ConsumerGroup: getEnv("REDIS_CONSUMER_GROUP", "ticket-processors"),

		StoreBackend: StoreBackend(getEnv("STORE_BACKEND", "redis")),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		WorkerEmbedded: getEnvBool("WORKER_EMBEDDED", false),
		WorkerName:     getEnv("WORKER_NAME", "ticket-processor-1"),

		MockLLMMinDelayMs: getEnvInt("MOCK_LLM_MIN_DELAY_MS", 2000),
		MockLLMMaxDelayMs: getEnvInt("MOCK_LLM_MAX_DELAY_MS", 5000),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
