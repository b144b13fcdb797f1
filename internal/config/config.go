package config

import (
	"os"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port       string
	MongoURI   string
	MongoDB    string
	RedisAddr  string
	RedisPass  string
	ConsumerID string
}

// Load reads configuration from the environment, after loading an optional
// .env file for local development.
func Load() AppConfig {
	_ = godotenv.Load()

	return AppConfig{
		Port:       getEnv("PORT", "8082"),
		MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGO_DB", "accounts"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:  getEnv("REDIS_PASS", ""),
		ConsumerID: getEnv("CONSUMER_ID", "account-service-1"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
