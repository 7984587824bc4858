package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// 持久化
	DatabasePath string
	TripsKey     string

	// 超过该时长的最近定位视为过期，不能作为开始录制的前置定位（0 关闭检查）
	StaleFixMaxAge time.Duration
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:     getEnv("PORT", "4000"),
		Debug:          getEnvBool("DEBUG", false),
		DatabasePath:   getEnv("DATABASE_PATH", "waytrack.db"),
		TripsKey:       getEnv("TRIPS_KEY", "trips"),
		StaleFixMaxAge: getEnvDuration("STALE_FIX_MAX_AGE", 2*time.Minute),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
