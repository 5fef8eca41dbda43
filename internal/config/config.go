package config

import (
	"os"
	"strconv"
	"time"
)

const DefaultEndpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"

type Config struct {
	Port        int
	LogLevel    string
	Endpoint    string
	APIKey      string
	Model       string
	LLMTimeout  time.Duration
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	APIToken    string
	RateLimit   float64
	RateBurst   int
}

func Load() Config {
	return Config{
		Port:        envInt("PETPAL_PORT", 8760),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		Endpoint:    envStr("DASHSCOPE_ENDPOINT", DefaultEndpoint),
		APIKey:      envStr("DASHSCOPE_API_KEY", ""),
		Model:       envStr("PETPAL_MODEL", "qwen-plus"),
		LLMTimeout:  envDuration("PETPAL_LLM_TIMEOUT", 60*time.Second),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		APIToken:    envStr("PETPAL_API_TOKEN", ""),
		RateLimit:   envFloat("PETPAL_RATE_LIMIT", 2),
		RateBurst:   envInt("PETPAL_RATE_BURST", 5),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("90s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
