package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN   string
	MongoURI      string
	RedisAddr     string
	RabbitURL     string
	HTTPAddr      string
	S3Region      string
	S3MediaBucket string
	CapacityHold  time.Duration
	OTLPEndpoint  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	hold, _ := time.ParseDuration(os.Getenv("CAPACITY_HOLD_TTL"))
	if hold == 0 {
		hold = 30 * time.Second
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &Config{
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		HTTPAddr:      addr,
		S3Region:      os.Getenv("S3_REGION"),
		S3MediaBucket: os.Getenv("S3_MEDIA_BUCKET"),
		CapacityHold:  hold,
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
