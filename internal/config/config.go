package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// App Settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// Concurrency ceilings. The precheck is cheap and network-bound; the
	// validator spawns a sing-box instance per task, so it stays small.
	PrecheckWorkers int `envconfig:"PRECHECK_WORKERS" default:"100"`
	ValidateWorkers int `envconfig:"VALIDATE_WORKERS" default:"4"`

	// Network Logic
	TestURL      string        `envconfig:"TEST_URL" default:"http://cp.cloudflare.com"`
	TcpTimeout   time.Duration `envconfig:"TCP_TIMEOUT" default:"5s"`
	TestTimeout  time.Duration `envconfig:"TEST_TIMEOUT" default:"10s"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	FetchRetries int           `envconfig:"FETCH_RETRIES" default:"2"`

	// File System Paths
	SingBoxPath string `envconfig:"SING_BOX_PATH" default:"./bin/sing-box"`
	InputPath   string `envconfig:"INPUT_PATH" default:""`
	SourcesPath string `envconfig:"SOURCES_PATH" default:"sources.yaml"`
	OutputPath  string `envconfig:"OUTPUT_PATH" default:"result.txt"`
	JSONLPath   string `envconfig:"JSONL_PATH" default:""`
	GeoIPPath   string `envconfig:"GEOIP_PATH" default:"GeoLite2-Country.mmdb"`

	// Notifications (disabled when token is empty)
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramChatID string `envconfig:"TELEGRAM_CHAT_ID" default:""`
}

// Load reads .env and processes environment variables.
func Load() *Config {
	// Silently ignore a missing .env; production uses real env vars.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Configuration Error: %v", err)
	}
	return &cfg
}
