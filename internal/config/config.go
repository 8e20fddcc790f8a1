package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the judge API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	NATSSubject      string
	JWTSecret        string
	DockerHost       string
	WorkspaceRoot    string
	CompileTimeout   time.Duration
	JudgeWorkers     int
	JudgeQueueSize   int
	WatchdogInterval time.Duration
	WatchdogGrace    time.Duration
	ProblemCacheTTL  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Arena Judge API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "arena.judge.results")
	v.SetDefault("compile_timeout_ms", 30000)
	v.SetDefault("judge.workers", 4)
	v.SetDefault("judge.queue_size", 64)
	v.SetDefault("watchdog.interval", "1m")
	v.SetDefault("watchdog.grace", "5m")
	v.SetDefault("problem.cache_ttl", "5m")

	interval, err := time.ParseDuration(v.GetString("watchdog.interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid watchdog interval: %w", err)
	}

	grace, err := time.ParseDuration(v.GetString("watchdog.grace"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid watchdog grace: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("problem.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid problem cache ttl: %w", err)
	}

	compileTimeoutMs := v.GetInt("compile_timeout_ms")
	if compileTimeoutMs <= 0 {
		compileTimeoutMs = 30000
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		NATSSubject:      v.GetString("nats.subject"),
		JWTSecret:        v.GetString("jwt.secret"),
		DockerHost:       v.GetString("docker_host"),
		WorkspaceRoot:    v.GetString("workspace_root"),
		CompileTimeout:   time.Duration(compileTimeoutMs) * time.Millisecond,
		JudgeWorkers:     v.GetInt("judge.workers"),
		JudgeQueueSize:   v.GetInt("judge.queue_size"),
		WatchdogInterval: interval,
		WatchdogGrace:    grace,
		ProblemCacheTTL:  cacheTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.JudgeWorkers <= 0 {
		cfg.JudgeWorkers = 4
	}

	if cfg.JudgeQueueSize <= 0 {
		cfg.JudgeQueueSize = 64
	}

	return cfg, nil
}
