package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	"github.com/autostream-sales-agent/server/internal/core"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
	pkgredis "github.com/autostream-sales-agent/server/pkg/redis"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

// AppConfig defines all configurable parameters for the agent,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider. Without a key the agent runs on rules and the knowledge base only.
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier model.ClassifierModelConfig
	Response   model.ResponseModelConfig
	Embedding  model.EmbeddingConfig
	Agent      model.AgentConfig
	Session    model.SessionConfig
	Leads      model.LeadStoreConfig
	Server     model.ServerConfig

	Tagline  string `envconfig:"AGENT_TAGLINE" default:"an AI-powered video editing platform"`
	LeadPlan string `envconfig:"AGENT_LEAD_PLAN" default:"Pro plan"`
}

// loadConfig reads the environment and initialises logging. Options adjust the
// logger after the environment defaults are applied.
func loadConfig(opts ...func(*logx.LoggerOpts)) (AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	cfg.Agent = cfg.Agent.WithDefaults()

	lo := logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	}
	for _, o := range opts {
		o(&lo)
	}
	logx.Init(lo)
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
