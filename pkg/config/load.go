package config

import (
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from the environment, layering any given .env
// files first. Missing .env files are not an error so containers can run
// from plain env vars.
func Load(logger *slog.Logger, envFiles ...string) (*App, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			logger.Debug("env file not loaded", "file", f, "error", err)
		} else {
			logger.Info("env file loaded", "file", f)
		}
	}

	cfg := &App{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	logger.Info("config loaded",
		"env", cfg.Env,
		"server.port", cfg.Server.Port,
		"db.url", maskValue(cfg.DB.Url),
		"jwt.secret", maskValue(cfg.Jwt.Secret),
		"sms.api_key", maskValue(cfg.SMS.ApiKey),
		"event_bus.backend", cfg.EventBus.Backend,
	)
	return cfg, nil
}

// maskValue keeps the first few characters of a secret for log correlation.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", 4)
}
