// Package initializer wires the concrete infrastructure behind the
// application's dependency set: database, event bus, card-status cache and
// the SMS gateway.
package initializer

import (
	"fmt"
	"strings"

	"github.com/ineza/schoolpay/infra"
	infracache "github.com/ineza/schoolpay/infra/cache"
	infraeventbus "github.com/ineza/schoolpay/infra/eventbus"
	infrarepository "github.com/ineza/schoolpay/infra/repository"
	infrasms "github.com/ineza/schoolpay/infra/sms"
	"github.com/ineza/schoolpay/pkg/cache"
	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/eventbus"
	"github.com/ineza/schoolpay/pkg/notification"
)

// InitializeDependencies builds the full dependency set from configuration.
func InitializeDependencies(cfg *config.App) (deps config.Deps, err error) {
	logger := setupLogger(cfg.Log)
	deps.Logger = logger
	deps.Config = cfg

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return deps, err
	}
	deps.Uow = infrarepository.NewUoW(db)

	var bus eventbus.Bus
	switch cfg.EventBus.Backend {
	case "kafka":
		if cfg.EventBus.Brokers == "" {
			return deps, fmt.Errorf("event bus backend is kafka but no brokers configured")
		}
		bus = infraeventbus.NewWithKafka(cfg.EventBus.Brokers, cfg.EventBus.Topic, logger)
	case "", "memory":
		bus = infraeventbus.NewWithMemory(logger)
	default:
		return deps, fmt.Errorf("unknown event bus backend %q", cfg.EventBus.Backend)
	}
	deps.EventBus = bus

	var cardCache cache.CardStatusCache
	if cfg.Redis.Url != "" {
		cardCache, err = infracache.NewRedisCardStatusCache(cfg.Redis.Url, logger)
		if err != nil {
			return deps, fmt.Errorf("failed to create Redis card-status cache: %w", err)
		}
		logger.Info("Card-status cache backed by Redis", "ttl", cfg.Redis.TTL)
	} else {
		cardCache = infracache.NewMemoryCardStatusCache()
		logger.Info("Card-status cache in memory", "ttl", cfg.Redis.TTL)
	}
	deps.CardCache = cardCache

	var gateway notification.SMSGateway
	if strings.TrimSpace(cfg.SMS.ApiUrl) != "" {
		gateway = infrasms.NewHTTPGateway(cfg.SMS, logger)
	} else {
		logger.Warn("SMS API URL not set, outgoing SMS will be recorded but not delivered")
		gateway = infrasms.NewMockGateway()
	}
	deps.SMSGateway = gateway

	return deps, nil
}
