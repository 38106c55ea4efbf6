package config

import (
	"log/slog"

	"github.com/ineza/schoolpay/pkg/cache"
	"github.com/ineza/schoolpay/pkg/eventbus"
	"github.com/ineza/schoolpay/pkg/notification"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Deps holds all infrastructure dependencies for building the app and services.
type Deps struct {
	Uow        repository.UnitOfWork
	EventBus   eventbus.Bus
	SMSGateway notification.SMSGateway
	CardCache  cache.CardStatusCache
	Logger     *slog.Logger
	Config     *App
}
