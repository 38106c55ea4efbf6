// Package app assembles the services from their shared dependencies.
package app

import (
	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/notification"
	accountsvc "github.com/ineza/schoolpay/pkg/service/account"
	attendancesvc "github.com/ineza/schoolpay/pkg/service/attendance"
	authsvc "github.com/ineza/schoolpay/pkg/service/auth"
	devicesvc "github.com/ineza/schoolpay/pkg/service/device"
	merchantsvc "github.com/ineza/schoolpay/pkg/service/merchant"
	paymentsvc "github.com/ineza/schoolpay/pkg/service/payment"
	reportsvc "github.com/ineza/schoolpay/pkg/service/report"
	studentsvc "github.com/ineza/schoolpay/pkg/service/student"
	tapsvc "github.com/ineza/schoolpay/pkg/service/tap"
)

// App holds the wired services.
type App struct {
	Deps   config.Deps
	Config *config.App

	AuthService       *authsvc.Service
	StudentService    *studentsvc.Service
	DeviceService     *devicesvc.Service
	MerchantService   *merchantsvc.Service
	AccountService    *accountsvc.Service
	PaymentService    *paymentsvc.Service
	AttendanceService *attendancesvc.Service
	TapService        *tapsvc.Service
	ReportService     *reportsvc.Service
}

// New wires the services together.
func New(deps config.Deps) *App {
	dispatcher := notification.NewDispatcher(deps.SMSGateway, deps.EventBus, deps.Logger)

	payments := paymentsvc.NewService(deps, dispatcher)
	attendance := attendancesvc.NewService(deps, dispatcher)

	return &App{
		Deps:              deps,
		Config:            deps.Config,
		AuthService:       authsvc.NewService(deps),
		StudentService:    studentsvc.NewService(deps),
		DeviceService:     devicesvc.NewService(deps),
		MerchantService:   merchantsvc.NewService(deps),
		AccountService:    accountsvc.NewService(deps),
		PaymentService:    payments,
		AttendanceService: attendance,
		TapService:        tapsvc.NewService(deps, payments, attendance),
		ReportService:     reportsvc.NewService(deps),
	}
}
