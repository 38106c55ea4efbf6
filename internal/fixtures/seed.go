package fixtures

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/infra/eventbus"
)

// Deps builds a config.Deps around the in-memory unit of work, an in-memory
// event bus and a discard logger.
func Deps(t *testing.T, uow *MemoryUoW) (config.Deps, *eventbus.MemoryEventBus) {
	t.Helper()
	bus := eventbus.NewWithMemory(slog.Default())
	return config.Deps{
		Uow:      uow,
		EventBus: bus,
		Logger:   slog.Default(),
		Config:   &config.App{},
	}, bus
}

// SeedStudent stores an enrolled student with an active card.
func SeedStudent(t *testing.T, uow *MemoryUoW, schoolID uuid.UUID, cardUID, phone string) *student.Student {
	t.Helper()
	st, err := student.New().
		WithSchoolID(schoolID).
		WithName("Aline", "Uwase").
		WithParentPhone(phone).
		WithCardUID(cardUID).
		Build()
	require.NoError(t, err)
	repo, err := uow.StudentRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), st))
	return st
}

// SeedAccount stores a wallet for the student with the given balance in the
// smallest currency unit.
func SeedAccount(t *testing.T, uow *MemoryUoW, studentID uuid.UUID, balance int64) *account.Account {
	t.Helper()
	a, err := account.New().
		WithStudentID(studentID).
		WithBalance(balance).
		WithTotalDeposits(balance).
		Build()
	require.NoError(t, err)
	repo, err := uow.AccountRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

// SeedMerchant stores an active merchant.
func SeedMerchant(t *testing.T, uow *MemoryUoW, schoolID uuid.UUID, name string) *merchant.Merchant {
	t.Helper()
	m, err := merchant.New(name, "canteen", schoolID)
	require.NoError(t, err)
	repo, err := uow.MerchantRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), m))
	return m
}

// SeedDevice stores an online device, optionally bound to a merchant.
func SeedDevice(
	t *testing.T,
	uow *MemoryUoW,
	schoolID uuid.UUID,
	deviceID string,
	typ device.Type,
	merchantID uuid.UUID,
) *device.Device {
	t.Helper()
	d, err := device.New(deviceID, typ, schoolID, "main gate")
	require.NoError(t, err)
	d.Status = device.StatusOnline
	if merchantID != uuid.Nil {
		require.NoError(t, d.BindMerchant(merchantID))
	}
	repo, err := uow.DeviceRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), d))
	return d
}
