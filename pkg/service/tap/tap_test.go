package tap_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infracache "github.com/ineza/schoolpay/infra/cache"
	"github.com/ineza/schoolpay/infra/sms"
	"github.com/ineza/schoolpay/internal/fixtures"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/notification"
	attendancesvc "github.com/ineza/schoolpay/pkg/service/attendance"
	paymentsvc "github.com/ineza/schoolpay/pkg/service/payment"
	tapsvc "github.com/ineza/schoolpay/pkg/service/tap"
)

type tapFixture struct {
	uow   *fixtures.MemoryUoW
	cache *infracache.MemoryCardStatusCache
	svc   *tapsvc.Service
}

func newTapFixture(t *testing.T) *tapFixture {
	t.Helper()
	uow := fixtures.NewMemoryUoW()
	deps, bus := fixtures.Deps(t, uow)
	cardCache := infracache.NewMemoryCardStatusCache()
	deps.CardCache = cardCache

	dispatcher := notification.NewDispatcher(sms.NewMockGateway(), bus, slog.Default())
	payments := paymentsvc.NewService(deps, dispatcher)
	att := attendancesvc.NewService(deps, dispatcher)
	return &tapFixture{
		uow:   uow,
		cache: cardCache,
		svc:   tapsvc.NewService(deps, payments, att),
	}
}

func rwf(t *testing.T, amount int64) money.Money {
	t.Helper()
	m, err := money.NewFromSmallestUnit(amount, "RWF")
	require.NoError(t, err)
	return m
}

func TestRoute_PaymentDevice(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	out, err := f.svc.Route(context.Background(), tapsvc.Input{
		CardUID:  "04:A3:2B:1C",
		DeviceID: "POS-01",
		Amount:   rwf(t, 300),
	})
	require.NoError(t, err)
	assert.Equal(t, tapsvc.KindPayment, out.Kind)
	require.NotNil(t, out.Payment)
	assert.Equal(t, int64(700), out.Payment.Balance.Amount())
	assert.Nil(t, out.Attendance)
}

func TestRoute_AttendanceDevice(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")
	fixtures.SeedDevice(t, f.uow, schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

	out, err := f.svc.Route(context.Background(), tapsvc.Input{
		CardUID:  "04:A3:2B:1C",
		DeviceID: "GATE-01",
	})
	require.NoError(t, err)
	assert.Equal(t, tapsvc.KindAttendance, out.Kind)
	require.NotNil(t, out.Attendance)
	assert.Equal(t, st.ID, out.Attendance.Record.StudentID)
	assert.Nil(t, out.Payment)
}

func TestRoute_TerminalLocationOnRecord(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

	out, err := f.svc.Route(context.Background(), tapsvc.Input{
		CardUID:  "04:A3:2B:1C",
		DeviceID: "GATE-01",
		Location: "Sports Hall",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sports Hall", out.Attendance.Record.Location)

	// Without a reported location the device's registered one is used.
	out, err = f.svc.Route(context.Background(), tapsvc.Input{
		CardUID:  "04:A3:2B:1C",
		DeviceID: "GATE-01",
	})
	require.NoError(t, err)
	assert.Equal(t, d.Location, out.Attendance.Record.Location)
}

func TestRoute_AttendanceClassMatrix(t *testing.T) {
	attendanceTypes := []device.Type{
		device.TypeESP32, device.TypeRFIDReader, device.TypeAttendanceReader,
	}
	for _, typ := range attendanceTypes {
		f := newTapFixture(t)
		schoolID := uuid.New()
		fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")
		fixtures.SeedDevice(t, f.uow, schoolID, "DEV-01", typ, uuid.Nil)

		out, err := f.svc.Route(context.Background(), tapsvc.Input{
			CardUID:  "04:A3:2B:1C",
			DeviceID: "DEV-01",
		})
		require.NoError(t, err, "type %s", typ)
		assert.Equal(t, tapsvc.KindAttendance, out.Kind, "type %s", typ)
	}
}

func TestRoute_PaymentClassMatrix(t *testing.T) {
	paymentTypes := []device.Type{device.TypePOS, device.TypeCanteenReader}
	for _, typ := range paymentTypes {
		f := newTapFixture(t)
		schoolID := uuid.New()
		st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")
		fixtures.SeedAccount(t, f.uow, st.ID, 1000)
		m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
		fixtures.SeedDevice(t, f.uow, schoolID, "DEV-01", typ, m.ID)

		out, err := f.svc.Route(context.Background(), tapsvc.Input{
			CardUID:  "04:A3:2B:1C",
			DeviceID: "DEV-01",
			Amount:   rwf(t, 100),
		})
		require.NoError(t, err, "type %s", typ)
		assert.Equal(t, tapsvc.KindPayment, out.Kind, "type %s", typ)
	}
}

// Every non-active card state is rejected identically; the terminal cannot
// tell a stolen card from an unknown one.
func TestRoute_NonActiveCardsRejectedUniformly(t *testing.T) {
	transitions := map[string]func(*student.Student){
		"lost":        func(s *student.Student) { s.ReportLost() },
		"stolen":      func(s *student.Student) { s.ReportStolen() },
		"deactivated": func(s *student.Student) { s.Deactivate() },
		"inactive":    func(s *student.Student) { s.Active = false },
	}
	for name, apply := range transitions {
		t.Run(name, func(t *testing.T) {
			f := newTapFixture(t)
			schoolID := uuid.New()
			st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")
			fixtures.SeedDevice(t, f.uow, schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

			apply(st)
			repo, err := f.uow.StudentRepository()
			require.NoError(t, err)
			require.NoError(t, repo.Update(context.Background(), st))

			_, err = f.svc.Route(context.Background(), tapsvc.Input{
				CardUID:  "04:A3:2B:1C",
				DeviceID: "GATE-01",
			})
			assert.ErrorIs(t, err, student.ErrCardNotActive)
		})
	}

	t.Run("unknown card", func(t *testing.T) {
		f := newTapFixture(t)
		schoolID := uuid.New()
		fixtures.SeedDevice(t, f.uow, schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

		_, err := f.svc.Route(context.Background(), tapsvc.Input{
			CardUID:  "FF:FF:FF:FF",
			DeviceID: "GATE-01",
		})
		assert.ErrorIs(t, err, student.ErrCardNotActive)
	})
}

func TestRoute_RejectionIsAudited(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	fixtures.SeedDevice(t, f.uow, schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

	_, err := f.svc.Route(context.Background(), tapsvc.Input{
		CardUID:  "FF:FF:FF:FF",
		DeviceID: "GATE-01",
	})
	require.ErrorIs(t, err, student.ErrCardNotActive)

	failures := f.uow.ScanFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, "FF:FF:FF:FF", failures[0].CardUID)
	assert.Equal(t, "GATE-01", failures[0].DeviceID)
}

func TestRoute_UnknownDevice(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")

	_, err := f.svc.Route(context.Background(), tapsvc.Input{
		CardUID:  "04:A3:2B:1C",
		DeviceID: "GHOST-99",
	})
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)
}

func TestRoute_OfflineDevice(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

	d.Status = device.StatusFaulty
	repo, err := f.uow.DeviceRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Update(context.Background(), d))

	_, err = f.svc.Route(context.Background(), tapsvc.Input{
		CardUID:  "04:A3:2B:1C",
		DeviceID: "GATE-01",
	})
	assert.ErrorIs(t, err, device.ErrDeviceUnavailable)
}

func TestRoute_MaintenanceDeviceAcceptsTaps(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

	d.Status = device.StatusMaintenance
	repo, err := f.uow.DeviceRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Update(context.Background(), d))

	out, err := f.svc.Route(context.Background(), tapsvc.Input{
		CardUID:  "04:A3:2B:1C",
		DeviceID: "GATE-01",
	})
	require.NoError(t, err)
	assert.Equal(t, tapsvc.KindAttendance, out.Kind)
}

func TestValidateCard_UsesCache(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")

	// First check warms the cache from the registry.
	require.NoError(t, f.svc.ValidateCard(context.Background(), "04:A3:2B:1C"))

	status, found, err := f.cache.Get(context.Background(), "04:A3:2B:1C")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, student.CardActive, status)
}

// A deactivated student may still carry a card whose status reads active.
// The cache must hold the composite answer so a warm cache cannot approve
// the card.
func TestValidateCard_DeactivatedStudentStaysRejected(t *testing.T) {
	f := newTapFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788000001")

	st.Active = false
	repo, err := f.uow.StudentRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Update(context.Background(), st))

	// First check warms the cache, second is served from it.
	err = f.svc.ValidateCard(context.Background(), "04:A3:2B:1C")
	require.ErrorIs(t, err, student.ErrCardNotActive)
	err = f.svc.ValidateCard(context.Background(), "04:A3:2B:1C")
	require.ErrorIs(t, err, student.ErrCardNotActive)

	status, found, cacheErr := f.cache.Get(context.Background(), "04:A3:2B:1C")
	require.NoError(t, cacheErr)
	require.True(t, found)
	assert.NotEqual(t, student.CardActive, status)
}

func TestValidateCard_CachedNonActiveRejected(t *testing.T) {
	f := newTapFixture(t)
	require.NoError(t, f.cache.Set(
		context.Background(), "04:A3:2B:1C", student.CardLost, 0))

	// Stale zero-TTL entry expired immediately, so this falls through to the
	// registry and the card is unknown there.
	err := f.svc.ValidateCard(context.Background(), "04:A3:2B:1C")
	assert.ErrorIs(t, err, student.ErrCardNotActive)
}
