package payment_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineza/schoolpay/infra/sms"
	"github.com/ineza/schoolpay/internal/fixtures"
	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/events"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/notification"
	"github.com/ineza/schoolpay/infra/eventbus"
	paymentsvc "github.com/ineza/schoolpay/pkg/service/payment"
)

type paymentFixture struct {
	uow     *fixtures.MemoryUoW
	bus     *eventbus.MemoryEventBus
	gateway *sms.MockGateway
	svc     *paymentsvc.Service
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	uow := fixtures.NewMemoryUoW()
	deps, bus := fixtures.Deps(t, uow)
	deps.Config = &config.App{
		Payment: config.Payment{IdempotencyWindow: 5 * time.Second},
	}
	gateway := sms.NewMockGateway()
	dispatcher := notification.NewDispatcher(gateway, bus, slog.Default())
	return &paymentFixture{
		uow:     uow,
		bus:     bus,
		gateway: gateway,
		svc:     paymentsvc.NewService(deps, dispatcher),
	}
}

func frw(t *testing.T, amount int64) money.Money {
	t.Helper()
	m, err := money.NewFromSmallestUnit(amount, "RWF")
	require.NoError(t, err)
	return m
}

func TestProcessTap_Success(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	res, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, int64(700), res.Balance.Amount())
	assert.Equal(t, account.TxPurchase, res.Transaction.Type)
	assert.Equal(t, account.StatusCompleted, res.Transaction.Status)
	assert.Equal(t, int64(1000), res.Transaction.BalanceBefore.Amount())
	assert.Equal(t, int64(700), res.Transaction.BalanceAfter.Amount())
	assert.Contains(t, res.Transaction.Reference, "TXN-PUR-")

	merchRepo, err := f.uow.MerchantRepository()
	require.NoError(t, err)
	updated, err := merchRepo.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), updated.TotalSales.Amount())
	assert.Equal(t, int64(1), updated.SalesCount)

	devRepo, err := f.uow.DeviceRepository()
	require.NoError(t, err)
	dev, err := devRepo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dev.ScanCount)

	require.True(t, res.Notification.Success)
	require.Len(t, f.gateway.Sent(), 1)
	assert.Equal(t, "+250788123456", f.gateway.Sent()[0].Phone)

	var sawPayment bool
	for _, e := range f.bus.Published() {
		if _, ok := e.(events.PaymentCompleted); ok {
			sawPayment = true
		}
	}
	assert.True(t, sawPayment)
}

func TestProcessTap_DuplicateWithinWindow(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	first, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	require.NoError(t, err)
	second, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)

	// The account was charged exactly once.
	acctRepo, err := f.uow.AccountRepository()
	require.NoError(t, err)
	acct, err := acctRepo.GetByStudent(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), acct.Balance.Amount())
}

// Two identical taps racing on the same instance must charge once, with the
// joining caller told it got the first transaction.
func TestProcessTap_ConcurrentDuplicateMarked(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	amt := frw(t, 300)
	var (
		wg      sync.WaitGroup
		results [2]*paymentsvc.Result
		errs    [2]error
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.ProcessTap(context.Background(), st, d, amt, "")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Transaction.ID, results[1].Transaction.ID)

	var duplicates int
	for _, res := range results {
		if res.Duplicate {
			duplicates++
		}
	}
	assert.Equal(t, 1, duplicates)

	acctRepo, err := f.uow.AccountRepository()
	require.NoError(t, err)
	acct, err := acctRepo.GetByStudent(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), acct.Balance.Amount())
}

func TestProcessTap_DescriptionCarried(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	res, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "Lunch combo")
	require.NoError(t, err)
	assert.Equal(t, "Lunch combo", res.Transaction.Description)

	// Without a terminal description the merchant name is recorded.
	res, err = f.svc.ProcessTap(context.Background(), st, d, frw(t, 200), "")
	require.NoError(t, err)
	assert.Equal(t, "Canteen", res.Transaction.Description)
}

func TestProcessTap_DifferentAmountIsNotDuplicate(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	_, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	require.NoError(t, err)
	res, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 200), "")
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.Equal(t, int64(500), res.Balance.Amount())
}

func TestProcessTap_InsufficientBalance(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 600)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	_, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 1000), "")
	require.Error(t, err)

	var short *account.InsufficientBalanceError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(400), short.Shortfall.Amount())

	// Balance untouched, failure audited.
	acctRepo, repoErr := f.uow.AccountRepository()
	require.NoError(t, repoErr)
	acct, repoErr := acctRepo.GetByStudent(context.Background(), st.ID)
	require.NoError(t, repoErr)
	assert.Equal(t, int64(600), acct.Balance.Amount())

	failures := f.uow.ScanFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, st.CardUID, failures[0].CardUID)
	assert.Empty(t, f.gateway.Sent())
}

func TestProcessTap_NoMerchantBound(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, uuid.Nil)

	_, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	assert.ErrorIs(t, err, merchant.ErrNoMerchantBound)
}

func TestProcessTap_InactiveMerchant(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	m.Active = false
	merchRepo, err := f.uow.MerchantRepository()
	require.NoError(t, err)
	require.NoError(t, merchRepo.Update(context.Background(), m))

	_, err = f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	assert.ErrorIs(t, err, merchant.ErrMerchantInactive)
}

func TestProcessTap_FirstUseCreatesAccount(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	// No seeded account: the lazily created wallet starts empty, so any
	// purchase is short by the full amount.
	_, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 100), "")
	var short *account.InsufficientBalanceError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(100), short.Shortfall.Amount())
}

func TestTopUp_Success(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")

	res, err := f.svc.TopUp(context.Background(), st.ID, frw(t, 5000), "MTN MoMo")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), res.Balance.Amount())
	assert.Equal(t, account.TxTopUp, res.Transaction.Type)
	assert.Contains(t, res.Transaction.Reference, "TXN-TOP-")
	assert.True(t, res.Notification.Success)

	acctRepo, err := f.uow.AccountRepository()
	require.NoError(t, err)
	acct, err := acctRepo.GetByStudent(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), acct.Balance.Amount())
	assert.Equal(t, int64(5000), acct.TotalDeposits.Amount())
	assert.Equal(t, int64(5000), acct.LastTopUpAmount.Amount())
}

func TestReverse_Success(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	purchase, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	require.NoError(t, err)

	rev, err := f.svc.Reverse(context.Background(), purchase.Transaction.ID, "wrong item")
	require.NoError(t, err)
	assert.Equal(t, account.TxReversal, rev.Transaction.Type)
	assert.Equal(t, int64(1000), rev.Balance.Amount())
	assert.Equal(t, purchase.Transaction.ID, rev.Transaction.RelatedTxID)

	txRepo, err := f.uow.TransactionRepository()
	require.NoError(t, err)
	original, err := txRepo.Get(context.Background(), purchase.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusReversed, original.Status)
	assert.Equal(t, rev.Transaction.ID, original.RelatedTxID)
	// Amounts on the original are untouched.
	assert.Equal(t, int64(300), original.Amount.Amount())
}

func TestReverse_TwiceFails(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	purchase, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	require.NoError(t, err)

	_, err = f.svc.Reverse(context.Background(), purchase.Transaction.ID, "wrong item")
	require.NoError(t, err)
	_, err = f.svc.Reverse(context.Background(), purchase.Transaction.ID, "again")
	assert.ErrorIs(t, err, account.ErrAlreadyReversed)

	acctRepo, err := f.uow.AccountRepository()
	require.NoError(t, err)
	acct, err := acctRepo.GetByStudent(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acct.Balance.Amount())
}

func TestReverse_TopUpNotReversible(t *testing.T) {
	f := newPaymentFixture(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")

	topup, err := f.svc.TopUp(context.Background(), st.ID, frw(t, 5000), "")
	require.NoError(t, err)

	_, err = f.svc.Reverse(context.Background(), topup.Transaction.ID, "nope")
	assert.ErrorIs(t, err, account.ErrNotReversible)
}

func TestProcessTap_SMSFailureDoesNotFailPayment(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.FailWith = "provider down"
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, f.uow, schoolID, "04:A3:2B:1C", "+250788123456")
	fixtures.SeedAccount(t, f.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(t, f.uow, schoolID, "Canteen")
	d := fixtures.SeedDevice(t, f.uow, schoolID, "POS-01", device.TypePOS, m.ID)

	res, err := f.svc.ProcessTap(context.Background(), st, d, frw(t, 300), "")
	require.NoError(t, err)
	assert.False(t, res.Notification.Success)
	assert.Equal(t, "provider down", res.Notification.Error)
	assert.Equal(t, int64(700), res.Balance.Amount())

	var sawFailure bool
	for _, e := range f.bus.Published() {
		if _, ok := e.(events.NotificationFailed); ok {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure)
}
