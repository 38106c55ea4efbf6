package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/money"
)

// The duplicate-window query and the denormalized date column both key off
// the domain timestamp, so the persisted row must not pick up the insert
// clock instead.
func TestMapTransactionToModel_KeepsDomainTimestamp(t *testing.T) {
	at := time.Date(2026, 8, 31, 23, 59, 30, 0, time.UTC)
	amount, err := money.NewFromSmallestUnit(300, "RWF")
	require.NoError(t, err)
	before, err := money.NewFromSmallestUnit(1000, "RWF")
	require.NoError(t, err)
	after, err := money.NewFromSmallestUnit(700, "RWF")
	require.NoError(t, err)

	tx, err := account.NewTransaction(
		account.TxPurchase, uuid.New(), uuid.New(), amount, before, after, at)
	require.NoError(t, err)

	m := mapTransactionToModel(tx)
	assert.True(t, m.CreatedAt.Equal(at))
	assert.Equal(t, at.Format(account.DateLayout), m.Date)
}
