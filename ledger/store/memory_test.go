package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagodosanjos/cofrin-core/ledger"
	"github.com/thiagodosanjos/cofrin-core/ledger/store"
)

func TestMemory_GetMissingReturnsNilNil(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	acc, err := m.GetAccount(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, acc)

	bill, err := m.FindBill(ctx, "card-1", 2025, time.March)
	require.NoError(t, err)
	assert.Nil(t, bill)
}

func TestMemory_InsertAssignsIDWhenEmpty(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	a := &ledger.Account{UserID: "user-1", Name: "Wallet", Type: ledger.AccountWallet}
	require.NoError(t, m.InsertAccount(ctx, a))
	assert.NotEmpty(t, a.ID)

	// A supplied id is kept.
	b := &ledger.Account{ID: "acc-fixed", UserID: "user-1", Name: "Other", Type: ledger.AccountWallet}
	require.NoError(t, m.InsertAccount(ctx, b))
	assert.Equal(t, ledger.AccountID("acc-fixed"), b.ID)
}

func TestMemory_TransactionsByCardWindow(t *testing.T) {
	// GIVEN: Charges on three dates
	// WHEN: Queried with a window, and again with zero bounds
	// THEN: The window filters inclusively; zero bounds mean unbounded

	m := store.NewMemory()
	ctx := context.Background()
	day := func(d int) time.Time {
		return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
	}
	for _, d := range []int{5, 10, 20} {
		require.NoError(t, m.InsertTransaction(ctx, &ledger.Transaction{
			UserID: "user-1", Type: ledger.TxExpense, Amount: decimal.NewFromInt(10),
			Date: day(d), Status: ledger.StatusCompleted, CreditCardID: "card-1",
		}))
	}

	within, err := m.TransactionsByCard(ctx, "card-1", day(5), day(10))
	require.NoError(t, err)
	assert.Len(t, within, 2)

	all, err := m.TransactionsByCard(ctx, "card-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	other, err := m.TransactionsByCard(ctx, "card-2", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemory_WithTxRollsBackOnError(t *testing.T) {
	// GIVEN: A committed account
	// WHEN: A transaction mutates it and inserts another, then fails
	// THEN: Every change inside the transaction is rolled back

	m := store.NewMemory()
	ctx := context.Background()

	acc := &ledger.Account{
		UserID: "user-1", Name: "Wallet", Type: ledger.AccountWallet,
		Balance: decimal.NewFromInt(100),
	}
	require.NoError(t, m.InsertAccount(ctx, acc))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s ledger.DocumentStore) error {
		stored, err := s.GetAccount(ctx, acc.ID)
		if err != nil {
			return err
		}
		stored.Balance = decimal.NewFromInt(999)
		if err := s.UpdateAccount(ctx, stored); err != nil {
			return err
		}
		if err := s.InsertAccount(ctx, &ledger.Account{
			UserID: "user-1", Name: "Phantom", Type: ledger.AccountWallet,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	kept, err := m.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", kept.Balance.String())

	accounts, err := m.ListAccounts(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMemory_WithTxCommitsOnNil(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	err := m.WithTx(ctx, func(s ledger.DocumentStore) error {
		return s.InsertAccount(ctx, &ledger.Account{
			UserID: "user-1", Name: "Wallet", Type: ledger.AccountWallet,
		})
	})
	require.NoError(t, err)

	accounts, err := m.ListAccounts(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMemory_SetPrimaryGoalIsExclusive(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	a := &ledger.Goal{UserID: "user-1", Name: "A", IsActive: true, IsPrimary: true}
	b := &ledger.Goal{UserID: "user-1", Name: "B", IsActive: true}
	foreign := &ledger.Goal{UserID: "user-2", Name: "F", IsActive: true, IsPrimary: true}
	require.NoError(t, m.InsertGoal(ctx, a))
	require.NoError(t, m.InsertGoal(ctx, b))
	require.NoError(t, m.InsertGoal(ctx, foreign))

	require.NoError(t, m.SetPrimaryGoal(ctx, "user-1", b.ID))

	goals, err := m.ListGoals(ctx, "user-1", false)
	require.NoError(t, err)
	for _, g := range goals {
		assert.Equal(t, g.ID == b.ID, g.IsPrimary)
	}

	// Another user's primary flag is untouched.
	f, err := m.GetGoal(ctx, foreign.ID)
	require.NoError(t, err)
	assert.True(t, f.IsPrimary)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	// Mutating a returned document must not leak into the store.

	m := store.NewMemory()
	ctx := context.Background()

	acc := &ledger.Account{
		UserID: "user-1", Name: "Wallet", Type: ledger.AccountWallet,
		Balance: decimal.NewFromInt(100),
	}
	require.NoError(t, m.InsertAccount(ctx, acc))

	got, err := m.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	got.Balance = decimal.NewFromInt(0)

	again, err := m.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", again.Balance.String())
}
