package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagodosanjos/cofrin-core/ledger"
	"github.com/thiagodosanjos/cofrin-core/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return ledger.New(mem), mem
}

func newAccount(t *testing.T, l *ledger.Ledger, name, initial string) *ledger.Account {
	t.Helper()
	acc, err := l.CreateAccount(context.Background(), ledger.Account{
		UserID:         "user-1",
		Name:           name,
		Type:           ledger.AccountWallet,
		InitialBalance: dec(initial),
		IncludeInTotal: true,
	})
	require.NoError(t, err)
	return acc
}

func getBalance(t *testing.T, s *store.Memory, id ledger.AccountID) string {
	t.Helper()
	acc, err := s.GetAccount(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, acc)
	return acc.Balance.String()
}

func march(day int) time.Time {
	return time.Date(2025, time.March, day, 12, 0, 0, 0, time.UTC)
}

// =============================================================================
// SINGLE TRANSACTION LIFECYCLE
// =============================================================================

func TestLifecycle_ExpenseEditDelete(t *testing.T) {
	// GIVEN: A wallet with 1000
	// WHEN: An expense of 150 is created, edited to 200, then deleted
	// THEN: The balance moves 1000 -> 850 -> 800 -> 1000

	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")

	tx, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID:    "user-1",
		Type:      ledger.TxExpense,
		Amount:    dec("150"),
		Date:      march(5),
		AccountID: wallet.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, tx.Status, "status defaults to completed")
	assert.Equal(t, "850", getBalance(t, mem, wallet.ID))

	amount := dec("200")
	_, err = l.UpdateTransaction(ctx, tx.ID, ledger.TransactionPatch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, "800", getBalance(t, mem, wallet.ID))

	require.NoError(t, l.DeleteTransaction(ctx, tx.ID))
	assert.Equal(t, "1000", getBalance(t, mem, wallet.ID))

	gone, err := mem.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestLifecycle_TransferSymmetry(t *testing.T) {
	// GIVEN: Two accounts, 1000 and 0
	// WHEN: 300 is transferred and the transfer later deleted
	// THEN: Both legs move symmetrically and return to their origin

	l, mem := newTestLedger(t)
	ctx := context.Background()
	src := newAccount(t, l, "Checking", "1000")
	dst := newAccount(t, l, "Savings", "0")

	tx, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID:      "user-1",
		Type:        ledger.TxTransfer,
		Amount:      dec("300"),
		Date:        march(10),
		AccountID:   src.ID,
		ToAccountID: dst.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "700", getBalance(t, mem, src.ID))
	assert.Equal(t, "300", getBalance(t, mem, dst.ID))

	require.NoError(t, l.DeleteTransaction(ctx, tx.ID))
	assert.Equal(t, "1000", getBalance(t, mem, src.ID))
	assert.Equal(t, "0", getBalance(t, mem, dst.ID))
}

func TestLifecycle_PendingContributesNothingUntilCompleted(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "500")

	tx, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID:    "user-1",
		Type:      ledger.TxExpense,
		Amount:    dec("100"),
		Date:      march(1),
		Status:    ledger.StatusPending,
		AccountID: wallet.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "500", getBalance(t, mem, wallet.ID), "pending must not move the balance")

	// Completing applies the effect once.
	completed := ledger.StatusCompleted
	_, err = l.UpdateTransaction(ctx, tx.ID, ledger.TransactionPatch{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, "400", getBalance(t, mem, wallet.ID))

	// Cancelling reverses it.
	cancelled := ledger.StatusCancelled
	_, err = l.UpdateTransaction(ctx, tx.ID, ledger.TransactionPatch{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, "500", getBalance(t, mem, wallet.ID))
}

func TestLifecycle_UpdateMovesBetweenAccounts(t *testing.T) {
	// Re-pointing an expense at another account removes the effect from
	// the old account and applies it to the new one.

	l, mem := newTestLedger(t)
	ctx := context.Background()
	a := newAccount(t, l, "A", "500")
	b := newAccount(t, l, "B", "500")

	tx, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID:    "user-1",
		Type:      ledger.TxExpense,
		Amount:    dec("200"),
		Date:      march(3),
		AccountID: a.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "300", getBalance(t, mem, a.ID))

	_, err = l.UpdateTransaction(ctx, tx.ID, ledger.TransactionPatch{AccountID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, "500", getBalance(t, mem, a.ID))
	assert.Equal(t, "300", getBalance(t, mem, b.ID))
}

func TestLifecycle_DeleteUnknownTransaction(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.DeleteTransaction(context.Background(), "missing")
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidation_RejectsBadShapes(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "100")

	cases := []struct {
		name string
		tx   ledger.Transaction
	}{
		{"zero amount", ledger.Transaction{
			UserID: "user-1", Type: ledger.TxExpense, Amount: dec("0"), AccountID: wallet.ID,
		}},
		{"unknown type", ledger.Transaction{
			UserID: "user-1", Type: "loan", Amount: dec("10"), AccountID: wallet.ID,
		}},
		{"expense with destination", ledger.Transaction{
			UserID: "user-1", Type: ledger.TxExpense, Amount: dec("10"),
			AccountID: wallet.ID, ToAccountID: wallet.ID,
		}},
		{"transfer to itself", ledger.Transaction{
			UserID: "user-1", Type: ledger.TxTransfer, Amount: dec("10"),
			AccountID: wallet.ID, ToAccountID: wallet.ID,
		}},
		{"transfer missing destination", ledger.Transaction{
			UserID: "user-1", Type: ledger.TxTransfer, Amount: dec("10"), AccountID: wallet.ID,
		}},
		{"charge referencing an account", ledger.Transaction{
			UserID: "user-1", Type: ledger.TxExpense, Amount: dec("10"),
			AccountID: wallet.ID, CreditCardID: "card-1",
		}},
		{"no account or card", ledger.Transaction{
			UserID: "user-1", Type: ledger.TxExpense, Amount: dec("10"),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.tx.Date = march(1)
			_, err := l.CreateTransaction(ctx, tc.tx)
			assert.True(t, ledger.IsClientError(err), "expected validation error, got %v", err)
		})
	}
}

func TestValidation_UnknownReferencesAreNotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID: "user-1", Type: ledger.TxExpense, Amount: dec("10"),
		Date: march(1), AccountID: "ghost",
	})
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// RECURRING SERIES
// =============================================================================

func TestSeries_ExpansionAndStatuses(t *testing.T) {
	// GIVEN: A monthly expense recurring 3 times
	// WHEN: Created
	// THEN: Three instances share a series id, dates advance by month,
	//       only the first is completed and only it moves the balance

	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")

	first, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID:     "user-1",
		Type:       ledger.TxExpense,
		Amount:     dec("100"),
		Date:       march(15),
		AccountID:  wallet.ID,
		Recurrence: ledger.Recurrence{Kind: ledger.RecurMonthly, Count: 3},
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.SeriesID)

	instances, err := mem.TransactionsBySeries(ctx, first.SeriesID)
	require.NoError(t, err)
	require.Len(t, instances, 3)

	assert.Equal(t, ledger.StatusCompleted, instances[0].Status)
	assert.Equal(t, ledger.StatusPending, instances[1].Status)
	assert.Equal(t, ledger.StatusPending, instances[2].Status)
	assert.Equal(t, march(15), instances[0].Date)
	assert.Equal(t, march(15).AddDate(0, 1, 0), instances[1].Date)
	assert.Equal(t, march(15).AddDate(0, 2, 0), instances[2].Date)

	assert.Equal(t, "900", getBalance(t, mem, wallet.ID), "only the completed instance books")
}

func TestSeries_SingleCountDoesNotExpand(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "100")

	tx, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID:     "user-1",
		Type:       ledger.TxExpense,
		Amount:     dec("10"),
		Date:       march(1),
		AccountID:  wallet.ID,
		Recurrence: ledger.Recurrence{Kind: ledger.RecurMonthly, Count: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, tx.SeriesID)

	txs, err := mem.TransactionsByAccount(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestSeries_DeleteRemovesEveryInstance(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")

	first, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID:     "user-1",
		Type:       ledger.TxExpense,
		Amount:     dec("100"),
		Date:       march(15),
		AccountID:  wallet.ID,
		Recurrence: ledger.Recurrence{Kind: ledger.RecurWeekly, Count: 4},
	})
	require.NoError(t, err)

	deleted, err := l.DeleteSeries(ctx, first.SeriesID)
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)
	assert.Equal(t, "1000", getBalance(t, mem, wallet.ID))

	remaining, err := mem.TransactionsBySeries(ctx, first.SeriesID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSeries_DeleteUnknownSeriesIsZero(t *testing.T) {
	l, _ := newTestLedger(t)

	deleted, err := l.DeleteSeries(context.Background(), "no-such-series")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

// =============================================================================
// BULK DELETION
// =============================================================================

func TestBulkDelete_ByAccountReportsCumulativeProgress(t *testing.T) {
	// GIVEN: 12 transactions on one account and a batch size of 5
	// WHEN: DeleteByAccount runs
	// THEN: Progress is reported after each batch (5, 10, 12) and the
	//       balance ends where it started

	mem := store.NewMemory()
	l := ledger.New(mem, ledger.WithDeleteConcurrency(5))
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1200")

	for i := 0; i < 12; i++ {
		_, err := l.CreateTransaction(ctx, ledger.Transaction{
			UserID:    "user-1",
			Type:      ledger.TxExpense,
			Amount:    dec("10"),
			Date:      march(1 + i),
			AccountID: wallet.ID,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, "1080", getBalance(t, mem, wallet.ID))

	var reports [][2]int
	deleted, err := l.DeleteByAccount(ctx, wallet.ID, func(done, total int) {
		reports = append(reports, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, 12, deleted)
	assert.Equal(t, [][2]int{{5, 12}, {10, 12}, {12, 12}}, reports)
	assert.Equal(t, "1200", getBalance(t, mem, wallet.ID))
}

func TestBulkDelete_ByAccountIncludesTransferLegs(t *testing.T) {
	// Transfers into the account count as referencing it, and deleting
	// them restores the counterparty too.

	l, mem := newTestLedger(t)
	ctx := context.Background()
	a := newAccount(t, l, "A", "1000")
	b := newAccount(t, l, "B", "0")

	_, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID: "user-1", Type: ledger.TxTransfer, Amount: dec("250"),
		Date: march(2), AccountID: a.ID, ToAccountID: b.ID,
	})
	require.NoError(t, err)

	deleted, err := l.DeleteByAccount(ctx, b.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, "1000", getBalance(t, mem, a.ID))
	assert.Equal(t, "0", getBalance(t, mem, b.ID))
}

// =============================================================================
// ACCOUNT DELETION POLICY
// =============================================================================

func TestAccountHardDelete_DoesNotCascade(t *testing.T) {
	// GIVEN: An account with history
	// WHEN: The account is hard-deleted and a surviving transaction is
	//       later deleted
	// THEN: The transaction record survived the account, and its reversal
	//       against the missing account is a silent no-op

	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "500")

	tx, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID: "user-1", Type: ledger.TxExpense, Amount: dec("50"),
		Date: march(4), AccountID: wallet.ID,
	})
	require.NoError(t, err)

	require.NoError(t, l.DeleteAccount(ctx, wallet.ID))

	kept, err := mem.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, kept, "history must survive account deletion")

	require.NoError(t, l.DeleteTransaction(ctx, tx.ID))
}
