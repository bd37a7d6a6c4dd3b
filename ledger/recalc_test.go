package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagodosanjos/cofrin-core/ledger"
)

// =============================================================================
// RECALCULATION
// =============================================================================

func TestRecalculateBalance_ZeroDriftWhenConsistent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")

	_, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID: "user-1", Type: ledger.TxExpense, Amount: dec("150"),
		Date: march(1), AccountID: wallet.ID,
	})
	require.NoError(t, err)

	result, err := l.RecalculateBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "850", result.Balance.String())
	assert.True(t, result.Drift.IsZero())
}

func TestRecalculateBalance_RepairsDrift(t *testing.T) {
	// GIVEN: A stored balance corrupted away from its history
	// WHEN: Recalculation runs
	// THEN: The balance is re-derived, the drift reported, and a second
	//       run reports zero drift

	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")

	_, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID: "user-1", Type: ledger.TxExpense, Amount: dec("150"),
		Date: march(1), AccountID: wallet.ID,
	})
	require.NoError(t, err)

	// Corrupt the stored balance behind the ledger's back.
	acc, err := mem.GetAccount(ctx, wallet.ID)
	require.NoError(t, err)
	acc.Balance = dec("123")
	require.NoError(t, mem.UpdateAccount(ctx, acc))

	result, err := l.RecalculateBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "850", result.Balance.String())
	assert.Equal(t, "727", result.Drift.String())
	assert.Equal(t, "850", getBalance(t, mem, wallet.ID))

	again, err := l.RecalculateBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, again.Drift.IsZero())
}

func TestRecalculateBalance_CountsBothTransferLegs(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	a := newAccount(t, l, "A", "500")
	b := newAccount(t, l, "B", "0")

	_, err := l.CreateTransaction(ctx, ledger.Transaction{
		UserID: "user-1", Type: ledger.TxTransfer, Amount: dec("200"),
		Date: march(1), AccountID: a.ID, ToAccountID: b.ID,
	})
	require.NoError(t, err)

	ra, err := l.RecalculateBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "300", ra.Balance.String())

	rb, err := l.RecalculateBalance(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "200", rb.Balance.String())
}

// =============================================================================
// RESET
// =============================================================================

func TestResetAccount_ClearsHistoryAndZeroesBalances(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")

	for i := 0; i < 3; i++ {
		_, err := l.CreateTransaction(ctx, ledger.Transaction{
			UserID: "user-1", Type: ledger.TxExpense, Amount: dec("10"),
			Date: march(1 + i), AccountID: wallet.ID,
		})
		require.NoError(t, err)
	}

	deleted, err := l.ResetAccount(ctx, wallet.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	acc, err := mem.GetAccount(ctx, wallet.ID)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.True(t, acc.Balance.IsZero())
	assert.True(t, acc.InitialBalance.IsZero())

	txs, err := mem.TransactionsByAccount(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// =============================================================================
// MANUAL ADJUSTMENT
// =============================================================================

func TestBalanceAdjustment_RecordsAnAuditableTransaction(t *testing.T) {
	// GIVEN: A wallet at 1000
	// WHEN: The balance is manually set to 1200, then to 900
	// THEN: Each override stores the new balance and leaves an income or
	//       expense of the difference in the history

	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")

	up, err := l.CreateBalanceAdjustment(ctx, wallet.ID, dec("1000"), dec("1200"))
	require.NoError(t, err)
	assert.Equal(t, ledger.TxIncome, up.Type)
	assert.Equal(t, "200", up.Amount.String())
	assert.Equal(t, "Balance adjustment", up.Description)
	assert.Equal(t, "1200", getBalance(t, mem, wallet.ID))

	down, err := l.CreateBalanceAdjustment(ctx, wallet.ID, dec("1200"), dec("900"))
	require.NoError(t, err)
	assert.Equal(t, ledger.TxExpense, down.Type)
	assert.Equal(t, "300", down.Amount.String())
	assert.Equal(t, "900", getBalance(t, mem, wallet.ID))

	// The synthesized records replay consistently: recalculation finds no
	// drift because the adjustment amount equals its own delta.
	result, err := l.RecalculateBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, result.Drift.IsZero())
}

func TestBalanceAdjustment_NoChangeIsRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	wallet := newAccount(t, l, "Wallet", "1000")

	_, err := l.CreateBalanceAdjustment(context.Background(), wallet.ID, dec("1000"), dec("1000"))
	assert.True(t, ledger.IsClientError(err))
}

func TestBalanceAdjustment_UnknownAccountIsNotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.CreateBalanceAdjustment(context.Background(), "ghost", dec("0"), dec("10"))
	assert.True(t, ledger.IsNotFound(err))
}
