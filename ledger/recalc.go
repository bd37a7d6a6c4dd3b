/*
recalc.go - Account recalculation, reset, and manual adjustment

PURPOSE:
  Repairs drift between a stored balance and the transaction history, or
  clears an account's history entirely. Recalculation is the designed
  recovery mechanism for any drift a partial failure leaves behind; it is
  invoked by the user, never automatically.

SEE ALSO:
  - delta.go: the replay rule recalculation sums over
  - lifecycle.go: DeleteByAccount, used by ResetAccount
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// RecalcResult reports a recalculation for user-facing display.
type RecalcResult struct {
	Balance decimal.Decimal // the re-derived balance, now stored
	Drift   decimal.Decimal // new minus old; zero means no drift existed
}

// RecalculateBalance re-derives the account's balance from scratch:
// InitialBalance plus the delta of every completed transaction referencing
// the account, including transfer legs. Idempotent: a second call with no
// intervening changes reports zero drift.
func (l *Ledger) RecalculateBalance(ctx context.Context, id AccountID) (*RecalcResult, error) {
	var result *RecalcResult
	err := inTx(ctx, l.store, func(s DocumentStore) error {
		acc, err := s.GetAccount(ctx, id)
		if err != nil {
			return storeErr("get account", err)
		}
		if acc == nil {
			return notFoundErr("account", string(id))
		}
		txs, err := s.TransactionsByAccount(ctx, id)
		if err != nil {
			return storeErr("query by account", err)
		}

		balance := acc.InitialBalance
		for i := range txs {
			balance = balance.Add(DeltaForAccount(&txs[i], id))
		}

		drift := balance.Sub(acc.Balance)
		acc.Balance = balance
		if err := s.UpdateAccount(ctx, acc); err != nil {
			return storeErr("update account", err)
		}
		result = &RecalcResult{Balance: balance, Drift: drift}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResetAccount deletes every transaction referencing the account, then
// forces Balance to zero directly. The zeroing bypasses delta application:
// with the transaction set empty by construction, zero is the derived
// value. Returns the number of transactions deleted.
func (l *Ledger) ResetAccount(ctx context.Context, id AccountID, progress ProgressFunc) (int, error) {
	acc, err := l.store.GetAccount(ctx, id)
	if err != nil {
		return 0, storeErr("get account", err)
	}
	if acc == nil {
		return 0, notFoundErr("account", string(id))
	}

	n, err := l.DeleteByAccount(ctx, id, progress)
	if err != nil {
		return n, err
	}

	acc, err = l.store.GetAccount(ctx, id)
	if err != nil {
		return n, storeErr("get account", err)
	}
	if acc == nil {
		return n, notFoundErr("account", string(id))
	}
	acc.Balance = decimal.Zero
	acc.InitialBalance = decimal.Zero
	if err := l.store.UpdateAccount(ctx, acc); err != nil {
		return n, storeErr("update account", err)
	}
	return n, nil
}

// CreateBalanceAdjustment records a manual balance override as an
// auditable transaction: an expense or income of |new - old| dated now,
// after which the balance is set directly to newBalance. The synthesized
// transaction is inserted without delta application; the override itself
// is the balance change.
func (l *Ledger) CreateBalanceAdjustment(ctx context.Context, id AccountID, oldBalance, newBalance decimal.Decimal) (*Transaction, error) {
	acc, err := l.store.GetAccount(ctx, id)
	if err != nil {
		return nil, storeErr("get account", err)
	}
	if acc == nil {
		return nil, notFoundErr("account", string(id))
	}

	diff := newBalance.Sub(oldBalance)
	if diff.IsZero() {
		return nil, validationErr("newBalance", "no change to record")
	}

	txType := TxIncome
	if diff.IsNegative() {
		txType = TxExpense
	}
	adjustment := Transaction{
		UserID:      acc.UserID,
		Type:        txType,
		Amount:      diff.Abs(),
		Description: "Balance adjustment",
		Date:        l.now().UTC(),
		Status:      StatusCompleted,
		AccountID:   id,
		CreatedAt:   l.now().UTC(),
	}

	err = inTx(ctx, l.store, func(s DocumentStore) error {
		if err := s.InsertTransaction(ctx, &adjustment); err != nil {
			return storeErr("insert transaction", err)
		}
		acc.Balance = newBalance
		if err := s.UpdateAccount(ctx, acc); err != nil {
			return storeErr("update account", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.remember(&adjustment)
	return &adjustment, nil
}
