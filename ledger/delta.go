/*
delta.go - Signed balance contribution of a transaction to an account

PURPOSE:
  The single place where "what does this transaction do to this account's
  balance" is decided. Every lifecycle path (create, update, delete, bulk
  delete, recalculation) goes through DeltaForAccount so the rules cannot
  diverge between call sites.

THE RULES:
  - Only completed transactions contribute; pending and cancelled are zero
  - Expense on the account: -amount. Income: +amount
  - Transfer: -amount on the source leg, +amount on the destination leg
  - Card charges contribute zero to any account; they show up on the
    card's bill instead
  - Bill payments are expenses on the paying account

SEE ALSO:
  - lifecycle.go: applies deltas (and their inverses) on mutation
  - recalc.go: replays deltas to re-derive a balance from scratch
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// DeltaForAccount returns the signed amount the transaction contributes to
// the given account's balance.
func DeltaForAccount(t *Transaction, accountID AccountID) decimal.Decimal {
	if t.Status != StatusCompleted {
		return decimal.Zero
	}
	if t.IsCardCharge() {
		return decimal.Zero
	}

	switch t.Type {
	case TxExpense:
		if t.AccountID == accountID {
			return t.Amount.Neg()
		}
	case TxIncome:
		if t.AccountID == accountID {
			return t.Amount
		}
	case TxTransfer:
		if t.AccountID == accountID {
			return t.Amount.Neg()
		}
		if t.ToAccountID == accountID {
			return t.Amount
		}
	}
	return decimal.Zero
}

// deltas returns the non-zero balance contributions of a transaction,
// keyed by account id.
func deltas(t *Transaction) map[AccountID]decimal.Decimal {
	out := make(map[AccountID]decimal.Decimal)
	for _, id := range t.AffectedAccounts() {
		if d := DeltaForAccount(t, id); !d.IsZero() {
			out[id] = d
		}
	}
	return out
}

// applyDelta adds delta to the account's stored balance. This is a
// read-modify-write; callers run it inside a store transaction so two
// mutations of the same account cannot interleave.
//
// A missing account is a silent no-op: account hard-delete does not cascade
// to transactions, so reversals may legitimately reference accounts that no
// longer exist.
func applyDelta(ctx context.Context, s DocumentStore, accountID AccountID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return storeErr("get account", err)
	}
	if acc == nil {
		return nil
	}
	acc.Balance = acc.Balance.Add(delta)
	if err := s.UpdateAccount(ctx, acc); err != nil {
		return storeErr("update account", err)
	}
	return nil
}

// applyDeltaDiff applies (new - old) per affected account. Used on update,
// where the prior effect must be replaced rather than stacked.
func applyDeltaDiff(ctx context.Context, s DocumentStore, oldTx, newTx *Transaction) error {
	oldD := deltas(oldTx)
	newD := deltas(newTx)

	seen := make(map[AccountID]bool)
	for id := range oldD {
		seen[id] = true
	}
	for id := range newD {
		seen[id] = true
	}

	for id := range seen {
		diff := newD[id].Sub(oldD[id])
		if err := applyDelta(ctx, s, id, diff); err != nil {
			return err
		}
	}
	return nil
}
