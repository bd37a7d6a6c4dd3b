/*
accounts.go - Account lifecycle and the deletion policy

PURPOSE:
  Create, archive, and delete accounts, plus the default-account guarantee
  for new users.

DELETION POLICY:
  Account hard-delete does NOT cascade to transactions. Historical records
  survive the account; balance reversals that later touch the missing
  account are silent no-ops (see applyDelta). This asymmetry with goal and
  card deletion (which do cascade) is a deliberate contract, tested as
  such. ResetAccount is the path that clears an account's history.

SEE ALSO:
  - recalc.go: ResetAccount, RecalculateBalance, balance adjustment
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultAccountName is the wallet created automatically for a new user.
const DefaultAccountName = "Carteira"

// CreateAccount validates and persists an account. Balance starts at
// InitialBalance.
func (l *Ledger) CreateAccount(ctx context.Context, a Account) (*Account, error) {
	if a.Name == "" {
		return nil, validationErr("name", "must not be empty")
	}
	switch a.Type {
	case AccountChecking, AccountWallet, AccountInvestment, AccountOther:
	default:
		return nil, validationErr("type", "unknown account type")
	}
	a.Balance = a.InitialBalance
	if a.CreatedAt.IsZero() {
		a.CreatedAt = l.now().UTC()
	}
	if err := l.store.InsertAccount(ctx, &a); err != nil {
		return nil, storeErr("insert account", err)
	}
	return &a, nil
}

// EnsureDefaultAccount creates the system wallet for a user who has no
// accounts yet, and returns whichever account is the user's default.
func (l *Ledger) EnsureDefaultAccount(ctx context.Context, userID UserID) (*Account, error) {
	accounts, err := l.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	for i := range accounts {
		if accounts[i].IsDefault {
			return &accounts[i], nil
		}
	}
	if len(accounts) > 0 {
		return &accounts[0], nil
	}

	return l.CreateAccount(ctx, Account{
		UserID:         userID,
		Name:           DefaultAccountName,
		Type:           AccountWallet,
		IncludeInTotal: true,
		IsDefault:      true,
	})
}

// ArchiveAccount soft-removes the account. Its transactions and balance
// are untouched; archived accounts drop out of listings and totals.
func (l *Ledger) ArchiveAccount(ctx context.Context, id AccountID) error {
	acc, err := l.store.GetAccount(ctx, id)
	if err != nil {
		return storeErr("get account", err)
	}
	if acc == nil {
		return notFoundErr("account", string(id))
	}
	acc.IsArchived = true
	if err := l.store.UpdateAccount(ctx, acc); err != nil {
		return storeErr("update account", err)
	}
	return nil
}

// DeleteAccount hard-deletes the account document. Transactions
// referencing it are NOT cascaded; see the package policy note above.
func (l *Ledger) DeleteAccount(ctx context.Context, id AccountID) error {
	acc, err := l.store.GetAccount(ctx, id)
	if err != nil {
		return storeErr("get account", err)
	}
	if acc == nil {
		return notFoundErr("account", string(id))
	}
	if err := l.store.DeleteAccount(ctx, id); err != nil {
		return storeErr("delete account", err)
	}
	return nil
}

// TotalBalance sums balances of the user's non-archived accounts flagged
// IncludeInTotal.
func (l *Ledger) TotalBalance(ctx context.Context, userID UserID) (decimal.Decimal, error) {
	accounts, err := l.store.ListAccounts(ctx, userID)
	if err != nil {
		return decimal.Zero, storeErr("list accounts", err)
	}
	total := decimal.Zero
	for _, a := range accounts {
		if a.IncludeInTotal && !a.IsArchived {
			total = total.Add(a.Balance)
		}
	}
	return total, nil
}
