/*
store.go - Persistence contract for the document-store collections

PURPOSE:
  Defines the interface between the ledger core and the database. The
  collections mirror the document store the mobile client talked to:
  accounts, transactions, creditCards, creditCardBills, goals, categories.
  Every document carries a UserID for tenant isolation and every query
  filters by it directly or through a parent document.

ID ASSIGNMENT:
  The store assigns generated ids: Insert* methods fill in the document's
  ID when it is empty and never reuse ids. Callers treat ids as opaque.

MISSING DOCUMENTS:
  Get and Find methods return (nil, nil) when the document does not
  exist. The
  ledger layer converts that to NotFoundError where absence is an error.

TRANSACTIONS:
  The base DocumentStore gives per-document atomicity only. Stores that
  can do better implement TxStore; the ledger wraps each lifecycle
  operation in WithTx when available, closing the partial-failure window
  a per-document store would otherwise leave open.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, snapshot-rollback WithTx
  - store/sqlite/sqlite.go: SQLite with WAL
  - store/postgres/postgres.go: PostgreSQL via pgx

SEE ALSO:
  - lifecycle.go: the main consumer of this contract
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// PER-COLLECTION STORES
// =============================================================================

// AccountStore persists the accounts collection.
type AccountStore interface {
	InsertAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	ListAccounts(ctx context.Context, userID UserID) ([]Account, error)
	UpdateAccount(ctx context.Context, a *Account) error
	DeleteAccount(ctx context.Context, id AccountID) error
}

// TransactionStore persists the transactions collection. Query methods
// return results ordered by date ascending, insertion order breaking ties.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, t *Transaction) error
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, t *Transaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// TransactionsByMonth returns a user's transactions dated within the
	// calendar month. This is the screen-facing time window.
	TransactionsByMonth(ctx context.Context, userID UserID, year int, month time.Month) ([]Transaction, error)

	// TransactionsBySeries returns every instance sharing a recurring series id.
	TransactionsBySeries(ctx context.Context, id SeriesID) ([]Transaction, error)

	// TransactionsByAccount returns transactions referencing the account as
	// source or, for transfers, as destination.
	TransactionsByAccount(ctx context.Context, id AccountID) ([]Transaction, error)

	// TransactionsByCard returns transactions carrying the card id, dated
	// within [from, to] inclusive. Pass zero times for an unbounded query.
	TransactionsByCard(ctx context.Context, id CardID, from, to time.Time) ([]Transaction, error)

	TransactionsByGoal(ctx context.Context, id GoalID) ([]Transaction, error)
}

// CardStore persists the creditCards collection.
type CardStore interface {
	InsertCard(ctx context.Context, c *CreditCard) error
	GetCard(ctx context.Context, id CardID) (*CreditCard, error)
	ListCards(ctx context.Context, userID UserID) ([]CreditCard, error)
	UpdateCard(ctx context.Context, c *CreditCard) error
	DeleteCard(ctx context.Context, id CardID) error
}

// BillStore persists the creditCardBills collection. Bill records are
// materialized lazily: a cycle without a stored record is simply unpaid.
type BillStore interface {
	InsertBill(ctx context.Context, b *CreditCardBill) error
	GetBill(ctx context.Context, id BillID) (*CreditCardBill, error)
	FindBill(ctx context.Context, cardID CardID, year int, month time.Month) (*CreditCardBill, error)
	BillsByCard(ctx context.Context, cardID CardID) ([]CreditCardBill, error)
	UpdateBill(ctx context.Context, b *CreditCardBill) error
	DeleteBill(ctx context.Context, id BillID) error
}

// GoalStore persists the goals collection.
type GoalStore interface {
	InsertGoal(ctx context.Context, g *Goal) error
	GetGoal(ctx context.Context, id GoalID) (*Goal, error)
	ListGoals(ctx context.Context, userID UserID, activeOnly bool) ([]Goal, error)
	UpdateGoal(ctx context.Context, g *Goal) error
	DeleteGoal(ctx context.Context, id GoalID) error

	// SetPrimaryGoal atomically unsets IsPrimary on every active goal of the
	// user and sets it on the given goal. Implementations perform the swap
	// as a single transition so there is never a zero- or two-primaries
	// window observable through the store.
	SetPrimaryGoal(ctx context.Context, userID UserID, id GoalID) error
}

// CategoryStore persists the categories collection.
type CategoryStore interface {
	InsertCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context, userID UserID) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
}

// =============================================================================
// COMPOSITE STORE
// =============================================================================

// DocumentStore is the full persistence surface the ledger core needs.
type DocumentStore interface {
	AccountStore
	TransactionStore
	CardStore
	BillStore
	GoalStore
	CategoryStore
}

// TxStore wraps DocumentStore with multi-document transaction support.
type TxStore interface {
	DocumentStore

	// WithTx executes fn against a transactional view of the store.
	// If fn returns an error the writes are rolled back.
	WithTx(ctx context.Context, fn func(DocumentStore) error) error
}

// inTx runs fn inside a store transaction when the store supports it, and
// directly (best-effort, per-document atomicity only) when it does not.
func inTx(ctx context.Context, store DocumentStore, fn func(DocumentStore) error) error {
	if ts, ok := store.(TxStore); ok {
		return ts.WithTx(ctx, fn)
	}
	return fn(store)
}
