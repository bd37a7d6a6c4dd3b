/*
Package ledger is the consistency core of the personal-finance system.

PURPOSE:
  This package contains the domain types and the rules that keep account
  balances, credit-card bills, and savings-goal progress consistent as
  transactions are created, edited, deleted, or reversed. It has no HTTP
  or UI dependency; everything here is unit-testable against the in-memory
  store.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: a place money is held; its Balance is derived from transactions
  - Transaction: a single monetary event (expense, income, or transfer)
  - CreditCard / CreditCardBill: card charges and their per-cycle aggregate
  - Goal: a savings target with accumulated contribution progress
  - Category: label attached to transactions, never cascaded

DESIGN PRINCIPLES:
  1. Precision: monetary amounts use decimal.Decimal, never float64
  2. Status gating: only completed transactions move account balances
  3. Exclusivity: a transaction is exactly one of plain-account, card
     charge, or transfer (bill payments are the one sanctioned overlap)
  4. Derived views: a bill's total is recomputed from charges at read
     time; it is a view, not a running counter

SEE ALSO:
  - delta.go: signed balance contribution of a transaction to an account
  - lifecycle.go: create/update/delete keeping balances synchronized
  - store.go: persistence contract (the document-store collections)
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type AccountID string
type TransactionID string
type CardID string
type BillID string
type GoalID string
type CategoryID string
type SeriesID string

// =============================================================================
// ACCOUNT - A place money is held
// =============================================================================

type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountWallet     AccountType = "wallet"
	AccountInvestment AccountType = "investment"
	AccountOther      AccountType = "other"
)

// Account holds a derived Balance. The invariant maintained by the
// lifecycle manager is:
//
//	Balance == InitialBalance + sum of DeltaForAccount(t, ID)
//	           over all surviving completed transactions t
//
// RecalculateBalance re-derives it from scratch when drift is suspected.
type Account struct {
	ID             AccountID
	UserID         UserID
	Name           string
	Type           AccountType
	Balance        decimal.Decimal
	InitialBalance decimal.Decimal
	IncludeInTotal bool
	IsArchived     bool
	IsDefault      bool
	CreatedAt      time.Time
}

// =============================================================================
// TRANSACTION - A single monetary event
// =============================================================================

type TransactionType string

const (
	TxExpense  TransactionType = "expense"
	TxIncome   TransactionType = "income"
	TxTransfer TransactionType = "transfer"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"   // scheduled, shown as upcoming
	StatusCompleted TransactionStatus = "completed" // the only status that moves balances
	StatusCancelled TransactionStatus = "cancelled" // excluded from all totals
)

type RecurrenceKind string

const (
	RecurNone    RecurrenceKind = "none"
	RecurWeekly  RecurrenceKind = "weekly"
	RecurMonthly RecurrenceKind = "monthly"
	RecurYearly  RecurrenceKind = "yearly"
)

// Recurrence describes how many instances a transaction expands into.
// Count includes the first instance; Count <= 1 means no series.
type Recurrence struct {
	Kind  RecurrenceKind
	Count int
}

// Transaction records one monetary event. Amount is a non-negative
// magnitude; direction is implied by Type and the account role.
//
// Exactly one shape applies:
//   - plain account transaction: AccountID set, no CreditCardID
//   - transfer: AccountID and ToAccountID both set
//   - card charge: CreditCardID set, no AccountID
//   - bill payment: CreditCardID + CreditCardBillID + AccountID (the
//     account debited to pay the bill)
type Transaction struct {
	ID               TransactionID
	UserID           UserID
	Type             TransactionType
	Amount           decimal.Decimal
	Description      string
	Date             time.Time
	Status           TransactionStatus
	AccountID        AccountID
	ToAccountID      AccountID
	CreditCardID     CardID
	CreditCardBillID BillID
	GoalID           GoalID
	CategoryID       CategoryID
	SeriesID         SeriesID
	Recurrence       Recurrence
	CreatedAt        time.Time
}

// IsTransfer reports whether the transaction moves money between two accounts.
func (t *Transaction) IsTransfer() bool { return t.Type == TxTransfer }

// IsCardCharge reports whether the transaction is a charge against a credit
// card. Bill payments carry a card id too but are not charges.
func (t *Transaction) IsCardCharge() bool {
	return t.CreditCardID != "" && t.CreditCardBillID == ""
}

// IsBillPayment reports whether the transaction pays a credit-card bill
// from an account.
func (t *Transaction) IsBillPayment() bool { return t.CreditCardBillID != "" }

// AffectedAccounts returns the account ids whose balances this transaction
// can touch. Card charges touch none; the card's bill absorbs them.
func (t *Transaction) AffectedAccounts() []AccountID {
	if t.IsCardCharge() {
		return nil
	}
	var ids []AccountID
	if t.AccountID != "" {
		ids = append(ids, t.AccountID)
	}
	if t.IsTransfer() && t.ToAccountID != "" {
		ids = append(ids, t.ToAccountID)
	}
	return ids
}

// =============================================================================
// CREDIT CARD & BILL
// =============================================================================

// CreditCard defines a card and its billing cycle. A cycle for month M ends
// on the card's closing day in M (clamped to the month's last day) and
// starts the day after the previous cycle's close.
type CreditCard struct {
	ID         CardID
	UserID     UserID
	Name       string
	ClosingDay int
	DueDay     int
	Limit      decimal.Decimal
	IsArchived bool
	CreatedAt  time.Time
}

// CreditCardBill is the paid-state record for one billing cycle. TotalAmount
// is always recomputed from the cycle's charges at read time; the stored
// record only becomes authoritative for payment state (IsPaid and the
// payment linkage) once the bill is paid.
type CreditCardBill struct {
	ID                   BillID
	UserID               UserID
	CardID               CardID
	Month                time.Month
	Year                 int
	TotalAmount          decimal.Decimal
	IsPaid               bool
	PaidFromAccountID    AccountID
	PaymentTransactionID TransactionID
	CreatedAt            time.Time
}

// =============================================================================
// GOAL - A savings target
// =============================================================================

// Goal tracks progress toward a savings target. CurrentAmount is mutated
// only via the goal-progress functions and must equal the sum of amounts of
// all surviving contribution transactions tagged with this goal's id.
// CompletedAt is one-way: once stamped it is never cleared, even if
// contributions are later removed.
type Goal struct {
	ID            GoalID
	UserID        UserID
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	TargetDate    time.Time
	IsPrimary     bool
	IsActive      bool
	CompletedAt   *time.Time
	CreatedAt     time.Time
}

// =============================================================================
// CATEGORY
// =============================================================================

type CategoryKind string

const (
	CategoryExpense CategoryKind = "expense"
	CategoryIncome  CategoryKind = "income"
)

// Category labels transactions. Deactivating or deleting a category never
// cascades; transactions keep the reference.
type Category struct {
	ID        CategoryID
	UserID    UserID
	Name      string
	Kind      CategoryKind
	IsActive  bool
	CreatedAt time.Time
}
