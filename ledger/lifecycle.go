/*
lifecycle.go - Transaction lifecycle manager

PURPOSE:
  Create, update, delete single transactions and delete whole recurring
  series, keeping account balances and any goal/bill linkage consistent.
  This is the only code path allowed to move an account's Balance (other
  than recalculation and explicit adjustment).

CONSISTENCY MODEL:
  Every operation runs inside a store transaction when the store supports
  WithTx: the balance mutation and the document write commit or roll back
  together. Against a store with per-document atomicity only, the
  operation degrades to best-effort sequencing and
  RecalculateBalance remains the repair tool.

PRIOR-STATE FALLBACK:
  Update and Delete need the transaction's prior state to compute the
  reversal. Recently touched transactions are served from a small local
  cache; anything else falls back to a store read, because edits may
  target transactions outside the currently loaded time window.

BULK DELETION:
  DeleteByAccount/DeleteByCreditCard/DeleteByGoal process documents in
  fixed-size concurrent batches (default 5) and report cumulative progress
  after each batch, not per item.

SEE ALSO:
  - delta.go: the balance rules this file applies and reverses
  - bills.go: paid-cycle guard consulted before mutating card charges
  - goals.go: progress functions called for goal-tagged transactions
*/
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDeleteConcurrency bounds how many documents a bulk deletion
// touches at once, to avoid overwhelming the store.
const DefaultDeleteConcurrency = 5

// priorCacheLimit bounds the recently-touched transaction cache.
const priorCacheLimit = 512

// ProgressFunc receives cumulative progress during bulk deletions.
type ProgressFunc func(done, total int)

// =============================================================================
// LEDGER - The lifecycle manager
// =============================================================================

// Ledger coordinates all mutations of the document store that can move an
// account balance, a bill's paid state, or a goal's progress.
//
// Calls affecting the same account within one user action must be issued
// sequentially by the caller; the Ledger itself is safe for concurrent use.
type Ledger struct {
	store DocumentStore
	cache BillCache

	deleteConcurrency int

	mu     sync.Mutex
	recent map[TransactionID]Transaction
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithBillCache attaches a read-through cache for bill views. The ledger
// invalidates the affected card's entries on every charge mutation.
func WithBillCache(c BillCache) Option {
	return func(l *Ledger) { l.cache = c }
}

// WithDeleteConcurrency overrides the bulk-deletion batch size.
func WithDeleteConcurrency(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.deleteConcurrency = n
		}
	}
}

// withClock fixes the time source. Tests only.
func withClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger over the given store.
func New(store DocumentStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:             store,
		deleteConcurrency: DefaultDeleteConcurrency,
		recent:            make(map[TransactionID]Transaction),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// =============================================================================
// CREATE
// =============================================================================

// CreateTransaction validates and persists a transaction, applying its
// balance effect to each affected account and its amount to a tagged goal.
//
// When input.Recurrence.Count > 1 the transaction expands into a series of
// instances sharing a generated SeriesID; only the first instance keeps the
// given status, later ones are created pending. The first instance is
// returned.
func (l *Ledger) CreateTransaction(ctx context.Context, input Transaction) (*Transaction, error) {
	if input.Status == "" {
		input.Status = StatusCompleted
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = l.now().UTC()
	}
	if err := validateTransaction(&input); err != nil {
		return nil, err
	}
	if err := l.checkReferences(ctx, &input); err != nil {
		return nil, err
	}
	if err := l.guardUnpaidCycle(ctx, l.store, &input); err != nil {
		return nil, err
	}

	instances := expandSeries(input)

	err := inTx(ctx, l.store, func(s DocumentStore) error {
		for i := range instances {
			if err := l.insertOne(ctx, s, &instances[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range instances {
		l.remember(&instances[i])
	}
	l.invalidateCard(ctx, input.CreditCardID)

	return &instances[0], nil
}

// insertOne persists a single instance and applies its side effects.
// Runs inside the caller's store transaction.
func (l *Ledger) insertOne(ctx context.Context, s DocumentStore, t *Transaction) error {
	if err := s.InsertTransaction(ctx, t); err != nil {
		return storeErr("insert transaction", err)
	}
	for id, d := range deltas(t) {
		if err := applyDelta(ctx, s, id, d); err != nil {
			return err
		}
	}
	if t.GoalID != "" {
		if err := addToGoalProgress(ctx, s, t.GoalID, t.Amount, l.now); err != nil {
			return err
		}
	}
	return nil
}

// expandSeries turns a recurring input into its dated instances.
func expandSeries(input Transaction) []Transaction {
	count := input.Recurrence.Count
	if count <= 1 || input.Recurrence.Kind == RecurNone || input.Recurrence.Kind == "" {
		input.SeriesID = ""
		return []Transaction{input}
	}

	seriesID := SeriesID(newID())
	instances := make([]Transaction, count)
	for i := 0; i < count; i++ {
		inst := input
		inst.SeriesID = seriesID
		inst.Date = advance(input.Date, input.Recurrence.Kind, i)
		if i > 0 {
			// Future instances are upcoming money movement, not booked yet.
			inst.Status = StatusPending
		}
		instances[i] = inst
	}
	return instances
}

func advance(from time.Time, kind RecurrenceKind, steps int) time.Time {
	switch kind {
	case RecurWeekly:
		return from.AddDate(0, 0, 7*steps)
	case RecurMonthly:
		return from.AddDate(0, steps, 0)
	case RecurYearly:
		return from.AddDate(steps, 0, 0)
	default:
		return from
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// TransactionPatch carries the fields an edit may change. Nil fields are
// left untouched. Goal and card linkage is immutable after creation;
// delete and recreate to relink. A bill payment's paying account is
// likewise fixed.
type TransactionPatch struct {
	Amount      *decimal.Decimal
	Description *string
	Date        *time.Time
	Status      *TransactionStatus
	CategoryID  *CategoryID
	AccountID   *AccountID
	ToAccountID *AccountID
}

func (p *TransactionPatch) applyTo(t *Transaction) {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.ToAccountID != nil {
		t.ToAccountID = *p.ToAccountID
	}
}

// UpdateTransaction applies a patch, replacing the transaction's prior
// balance effect with the new one: each affected account receives
// (new - old). Status transitions are covered by the same rule, since
// pending and cancelled states contribute zero.
func (l *Ledger) UpdateTransaction(ctx context.Context, id TransactionID, patch TransactionPatch) (*Transaction, error) {
	prior, err := l.prior(ctx, id)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, notFoundErr("transaction", string(id))
	}

	updated := *prior
	patch.applyTo(&updated)

	if err := validateTransaction(&updated); err != nil {
		return nil, err
	}
	// The bill's PaidFromAccountID records which account paid it; moving
	// the payment would leave that stamp pointing at the wrong account.
	if prior.IsBillPayment() && updated.AccountID != prior.AccountID {
		return nil, validationErr("accountId", "a bill payment stays on the account that paid it")
	}
	if err := l.checkReferences(ctx, &updated); err != nil {
		return nil, err
	}
	if err := l.guardUnpaidCycle(ctx, l.store, prior); err != nil {
		return nil, err
	}
	if err := l.guardUnpaidCycle(ctx, l.store, &updated); err != nil {
		return nil, err
	}

	err = inTx(ctx, l.store, func(s DocumentStore) error {
		if err := applyDeltaDiff(ctx, s, prior, &updated); err != nil {
			return err
		}
		if updated.GoalID != "" {
			diff := updated.Amount.Sub(prior.Amount)
			if diff.IsPositive() {
				if err := addToGoalProgress(ctx, s, updated.GoalID, diff, l.now); err != nil {
					return err
				}
			} else if diff.IsNegative() {
				if err := removeFromGoalProgress(ctx, s, updated.GoalID, diff.Neg()); err != nil {
					return err
				}
			}
		}
		if err := s.UpdateTransaction(ctx, &updated); err != nil {
			return storeErr("update transaction", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.remember(&updated)
	l.invalidateCard(ctx, updated.CreditCardID)
	return &updated, nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteTransaction reverses the transaction's balance effect, rolls back
// any goal contribution, and removes the record.
func (l *Ledger) DeleteTransaction(ctx context.Context, id TransactionID) error {
	prior, err := l.prior(ctx, id)
	if err != nil {
		return err
	}
	if prior == nil {
		return notFoundErr("transaction", string(id))
	}
	if err := l.guardUnpaidCycle(ctx, l.store, prior); err != nil {
		return err
	}

	err = inTx(ctx, l.store, func(s DocumentStore) error {
		return deleteOne(ctx, s, prior)
	})
	if err != nil {
		return err
	}

	l.forget(id)
	l.invalidateCard(ctx, prior.CreditCardID)
	return nil
}

// deleteOne reverses and removes a single transaction. Runs inside the
// caller's store transaction. Shared by every deletion path so the
// reversal rule cannot diverge.
func deleteOne(ctx context.Context, s DocumentStore, t *Transaction) error {
	for id, d := range deltas(t) {
		if err := applyDelta(ctx, s, id, d.Neg()); err != nil {
			return err
		}
	}
	if t.GoalID != "" {
		if err := removeFromGoalProgress(ctx, s, t.GoalID, t.Amount); err != nil {
			return err
		}
	}
	if t.IsBillPayment() {
		if err := reopenBill(ctx, s, t.CreditCardBillID); err != nil {
			return err
		}
	}
	if err := s.DeleteTransaction(ctx, t.ID); err != nil {
		return storeErr("delete transaction", err)
	}
	return nil
}

// DeleteSeries deletes every transaction sharing the series id, reversing
// each one's balance effect, and returns the count deleted. All instances
// go in one store transaction.
func (l *Ledger) DeleteSeries(ctx context.Context, id SeriesID) (int, error) {
	txs, err := l.store.TransactionsBySeries(ctx, id)
	if err != nil {
		return 0, storeErr("query series", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}

	err = inTx(ctx, l.store, func(s DocumentStore) error {
		for i := range txs {
			if err := deleteOne(ctx, s, &txs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i := range txs {
		l.forget(txs[i].ID)
		l.invalidateCard(ctx, txs[i].CreditCardID)
	}
	return len(txs), nil
}

// =============================================================================
// BULK DELETION - bounded concurrency with progress reporting
// =============================================================================

// DeleteByAccount deletes every transaction referencing the account as
// either leg, reversing balance effects symmetrically to the individual
// delete rule. progress may be nil.
func (l *Ledger) DeleteByAccount(ctx context.Context, id AccountID, progress ProgressFunc) (int, error) {
	txs, err := l.store.TransactionsByAccount(ctx, id)
	if err != nil {
		return 0, storeErr("query by account", err)
	}
	return l.deleteInBatches(ctx, txs, progress)
}

// DeleteByCreditCard deletes every transaction carrying the card id,
// charges and bill payments alike. Payment reversals restore the paying
// accounts. The paid-cycle guard does not apply: the card is going away.
func (l *Ledger) DeleteByCreditCard(ctx context.Context, id CardID, progress ProgressFunc) (int, error) {
	txs, err := l.store.TransactionsByCard(ctx, id, time.Time{}, time.Time{})
	if err != nil {
		return 0, storeErr("query by card", err)
	}
	n, err := l.deleteInBatches(ctx, txs, progress)
	l.invalidateCard(ctx, id)
	return n, err
}

// DeleteByGoal deletes every contribution tagged with the goal, restoring
// the funding accounts and decrementing the goal's progress per document.
func (l *Ledger) DeleteByGoal(ctx context.Context, id GoalID, progress ProgressFunc) (int, error) {
	txs, err := l.store.TransactionsByGoal(ctx, id)
	if err != nil {
		return 0, storeErr("query by goal", err)
	}
	return l.deleteInBatches(ctx, txs, progress)
}

// deleteInBatches removes transactions in fixed-size concurrent batches.
// Each document's reversal+delete is its own store transaction; cumulative
// progress is reported after each batch completes. The first error stops
// the run after its batch drains.
func (l *Ledger) deleteInBatches(ctx context.Context, txs []Transaction, progress ProgressFunc) (int, error) {
	total := len(txs)
	if total == 0 {
		return 0, nil
	}

	done := 0
	for start := 0; start < total; start += l.deleteConcurrency {
		end := start + l.deleteConcurrency
		if end > total {
			end = total
		}
		batch := txs[start:end]

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			batchOK  int
			firstErr error
		)
		for i := range batch {
			wg.Add(1)
			go func(t *Transaction) {
				defer wg.Done()
				err := inTx(ctx, l.store, func(s DocumentStore) error {
					return deleteOne(ctx, s, t)
				})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				batchOK++
			}(&batch[i])
		}
		wg.Wait()

		done += batchOK
		for i := range batch {
			l.forget(batch[i].ID)
		}
		if progress != nil {
			progress(done, total)
		}
		if firstErr != nil {
			return done, firstErr
		}
	}
	return done, nil
}

// =============================================================================
// VALIDATION & REFERENCE CHECKS
// =============================================================================

func validateTransaction(t *Transaction) error {
	if !t.Amount.IsPositive() {
		return validationErr("amount", "must be positive")
	}
	switch t.Status {
	case StatusPending, StatusCompleted, StatusCancelled:
	default:
		return validationErr("status", "unknown status")
	}

	switch t.Type {
	case TxExpense, TxIncome:
		if t.ToAccountID != "" {
			return validationErr("toAccountId", "only transfers have a destination account")
		}
		if t.CreditCardBillID != "" {
			if t.Type != TxExpense {
				return validationErr("type", "bill payments are expenses")
			}
			if t.AccountID == "" {
				return validationErr("accountId", "bill payment needs a paying account")
			}
			return nil
		}
		if t.AccountID == "" && t.CreditCardID == "" {
			return validationErr("accountId", "need an account or a credit card")
		}
		if t.AccountID != "" && t.CreditCardID != "" {
			return validationErr("creditCardId", "card charges do not reference an account")
		}
	case TxTransfer:
		if t.AccountID == "" || t.ToAccountID == "" {
			return validationErr("toAccountId", "transfer needs both accounts")
		}
		if t.AccountID == t.ToAccountID {
			return validationErr("toAccountId", "transfer accounts must differ")
		}
		if t.CreditCardID != "" {
			return validationErr("creditCardId", "transfers do not reference a card")
		}
	default:
		return validationErr("type", "unknown transaction type")
	}
	return nil
}

// checkReferences verifies that every referenced document exists.
func (l *Ledger) checkReferences(ctx context.Context, t *Transaction) error {
	if t.AccountID != "" {
		acc, err := l.store.GetAccount(ctx, t.AccountID)
		if err != nil {
			return storeErr("get account", err)
		}
		if acc == nil {
			return notFoundErr("account", string(t.AccountID))
		}
	}
	if t.IsTransfer() && t.ToAccountID != "" {
		acc, err := l.store.GetAccount(ctx, t.ToAccountID)
		if err != nil {
			return storeErr("get account", err)
		}
		if acc == nil {
			return notFoundErr("account", string(t.ToAccountID))
		}
	}
	if t.CreditCardID != "" {
		card, err := l.store.GetCard(ctx, t.CreditCardID)
		if err != nil {
			return storeErr("get card", err)
		}
		if card == nil {
			return notFoundErr("credit card", string(t.CreditCardID))
		}
	}
	if t.GoalID != "" {
		goal, err := l.store.GetGoal(ctx, t.GoalID)
		if err != nil {
			return storeErr("get goal", err)
		}
		if goal == nil {
			return notFoundErr("goal", string(t.GoalID))
		}
	}
	return nil
}

// =============================================================================
// PRIOR-STATE CACHE
// =============================================================================

// prior returns the transaction's last known state, from the local cache
// when present, otherwise from the store. Returns (nil, nil) if gone.
func (l *Ledger) prior(ctx context.Context, id TransactionID) (*Transaction, error) {
	l.mu.Lock()
	if t, ok := l.recent[id]; ok {
		l.mu.Unlock()
		cp := t
		return &cp, nil
	}
	l.mu.Unlock()

	t, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, storeErr("get transaction", err)
	}
	return t, nil
}

func (l *Ledger) remember(t *Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recent) >= priorCacheLimit {
		for k := range l.recent {
			delete(l.recent, k)
			break
		}
	}
	l.recent[t.ID] = *t
}

func (l *Ledger) forget(id TransactionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.recent, id)
}
