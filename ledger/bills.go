/*
bills.go - Credit-card bill aggregator

PURPOSE:
  Presents a billing cycle's charges as a bill and manages payment state.
  A bill's total is always recomputed from the underlying charges at read
  time; the stored bill record only carries paid-state.

BILLING CYCLES:
  A cycle is bounded by the card's closing day, not the calendar month:
  the cycle labeled month M runs from the day after the previous closing
  day through the closing day in M, inclusive. Closing days past the end
  of a short month clamp to the month's last day.

PAYMENT:
  Paying a bill creates an expense on the paying account tagged with the
  bill id, and stamps the bill paid. Unpaying deletes that payment
  transaction (reversing the account's balance) and clears the stamps.
  While a cycle is paid, its charges are frozen: edits and deletes are
  rejected rather than left to the presentation layer to prevent.

CACHING:
  Bill views are read-through cached when a BillCache is attached; every
  mutation of a card's charges invalidates that card's entries.

SEE ALSO:
  - lifecycle.go: guardUnpaidCycle callers, payment transaction plumbing
*/
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BILL CACHE
// =============================================================================

// BillCache caches serialized bill views. Implementations live outside the
// core (see the cache package for the Redis-backed one).
type BillCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
	InvalidateCard(ctx context.Context, cardID string)
}

func billCacheKey(cardID CardID, year int, month time.Month) string {
	return fmt.Sprintf("bill:%s:%d-%02d", cardID, year, int(month))
}

func (l *Ledger) invalidateCard(ctx context.Context, cardID CardID) {
	if l.cache == nil || cardID == "" {
		return
	}
	l.cache.InvalidateCard(ctx, string(cardID))
}

// =============================================================================
// BILL VIEW
// =============================================================================

// DayCharges groups a cycle's charges by calendar day.
type DayCharges struct {
	Date         time.Time
	Transactions []Transaction
}

// BillView is the read model for one billing cycle: recomputed charge
// total plus the stored paid-state, if any.
type BillView struct {
	BillID               BillID
	CardID               CardID
	Month                time.Month
	Year                 int
	CycleStart           time.Time
	CycleEnd             time.Time
	TotalAmount          decimal.Decimal
	IsPaid               bool
	PaidFromAccountID    AccountID
	PaymentTransactionID TransactionID
	Days                 []DayCharges
}

// BillDetails derives the cycle's bill from the card's charges: every
// non-cancelled charge dated within the cycle window, expenses minus
// refunds. Bill payments carry the card id too but are excluded; they are
// account movements, not charges.
func (l *Ledger) BillDetails(ctx context.Context, userID UserID, cardID CardID, year int, month time.Month) (*BillView, error) {
	if l.cache != nil {
		if payload, ok := l.cache.Get(ctx, billCacheKey(cardID, year, month)); ok {
			var view BillView
			if err := json.Unmarshal(payload, &view); err == nil {
				return &view, nil
			}
		}
	}

	card, err := l.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, storeErr("get card", err)
	}
	if card == nil || card.UserID != userID {
		return nil, notFoundErr("credit card", string(cardID))
	}

	view, err := computeBillView(ctx, l.store, card, year, month)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if payload, err := json.Marshal(view); err == nil {
			l.cache.Set(ctx, billCacheKey(cardID, year, month), payload)
		}
	}
	return view, nil
}

func computeBillView(ctx context.Context, s DocumentStore, card *CreditCard, year int, month time.Month) (*BillView, error) {
	from, to := CycleWindow(card.ClosingDay, year, month)

	txs, err := s.TransactionsByCard(ctx, card.ID, from, to)
	if err != nil {
		return nil, storeErr("query by card", err)
	}

	total := decimal.Zero
	byDay := make(map[time.Time][]Transaction)
	for _, t := range txs {
		if t.Status == StatusCancelled || !t.IsCardCharge() {
			continue
		}
		switch t.Type {
		case TxExpense:
			total = total.Add(t.Amount)
		case TxIncome: // refund
			total = total.Sub(t.Amount)
		}
		day := t.Date.UTC().Truncate(24 * time.Hour)
		byDay[day] = append(byDay[day], t)
	}

	days := make([]DayCharges, 0, len(byDay))
	for day, list := range byDay {
		days = append(days, DayCharges{Date: day, Transactions: list})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	view := &BillView{
		CardID:      card.ID,
		Month:       month,
		Year:        year,
		CycleStart:  from,
		CycleEnd:    to,
		TotalAmount: total,
		Days:        days,
	}

	bill, err := s.FindBill(ctx, card.ID, year, month)
	if err != nil {
		return nil, storeErr("find bill", err)
	}
	if bill != nil {
		view.BillID = bill.ID
		view.IsPaid = bill.IsPaid
		view.PaidFromAccountID = bill.PaidFromAccountID
		view.PaymentTransactionID = bill.PaymentTransactionID
	}
	return view, nil
}

// =============================================================================
// PAYMENT
// =============================================================================

// PayBill pays the card's bill for the given cycle from the payment
// account: a completed expense of the recomputed cycle total is created on
// that account and the bill record is stamped paid.
func (l *Ledger) PayBill(ctx context.Context, cardID CardID, year int, month time.Month, paymentAccountID AccountID) (*CreditCardBill, error) {
	card, err := l.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, storeErr("get card", err)
	}
	if card == nil {
		return nil, notFoundErr("credit card", string(cardID))
	}
	acc, err := l.store.GetAccount(ctx, paymentAccountID)
	if err != nil {
		return nil, storeErr("get account", err)
	}
	if acc == nil {
		return nil, notFoundErr("account", string(paymentAccountID))
	}

	var paid *CreditCardBill
	err = inTx(ctx, l.store, func(s DocumentStore) error {
		view, err := computeBillView(ctx, s, card, year, month)
		if err != nil {
			return err
		}
		if view.IsPaid {
			return ErrAlreadyPaid
		}
		if !view.TotalAmount.IsPositive() {
			return validationErr("bill", "nothing to pay for this cycle")
		}

		bill := &CreditCardBill{
			ID:        view.BillID,
			UserID:    card.UserID,
			CardID:    card.ID,
			Month:     month,
			Year:      year,
			CreatedAt: l.now().UTC(),
		}
		if bill.ID == "" {
			if err := s.InsertBill(ctx, bill); err != nil {
				return storeErr("insert bill", err)
			}
		}

		payment := Transaction{
			UserID:           card.UserID,
			Type:             TxExpense,
			Amount:           view.TotalAmount,
			Description:      "Bill payment: " + card.Name,
			Date:             l.now().UTC(),
			Status:           StatusCompleted,
			AccountID:        paymentAccountID,
			CreditCardID:     card.ID,
			CreditCardBillID: bill.ID,
			CreatedAt:        l.now().UTC(),
		}
		if err := l.insertOne(ctx, s, &payment); err != nil {
			return err
		}

		bill.TotalAmount = view.TotalAmount
		bill.IsPaid = true
		bill.PaidFromAccountID = paymentAccountID
		bill.PaymentTransactionID = payment.ID
		if err := s.UpdateBill(ctx, bill); err != nil {
			return storeErr("update bill", err)
		}
		paid = bill
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.invalidateCard(ctx, cardID)
	return paid, nil
}

// UnpayBill reverses a bill payment: the payment transaction is deleted
// (restoring the paying account's balance) and the paid stamps are
// cleared. Unpaying an unpaid bill is a no-op.
func (l *Ledger) UnpayBill(ctx context.Context, billID BillID) error {
	bill, err := l.store.GetBill(ctx, billID)
	if err != nil {
		return storeErr("get bill", err)
	}
	if bill == nil {
		return notFoundErr("bill", string(billID))
	}
	if !bill.IsPaid {
		return nil
	}

	paymentID := bill.PaymentTransactionID
	err = inTx(ctx, l.store, func(s DocumentStore) error {
		if paymentID != "" {
			payment, err := s.GetTransaction(ctx, paymentID)
			if err != nil {
				return storeErr("get transaction", err)
			}
			if payment != nil {
				// deleteOne reopens the bill alongside the refund.
				return deleteOne(ctx, s, payment)
			}
		}
		// The payment is already gone; clear the stale stamps directly.
		return reopenBill(ctx, s, bill.ID)
	})
	if err != nil {
		return err
	}

	l.forget(paymentID)
	l.invalidateCard(ctx, bill.CardID)
	return nil
}

// reopenBill clears a bill's paid stamps. Called whenever the payment
// transaction is removed, through UnpayBill or any other deletion path,
// so the account refund and the paid flag cannot diverge. A missing or
// unpaid bill is a no-op: card deletion removes bills and payments
// together.
func reopenBill(ctx context.Context, s DocumentStore, id BillID) error {
	bill, err := s.GetBill(ctx, id)
	if err != nil {
		return storeErr("get bill", err)
	}
	if bill == nil || !bill.IsPaid {
		return nil
	}
	bill.IsPaid = false
	bill.PaidFromAccountID = ""
	bill.PaymentTransactionID = ""
	if err := s.UpdateBill(ctx, bill); err != nil {
		return storeErr("update bill", err)
	}
	return nil
}

// guardUnpaidCycle rejects mutation of a card charge whose billing cycle
// has been paid. Enforced here rather than in any client: a paid cycle's
// charges are frozen no matter who calls.
func (l *Ledger) guardUnpaidCycle(ctx context.Context, s DocumentStore, t *Transaction) error {
	if !t.IsCardCharge() {
		return nil
	}
	card, err := s.GetCard(ctx, t.CreditCardID)
	if err != nil {
		return storeErr("get card", err)
	}
	if card == nil {
		return notFoundErr("credit card", string(t.CreditCardID))
	}
	year, month := CycleFor(card.ClosingDay, t.Date)
	bill, err := s.FindBill(ctx, card.ID, year, month)
	if err != nil {
		return storeErr("find bill", err)
	}
	if bill != nil && bill.IsPaid {
		return ErrBillPaid
	}
	return nil
}

// =============================================================================
// CYCLE MATH
// =============================================================================

// CycleWindow returns the inclusive [from, to] date range of the cycle
// labeled year/month for a card closing on closingDay.
func CycleWindow(closingDay int, year int, month time.Month) (from, to time.Time) {
	close := closeDate(year, month, closingDay)
	// Month arithmetic on the first of the month; AddDate on a clamped
	// closing date can skip short months.
	prev := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	prevClose := closeDate(prev.Year(), prev.Month(), closingDay)
	from = prevClose.AddDate(0, 0, 1)
	to = close.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return from, to
}

// CycleFor returns which cycle a charge dated at the given time falls in.
func CycleFor(closingDay int, date time.Time) (int, time.Month) {
	close := closeDate(date.Year(), date.Month(), closingDay)
	end := close.AddDate(0, 0, 1).Add(-time.Nanosecond)
	if date.After(end) {
		next := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return next.Year(), next.Month()
	}
	return date.Year(), date.Month()
}

// closeDate clamps the closing day into the month.
func closeDate(year int, month time.Month, closingDay int) time.Time {
	if closingDay < 1 {
		closingDay = 1
	}
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if closingDay > last {
		closingDay = last
	}
	return time.Date(year, month, closingDay, 0, 0, 0, 0, time.UTC)
}
