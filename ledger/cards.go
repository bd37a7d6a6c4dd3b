/*
cards.go - Credit-card lifecycle

Card deletion cascades: the card's transactions are deleted first
(reversing any bill-payment effect on accounts), then its stored bill
records, then the card document.
*/
package ledger

import "context"

// CreateCard validates and persists a credit card.
func (l *Ledger) CreateCard(ctx context.Context, c CreditCard) (*CreditCard, error) {
	if c.Name == "" {
		return nil, validationErr("name", "must not be empty")
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return nil, validationErr("closingDay", "must be between 1 and 31")
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return nil, validationErr("dueDay", "must be between 1 and 31")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = l.now().UTC()
	}
	if err := l.store.InsertCard(ctx, &c); err != nil {
		return nil, storeErr("insert card", err)
	}
	return &c, nil
}

// ArchiveCard soft-removes the card; its charge history stays queryable.
func (l *Ledger) ArchiveCard(ctx context.Context, id CardID) error {
	card, err := l.store.GetCard(ctx, id)
	if err != nil {
		return storeErr("get card", err)
	}
	if card == nil {
		return notFoundErr("credit card", string(id))
	}
	card.IsArchived = true
	if err := l.store.UpdateCard(ctx, card); err != nil {
		return storeErr("update card", err)
	}
	return nil
}

// DeleteCard cascades the card's transactions and bill records before
// removing the card itself. Returns the number of transactions deleted.
func (l *Ledger) DeleteCard(ctx context.Context, id CardID, progress ProgressFunc) (int, error) {
	card, err := l.store.GetCard(ctx, id)
	if err != nil {
		return 0, storeErr("get card", err)
	}
	if card == nil {
		return 0, notFoundErr("credit card", string(id))
	}

	n, err := l.DeleteByCreditCard(ctx, id, progress)
	if err != nil {
		return n, err
	}

	bills, err := l.store.BillsByCard(ctx, id)
	if err != nil {
		return n, storeErr("query bills", err)
	}
	for i := range bills {
		if err := l.store.DeleteBill(ctx, bills[i].ID); err != nil {
			return n, storeErr("delete bill", err)
		}
	}

	if err := l.store.DeleteCard(ctx, id); err != nil {
		return n, storeErr("delete card", err)
	}
	return n, nil
}
