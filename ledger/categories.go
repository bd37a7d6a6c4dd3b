/*
categories.go - Transaction categories

Categories only label transactions. Deactivating one never cascades;
transactions keep the reference and views fall back to "uncategorised".
*/
package ledger

import "context"

// CreateCategory validates and persists a category.
func (l *Ledger) CreateCategory(ctx context.Context, c Category) (*Category, error) {
	if c.Name == "" {
		return nil, validationErr("name", "must not be empty")
	}
	switch c.Kind {
	case CategoryExpense, CategoryIncome:
	default:
		return nil, validationErr("kind", "unknown category kind")
	}
	c.IsActive = true
	if c.CreatedAt.IsZero() {
		c.CreatedAt = l.now().UTC()
	}
	if err := l.store.InsertCategory(ctx, &c); err != nil {
		return nil, storeErr("insert category", err)
	}
	return &c, nil
}

// ListCategories returns a user's categories.
func (l *Ledger) ListCategories(ctx context.Context, userID UserID) ([]Category, error) {
	out, err := l.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return out, nil
}

// DeactivateCategory hides the category from pickers without touching the
// transactions that reference it.
func (l *Ledger) DeactivateCategory(ctx context.Context, c Category) error {
	c.IsActive = false
	if err := l.store.UpdateCategory(ctx, &c); err != nil {
		return storeErr("update category", err)
	}
	return nil
}
