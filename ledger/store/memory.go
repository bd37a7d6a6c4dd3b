// Package store provides DocumentStore implementations.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/thiagodosanjos/cofrin-core/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.TxStore with plain maps. Documents are stored
// by value so snapshots and returned copies never alias live state.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[ledger.AccountID]ledger.Account
	transactions map[ledger.TransactionID]ledger.Transaction
	cards        map[ledger.CardID]ledger.CreditCard
	bills        map[ledger.BillID]ledger.CreditCardBill
	goals        map[ledger.GoalID]ledger.Goal
	categories   map[ledger.CategoryID]ledger.Category
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[ledger.AccountID]ledger.Account),
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		cards:        make(map[ledger.CardID]ledger.CreditCard),
		bills:        make(map[ledger.BillID]ledger.CreditCardBill),
		goals:        make(map[ledger.GoalID]ledger.Goal),
		categories:   make(map[ledger.CategoryID]ledger.Category),
	}
}

// All write/read logic lives in unexported unlocked methods; the public
// methods wrap them with the mutex and the transactional view calls them
// under the lock WithTx already holds.

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) InsertAccount(_ context.Context, a *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertAccount(a)
}

func (m *Memory) insertAccount(a *ledger.Account) error {
	if a.ID == "" {
		a.ID = ledger.AccountID(ledger.NewDocumentID())
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccount(id)
}

func (m *Memory) getAccount(id ledger.AccountID) (*ledger.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAccounts(_ context.Context, userID ledger.UserID) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAccounts(userID)
}

func (m *Memory) listAccounts(userID ledger.UserID) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateAccount(_ context.Context, a *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateAccount(a)
}

func (m *Memory) updateAccount(a *ledger.Account) error {
	if _, ok := m.accounts[a.ID]; !ok {
		return errors.New("account does not exist")
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *Memory) DeleteAccount(_ context.Context, id ledger.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAccount(id)
}

func (m *Memory) deleteAccount(id ledger.AccountID) error {
	delete(m.accounts, id)
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) InsertTransaction(_ context.Context, t *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertTransaction(t)
}

func (m *Memory) insertTransaction(t *ledger.Transaction) error {
	if t.ID == "" {
		t.ID = ledger.TransactionID(ledger.NewDocumentID())
	}
	m.transactions[t.ID] = *t
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTransaction(id)
}

func (m *Memory) getTransaction(id ledger.TransactionID) (*ledger.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, t *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateTransaction(t)
}

func (m *Memory) updateTransaction(t *ledger.Transaction) error {
	if _, ok := m.transactions[t.ID]; !ok {
		return errors.New("transaction does not exist")
	}
	m.transactions[t.ID] = *t
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteTransaction(id)
}

func (m *Memory) deleteTransaction(id ledger.TransactionID) error {
	delete(m.transactions, id)
	return nil
}

func (m *Memory) TransactionsByMonth(_ context.Context, userID ledger.UserID, year int, month time.Month) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterTransactions(func(t *ledger.Transaction) bool {
		return t.UserID == userID && t.Date.Year() == year && t.Date.Month() == month
	}), nil
}

func (m *Memory) TransactionsBySeries(_ context.Context, id ledger.SeriesID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsBySeries(id)
}

func (m *Memory) transactionsBySeries(id ledger.SeriesID) ([]ledger.Transaction, error) {
	return m.filterTransactions(func(t *ledger.Transaction) bool {
		return t.SeriesID == id
	}), nil
}

func (m *Memory) TransactionsByAccount(_ context.Context, id ledger.AccountID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsByAccount(id)
}

func (m *Memory) transactionsByAccount(id ledger.AccountID) ([]ledger.Transaction, error) {
	return m.filterTransactions(func(t *ledger.Transaction) bool {
		return t.AccountID == id || t.ToAccountID == id
	}), nil
}

func (m *Memory) TransactionsByCard(_ context.Context, id ledger.CardID, from, to time.Time) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsByCard(id, from, to)
}

func (m *Memory) transactionsByCard(id ledger.CardID, from, to time.Time) ([]ledger.Transaction, error) {
	return m.filterTransactions(func(t *ledger.Transaction) bool {
		if t.CreditCardID != id {
			return false
		}
		if !from.IsZero() && t.Date.Before(from) {
			return false
		}
		if !to.IsZero() && t.Date.After(to) {
			return false
		}
		return true
	}), nil
}

func (m *Memory) TransactionsByGoal(_ context.Context, id ledger.GoalID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsByGoal(id)
}

func (m *Memory) transactionsByGoal(id ledger.GoalID) ([]ledger.Transaction, error) {
	return m.filterTransactions(func(t *ledger.Transaction) bool {
		return t.GoalID == id
	}), nil
}

func (m *Memory) filterTransactions(keep func(*ledger.Transaction) bool) []ledger.Transaction {
	var out []ledger.Transaction
	for _, t := range m.transactions {
		if keep(&t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

func (m *Memory) InsertCard(_ context.Context, c *ledger.CreditCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCard(c)
}

func (m *Memory) insertCard(c *ledger.CreditCard) error {
	if c.ID == "" {
		c.ID = ledger.CardID(ledger.NewDocumentID())
	}
	m.cards[c.ID] = *c
	return nil
}

func (m *Memory) GetCard(_ context.Context, id ledger.CardID) (*ledger.CreditCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCard(id)
}

func (m *Memory) getCard(id ledger.CardID) (*ledger.CreditCard, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCards(_ context.Context, userID ledger.UserID) ([]ledger.CreditCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.CreditCard
	for _, c := range m.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateCard(_ context.Context, c *ledger.CreditCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCard(c)
}

func (m *Memory) updateCard(c *ledger.CreditCard) error {
	if _, ok := m.cards[c.ID]; !ok {
		return errors.New("card does not exist")
	}
	m.cards[c.ID] = *c
	return nil
}

func (m *Memory) DeleteCard(_ context.Context, id ledger.CardID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cards, id)
	return nil
}

// =============================================================================
// BILLS
// =============================================================================

func (m *Memory) InsertBill(_ context.Context, b *ledger.CreditCardBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertBill(b)
}

func (m *Memory) insertBill(b *ledger.CreditCardBill) error {
	if b.ID == "" {
		b.ID = ledger.BillID(ledger.NewDocumentID())
	}
	m.bills[b.ID] = *b
	return nil
}

func (m *Memory) GetBill(_ context.Context, id ledger.BillID) (*ledger.CreditCardBill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBill(id)
}

func (m *Memory) getBill(id ledger.BillID) (*ledger.CreditCardBill, error) {
	b, ok := m.bills[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) FindBill(_ context.Context, cardID ledger.CardID, year int, month time.Month) (*ledger.CreditCardBill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findBill(cardID, year, month)
}

func (m *Memory) findBill(cardID ledger.CardID, year int, month time.Month) (*ledger.CreditCardBill, error) {
	for _, b := range m.bills {
		if b.CardID == cardID && b.Year == year && b.Month == month {
			bill := b
			return &bill, nil
		}
	}
	return nil, nil
}

func (m *Memory) BillsByCard(_ context.Context, cardID ledger.CardID) ([]ledger.CreditCardBill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.billsByCard(cardID)
}

func (m *Memory) billsByCard(cardID ledger.CardID) ([]ledger.CreditCardBill, error) {
	var out []ledger.CreditCardBill
	for _, b := range m.bills {
		if b.CardID == cardID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (m *Memory) UpdateBill(_ context.Context, b *ledger.CreditCardBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateBill(b)
}

func (m *Memory) updateBill(b *ledger.CreditCardBill) error {
	if _, ok := m.bills[b.ID]; !ok {
		return errors.New("bill does not exist")
	}
	m.bills[b.ID] = *b
	return nil
}

func (m *Memory) DeleteBill(_ context.Context, id ledger.BillID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bills, id)
	return nil
}

// =============================================================================
// GOALS
// =============================================================================

func (m *Memory) InsertGoal(_ context.Context, g *ledger.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertGoal(g)
}

func (m *Memory) insertGoal(g *ledger.Goal) error {
	if g.ID == "" {
		g.ID = ledger.GoalID(ledger.NewDocumentID())
	}
	m.goals[g.ID] = *g
	return nil
}

func (m *Memory) GetGoal(_ context.Context, id ledger.GoalID) (*ledger.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getGoal(id)
}

func (m *Memory) getGoal(id ledger.GoalID) (*ledger.Goal, error) {
	g, ok := m.goals[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *Memory) ListGoals(_ context.Context, userID ledger.UserID, activeOnly bool) ([]ledger.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listGoals(userID, activeOnly)
}

func (m *Memory) listGoals(userID ledger.UserID, activeOnly bool) ([]ledger.Goal, error) {
	var out []ledger.Goal
	for _, g := range m.goals {
		if g.UserID != userID {
			continue
		}
		if activeOnly && !g.IsActive {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateGoal(_ context.Context, g *ledger.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateGoal(g)
}

func (m *Memory) updateGoal(g *ledger.Goal) error {
	if _, ok := m.goals[g.ID]; !ok {
		return errors.New("goal does not exist")
	}
	m.goals[g.ID] = *g
	return nil
}

func (m *Memory) DeleteGoal(_ context.Context, id ledger.GoalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.goals, id)
	return nil
}

// SetPrimaryGoal performs the unset-all/set-one swap under one lock, so no
// reader ever observes zero or two primaries.
func (m *Memory) SetPrimaryGoal(_ context.Context, userID ledger.UserID, id ledger.GoalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setPrimaryGoal(userID, id)
}

func (m *Memory) setPrimaryGoal(userID ledger.UserID, id ledger.GoalID) error {
	target, ok := m.goals[id]
	if !ok || target.UserID != userID {
		return errors.New("goal does not exist")
	}
	for gid, g := range m.goals {
		if g.UserID == userID && g.IsActive && g.IsPrimary {
			g.IsPrimary = false
			m.goals[gid] = g
		}
	}
	target.IsPrimary = true
	m.goals[id] = target
	return nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (m *Memory) InsertCategory(_ context.Context, c *ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCategory(c)
}

func (m *Memory) insertCategory(c *ledger.Category) error {
	if c.ID == "" {
		c.ID = ledger.CategoryID(ledger.NewDocumentID())
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *Memory) ListCategories(_ context.Context, userID ledger.UserID) ([]ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Category
	for _, c := range m.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateCategory(_ context.Context, c *ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return errors.New("category does not exist")
	}
	m.categories[c.ID] = *c
	return nil
}

// =============================================================================
// TRANSACTIONAL VIEW - snapshot + rollback
// =============================================================================

// WithTx executes fn against a view of the store, holding the write lock
// for the duration. On error the pre-call snapshot is restored.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.DocumentStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts     map[ledger.AccountID]ledger.Account
	transactions map[ledger.TransactionID]ledger.Transaction
	cards        map[ledger.CardID]ledger.CreditCard
	bills        map[ledger.BillID]ledger.CreditCardBill
	goals        map[ledger.GoalID]ledger.Goal
	categories   map[ledger.CategoryID]ledger.Category
}

func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{
		accounts:     copyMap(m.accounts),
		transactions: copyMap(m.transactions),
		cards:        copyMap(m.cards),
		bills:        copyMap(m.bills),
		goals:        copyMap(m.goals),
		categories:   copyMap(m.categories),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.transactions = s.transactions
	m.cards = s.cards
	m.bills = s.bills
	m.goals = s.goals
	m.categories = s.categories
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// txView calls the unlocked internals; WithTx already holds the lock.
type txView struct {
	m *Memory
}

func (v *txView) InsertAccount(_ context.Context, a *ledger.Account) error { return v.m.insertAccount(a) }
func (v *txView) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return v.m.getAccount(id)
}
func (v *txView) ListAccounts(_ context.Context, userID ledger.UserID) ([]ledger.Account, error) {
	return v.m.listAccounts(userID)
}
func (v *txView) UpdateAccount(_ context.Context, a *ledger.Account) error { return v.m.updateAccount(a) }
func (v *txView) DeleteAccount(_ context.Context, id ledger.AccountID) error {
	return v.m.deleteAccount(id)
}

func (v *txView) InsertTransaction(_ context.Context, t *ledger.Transaction) error {
	return v.m.insertTransaction(t)
}
func (v *txView) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return v.m.getTransaction(id)
}
func (v *txView) UpdateTransaction(_ context.Context, t *ledger.Transaction) error {
	return v.m.updateTransaction(t)
}
func (v *txView) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	return v.m.deleteTransaction(id)
}
func (v *txView) TransactionsByMonth(_ context.Context, userID ledger.UserID, year int, month time.Month) ([]ledger.Transaction, error) {
	return v.m.filterTransactions(func(t *ledger.Transaction) bool {
		return t.UserID == userID && t.Date.Year() == year && t.Date.Month() == month
	}), nil
}
func (v *txView) TransactionsBySeries(_ context.Context, id ledger.SeriesID) ([]ledger.Transaction, error) {
	return v.m.transactionsBySeries(id)
}
func (v *txView) TransactionsByAccount(_ context.Context, id ledger.AccountID) ([]ledger.Transaction, error) {
	return v.m.transactionsByAccount(id)
}
func (v *txView) TransactionsByCard(_ context.Context, id ledger.CardID, from, to time.Time) ([]ledger.Transaction, error) {
	return v.m.transactionsByCard(id, from, to)
}
func (v *txView) TransactionsByGoal(_ context.Context, id ledger.GoalID) ([]ledger.Transaction, error) {
	return v.m.transactionsByGoal(id)
}

func (v *txView) InsertCard(_ context.Context, c *ledger.CreditCard) error { return v.m.insertCard(c) }
func (v *txView) GetCard(_ context.Context, id ledger.CardID) (*ledger.CreditCard, error) {
	return v.m.getCard(id)
}
func (v *txView) ListCards(ctx context.Context, userID ledger.UserID) ([]ledger.CreditCard, error) {
	var out []ledger.CreditCard
	for _, c := range v.m.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
func (v *txView) UpdateCard(_ context.Context, c *ledger.CreditCard) error { return v.m.updateCard(c) }
func (v *txView) DeleteCard(_ context.Context, id ledger.CardID) error {
	delete(v.m.cards, id)
	return nil
}

func (v *txView) InsertBill(_ context.Context, b *ledger.CreditCardBill) error {
	return v.m.insertBill(b)
}
func (v *txView) GetBill(_ context.Context, id ledger.BillID) (*ledger.CreditCardBill, error) {
	return v.m.getBill(id)
}
func (v *txView) FindBill(_ context.Context, cardID ledger.CardID, year int, month time.Month) (*ledger.CreditCardBill, error) {
	return v.m.findBill(cardID, year, month)
}
func (v *txView) BillsByCard(_ context.Context, cardID ledger.CardID) ([]ledger.CreditCardBill, error) {
	return v.m.billsByCard(cardID)
}
func (v *txView) UpdateBill(_ context.Context, b *ledger.CreditCardBill) error {
	return v.m.updateBill(b)
}
func (v *txView) DeleteBill(_ context.Context, id ledger.BillID) error {
	delete(v.m.bills, id)
	return nil
}

func (v *txView) InsertGoal(_ context.Context, g *ledger.Goal) error { return v.m.insertGoal(g) }
func (v *txView) GetGoal(_ context.Context, id ledger.GoalID) (*ledger.Goal, error) {
	return v.m.getGoal(id)
}
func (v *txView) ListGoals(_ context.Context, userID ledger.UserID, activeOnly bool) ([]ledger.Goal, error) {
	return v.m.listGoals(userID, activeOnly)
}
func (v *txView) UpdateGoal(_ context.Context, g *ledger.Goal) error { return v.m.updateGoal(g) }
func (v *txView) DeleteGoal(_ context.Context, id ledger.GoalID) error {
	delete(v.m.goals, id)
	return nil
}
func (v *txView) SetPrimaryGoal(_ context.Context, userID ledger.UserID, id ledger.GoalID) error {
	return v.m.setPrimaryGoal(userID, id)
}

func (v *txView) InsertCategory(_ context.Context, c *ledger.Category) error {
	return v.m.insertCategory(c)
}
func (v *txView) ListCategories(_ context.Context, userID ledger.UserID) ([]ledger.Category, error) {
	var out []ledger.Category
	for _, c := range v.m.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
func (v *txView) UpdateCategory(_ context.Context, c *ledger.Category) error {
	if _, ok := v.m.categories[c.ID]; !ok {
		return errors.New("category does not exist")
	}
	v.m.categories[c.ID] = *c
	return nil
}
