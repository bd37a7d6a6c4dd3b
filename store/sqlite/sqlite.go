/*
Package sqlite provides a SQLite-backed implementation of the ledger's
document-store contract.

PURPOSE:
  Implements ledger.DocumentStore and ledger.TxStore over SQLite. The
  same patterns apply to PostgreSQL (see store/postgres); only SQL
  dialect details differ.

SCHEMA:
  One table per collection: accounts, transactions, credit_cards,
  credit_card_bills, goals, categories. Monetary columns are TEXT
  holding decimal strings so amounts round-trip exactly; date columns
  are fixed-width UTC timestamps so lexical order is time order.

TRANSACTIONS:
  WithTx wraps a ledger operation in a single SQL transaction. All
  read/write logic lives in unexported functions parameterized over the
  executor: public methods take the store mutex and run against the
  pool, the transactional view runs against its sql.Tx under the lock
  WithTx already holds.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/cofrin.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  led := ledger.New(st)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/thiagodosanjos/cofrin-core/ledger"
)

// timeLayout is fixed-width so string comparison in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a second pooled connection would also see
	// a separate database entirely when dbPath is ":memory:".
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		balance TEXT NOT NULL,
		initial_balance TEXT NOT NULL,
		include_in_total INTEGER NOT NULL DEFAULT 1,
		is_archived INTEGER NOT NULL DEFAULT 0,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		account_id TEXT NOT NULL DEFAULT '',
		to_account_id TEXT NOT NULL DEFAULT '',
		credit_card_id TEXT NOT NULL DEFAULT '',
		credit_card_bill_id TEXT NOT NULL DEFAULT '',
		goal_id TEXT NOT NULL DEFAULT '',
		category_id TEXT NOT NULL DEFAULT '',
		series_id TEXT NOT NULL DEFAULT '',
		recur_kind TEXT NOT NULL DEFAULT '',
		recur_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id) WHERE account_id != '';
	CREATE INDEX IF NOT EXISTS idx_transactions_to_account ON transactions(to_account_id) WHERE to_account_id != '';
	CREATE INDEX IF NOT EXISTS idx_transactions_card_date ON transactions(credit_card_id, date) WHERE credit_card_id != '';
	CREATE INDEX IF NOT EXISTS idx_transactions_series ON transactions(series_id) WHERE series_id != '';
	CREATE INDEX IF NOT EXISTS idx_transactions_goal ON transactions(goal_id) WHERE goal_id != '';

	CREATE TABLE IF NOT EXISTS credit_cards (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		closing_day INTEGER NOT NULL,
		due_day INTEGER NOT NULL,
		credit_limit TEXT NOT NULL,
		is_archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_credit_cards_user ON credit_cards(user_id);

	CREATE TABLE IF NOT EXISTS credit_card_bills (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		card_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		total_amount TEXT NOT NULL,
		is_paid INTEGER NOT NULL DEFAULT 0,
		paid_from_account_id TEXT NOT NULL DEFAULT '',
		payment_transaction_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(card_id, year, month)
	);
	CREATE INDEX IF NOT EXISTS idx_bills_card ON credit_card_bills(card_id);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		current_amount TEXT NOT NULL,
		target_date TEXT NOT NULL DEFAULT '',
		is_primary INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_user_active ON goals(user_id, is_active);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountColumns = `id, user_id, name, type, balance, initial_balance,
	include_in_total, is_archived, is_default, created_at`

func (s *Store) InsertAccount(ctx context.Context, a *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAccount(ctx, s.db, a)
}

func insertAccount(ctx context.Context, db dbtx, a *ledger.Account) error {
	if a.ID == "" {
		a.ID = ledger.AccountID(ledger.NewDocumentID())
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Type,
		a.Balance.String(), a.InitialBalance.String(),
		a.IncludeInTotal, a.IsArchived, a.IsDefault,
		formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, db dbtx, id ledger.AccountID) (*ledger.Account, error) {
	row := db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID ledger.UserID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAccounts(ctx, s.db, userID)
}

func listAccounts(ctx context.Context, db dbtx, userID ledger.UserID) ([]ledger.Account, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, a *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateAccount(ctx, s.db, a)
}

func updateAccount(ctx context.Context, db dbtx, a *ledger.Account) error {
	res, err := db.ExecContext(ctx, `
		UPDATE accounts SET
			name = ?, type = ?, balance = ?, initial_balance = ?,
			include_in_total = ?, is_archived = ?, is_default = ?
		WHERE id = ?`,
		a.Name, a.Type, a.Balance.String(), a.InitialBalance.String(),
		a.IncludeInTotal, a.IsArchived, a.IsDefault, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(res, "account")
}

func (s *Store) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAccount(ctx, s.db, id)
}

func deleteAccount(ctx context.Context, db dbtx, id ledger.AccountID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return err
}

func scanAccount(row rowScanner) (*ledger.Account, error) {
	var (
		a                ledger.Account
		balance, initial string
		createdAt        string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &balance, &initial,
		&a.IncludeInTotal, &a.IsArchived, &a.IsDefault, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Balance = parseDecimal(balance)
	a.InitialBalance = parseDecimal(initial)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, user_id, type, amount, description, date, status,
	account_id, to_account_id, credit_card_id, credit_card_bill_id,
	goal_id, category_id, series_id, recur_kind, recur_count, created_at`

const transactionOrder = ` ORDER BY date ASC, created_at ASC`

func (s *Store) InsertTransaction(ctx context.Context, t *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransaction(ctx, s.db, t)
}

func insertTransaction(ctx context.Context, db dbtx, t *ledger.Transaction) error {
	if t.ID == "" {
		t.ID = ledger.TransactionID(ledger.NewDocumentID())
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Type, t.Amount.String(), t.Description,
		formatTime(t.Date), t.Status,
		t.AccountID, t.ToAccountID, t.CreditCardID, t.CreditCardBillID,
		t.GoalID, t.CategoryID, t.SeriesID,
		string(t.Recurrence.Kind), t.Recurrence.Count,
		formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, db dbtx, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTransaction(ctx, s.db, t)
}

func updateTransaction(ctx context.Context, db dbtx, t *ledger.Transaction) error {
	res, err := db.ExecContext(ctx, `
		UPDATE transactions SET
			type = ?, amount = ?, description = ?, date = ?, status = ?,
			account_id = ?, to_account_id = ?, credit_card_id = ?, credit_card_bill_id = ?,
			goal_id = ?, category_id = ?, series_id = ?, recur_kind = ?, recur_count = ?
		WHERE id = ?`,
		t.Type, t.Amount.String(), t.Description, formatTime(t.Date), t.Status,
		t.AccountID, t.ToAccountID, t.CreditCardID, t.CreditCardBillID,
		t.GoalID, t.CategoryID, t.SeriesID,
		string(t.Recurrence.Kind), t.Recurrence.Count,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(res, "transaction")
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, id)
}

func deleteTransaction(ctx context.Context, db dbtx, id ledger.TransactionID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

func (s *Store) TransactionsByMonth(ctx context.Context, userID ledger.UserID, year int, month time.Month) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsByMonth(ctx, s.db, userID, year, month)
}

func transactionsByMonth(ctx context.Context, db dbtx, userID ledger.UserID, year int, month time.Month) ([]ledger.Transaction, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return queryTransactions(ctx, db,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ?`+transactionOrder,
		userID, formatTime(from), formatTime(to))
}

func (s *Store) TransactionsBySeries(ctx context.Context, id ledger.SeriesID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsBySeries(ctx, s.db, id)
}

func transactionsBySeries(ctx context.Context, db dbtx, id ledger.SeriesID) ([]ledger.Transaction, error) {
	return queryTransactions(ctx, db,
		`SELECT `+transactionColumns+` FROM transactions WHERE series_id = ?`+transactionOrder, id)
}

func (s *Store) TransactionsByAccount(ctx context.Context, id ledger.AccountID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsByAccount(ctx, s.db, id)
}

func transactionsByAccount(ctx context.Context, db dbtx, id ledger.AccountID) ([]ledger.Transaction, error) {
	return queryTransactions(ctx, db,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ? OR to_account_id = ?`+transactionOrder, id, id)
}

func (s *Store) TransactionsByCard(ctx context.Context, id ledger.CardID, from, to time.Time) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsByCard(ctx, s.db, id, from, to)
}

func transactionsByCard(ctx context.Context, db dbtx, id ledger.CardID, from, to time.Time) ([]ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE credit_card_id = ?`
	args := []any{id}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatTime(to))
	}
	return queryTransactions(ctx, db, query+transactionOrder, args...)
}

func (s *Store) TransactionsByGoal(ctx context.Context, id ledger.GoalID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsByGoal(ctx, s.db, id)
}

func transactionsByGoal(ctx context.Context, db dbtx, id ledger.GoalID) ([]ledger.Transaction, error) {
	return queryTransactions(ctx, db,
		`SELECT `+transactionColumns+` FROM transactions WHERE goal_id = ?`+transactionOrder, id)
}

func queryTransactions(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (*ledger.Transaction, error) {
	var (
		t               ledger.Transaction
		amount          string
		description     sql.NullString
		date, createdAt string
		recurKind       string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &amount, &description, &date, &t.Status,
		&t.AccountID, &t.ToAccountID, &t.CreditCardID, &t.CreditCardBillID,
		&t.GoalID, &t.CategoryID, &t.SeriesID, &recurKind, &t.Recurrence.Count, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Amount = parseDecimal(amount)
	t.Description = description.String
	t.Date = parseTime(date)
	t.CreatedAt = parseTime(createdAt)
	t.Recurrence.Kind = ledger.RecurrenceKind(recurKind)
	return &t, nil
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

const cardColumns = `id, user_id, name, closing_day, due_day, credit_limit, is_archived, created_at`

func (s *Store) InsertCard(ctx context.Context, c *ledger.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCard(ctx, s.db, c)
}

func insertCard(ctx context.Context, db dbtx, c *ledger.CreditCard) error {
	if c.ID == "" {
		c.ID = ledger.CardID(ledger.NewDocumentID())
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO credit_cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.ClosingDay, c.DueDay,
		c.Limit.String(), c.IsArchived, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, id ledger.CardID) (*ledger.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCard(ctx, s.db, id)
}

func getCard(ctx context.Context, db dbtx, id ledger.CardID) (*ledger.CreditCard, error) {
	row := db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM credit_cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListCards(ctx context.Context, userID ledger.UserID) ([]ledger.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCards(ctx, s.db, userID)
}

func listCards(ctx context.Context, db dbtx, userID ledger.UserID) ([]ledger.CreditCard, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var out []ledger.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCard(ctx context.Context, c *ledger.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCard(ctx, s.db, c)
}

func updateCard(ctx context.Context, db dbtx, c *ledger.CreditCard) error {
	res, err := db.ExecContext(ctx, `
		UPDATE credit_cards SET
			name = ?, closing_day = ?, due_day = ?, credit_limit = ?, is_archived = ?
		WHERE id = ?`,
		c.Name, c.ClosingDay, c.DueDay, c.Limit.String(), c.IsArchived, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return requireRow(res, "card")
}

func (s *Store) DeleteCard(ctx context.Context, id ledger.CardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteCard(ctx, s.db, id)
}

func deleteCard(ctx context.Context, db dbtx, id ledger.CardID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ?`, id)
	return err
}

func scanCard(row rowScanner) (*ledger.CreditCard, error) {
	var (
		c                ledger.CreditCard
		limit, createdAt string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.ClosingDay, &c.DueDay,
		&limit, &c.IsArchived, &createdAt)
	if err != nil {
		return nil, err
	}
	c.Limit = parseDecimal(limit)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// =============================================================================
// BILLS
// =============================================================================

const billColumns = `id, user_id, card_id, month, year, total_amount, is_paid,
	paid_from_account_id, payment_transaction_id, created_at`

func (s *Store) InsertBill(ctx context.Context, b *ledger.CreditCardBill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertBill(ctx, s.db, b)
}

func insertBill(ctx context.Context, db dbtx, b *ledger.CreditCardBill) error {
	if b.ID == "" {
		b.ID = ledger.BillID(ledger.NewDocumentID())
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO credit_card_bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.CardID, int(b.Month), b.Year,
		b.TotalAmount.String(), b.IsPaid,
		b.PaidFromAccountID, b.PaymentTransactionID,
		formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	return nil
}

func (s *Store) GetBill(ctx context.Context, id ledger.BillID) (*ledger.CreditCardBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBill(ctx, s.db, id)
}

func getBill(ctx context.Context, db dbtx, id ledger.BillID) (*ledger.CreditCardBill, error) {
	row := db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM credit_card_bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) FindBill(ctx context.Context, cardID ledger.CardID, year int, month time.Month) (*ledger.CreditCardBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findBill(ctx, s.db, cardID, year, month)
}

func findBill(ctx context.Context, db dbtx, cardID ledger.CardID, year int, month time.Month) (*ledger.CreditCardBill, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM credit_card_bills WHERE card_id = ? AND year = ? AND month = ?`,
		cardID, year, int(month))
	b, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) BillsByCard(ctx context.Context, cardID ledger.CardID) ([]ledger.CreditCardBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return billsByCard(ctx, s.db, cardID)
}

func billsByCard(ctx context.Context, db dbtx, cardID ledger.CardID) ([]ledger.CreditCardBill, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM credit_card_bills WHERE card_id = ? ORDER BY year ASC, month ASC`,
		cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var out []ledger.CreditCardBill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBill(ctx context.Context, b *ledger.CreditCardBill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBill(ctx, s.db, b)
}

func updateBill(ctx context.Context, db dbtx, b *ledger.CreditCardBill) error {
	res, err := db.ExecContext(ctx, `
		UPDATE credit_card_bills SET
			total_amount = ?, is_paid = ?, paid_from_account_id = ?, payment_transaction_id = ?
		WHERE id = ?`,
		b.TotalAmount.String(), b.IsPaid, b.PaidFromAccountID, b.PaymentTransactionID, b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return requireRow(res, "bill")
}

func (s *Store) DeleteBill(ctx context.Context, id ledger.BillID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteBill(ctx, s.db, id)
}

func deleteBill(ctx context.Context, db dbtx, id ledger.BillID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM credit_card_bills WHERE id = ?`, id)
	return err
}

func scanBill(row rowScanner) (*ledger.CreditCardBill, error) {
	var (
		b                ledger.CreditCardBill
		month            int
		total, createdAt string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.CardID, &month, &b.Year, &total, &b.IsPaid,
		&b.PaidFromAccountID, &b.PaymentTransactionID, &createdAt)
	if err != nil {
		return nil, err
	}
	b.Month = time.Month(month)
	b.TotalAmount = parseDecimal(total)
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

// =============================================================================
// GOALS
// =============================================================================

const goalColumns = `id, user_id, name, target_amount, current_amount, target_date,
	is_primary, is_active, completed_at, created_at`

func (s *Store) InsertGoal(ctx context.Context, g *ledger.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertGoal(ctx, s.db, g)
}

func insertGoal(ctx context.Context, db dbtx, g *ledger.Goal) error {
	if g.ID == "" {
		g.ID = ledger.GoalID(ledger.NewDocumentID())
	}
	var completedAt any
	if g.CompletedAt != nil {
		completedAt = formatTime(*g.CompletedAt)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name,
		g.TargetAmount.String(), g.CurrentAmount.String(),
		formatTime(g.TargetDate), g.IsPrimary, g.IsActive,
		completedAt, formatTime(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

func (s *Store) GetGoal(ctx context.Context, id ledger.GoalID) (*ledger.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getGoal(ctx, s.db, id)
}

func getGoal(ctx context.Context, db dbtx, id ledger.GoalID) (*ledger.Goal, error) {
	row := db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, userID ledger.UserID, activeOnly bool) ([]ledger.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listGoals(ctx, s.db, userID, activeOnly)
}

func listGoals(ctx context.Context, db dbtx, userID ledger.UserID, activeOnly bool) ([]ledger.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var out []ledger.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGoal(ctx context.Context, g *ledger.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateGoal(ctx, s.db, g)
}

func updateGoal(ctx context.Context, db dbtx, g *ledger.Goal) error {
	var completedAt any
	if g.CompletedAt != nil {
		completedAt = formatTime(*g.CompletedAt)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE goals SET
			name = ?, target_amount = ?, current_amount = ?, target_date = ?,
			is_primary = ?, is_active = ?, completed_at = ?
		WHERE id = ?`,
		g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), formatTime(g.TargetDate),
		g.IsPrimary, g.IsActive, completedAt, g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return requireRow(res, "goal")
}

func (s *Store) DeleteGoal(ctx context.Context, id ledger.GoalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteGoal(ctx, s.db, id)
}

func deleteGoal(ctx context.Context, db dbtx, id ledger.GoalID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	return err
}

// SetPrimaryGoal performs the unset-all/set-one swap in a single SQL
// transaction so no reader observes zero or two primary goals.
func (s *Store) SetPrimaryGoal(ctx context.Context, userID ledger.UserID, id ledger.GoalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setPrimaryGoal(ctx, tx, userID, id); err != nil {
		return err
	}
	return tx.Commit()
}

func setPrimaryGoal(ctx context.Context, db dbtx, userID ledger.UserID, id ledger.GoalID) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE goals SET is_primary = 0 WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to unset primary goals: %w", err)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE goals SET is_primary = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to set primary goal: %w", err)
	}
	return requireRow(res, "goal")
}

func scanGoal(row rowScanner) (*ledger.Goal, error) {
	var (
		g                     ledger.Goal
		target, current       string
		targetDate, createdAt string
		completedAt           sql.NullString
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &targetDate,
		&g.IsPrimary, &g.IsActive, &completedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	g.TargetAmount = parseDecimal(target)
	g.CurrentAmount = parseDecimal(current)
	g.TargetDate = parseTime(targetDate)
	g.CreatedAt = parseTime(createdAt)
	if completedAt.Valid && completedAt.String != "" {
		at := parseTime(completedAt.String)
		g.CompletedAt = &at
	}
	return &g, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

const categoryColumns = `id, user_id, name, kind, is_active, created_at`

func (s *Store) InsertCategory(ctx context.Context, c *ledger.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCategory(ctx, s.db, c)
}

func insertCategory(ctx context.Context, db dbtx, c *ledger.Category) error {
	if c.ID == "" {
		c.ID = ledger.CategoryID(ledger.NewDocumentID())
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Kind, c.IsActive, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, userID ledger.UserID) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCategories(ctx, s.db, userID)
}

func listCategories(ctx context.Context, db dbtx, userID ledger.UserID) ([]ledger.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []ledger.Category
	for rows.Next() {
		var c ledger.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.IsActive, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, c *ledger.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCategory(ctx, s.db, c)
}

func updateCategory(ctx context.Context, db dbtx, c *ledger.Category) error {
	res, err := db.ExecContext(ctx,
		`UPDATE categories SET name = ?, kind = ?, is_active = ? WHERE id = ?`,
		c.Name, c.Kind, c.IsActive, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireRow(res, "category")
}

// =============================================================================
// TRANSACTIONAL VIEW (ledger.TxStore)
// =============================================================================

// WithTx executes fn within a single SQL transaction. The store mutex is
// held for the duration so the transactional view never touches it.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.DocumentStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore runs every operation against the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertAccount(ctx context.Context, a *ledger.Account) error {
	return insertAccount(ctx, ts.tx, a)
}
func (ts *txStore) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return getAccount(ctx, ts.tx, id)
}
func (ts *txStore) ListAccounts(ctx context.Context, userID ledger.UserID) ([]ledger.Account, error) {
	return listAccounts(ctx, ts.tx, userID)
}
func (ts *txStore) UpdateAccount(ctx context.Context, a *ledger.Account) error {
	return updateAccount(ctx, ts.tx, a)
}
func (ts *txStore) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	return deleteAccount(ctx, ts.tx, id)
}

func (ts *txStore) InsertTransaction(ctx context.Context, t *ledger.Transaction) error {
	return insertTransaction(ctx, ts.tx, t)
}
func (ts *txStore) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return getTransaction(ctx, ts.tx, id)
}
func (ts *txStore) UpdateTransaction(ctx context.Context, t *ledger.Transaction) error {
	return updateTransaction(ctx, ts.tx, t)
}
func (ts *txStore) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	return deleteTransaction(ctx, ts.tx, id)
}
func (ts *txStore) TransactionsByMonth(ctx context.Context, userID ledger.UserID, year int, month time.Month) ([]ledger.Transaction, error) {
	return transactionsByMonth(ctx, ts.tx, userID, year, month)
}
func (ts *txStore) TransactionsBySeries(ctx context.Context, id ledger.SeriesID) ([]ledger.Transaction, error) {
	return transactionsBySeries(ctx, ts.tx, id)
}
func (ts *txStore) TransactionsByAccount(ctx context.Context, id ledger.AccountID) ([]ledger.Transaction, error) {
	return transactionsByAccount(ctx, ts.tx, id)
}
func (ts *txStore) TransactionsByCard(ctx context.Context, id ledger.CardID, from, to time.Time) ([]ledger.Transaction, error) {
	return transactionsByCard(ctx, ts.tx, id, from, to)
}
func (ts *txStore) TransactionsByGoal(ctx context.Context, id ledger.GoalID) ([]ledger.Transaction, error) {
	return transactionsByGoal(ctx, ts.tx, id)
}

func (ts *txStore) InsertCard(ctx context.Context, c *ledger.CreditCard) error {
	return insertCard(ctx, ts.tx, c)
}
func (ts *txStore) GetCard(ctx context.Context, id ledger.CardID) (*ledger.CreditCard, error) {
	return getCard(ctx, ts.tx, id)
}
func (ts *txStore) ListCards(ctx context.Context, userID ledger.UserID) ([]ledger.CreditCard, error) {
	return listCards(ctx, ts.tx, userID)
}
func (ts *txStore) UpdateCard(ctx context.Context, c *ledger.CreditCard) error {
	return updateCard(ctx, ts.tx, c)
}
func (ts *txStore) DeleteCard(ctx context.Context, id ledger.CardID) error {
	return deleteCard(ctx, ts.tx, id)
}

func (ts *txStore) InsertBill(ctx context.Context, b *ledger.CreditCardBill) error {
	return insertBill(ctx, ts.tx, b)
}
func (ts *txStore) GetBill(ctx context.Context, id ledger.BillID) (*ledger.CreditCardBill, error) {
	return getBill(ctx, ts.tx, id)
}
func (ts *txStore) FindBill(ctx context.Context, cardID ledger.CardID, year int, month time.Month) (*ledger.CreditCardBill, error) {
	return findBill(ctx, ts.tx, cardID, year, month)
}
func (ts *txStore) BillsByCard(ctx context.Context, cardID ledger.CardID) ([]ledger.CreditCardBill, error) {
	return billsByCard(ctx, ts.tx, cardID)
}
func (ts *txStore) UpdateBill(ctx context.Context, b *ledger.CreditCardBill) error {
	return updateBill(ctx, ts.tx, b)
}
func (ts *txStore) DeleteBill(ctx context.Context, id ledger.BillID) error {
	return deleteBill(ctx, ts.tx, id)
}

func (ts *txStore) InsertGoal(ctx context.Context, g *ledger.Goal) error {
	return insertGoal(ctx, ts.tx, g)
}
func (ts *txStore) GetGoal(ctx context.Context, id ledger.GoalID) (*ledger.Goal, error) {
	return getGoal(ctx, ts.tx, id)
}
func (ts *txStore) ListGoals(ctx context.Context, userID ledger.UserID, activeOnly bool) ([]ledger.Goal, error) {
	return listGoals(ctx, ts.tx, userID, activeOnly)
}
func (ts *txStore) UpdateGoal(ctx context.Context, g *ledger.Goal) error {
	return updateGoal(ctx, ts.tx, g)
}
func (ts *txStore) DeleteGoal(ctx context.Context, id ledger.GoalID) error {
	return deleteGoal(ctx, ts.tx, id)
}
func (ts *txStore) SetPrimaryGoal(ctx context.Context, userID ledger.UserID, id ledger.GoalID) error {
	return setPrimaryGoal(ctx, ts.tx, userID, id)
}

func (ts *txStore) InsertCategory(ctx context.Context, c *ledger.Category) error {
	return insertCategory(ctx, ts.tx, c)
}
func (ts *txStore) ListCategories(ctx context.Context, userID ledger.UserID) ([]ledger.Category, error) {
	return listCategories(ctx, ts.tx, userID)
}
func (ts *txStore) UpdateCategory(ctx context.Context, c *ledger.Category) error {
	return updateCategory(ctx, ts.tx, c)
}

// requireRow converts a zero-row UPDATE into an error so a missing
// document surfaces instead of silently succeeding.
func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s does not exist", what)
	}
	return nil
}
