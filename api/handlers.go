/*
handlers.go - HTTP API handlers for the ledger service

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response, JSON
  serialization, and delegates every balance-touching decision to the
  ledger package.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                  List accounts (?user_id=)
    POST   /api/accounts                  Create account
    GET    /api/accounts/total            Aggregate balance (?user_id=)
    GET    /api/accounts/{id}             Get account
    DELETE /api/accounts/{id}             Hard delete (non-cascading)
    POST   /api/accounts/{id}/archive     Archive account
    POST   /api/accounts/{id}/recalculate Re-derive balance, report drift
    POST   /api/accounts/{id}/reset       Delete account history, zero it
    POST   /api/accounts/{id}/adjust      Balance adjustment transaction

  Transactions:
    GET    /api/transactions              List by month (?user_id=&year=&month=)
    POST   /api/transactions              Create (expands recurring series)
    GET    /api/transactions/{id}         Get transaction
    PUT    /api/transactions/{id}         Partial update
    DELETE /api/transactions/{id}         Delete, reversing its effects
    DELETE /api/transactions/series/{id}  Delete a whole series

  Cards & bills:
    GET    /api/cards                     List cards (?user_id=)
    POST   /api/cards                     Create card
    POST   /api/cards/{id}/archive        Archive card
    DELETE /api/cards/{id}                Delete card, charges and bills
    GET    /api/cards/{id}/bills/{year}/{month}      Bill view for a cycle
    POST   /api/cards/{id}/bills/{year}/{month}/pay  Pay the cycle's bill
    POST   /api/bills/{id}/unpay          Revert a payment

  Goals:
    GET    /api/goals                     List goals (?user_id=&active=)
    POST   /api/goals                     Create goal
    GET    /api/goals/{id}                Get goal
    DELETE /api/goals/{id}                Delete goal and contributions
    POST   /api/goals/{id}/primary        Make this the primary goal
    POST   /api/goals/{id}/contribute     Contribute from an account

  Categories:
    GET    /api/categories                List categories (?user_id=)
    POST   /api/categories                Create category
    POST   /api/categories/{id}/deactivate Hide from pickers

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (paid-cycle edits, double payment)
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware; the caller is trusted to supply user_id.
  Authentication is expected to terminate at a gateway in front of this
  service.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger: The domain logic all of this delegates to
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/thiagodosanjos/cofrin-core/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *ledger.Ledger
	Store  ledger.DocumentStore
	Log    zerolog.Logger
}

// NewHandler creates a new handler around the ledger and its store.
func NewHandler(l *ledger.Ledger, store ledger.DocumentStore, log zerolog.Logger) *Handler {
	return &Handler{Ledger: l, Store: store, Log: log}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts for a user.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(r.URL.Query().Get("user_id"))

	accounts, err := h.Store.ListAccounts(r.Context(), userID)
	if err != nil {
		h.writeLedgerError(w, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	initial, err := parseAmount(req.InitialBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid initial_balance", err)
		return
	}

	a := ledger.Account{
		UserID:         ledger.UserID(req.UserID),
		Name:           req.Name,
		Type:           ledger.AccountType(req.Type),
		InitialBalance: initial,
		IncludeInTotal: true,
	}
	if req.IncludeInTotal != nil {
		a.IncludeInTotal = *req.IncludeInTotal
	}

	created, err := h.Ledger.CreateAccount(r.Context(), a)
	if err != nil {
		h.writeLedgerError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(created))
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	a, err := h.Store.GetAccount(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get account", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// ArchiveAccount hides the account without touching its history.
func (h *Handler) ArchiveAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	if err := h.Ledger.ArchiveAccount(r.Context(), id); err != nil {
		h.writeLedgerError(w, "Failed to archive account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccount removes the account record. Transactions referencing it
// survive and simply stop affecting any balance.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	if err := h.Ledger.DeleteAccount(r.Context(), id); err != nil {
		h.writeLedgerError(w, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecalculateBalance re-derives the balance from the transaction history
// and reports the drift it repaired.
func (h *Handler) RecalculateBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	result, err := h.Ledger.RecalculateBalance(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to recalculate balance", err)
		return
	}
	writeJSON(w, http.StatusOK, RecalcDTO{
		Balance: result.Balance.String(),
		Drift:   result.Drift.String(),
	})
}

// ResetAccount deletes the account's transactions and zeroes it.
func (h *Handler) ResetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	deleted, err := h.Ledger.ResetAccount(r.Context(), id, h.progressLogger("reset account"))
	if err != nil {
		h.writeLedgerError(w, "Failed to reset account", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResultDTO{Deleted: deleted})
}

// AdjustBalance sets the balance to a new value via an adjustment
// transaction, keeping the history consistent.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	newBalance, err := parseAmount(req.NewBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new_balance", err)
		return
	}

	acc, err := h.Store.GetAccount(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get account", err)
		return
	}
	if acc == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}

	adj, err := h.Ledger.CreateBalanceAdjustment(r.Context(), id, acc.Balance, newBalance)
	if err != nil {
		h.writeLedgerError(w, "Failed to adjust balance", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(adj))
}

// TotalBalance sums the visible accounts.
func (h *Handler) TotalBalance(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(r.URL.Query().Get("user_id"))

	total, err := h.Ledger.TotalBalance(r.Context(), userID)
	if err != nil {
		h.writeLedgerError(w, "Failed to compute total balance", err)
		return
	}
	writeJSON(w, http.StatusOK, TotalBalanceDTO{Total: total.String()})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns a user's transactions for one month.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(r.URL.Query().Get("user_id"))
	year, errY := strconv.Atoi(r.URL.Query().Get("year"))
	month, errM := strconv.Atoi(r.URL.Query().Get("month"))
	if errY != nil || errM != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "year and month query parameters are required", nil)
		return
	}

	txs, err := h.Store.TransactionsByMonth(r.Context(), userID, year, time.Month(month))
	if err != nil {
		h.writeLedgerError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CreateTransaction creates a transaction; recurring inputs expand into
// a series and the first instance is returned.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	t := ledger.Transaction{
		UserID:       ledger.UserID(req.UserID),
		Type:         ledger.TransactionType(req.Type),
		Amount:       amount,
		Description:  req.Description,
		Date:         date,
		Status:       ledger.TransactionStatus(req.Status),
		AccountID:    ledger.AccountID(req.AccountID),
		ToAccountID:  ledger.AccountID(req.ToAccountID),
		CreditCardID: ledger.CardID(req.CreditCardID),
		GoalID:       ledger.GoalID(req.GoalID),
		CategoryID:   ledger.CategoryID(req.CategoryID),
	}
	if req.RecurrenceKind != "" {
		t.Recurrence = ledger.Recurrence{
			Kind:  ledger.RecurrenceKind(req.RecurrenceKind),
			Count: req.RecurrenceCount,
		}
	}

	created, err := h.Ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		h.writeLedgerError(w, "Failed to create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(created))
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	t, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get transaction", err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "Transaction not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

// UpdateTransaction applies a partial update, shifting balances by the
// difference between the old and new effects.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch, err := toPatch(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid patch", err)
		return
	}

	updated, err := h.Ledger.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		h.writeLedgerError(w, "Failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(updated))
}

// DeleteTransaction removes the transaction, reversing its balance and
// goal effects.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	if err := h.Ledger.DeleteTransaction(r.Context(), id); err != nil {
		h.writeLedgerError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSeries removes every instance of a recurring series.
func (h *Handler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	id := ledger.SeriesID(chi.URLParam(r, "id"))

	deleted, err := h.Ledger.DeleteSeries(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to delete series", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResultDTO{Deleted: deleted})
}

// =============================================================================
// CARD & BILL HANDLERS
// =============================================================================

// ListCards returns a user's credit cards.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(r.URL.Query().Get("user_id"))

	cards, err := h.Store.ListCards(r.Context(), userID)
	if err != nil {
		h.writeLedgerError(w, "Failed to list cards", err)
		return
	}

	dtos := make([]CardDTO, len(cards))
	for i := range cards {
		dtos[i] = toCardDTO(&cards[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCard creates a credit card.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	limit, err := parseAmount(req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	created, err := h.Ledger.CreateCard(r.Context(), ledger.CreditCard{
		UserID:     ledger.UserID(req.UserID),
		Name:       req.Name,
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
		Limit:      limit,
	})
	if err != nil {
		h.writeLedgerError(w, "Failed to create card", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardDTO(created))
}

// ArchiveCard hides the card without touching its history.
func (h *Handler) ArchiveCard(w http.ResponseWriter, r *http.Request) {
	id := ledger.CardID(chi.URLParam(r, "id"))

	if err := h.Ledger.ArchiveCard(r.Context(), id); err != nil {
		h.writeLedgerError(w, "Failed to archive card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCard removes the card, all its charges and its bills.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id := ledger.CardID(chi.URLParam(r, "id"))

	deleted, err := h.Ledger.DeleteCard(r.Context(), id, h.progressLogger("delete card"))
	if err != nil {
		h.writeLedgerError(w, "Failed to delete card", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResultDTO{Deleted: deleted})
}

// GetBill returns the bill view for one billing cycle.
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	cardID := ledger.CardID(chi.URLParam(r, "id"))
	userID := ledger.UserID(r.URL.Query().Get("user_id"))
	year, month, ok := parseCycle(w, r)
	if !ok {
		return
	}

	view, err := h.Ledger.BillDetails(r.Context(), userID, cardID, year, month)
	if err != nil {
		h.writeLedgerError(w, "Failed to get bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTO(view))
}

// PayBill pays the cycle's bill from an account.
func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	cardID := ledger.CardID(chi.URLParam(r, "id"))
	year, month, ok := parseCycle(w, r)
	if !ok {
		return
	}

	var req PayBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	bill, err := h.Ledger.PayBill(r.Context(), cardID, year, month, ledger.AccountID(req.AccountID))
	if err != nil {
		h.writeLedgerError(w, "Failed to pay bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTO(&ledger.BillView{
		BillID:               bill.ID,
		CardID:               bill.CardID,
		Month:                bill.Month,
		Year:                 bill.Year,
		TotalAmount:          bill.TotalAmount,
		IsPaid:               bill.IsPaid,
		PaidFromAccountID:    bill.PaidFromAccountID,
		PaymentTransactionID: bill.PaymentTransactionID,
	}))
}

// UnpayBill reverts a bill payment: the payment transaction is deleted
// and the cycle reopens.
func (h *Handler) UnpayBill(w http.ResponseWriter, r *http.Request) {
	id := ledger.BillID(chi.URLParam(r, "id"))

	if err := h.Ledger.UnpayBill(r.Context(), id); err != nil {
		h.writeLedgerError(w, "Failed to unpay bill", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GOAL HANDLERS
// =============================================================================

// ListGoals returns a user's goals. Pass active=true to filter.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(r.URL.Query().Get("user_id"))
	activeOnly := r.URL.Query().Get("active") == "true"

	goals, err := h.Store.ListGoals(r.Context(), userID, activeOnly)
	if err != nil {
		h.writeLedgerError(w, "Failed to list goals", err)
		return
	}

	dtos := make([]GoalDTO, len(goals))
	for i := range goals {
		dtos[i] = toGoalDTO(&goals[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGoal creates a savings goal.
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target_amount", err)
		return
	}
	g := ledger.Goal{
		UserID:       ledger.UserID(req.UserID),
		Name:         req.Name,
		TargetAmount: target,
	}
	if req.TargetDate != "" {
		g.TargetDate, err = parseDate(req.TargetDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid target_date", err)
			return
		}
	}

	created, err := h.Ledger.CreateGoal(r.Context(), g)
	if err != nil {
		h.writeLedgerError(w, "Failed to create goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(created))
}

// GetGoal returns a single goal.
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))

	g, err := h.Store.GetGoal(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get goal", err)
		return
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "Goal not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(g))
}

// SetPrimaryGoal makes the goal the user's primary one.
func (h *Handler) SetPrimaryGoal(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))
	userID := ledger.UserID(r.URL.Query().Get("user_id"))

	if err := h.Ledger.SetPrimaryGoal(r.Context(), userID, id); err != nil {
		h.writeLedgerError(w, "Failed to set primary goal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Contribute moves money from an account into the goal.
func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))

	var req ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
	}

	t, err := h.Ledger.ContributeToGoal(r.Context(), id, ledger.AccountID(req.AccountID), amount, date)
	if err != nil {
		h.writeLedgerError(w, "Failed to contribute to goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(t))
}

// DeleteGoal removes the goal and its contribution history, refunding
// the source accounts.
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))

	if err := h.Ledger.DeleteGoal(r.Context(), id, h.progressLogger("delete goal")); err != nil {
		h.writeLedgerError(w, "Failed to delete goal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns a user's categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(r.URL.Query().Get("user_id"))

	cats, err := h.Ledger.ListCategories(r.Context(), userID)
	if err != nil {
		h.writeLedgerError(w, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(cats))
	for i := range cats {
		dtos[i] = toCategoryDTO(&cats[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates a category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Ledger.CreateCategory(r.Context(), ledger.Category{
		UserID: ledger.UserID(req.UserID),
		Name:   req.Name,
		Kind:   ledger.CategoryKind(req.Kind),
	})
	if err != nil {
		h.writeLedgerError(w, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(created))
}

// DeactivateCategory hides the category from pickers. Transactions keep
// the reference.
func (h *Handler) DeactivateCategory(w http.ResponseWriter, r *http.Request) {
	id := ledger.CategoryID(chi.URLParam(r, "id"))
	userID := ledger.UserID(r.URL.Query().Get("user_id"))

	cats, err := h.Ledger.ListCategories(r.Context(), userID)
	if err != nil {
		h.writeLedgerError(w, "Failed to list categories", err)
		return
	}
	for _, c := range cats {
		if c.ID == id {
			if err := h.Ledger.DeactivateCategory(r.Context(), c); err != nil {
				h.writeLedgerError(w, "Failed to deactivate category", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Category not found", nil)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps ledger error classes onto HTTP statuses.
func (h *Handler) writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrBillPaid), errors.Is(err, ledger.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// progressLogger reports bulk-delete progress into the service log.
func (h *Handler) progressLogger(op string) ledger.ProgressFunc {
	return func(done, total int) {
		h.Log.Debug().Str("op", op).Int("done", done).Int("total", total).Msg("bulk delete progress")
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseDate accepts RFC3339 or plain YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func parseCycle(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, errY := strconv.Atoi(chi.URLParam(r, "year"))
	month, errM := strconv.Atoi(chi.URLParam(r, "month"))
	if errY != nil || errM != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid year/month in path", nil)
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func toPatch(req UpdateTransactionRequest) (ledger.TransactionPatch, error) {
	var patch ledger.TransactionPatch

	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return patch, err
		}
		patch.Amount = &amount
	}
	patch.Description = req.Description
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return patch, err
		}
		patch.Date = &date
	}
	if req.Status != nil {
		status := ledger.TransactionStatus(*req.Status)
		patch.Status = &status
	}
	if req.CategoryID != nil {
		id := ledger.CategoryID(*req.CategoryID)
		patch.CategoryID = &id
	}
	if req.AccountID != nil {
		id := ledger.AccountID(*req.AccountID)
		patch.AccountID = &id
	}
	if req.ToAccountID != nil {
		id := ledger.AccountID(*req.ToAccountID)
		patch.ToAccountID = &id
	}
	return patch, nil
}
