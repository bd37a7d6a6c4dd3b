/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

MONEY:
  Amounts travel as decimal strings ("150.00"), never as floats. The
  handlers parse them with shopspring/decimal so nothing is rounded on
  the way in or out.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (parseable amounts, parseable dates) happens in
  handlers; domain validation lives in the ledger. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these map to
*/
package api

import (
	"time"

	"github.com/thiagodosanjos/cofrin-core/ledger"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Balance        string `json:"balance"`
	InitialBalance string `json:"initial_balance"`
	IncludeInTotal bool   `json:"include_in_total"`
	IsArchived     bool   `json:"is_archived"`
	IsDefault      bool   `json:"is_default"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance"`
	IncludeInTotal *bool  `json:"include_in_total"`
}

// AdjustBalanceRequest sets an account's balance to a new value via a
// synthetic adjustment transaction.
type AdjustBalanceRequest struct {
	NewBalance string `json:"new_balance"`
}

// RecalcDTO reports the outcome of a balance recalculation.
type RecalcDTO struct {
	Balance string `json:"balance"`
	Drift   string `json:"drift"`
}

// TotalBalanceDTO is the aggregate balance across visible accounts.
type TotalBalanceDTO struct {
	Total string `json:"total"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a transaction in API responses.
type TransactionDTO struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	Description      string `json:"description,omitempty"`
	Date             string `json:"date"`
	Status           string `json:"status"`
	AccountID        string `json:"account_id,omitempty"`
	ToAccountID      string `json:"to_account_id,omitempty"`
	CreditCardID     string `json:"credit_card_id,omitempty"`
	CreditCardBillID string `json:"credit_card_bill_id,omitempty"`
	GoalID           string `json:"goal_id,omitempty"`
	CategoryID       string `json:"category_id,omitempty"`
	SeriesID         string `json:"series_id,omitempty"`
	RecurrenceKind   string `json:"recurrence_kind,omitempty"`
	RecurrenceCount  int    `json:"recurrence_count,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// CreateTransactionRequest is the request to create a transaction or a
// recurring series.
type CreateTransactionRequest struct {
	UserID          string `json:"user_id"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Status          string `json:"status"`
	AccountID       string `json:"account_id"`
	ToAccountID     string `json:"to_account_id"`
	CreditCardID    string `json:"credit_card_id"`
	GoalID          string `json:"goal_id"`
	CategoryID      string `json:"category_id"`
	RecurrenceKind  string `json:"recurrence_kind"`
	RecurrenceCount int    `json:"recurrence_count"`
}

// UpdateTransactionRequest carries a partial update; absent fields are
// left untouched.
type UpdateTransactionRequest struct {
	Amount      *string `json:"amount"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Status      *string `json:"status"`
	CategoryID  *string `json:"category_id"`
	AccountID   *string `json:"account_id"`
	ToAccountID *string `json:"to_account_id"`
}

// DeleteResultDTO reports how many transactions a bulk delete removed.
type DeleteResultDTO struct {
	Deleted int `json:"deleted"`
}

// =============================================================================
// CARDS & BILLS
// =============================================================================

// CardDTO represents a credit card in API responses.
type CardDTO struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	ClosingDay int    `json:"closing_day"`
	DueDay     int    `json:"due_day"`
	Limit      string `json:"limit"`
	IsArchived bool   `json:"is_archived"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// CreateCardRequest is the request to create a credit card.
type CreateCardRequest struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	ClosingDay int    `json:"closing_day"`
	DueDay     int    `json:"due_day"`
	Limit      string `json:"limit"`
}

// BillDTO is one billing cycle: the recomputed charge total plus paid
// state, with charges grouped by day.
type BillDTO struct {
	BillID               string          `json:"bill_id,omitempty"`
	CardID               string          `json:"card_id"`
	Month                int             `json:"month"`
	Year                 int             `json:"year"`
	CycleStart           string          `json:"cycle_start"`
	CycleEnd             string          `json:"cycle_end"`
	TotalAmount          string          `json:"total_amount"`
	IsPaid               bool            `json:"is_paid"`
	PaidFromAccountID    string          `json:"paid_from_account_id,omitempty"`
	PaymentTransactionID string          `json:"payment_transaction_id,omitempty"`
	Days                 []DayChargesDTO `json:"days"`
}

// DayChargesDTO groups a cycle's charges by calendar day.
type DayChargesDTO struct {
	Date         string           `json:"date"`
	Transactions []TransactionDTO `json:"transactions"`
}

// PayBillRequest names the account the bill is paid from.
type PayBillRequest struct {
	AccountID string `json:"account_id"`
}

// =============================================================================
// GOALS
// =============================================================================

// GoalDTO represents a savings goal in API responses.
type GoalDTO struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	TargetAmount  string `json:"target_amount"`
	CurrentAmount string `json:"current_amount"`
	TargetDate    string `json:"target_date,omitempty"`
	IsPrimary     bool   `json:"is_primary"`
	IsActive      bool   `json:"is_active"`
	CompletedAt   string `json:"completed_at,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// CreateGoalRequest is the request to create a goal.
type CreateGoalRequest struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	TargetAmount string `json:"target_amount"`
	TargetDate   string `json:"target_date"`
}

// ContributeRequest moves money from an account into a goal.
type ContributeRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
}

// =============================================================================
// CATEGORIES
// =============================================================================

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	IsActive bool   `json:"is_active"`
}

// CreateCategoryRequest is the request to create a category.
type CreateCategoryRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the shape of all error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAccountDTO(a *ledger.Account) AccountDTO {
	return AccountDTO{
		ID:             string(a.ID),
		UserID:         string(a.UserID),
		Name:           a.Name,
		Type:           string(a.Type),
		Balance:        a.Balance.String(),
		InitialBalance: a.InitialBalance.String(),
		IncludeInTotal: a.IncludeInTotal,
		IsArchived:     a.IsArchived,
		IsDefault:      a.IsDefault,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTO(t *ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:               string(t.ID),
		UserID:           string(t.UserID),
		Type:             string(t.Type),
		Amount:           t.Amount.String(),
		Description:      t.Description,
		Date:             t.Date.Format(time.RFC3339),
		Status:           string(t.Status),
		AccountID:        string(t.AccountID),
		ToAccountID:      string(t.ToAccountID),
		CreditCardID:     string(t.CreditCardID),
		CreditCardBillID: string(t.CreditCardBillID),
		GoalID:           string(t.GoalID),
		CategoryID:       string(t.CategoryID),
		SeriesID:         string(t.SeriesID),
		CreatedAt:        t.CreatedAt.Format(time.RFC3339),
	}
	if t.Recurrence.Kind != "" && t.Recurrence.Kind != ledger.RecurNone {
		dto.RecurrenceKind = string(t.Recurrence.Kind)
		dto.RecurrenceCount = t.Recurrence.Count
	}
	return dto
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i := range txs {
		dtos[i] = toTransactionDTO(&txs[i])
	}
	return dtos
}

func toCardDTO(c *ledger.CreditCard) CardDTO {
	return CardDTO{
		ID:         string(c.ID),
		UserID:     string(c.UserID),
		Name:       c.Name,
		ClosingDay: c.ClosingDay,
		DueDay:     c.DueDay,
		Limit:      c.Limit.String(),
		IsArchived: c.IsArchived,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
}

func toBillDTO(v *ledger.BillView) BillDTO {
	dto := BillDTO{
		BillID:               string(v.BillID),
		CardID:               string(v.CardID),
		Month:                int(v.Month),
		Year:                 v.Year,
		CycleStart:           v.CycleStart.Format(time.RFC3339),
		CycleEnd:             v.CycleEnd.Format(time.RFC3339),
		TotalAmount:          v.TotalAmount.String(),
		IsPaid:               v.IsPaid,
		PaidFromAccountID:    string(v.PaidFromAccountID),
		PaymentTransactionID: string(v.PaymentTransactionID),
		Days:                 make([]DayChargesDTO, len(v.Days)),
	}
	for i, d := range v.Days {
		dto.Days[i] = DayChargesDTO{
			Date:         d.Date.Format("2006-01-02"),
			Transactions: toTransactionDTOs(d.Transactions),
		}
	}
	return dto
}

func toGoalDTO(g *ledger.Goal) GoalDTO {
	dto := GoalDTO{
		ID:            string(g.ID),
		UserID:        string(g.UserID),
		Name:          g.Name,
		TargetAmount:  g.TargetAmount.String(),
		CurrentAmount: g.CurrentAmount.String(),
		IsPrimary:     g.IsPrimary,
		IsActive:      g.IsActive,
		CreatedAt:     g.CreatedAt.Format(time.RFC3339),
	}
	if !g.TargetDate.IsZero() {
		dto.TargetDate = g.TargetDate.Format("2006-01-02")
	}
	if g.CompletedAt != nil {
		dto.CompletedAt = g.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

func toCategoryDTO(c *ledger.Category) CategoryDTO {
	return CategoryDTO{
		ID:       string(c.ID),
		UserID:   string(c.UserID),
		Name:     c.Name,
		Kind:     string(c.Kind),
		IsActive: c.IsActive,
	}
}
