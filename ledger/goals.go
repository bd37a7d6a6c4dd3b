/*
goals.go - Goal progress ledger

PURPOSE:
  Keeps a goal's CurrentAmount synchronized with its contribution
  transactions. A contribution is an expense transaction tagged with the
  goal's id, funded from an account: creating one moves money out of the
  account and into the goal's progress; deleting one reverses both.

RULES:
  - CurrentAmount never goes below zero, even if removals exceed recorded
    contributions
  - CompletedAt is stamped the first time CurrentAmount reaches
    TargetAmount and is never cleared
  - Removing progress from an already-deleted goal is a no-op
  - At most one active goal is primary; the swap is a single store-level
    transition, not two sequential writes

CASCADE:
  Deleting a goal deletes its contribution transactions (restoring account
  balances), then the goal document, then promotes a sole surviving active
  goal to primary.

SEE ALSO:
  - lifecycle.go: calls the progress functions for goal-tagged transactions
  - store.go: GoalStore.SetPrimaryGoal, the atomic swap
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GOAL CRUD
// =============================================================================

// CreateGoal validates and persists a goal. The first active goal a user
// creates becomes primary automatically.
func (l *Ledger) CreateGoal(ctx context.Context, g Goal) (*Goal, error) {
	if g.Name == "" {
		return nil, validationErr("name", "must not be empty")
	}
	if !g.TargetAmount.IsPositive() {
		return nil, validationErr("targetAmount", "must be positive")
	}
	g.IsActive = true
	g.CurrentAmount = decimal.Zero
	if g.CreatedAt.IsZero() {
		g.CreatedAt = l.now().UTC()
	}

	existing, err := l.store.ListGoals(ctx, g.UserID, true)
	if err != nil {
		return nil, storeErr("list goals", err)
	}
	if len(existing) == 0 {
		g.IsPrimary = true
	}

	if err := l.store.InsertGoal(ctx, &g); err != nil {
		return nil, storeErr("insert goal", err)
	}
	return &g, nil
}

// SetPrimaryGoal makes the goal the user's single primary goal. The store
// performs the unset-all/set-one swap as one transition.
func (l *Ledger) SetPrimaryGoal(ctx context.Context, userID UserID, id GoalID) error {
	g, err := l.store.GetGoal(ctx, id)
	if err != nil {
		return storeErr("get goal", err)
	}
	if g == nil {
		return notFoundErr("goal", string(id))
	}
	if g.UserID != userID {
		return notFoundErr("goal", string(id))
	}
	if !g.IsActive {
		return validationErr("goal", "cannot make an inactive goal primary")
	}
	if err := l.store.SetPrimaryGoal(ctx, userID, id); err != nil {
		return storeErr("set primary goal", err)
	}
	return nil
}

// ContributeToGoal records a contribution: an expense of the given amount
// from the funding account, tagged with the goal. The account balance
// drops and the goal progress rises by the same amount.
func (l *Ledger) ContributeToGoal(ctx context.Context, goalID GoalID, accountID AccountID, amount decimal.Decimal, date time.Time) (*Transaction, error) {
	g, err := l.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, storeErr("get goal", err)
	}
	if g == nil {
		return nil, notFoundErr("goal", string(goalID))
	}

	return l.CreateTransaction(ctx, Transaction{
		UserID:      g.UserID,
		Type:        TxExpense,
		Amount:      amount,
		Description: "Contribution: " + g.Name,
		Date:        date,
		Status:      StatusCompleted,
		AccountID:   accountID,
		GoalID:      goalID,
	})
}

// DeleteGoal cascades: contributions are deleted first (restoring account
// balances), then the goal document. If exactly one active goal survives
// and it is not primary, it is promoted.
func (l *Ledger) DeleteGoal(ctx context.Context, id GoalID, progress ProgressFunc) error {
	g, err := l.store.GetGoal(ctx, id)
	if err != nil {
		return storeErr("get goal", err)
	}
	if g == nil {
		return notFoundErr("goal", string(id))
	}

	if _, err := l.DeleteByGoal(ctx, id, progress); err != nil {
		return err
	}
	if err := l.store.DeleteGoal(ctx, id); err != nil {
		return storeErr("delete goal", err)
	}

	remaining, err := l.store.ListGoals(ctx, g.UserID, true)
	if err != nil {
		return storeErr("list goals", err)
	}
	if len(remaining) == 1 && !remaining[0].IsPrimary {
		if err := l.store.SetPrimaryGoal(ctx, g.UserID, remaining[0].ID); err != nil {
			return storeErr("set primary goal", err)
		}
	}
	return nil
}

// =============================================================================
// PROGRESS FUNCTIONS
// =============================================================================

// AddToGoalProgress increments the goal's accumulated amount, stamping
// CompletedAt the first time the target is reached.
func (l *Ledger) AddToGoalProgress(ctx context.Context, id GoalID, amount decimal.Decimal) error {
	return inTx(ctx, l.store, func(s DocumentStore) error {
		return addToGoalProgress(ctx, s, id, amount, l.now)
	})
}

// RemoveFromGoalProgress decrements the goal's accumulated amount, floored
// at zero. A missing goal is a no-op: the goal may have been deleted while
// its contributions were still being cleaned up.
func (l *Ledger) RemoveFromGoalProgress(ctx context.Context, id GoalID, amount decimal.Decimal) error {
	return inTx(ctx, l.store, func(s DocumentStore) error {
		return removeFromGoalProgress(ctx, s, id, amount)
	})
}

// SetGoalProgress overwrites the accumulated amount, with the same
// completion-stamping rule as an increment.
func (l *Ledger) SetGoalProgress(ctx context.Context, id GoalID, amount decimal.Decimal) error {
	return inTx(ctx, l.store, func(s DocumentStore) error {
		g, err := s.GetGoal(ctx, id)
		if err != nil {
			return storeErr("get goal", err)
		}
		if g == nil {
			return notFoundErr("goal", string(id))
		}
		g.CurrentAmount = amount
		stampIfComplete(g, l.now)
		if err := s.UpdateGoal(ctx, g); err != nil {
			return storeErr("update goal", err)
		}
		return nil
	})
}

func addToGoalProgress(ctx context.Context, s DocumentStore, id GoalID, amount decimal.Decimal, now func() time.Time) error {
	g, err := s.GetGoal(ctx, id)
	if err != nil {
		return storeErr("get goal", err)
	}
	if g == nil {
		return notFoundErr("goal", string(id))
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	stampIfComplete(g, now)
	if err := s.UpdateGoal(ctx, g); err != nil {
		return storeErr("update goal", err)
	}
	return nil
}

func removeFromGoalProgress(ctx context.Context, s DocumentStore, id GoalID, amount decimal.Decimal) error {
	g, err := s.GetGoal(ctx, id)
	if err != nil {
		return storeErr("get goal", err)
	}
	if g == nil {
		return nil
	}
	g.CurrentAmount = g.CurrentAmount.Sub(amount)
	if g.CurrentAmount.IsNegative() {
		g.CurrentAmount = decimal.Zero
	}
	// CompletedAt stays: completion is one-way.
	if err := s.UpdateGoal(ctx, g); err != nil {
		return storeErr("update goal", err)
	}
	return nil
}

func stampIfComplete(g *Goal, now func() time.Time) {
	if g.CompletedAt == nil && g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		at := now().UTC()
		g.CompletedAt = &at
	}
}
