package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagodosanjos/cofrin-core/ledger"
	"github.com/thiagodosanjos/cofrin-core/ledger/store"
)

func newGoal(t *testing.T, l *ledger.Ledger, name, target string) *ledger.Goal {
	t.Helper()
	g, err := l.CreateGoal(context.Background(), ledger.Goal{
		UserID:       "user-1",
		Name:         name,
		TargetAmount: dec(target),
	})
	require.NoError(t, err)
	return g
}

func getGoal(t *testing.T, s *store.Memory, id ledger.GoalID) *ledger.Goal {
	t.Helper()
	g, err := s.GetGoal(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

// =============================================================================
// CRUD & PRIMARY FLAG
// =============================================================================

func TestCreateGoal_FirstActiveGoalBecomesPrimary(t *testing.T) {
	l, _ := newTestLedger(t)

	first := newGoal(t, l, "Emergency fund", "10000")
	assert.True(t, first.IsPrimary)
	assert.True(t, first.IsActive)
	assert.True(t, first.CurrentAmount.IsZero(), "progress always starts at zero")

	second := newGoal(t, l, "Vacation", "3000")
	assert.False(t, second.IsPrimary)
}

func TestCreateGoal_IgnoresClientSuppliedProgress(t *testing.T) {
	l, _ := newTestLedger(t)

	g, err := l.CreateGoal(context.Background(), ledger.Goal{
		UserID:        "user-1",
		Name:          "Car",
		TargetAmount:  dec("20000"),
		CurrentAmount: dec("19999"),
		IsActive:      false,
	})
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())
	assert.True(t, g.IsActive)
}

func TestCreateGoal_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateGoal(ctx, ledger.Goal{UserID: "user-1", TargetAmount: dec("100")})
	assert.True(t, ledger.IsClientError(err))

	_, err = l.CreateGoal(ctx, ledger.Goal{UserID: "user-1", Name: "Car", TargetAmount: dec("0")})
	assert.True(t, ledger.IsClientError(err))
}

func TestSetPrimaryGoal_SwapsInOneTransition(t *testing.T) {
	// GIVEN: Three goals, the first primary
	// WHEN: The third is made primary
	// THEN: Exactly one goal is primary afterwards

	l, mem := newTestLedger(t)
	ctx := context.Background()
	a := newGoal(t, l, "A", "100")
	newGoal(t, l, "B", "100")
	c := newGoal(t, l, "C", "100")

	require.NoError(t, l.SetPrimaryGoal(ctx, "user-1", c.ID))

	goals, err := mem.ListGoals(ctx, "user-1", false)
	require.NoError(t, err)
	primaries := 0
	for _, g := range goals {
		if g.IsPrimary {
			primaries++
			assert.Equal(t, c.ID, g.ID)
		}
	}
	assert.Equal(t, 1, primaries)
	assert.False(t, getGoal(t, mem, a.ID).IsPrimary)
}

func TestSetPrimaryGoal_RejectsForeignAndInactive(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	g := newGoal(t, l, "A", "100")

	err := l.SetPrimaryGoal(ctx, "someone-else", g.ID)
	assert.True(t, ledger.IsNotFound(err))

	stored := getGoal(t, mem, g.ID)
	stored.IsActive = false
	require.NoError(t, mem.UpdateGoal(ctx, stored))

	err = l.SetPrimaryGoal(ctx, "user-1", g.ID)
	assert.True(t, ledger.IsClientError(err))
	assert.False(t, ledger.IsNotFound(err))
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

func TestContributeToGoal_MovesMoneyFromAccountToProgress(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")
	g := newGoal(t, l, "Vacation", "3000")

	tx, err := l.ContributeToGoal(ctx, g.ID, wallet.ID, dec("250"), march(1))
	require.NoError(t, err)
	assert.Equal(t, "Contribution: Vacation", tx.Description)
	assert.Equal(t, g.ID, tx.GoalID)

	assert.Equal(t, "750", getBalance(t, mem, wallet.ID))
	assert.Equal(t, "250", getGoal(t, mem, g.ID).CurrentAmount.String())
}

func TestContributeToGoal_UnknownGoalIsNotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	wallet := newAccount(t, l, "Wallet", "1000")

	_, err := l.ContributeToGoal(context.Background(), "ghost", wallet.ID, dec("10"), march(1))
	assert.True(t, ledger.IsNotFound(err))
}

func TestUpdateContribution_AdjustsProgressByTheDifference(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")
	g := newGoal(t, l, "Vacation", "3000")

	tx, err := l.ContributeToGoal(ctx, g.ID, wallet.ID, dec("250"), march(1))
	require.NoError(t, err)

	up := dec("400")
	_, err = l.UpdateTransaction(ctx, tx.ID, ledger.TransactionPatch{Amount: &up})
	require.NoError(t, err)
	assert.Equal(t, "400", getGoal(t, mem, g.ID).CurrentAmount.String())
	assert.Equal(t, "600", getBalance(t, mem, wallet.ID))

	down := dec("100")
	_, err = l.UpdateTransaction(ctx, tx.ID, ledger.TransactionPatch{Amount: &down})
	require.NoError(t, err)
	assert.Equal(t, "100", getGoal(t, mem, g.ID).CurrentAmount.String())
	assert.Equal(t, "900", getBalance(t, mem, wallet.ID))
}

func TestDeleteContribution_RestoresBothSides(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")
	g := newGoal(t, l, "Vacation", "3000")

	tx, err := l.ContributeToGoal(ctx, g.ID, wallet.ID, dec("250"), march(1))
	require.NoError(t, err)

	require.NoError(t, l.DeleteTransaction(ctx, tx.ID))
	assert.Equal(t, "1000", getBalance(t, mem, wallet.ID))
	assert.Equal(t, "0", getGoal(t, mem, g.ID).CurrentAmount.String())
}

// =============================================================================
// PROGRESS RULES
// =============================================================================

func TestGoalProgress_FlooredAtZero(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	g := newGoal(t, l, "Vacation", "3000")

	require.NoError(t, l.AddToGoalProgress(ctx, g.ID, dec("100")))
	require.NoError(t, l.RemoveFromGoalProgress(ctx, g.ID, dec("500")))
	assert.Equal(t, "0", getGoal(t, mem, g.ID).CurrentAmount.String())
}

func TestGoalProgress_RemovalFromDeletedGoalIsNoop(t *testing.T) {
	l, _ := newTestLedger(t)

	assert.NoError(t, l.RemoveFromGoalProgress(context.Background(), "ghost", dec("10")))
}

func TestGoalCompletion_StampIsOneWay(t *testing.T) {
	// GIVEN: A goal completed by reaching its target
	// WHEN: Progress later drops below the target
	// THEN: CompletedAt keeps its original value

	l, mem := newTestLedger(t)
	ctx := context.Background()
	g := newGoal(t, l, "Vacation", "300")

	require.NoError(t, l.AddToGoalProgress(ctx, g.ID, dec("300")))
	completed := getGoal(t, mem, g.ID)
	require.NotNil(t, completed.CompletedAt)
	stamp := *completed.CompletedAt

	require.NoError(t, l.RemoveFromGoalProgress(ctx, g.ID, dec("200")))
	after := getGoal(t, mem, g.ID)
	require.NotNil(t, after.CompletedAt)
	assert.Equal(t, stamp, *after.CompletedAt)

	// Re-reaching the target does not re-stamp either.
	require.NoError(t, l.AddToGoalProgress(ctx, g.ID, dec("200")))
	assert.Equal(t, stamp, *getGoal(t, mem, g.ID).CompletedAt)
}

// =============================================================================
// DELETION CASCADE
// =============================================================================

func TestDeleteGoal_CascadesContributionsAndPromotesSurvivor(t *testing.T) {
	// GIVEN: A primary goal with contributions and one other active goal
	// WHEN: The primary goal is deleted
	// THEN: Contributions are refunded to the account and the sole
	//       surviving active goal is promoted to primary

	l, mem := newTestLedger(t)
	ctx := context.Background()
	wallet := newAccount(t, l, "Wallet", "1000")
	primary := newGoal(t, l, "Emergency fund", "10000")
	other := newGoal(t, l, "Vacation", "3000")

	_, err := l.ContributeToGoal(ctx, primary.ID, wallet.ID, dec("200"), march(1))
	require.NoError(t, err)
	_, err = l.ContributeToGoal(ctx, primary.ID, wallet.ID, dec("100"), march(2))
	require.NoError(t, err)
	assert.Equal(t, "700", getBalance(t, mem, wallet.ID))

	require.NoError(t, l.DeleteGoal(ctx, primary.ID, nil))

	assert.Equal(t, "1000", getBalance(t, mem, wallet.ID))

	gone, err := mem.GetGoal(ctx, primary.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.True(t, getGoal(t, mem, other.ID).IsPrimary)
}

func TestDeleteGoal_UnknownGoalIsNotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.DeleteGoal(context.Background(), "ghost", nil)
	assert.True(t, ledger.IsNotFound(err))
}
