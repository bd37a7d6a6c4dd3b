package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagodosanjos/cofrin-core/ledger"
)

func TestCreateAccount_BalanceStartsAtInitialBalance(t *testing.T) {
	l, _ := newTestLedger(t)

	acc, err := l.CreateAccount(context.Background(), ledger.Account{
		UserID:         "user-1",
		Name:           "Checking",
		Type:           ledger.AccountChecking,
		InitialBalance: dec("2500.50"),
		Balance:        dec("99999"), // client-supplied balance is ignored
		IncludeInTotal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2500.5", acc.Balance.String())
	assert.False(t, acc.CreatedAt.IsZero())
}

func TestCreateAccount_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, ledger.Account{UserID: "user-1", Type: ledger.AccountWallet})
	assert.True(t, ledger.IsClientError(err))

	_, err = l.CreateAccount(ctx, ledger.Account{UserID: "user-1", Name: "X", Type: "offshore"})
	assert.True(t, ledger.IsClientError(err))
}

func TestEnsureDefaultAccount_CreatesTheWalletOnce(t *testing.T) {
	// GIVEN: A brand-new user
	// WHEN: EnsureDefaultAccount is called twice
	// THEN: One wallet named Carteira exists and both calls return it

	l, mem := newTestLedger(t)
	ctx := context.Background()

	first, err := l.EnsureDefaultAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultAccountName, first.Name)
	assert.True(t, first.IsDefault)
	assert.True(t, first.IncludeInTotal)

	second, err := l.EnsureDefaultAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	accounts, err := mem.ListAccounts(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestEnsureDefaultAccount_PrefersExistingAccounts(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	existing := newAccount(t, l, "Checking", "100")

	got, err := l.EnsureDefaultAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID, "no wallet is created when accounts exist")
}

func TestArchiveAccount_KeepsBalanceAndHistory(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()
	acc := newAccount(t, l, "Old wallet", "300")

	require.NoError(t, l.ArchiveAccount(ctx, acc.ID))

	stored, err := mem.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsArchived)
	assert.Equal(t, "300", stored.Balance.String())
}

func TestTotalBalance_FiltersArchivedAndExcluded(t *testing.T) {
	// GIVEN: Four accounts: counted, excluded-from-total, archived, and
	//        another user's
	// WHEN: TotalBalance is computed
	// THEN: Only the counted account contributes

	l, _ := newTestLedger(t)
	ctx := context.Background()

	newAccount(t, l, "Counted", "100")

	_, err := l.CreateAccount(ctx, ledger.Account{
		UserID: "user-1", Name: "Hidden", Type: ledger.AccountWallet,
		InitialBalance: dec("50"), IncludeInTotal: false,
	})
	require.NoError(t, err)

	archived := newAccount(t, l, "Archived", "75")
	require.NoError(t, l.ArchiveAccount(ctx, archived.ID))

	_, err = l.CreateAccount(ctx, ledger.Account{
		UserID: "user-2", Name: "Foreign", Type: ledger.AccountWallet,
		InitialBalance: dec("999"), IncludeInTotal: true,
	})
	require.NoError(t, err)

	total, err := l.TotalBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "100", total.String())
}

func TestDeleteAccount_UnknownAccountIsNotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.DeleteAccount(context.Background(), "ghost")
	assert.True(t, ledger.IsNotFound(err))
}
