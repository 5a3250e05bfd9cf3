package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/finveo/cardfeed/internal/common"
	"github.com/finveo/cardfeed/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create migrated test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedBank(t *testing.T, store *SQLiteStorage, name string) *model.Bank {
	t.Helper()
	bank := &model.Bank{IsActive: true}
	bank.ApplyName(name)
	require.NoError(t, store.CreateBank(context.Background(), bank))
	return bank
}

func seedUser(t *testing.T, store *SQLiteStorage, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "x"}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func testCard(bankID, externalID int64) *model.CreditCard {
	return &model.CreditCard{
		BankID:               bankID,
		Name:                 "Test Card",
		ExternalID:           externalID,
		Information:          "some info",
		ImageURL:             "https://img.example.com/card.png",
		Website:              "https://example.com/card",
		AnnualEquivalentRate: 19.5,
		FirstYearFee:         0,
		AnnualCharges:        30,
		HasRewardProgram:     true,
		HasInsurance:         false,
		Rating:               4.0,
		CardType:             model.CardTypeCredit,
		IsActive:             true,
		AtmFreeDomestic:      false,
		Provider:             1,
		IncentiveAmount:      25,
	}
}

func seedCard(t *testing.T, store *SQLiteStorage, bankID, externalID int64) *model.CreditCard {
	t.Helper()
	card := testCard(bankID, externalID)
	require.NoError(t, store.CreateCard(context.Background(), card))
	return card
}

func TestBankCRUD(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.GetBankByName(ctx, "Banco Río S.A.")
	require.ErrorIs(t, err, common.ErrNotFound)

	bank := seedBank(t, store, "Banco Río S.A.")
	require.NotZero(t, bank.ID)
	assert.Equal(t, "BANCORIOSA", bank.Code)

	got, err := store.GetBankByName(ctx, "Banco Río S.A.")
	require.NoError(t, err)
	assert.Equal(t, bank.ID, got.ID)
	assert.Equal(t, "BANCORIOSA", got.Code)
	assert.True(t, got.IsActive)

	got.ApplyName("Banco Río")
	require.NoError(t, store.UpdateBank(ctx, got))

	updated, err := store.GetBankByName(ctx, "Banco Río")
	require.NoError(t, err)
	assert.Equal(t, bank.ID, updated.ID)
	assert.Equal(t, "BANCORIO", updated.Code)

	seedBank(t, store, "Openbank")
	banks, err := store.ListBanks(ctx)
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, "Banco Río", banks[0].Name) // ordered by name
	assert.Equal(t, "Openbank", banks[1].Name)
}

func TestCardCreateAndLookup(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bank := seedBank(t, store, "Openbank")
	card := seedCard(t, store, bank.ID, 4711)
	require.NotZero(t, card.ID)

	got, err := store.GetCardByExternalID(ctx, 4711)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, bank.ID, got.BankID)
	assert.Equal(t, model.CardTypeCredit, got.CardType)
	assert.Equal(t, "https://img.example.com/card.png", got.ImageURL)
	assert.Equal(t, 25.0, got.IncentiveAmount)

	_, err = store.GetCardByExternalID(ctx, 9999)
	require.ErrorIs(t, err, common.ErrNotFound)

	byID, err := store.GetCardByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4711), byID.ExternalID)
}

func TestCardUpdatePreservesIdentityFields(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bank := seedBank(t, store, "Openbank")
	card := seedCard(t, store, bank.ID, 4711)
	createdAt := card.CreatedAt

	time.Sleep(10 * time.Millisecond)

	card.Name = "Renamed"
	card.AnnualCharges = 99
	require.NoError(t, store.UpdateCard(ctx, card))

	got, err := store.GetCardByExternalID(ctx, 4711)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 99.0, got.AnnualCharges)
	assert.Equal(t, int64(4711), got.ExternalID)
	assert.True(t, got.IsActive)
	assert.WithinDuration(t, createdAt, got.CreatedAt, time.Second)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestSetCardBank(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := seedBank(t, store, "Openbank")
	second := seedBank(t, store, "Banco Río")
	card := seedCard(t, store, first.ID, 4711)

	require.NoError(t, store.SetCardBank(ctx, card.ID, second.ID))

	got, err := store.GetCardByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.BankID)
}

func TestUserCRUD(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	user := seedUser(t, store, "ana@example.com")
	require.NotZero(t, user.ID)

	got, err := store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	byID, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", byID.Email)

	dup := &model.User{Email: "ana@example.com", PasswordHash: "y"}
	err = store.CreateUser(ctx, dup)
	require.ErrorIs(t, err, common.ErrDuplicateEntry)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestEditHistoryOrdering(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bank := seedBank(t, store, "Openbank")
	card := seedCard(t, store, bank.ID, 4711)
	user := seedUser(t, store, "ana@example.com")

	first := "First name"
	second := "Second name"
	charges := 12.5

	e1 := &model.CreditCardEdit{CreditCardID: card.ID, UserID: user.ID, Name: &first}
	require.NoError(t, store.CreateEdit(ctx, e1))
	e2 := &model.CreditCardEdit{CreditCardID: card.ID, UserID: user.ID, Name: &second, AnnualCharges: &charges}
	require.NoError(t, store.CreateEdit(ctx, e2))

	latest, err := store.GetLatestEditForCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, e2.ID, latest.ID)
	require.NotNil(t, latest.Name)
	assert.Equal(t, "Second name", *latest.Name)
	require.NotNil(t, latest.AnnualCharges)
	assert.Equal(t, 12.5, *latest.AnnualCharges)
	assert.Nil(t, latest.Description)

	perUser, err := store.GetLatestEditForCardUser(ctx, card.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, e2.ID, perUser.ID)

	_, err = store.GetLatestEditForCardUser(ctx, card.ID, user.ID+100)
	require.ErrorIs(t, err, common.ErrNotFound)

	history, err := store.ListEditsByCard(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, e2.ID, history[0].ID) // newest first
	assert.Equal(t, e1.ID, history[1].ID)
}

func TestEditCascadeDeleteWithCard(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bank := seedBank(t, store, "Openbank")
	card := seedCard(t, store, bank.ID, 4711)
	user := seedUser(t, store, "ana@example.com")

	name := "Override"
	require.NoError(t, store.CreateEdit(ctx, &model.CreditCardEdit{
		CreditCardID: card.ID, UserID: user.ID, Name: &name,
	}))

	_, err := store.db.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ?`, card.ID)
	require.NoError(t, err)

	edits, err := store.ListEditsByCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, edits)
}

func TestTransactionRollback(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	bank := &model.Bank{IsActive: true}
	bank.ApplyName("Banco Río")
	require.NoError(t, tx.CreateBank(ctx, bank))
	require.NoError(t, tx.Rollback())

	_, err = store.GetBankByName(ctx, "Banco Río")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTransactionCommit(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	bank := &model.Bank{IsActive: true}
	bank.ApplyName("Banco Río")
	require.NoError(t, tx.CreateBank(ctx, bank))
	require.NoError(t, tx.Commit())

	got, err := store.GetBankByName(ctx, "Banco Río")
	require.NoError(t, err)
	assert.Equal(t, bank.ID, got.ID)
}
