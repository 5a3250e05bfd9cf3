package edits

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/finveo/cardfeed/internal/common"
	"github.com/finveo/cardfeed/internal/model"
	"github.com/finveo/cardfeed/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	service *Service
	store   *storage.SQLiteStorage
	card    *model.CreditCard
	userA   *model.User
	userB   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	bank := &model.Bank{IsActive: true}
	bank.ApplyName("Openbank")
	require.NoError(t, store.CreateBank(ctx, bank))

	card := &model.CreditCard{
		BankID:        bank.ID,
		Name:          "Tarjeta Oro",
		ExternalID:    100,
		Information:   "canonical info",
		AnnualCharges: 100,
		Rating:        4.5,
		CardType:      model.CardTypeCredit,
		IsActive:      true,
	}
	require.NoError(t, store.CreateCard(ctx, card))

	userA := &model.User{Email: "ana@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, userA))
	userB := &model.User{Email: "bea@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, userB))

	return &fixture{
		service: NewService(store),
		store:   store,
		card:    card,
		userA:   userA,
		userB:   userB,
	}
}

func TestCreateEditRequiresAuthentication(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateEdit(context.Background(), f.card.ID, 0, Input{Name: ptr("Renamed")})
	require.ErrorIs(t, err, common.ErrAuthenticationRequired)
}

func TestCreateEditEmptyInputIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	edit, err := f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{})
	require.NoError(t, err)
	assert.Nil(t, edit)

	history, err := f.service.History(ctx, f.card.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCreateEditUnknownCard(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateEdit(context.Background(), 9999, f.userA.ID, Input{Name: ptr("Renamed")})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateEditValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input Input
		field string
	}{
		{"name too short", Input{Name: ptr("ab")}, "name"},
		{"name too long", Input{Name: ptr(strings.Repeat("x", 256))}, "name"},
		{"description too short", Input{Description: ptr("abcd")}, "description"},
		{"description too long", Input{Description: ptr(strings.Repeat("x", 1001))}, "description"},
		{"negative charges", Input{AnnualCharges: ptr(-1.0)}, "annualCharges"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, tt.input)
			var verr *common.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestCreateEditValidationBoundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{
		Name:          ptr("abc"), // exactly 3
		Description:   ptr("abcde"), // exactly 5
		AnnualCharges: ptr(0.0),
	})
	require.NoError(t, err)
}

func TestCreateEditFirstUserClaimsCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{Name: ptr("Ana's card")})
	require.NoError(t, err)

	// A second user cannot edit a card someone else already edited.
	_, err = f.service.CreateEdit(ctx, f.card.ID, f.userB.ID, Input{Name: ptr("Bea's card")})
	require.ErrorIs(t, err, common.ErrNotAuthorized)

	// The claiming user can keep editing.
	edit, err := f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{Name: ptr("Ana's card v2")})
	require.NoError(t, err)
	require.NotNil(t, edit)

	name, err := f.service.EffectiveName(ctx, f.card, f.userA.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana's card v2", name)

	history, err := f.service.History(ctx, f.card.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestEffectiveValuesFallBackToCanonical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No edits at all: canonical values throughout.
	name, err := f.service.EffectiveName(ctx, f.card, f.userA.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tarjeta Oro", name)

	charges, err := f.service.EffectiveAnnualCharges(ctx, f.card, f.userA.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, charges)

	// A partial edit overrides only what it supplies.
	_, err = f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{AnnualCharges: ptr(50.0)})
	require.NoError(t, err)

	name, err = f.service.EffectiveName(ctx, f.card, f.userA.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tarjeta Oro", name)

	charges, err = f.service.EffectiveAnnualCharges(ctx, f.card, f.userA.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, charges)

	description, err := f.service.EffectiveDescription(ctx, f.card, f.userA.ID)
	require.NoError(t, err)
	assert.Equal(t, "canonical info", description)
}

func TestEffectiveValuesAreUserScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{AnnualCharges: ptr(50.0)})
	require.NoError(t, err)

	forA, err := f.service.EffectiveAnnualCharges(ctx, f.card, f.userA.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, forA)

	// User B never edited the card and sees the canonical value.
	forB, err := f.service.EffectiveAnnualCharges(ctx, f.card, f.userB.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, forB)
}

func TestApplyOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{
		Name:          ptr("Ana's card"),
		Description:   ptr("my main card"),
		AnnualCharges: ptr(0.0),
	})
	require.NoError(t, err)

	blended, err := f.service.ApplyOverrides(ctx, f.card, f.userA.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana's card", blended.Name)
	assert.Equal(t, "my main card", blended.Information)
	assert.Equal(t, 0.0, blended.AnnualCharges)

	// The canonical record is untouched.
	assert.Equal(t, "Tarjeta Oro", f.card.Name)
	assert.Equal(t, 100.0, f.card.AnnualCharges)
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{Name: ptr("First")})
	require.NoError(t, err)
	_, err = f.service.CreateEdit(ctx, f.card.ID, f.userA.ID, Input{Name: ptr("Second")})
	require.NoError(t, err)

	history, err := f.service.History(ctx, f.card.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Second", *history[0].Name)
	assert.Equal(t, "First", *history[1].Name)
}
