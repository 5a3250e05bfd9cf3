package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/finveo/cardfeed/internal/feed"
	"github.com/finveo/cardfeed/internal/model"
	"github.com/finveo/cardfeed/internal/service"
	"github.com/finveo/cardfeed/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	records []feed.Record
	err     error
}

func (s *stubFetcher) Fetch(_ context.Context) ([]feed.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func createTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// feedRecord builds a complete raw feed record; overrides replace
// individual attributes.
func feedRecord(externalID int64, overrides map[string]any) feed.Record {
	rec := feed.Record{
		"bank":                "Banco Río S.A.",
		"id":                  strconv.FormatInt(externalID, 10),
		"produkt":             "Tarjeta Oro",
		"logo":                "https://img.example.com/oro.png",
		"cc_provider":         "2",
		"gc_atmfree_domestic": "1",
		"link":                "https://example.com/oro",
		"anmerkungen":         "Sin comisiones",
		"incentive_amount":    "25",
		"bewertung":           "4.5",
		"sollzins":            "18,9",
		"gebuehrenjahr1":      "0",
		"dauerhaft":           "35,50",
		"insurances":          "1",
		"bonusprogram":        "0",
		"cardtype_text":       "credit",
	}
	for key, value := range overrides {
		rec[key] = value
	}
	return rec
}

func TestSynchronizeAddsNewRecords(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	fetcher := &stubFetcher{records: []feed.Record{
		feedRecord(100, nil),
		feedRecord(101, map[string]any{"produkt": "Tarjeta Plata", "cardtype_text": "debit"}),
	}}

	stats, err := New(fetcher, store).Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, service.SyncStats{Total: 2, Added: 2}, stats)

	bank, err := store.GetBankByName(ctx, "Banco Río S.A.")
	require.NoError(t, err)
	assert.Equal(t, "BANCORIOSA", bank.Code)

	card, err := store.GetCardByExternalID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, bank.ID, card.BankID)
	assert.Equal(t, "Tarjeta Oro", card.Name)
	assert.Equal(t, model.CardTypeCredit, card.CardType)
	assert.Equal(t, 18.9, card.AnnualEquivalentRate)
	assert.Equal(t, 35.5, card.AnnualCharges)
	assert.True(t, card.IsActive)

	plata, err := store.GetCardByExternalID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, model.CardTypeDebit, plata.CardType)
}

func TestSynchronizeIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	fetcher := &stubFetcher{records: []feed.Record{
		feedRecord(100, nil),
		feedRecord(101, map[string]any{"produkt": "Tarjeta Plata"}),
	}}
	eng := New(fetcher, store)

	_, err := eng.Synchronize(ctx, false)
	require.NoError(t, err)

	stats, err := eng.Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, service.SyncStats{Total: 2, Skipped: 2}, stats)
}

func TestSynchronizeUpdatesChangedRecordInPlace(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	eng := New(&stubFetcher{records: []feed.Record{feedRecord(100, nil)}}, store)
	_, err := eng.Synchronize(ctx, false)
	require.NoError(t, err)

	// Same external id, changed name and fee: must update, not duplicate.
	changed := &stubFetcher{records: []feed.Record{
		feedRecord(100, map[string]any{"produkt": "Tarjeta Oro Plus", "dauerhaft": "40"}),
	}}
	stats, err := New(changed, store).Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, service.SyncStats{Total: 1, Updated: 1}, stats)

	card, err := store.GetCardByExternalID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Tarjeta Oro Plus", card.Name)
	assert.Equal(t, 40.0, card.AnnualCharges)

	cards, err := store.ListCards(ctx, service.CardFilter{})
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestSynchronizeIgnoresCreateOnlyFieldChanges(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	eng := New(&stubFetcher{records: []feed.Record{feedRecord(100, nil)}}, store)
	_, err := eng.Synchronize(ctx, false)
	require.NoError(t, err)

	// Provider, incentive and ATM flag changes do not count as drift.
	changed := &stubFetcher{records: []feed.Record{
		feedRecord(100, map[string]any{
			"cc_provider":         "5",
			"incentive_amount":    "99",
			"gc_atmfree_domestic": "0",
		}),
	}}
	stats, err := New(changed, store).Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, service.SyncStats{Total: 1, Skipped: 1}, stats)

	card, err := store.GetCardByExternalID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, card.Provider)
	assert.Equal(t, 25.0, card.IncentiveAmount)
}

func TestSynchronizeForceUpdate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	fetcher := &stubFetcher{records: []feed.Record{
		feedRecord(100, nil),
		feedRecord(101, map[string]any{"produkt": "Tarjeta Plata"}),
	}}
	eng := New(fetcher, store)

	_, err := eng.Synchronize(ctx, false)
	require.NoError(t, err)

	stats, err := eng.Synchronize(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, service.SyncStats{Total: 2, Updated: 2}, stats)
}

func TestSynchronizeRelinksCardToRenamedBank(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	eng := New(&stubFetcher{records: []feed.Record{feedRecord(100, nil)}}, store)
	_, err := eng.Synchronize(ctx, false)
	require.NoError(t, err)

	// The feed now reports a different bank for the same card. The card
	// is re-linked but its business fields are unchanged.
	moved := &stubFetcher{records: []feed.Record{
		feedRecord(100, map[string]any{"bank": "Openbank"}),
	}}
	stats, err := New(moved, store).Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, service.SyncStats{Total: 1, Skipped: 1}, stats)

	bank, err := store.GetBankByName(ctx, "Openbank")
	require.NoError(t, err)

	card, err := store.GetCardByExternalID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, bank.ID, card.BankID)
}

func TestSynchronizeMalformedRecordRollsBackBatch(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	broken := feedRecord(101, nil)
	delete(broken, "dauerhaft")

	fetcher := &stubFetcher{records: []feed.Record{
		feedRecord(100, nil), // valid, processed first
		broken,
	}}

	stats, err := New(fetcher, store).Synchronize(ctx, false)
	require.Error(t, err)
	assert.Equal(t, service.SyncStats{}, stats)

	var malformed *feed.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "dauerhaft", malformed.Key)

	// Nothing from the batch survives, not even the valid first record.
	banks, err := store.ListBanks(ctx)
	require.NoError(t, err)
	assert.Empty(t, banks)

	cards, err := store.ListCards(ctx, service.CardFilter{})
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestSynchronizeFeedErrorPropagatesUnchanged(t *testing.T) {
	store := createTestStorage(t)

	feedErr := &feed.UnavailableError{Err: errors.New("connection refused"), URL: "https://feed.example.com"}
	fetcher := &stubFetcher{err: feedErr}

	stats, err := New(fetcher, store).Synchronize(context.Background(), false)
	assert.Equal(t, service.SyncStats{}, stats)

	var unavailable *feed.UnavailableError
	require.ErrorAs(t, err, &unavailable)

	var reconciliation *ReconciliationError
	assert.False(t, errors.As(err, &reconciliation))
}

func TestSynchronizeEmptyFeed(t *testing.T) {
	store := createTestStorage(t)

	stats, err := New(&stubFetcher{}, store).Synchronize(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, service.SyncStats{}, stats)
}

func TestSynchronizeProgressCallback(t *testing.T) {
	store := createTestStorage(t)

	fetcher := &stubFetcher{records: []feed.Record{
		feedRecord(100, nil),
		feedRecord(101, map[string]any{"produkt": "Tarjeta Plata"}),
	}}

	var calls [][2]int
	eng := New(fetcher, store, WithProgress(func(processed, total int) {
		calls = append(calls, [2]int{processed, total})
	}))

	_, err := eng.Synchronize(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}
