// Package engine implements the catalog reconciliation engine that
// upserts feed records into the canonical store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finveo/cardfeed/internal/common"
	"github.com/finveo/cardfeed/internal/feed"
	"github.com/finveo/cardfeed/internal/model"
	"github.com/finveo/cardfeed/internal/service"
)

// Outcome classifies what a record's upsert did to the catalog.
type Outcome int

// Upsert outcomes.
const (
	OutcomeAdded Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

// ReconciliationError indicates an unexpected store failure mid-batch.
// The whole batch is rolled back before it surfaces.
type ReconciliationError struct {
	Err error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed: %v", e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// Engine drives batch synchronization of the card catalog. Batches are
// all-or-nothing: one transaction spans the run and any failure rolls
// the whole batch back. The caller must ensure a single writer; upserts
// are read-then-write and two concurrent runs could race on the same
// external id.
type Engine struct {
	fetcher  feed.Fetcher
	storage  service.Storage
	progress func(processed, total int)
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgress installs a per-record progress callback.
func WithProgress(fn func(processed, total int)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// New creates a reconciliation engine on top of a feed source and a store.
func New(fetcher feed.Fetcher, storage service.Storage, opts ...Option) *Engine {
	e := &Engine{
		fetcher: fetcher,
		storage: storage,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Synchronize fetches one batch from the feed and upserts every record
// in feed order. With forceUpdate, change detection is bypassed and all
// matched records are rewritten. On any error the transaction is rolled
// back and zero stats are returned; feed and record errors propagate
// unchanged, store failures surface as a ReconciliationError.
func (e *Engine) Synchronize(ctx context.Context, forceUpdate bool) (service.SyncStats, error) {
	var stats service.SyncStats

	records, err := e.fetcher.Fetch(ctx)
	if err != nil {
		return stats, err
	}

	slog.Info("Starting catalog synchronization",
		"records", len(records),
		"force_update", forceUpdate)

	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return service.SyncStats{}, &ReconciliationError{Err: err}
	}

	for i, raw := range records {
		rec, normErr := feed.Normalize(raw)
		if normErr != nil {
			_ = tx.Rollback()
			common.LogError(normErr, "Rolling back synchronization batch", common.Fields{"record": i})
			return service.SyncStats{}, normErr
		}

		bank, bankErr := e.resolveBank(ctx, tx, rec, forceUpdate)
		if bankErr != nil {
			_ = tx.Rollback()
			common.LogError(bankErr, "Rolling back synchronization batch", common.Fields{"bank": rec.BankName})
			return service.SyncStats{}, &ReconciliationError{Err: bankErr}
		}

		outcome, cardErr := e.resolveCard(ctx, tx, rec, bank, forceUpdate)
		if cardErr != nil {
			_ = tx.Rollback()
			common.LogError(cardErr, "Rolling back synchronization batch", common.Fields{"external_id": rec.ExternalID})
			return service.SyncStats{}, &ReconciliationError{Err: cardErr}
		}

		switch outcome {
		case OutcomeAdded:
			stats.Added++
		case OutcomeUpdated:
			stats.Updated++
		case OutcomeSkipped:
			stats.Skipped++
		}
		stats.Total++

		if e.progress != nil {
			e.progress(i+1, len(records))
		}
	}

	if err := tx.Commit(); err != nil {
		return service.SyncStats{}, &ReconciliationError{Err: err}
	}

	slog.Info("Catalog synchronization complete",
		"total", stats.Total,
		"added", stats.Added,
		"updated", stats.Updated,
		"skipped", stats.Skipped)

	return stats, nil
}

// resolveBank finds or creates the bank for a record. An existing bank
// is updated in place when its name or derived code drifted, or always
// under forceUpdate.
func (e *Engine) resolveBank(ctx context.Context, tx service.Transaction, rec *model.CardRecord, forceUpdate bool) (*model.Bank, error) {
	bank, err := tx.GetBankByName(ctx, rec.BankName)
	if errors.Is(err, common.ErrNotFound) {
		bank = &model.Bank{IsActive: true}
		bank.ApplyName(rec.BankName)
		if err := tx.CreateBank(ctx, bank); err != nil {
			return nil, err
		}
		return bank, nil
	}
	if err != nil {
		return nil, err
	}

	if forceUpdate || bank.NeedsUpdate(rec.BankName) {
		bank.ApplyName(rec.BankName)
		if err := tx.UpdateBank(ctx, bank); err != nil {
			return nil, err
		}
	}

	return bank, nil
}

// resolveCard upserts the card for a record, keyed by external id, and
// links it to its resolved bank. A card whose bank moved but whose
// business fields are unchanged is re-linked yet still counts as
// skipped.
func (e *Engine) resolveCard(ctx context.Context, tx service.Transaction, rec *model.CardRecord, bank *model.Bank, forceUpdate bool) (Outcome, error) {
	card, err := tx.GetCardByExternalID(ctx, rec.ExternalID)
	if errors.Is(err, common.ErrNotFound) {
		card = model.NewCreditCard(rec)
		card.BankID = bank.ID
		if err := tx.CreateCard(ctx, card); err != nil {
			return OutcomeSkipped, err
		}
		return OutcomeAdded, nil
	}
	if err != nil {
		return OutcomeSkipped, err
	}

	outcome := OutcomeSkipped
	if forceUpdate || card.HasChanges(rec) {
		card.ApplyRecord(rec)
		if err := tx.UpdateCard(ctx, card); err != nil {
			return OutcomeSkipped, err
		}
		outcome = OutcomeUpdated
	}

	if card.BankID != bank.ID {
		if err := tx.SetCardBank(ctx, card.ID, bank.ID); err != nil {
			return OutcomeSkipped, err
		}
		card.BankID = bank.ID
	}

	return outcome, nil
}
