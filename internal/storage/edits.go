package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finveo/cardfeed/internal/common"
	"github.com/finveo/cardfeed/internal/model"
)

const editColumns = `id, credit_card_id, user_id, name, description, annual_charges, created_at, updated_at`

func scanEdit(scanner interface{ Scan(...any) error }, edit *model.CreditCardEdit) error {
	var (
		name        sql.NullString
		description sql.NullString
		charges     sql.NullFloat64
	)
	if err := scanner.Scan(
		&edit.ID,
		&edit.CreditCardID,
		&edit.UserID,
		&name,
		&description,
		&charges,
		&edit.CreatedAt,
		&edit.UpdatedAt,
	); err != nil {
		return err
	}

	if name.Valid {
		edit.Name = &name.String
	}
	if description.Valid {
		edit.Description = &description.String
	}
	if charges.Valid {
		edit.AnnualCharges = &charges.Float64
	}
	return nil
}

// CreateEdit appends a new edit row. Edits are append-only history; the
// newest row per (card, user) is the current one.
func (s *SQLiteStorage) CreateEdit(ctx context.Context, edit *model.CreditCardEdit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEdit(edit); err != nil {
		return err
	}
	return s.createEditTx(ctx, s.db, edit)
}

func (s *SQLiteStorage) createEditTx(ctx context.Context, q queryable, edit *model.CreditCardEdit) error {
	now := time.Now().UTC()
	if edit.CreatedAt.IsZero() {
		edit.CreatedAt = now
	}
	edit.UpdatedAt = now

	result, err := q.ExecContext(ctx, `
		INSERT INTO credit_card_edits (credit_card_id, user_id, name, description, annual_charges, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, edit.CreditCardID, edit.UserID, edit.Name, edit.Description, edit.AnnualCharges, edit.CreatedAt, edit.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create edit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get edit id: %w", err)
	}
	edit.ID = id

	return nil
}

// GetLatestEditForCard returns the newest edit for a card by any user,
// or common.ErrNotFound when none exists. The single-editor policy
// checks card ownership through this lookup.
func (s *SQLiteStorage) GetLatestEditForCard(ctx context.Context, cardID int64) (*model.CreditCardEdit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getLatestEditForCardTx(ctx, s.db, cardID, nil)
}

// GetLatestEditForCardUser returns the newest edit for a (card, user)
// pair, or common.ErrNotFound when the user never edited the card.
func (s *SQLiteStorage) GetLatestEditForCardUser(ctx context.Context, cardID, userID int64) (*model.CreditCardEdit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getLatestEditForCardTx(ctx, s.db, cardID, &userID)
}

func (s *SQLiteStorage) getLatestEditForCardTx(ctx context.Context, q queryable, cardID int64, userID *int64) (*model.CreditCardEdit, error) {
	query := `SELECT ` + editColumns + ` FROM credit_card_edits WHERE credit_card_id = ?`
	args := []any{cardID}
	if userID != nil {
		query += ` AND user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	var edit model.CreditCardEdit
	err := scanEdit(q.QueryRowContext(ctx, query, args...), &edit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: edit for card %d", common.ErrNotFound, cardID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest edit: %w", err)
	}

	return &edit, nil
}

// ListEditsByCard returns every edit for a card, newest first.
func (s *SQLiteStorage) ListEditsByCard(ctx context.Context, cardID int64) ([]model.CreditCardEdit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listEditsByCardTx(ctx, s.db, cardID)
}

func (s *SQLiteStorage) listEditsByCardTx(ctx context.Context, q queryable, cardID int64) ([]model.CreditCardEdit, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+editColumns+`
		FROM credit_card_edits
		WHERE credit_card_id = ?
		ORDER BY created_at DESC, id DESC
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edits []model.CreditCardEdit
	for rows.Next() {
		var edit model.CreditCardEdit
		if err := scanEdit(rows, &edit); err != nil {
			return nil, fmt.Errorf("failed to scan edit: %w", err)
		}
		edits = append(edits, edit)
	}

	return edits, rows.Err()
}
