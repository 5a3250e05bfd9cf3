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

// GetBankByName retrieves a bank by its exact stored name.
// Returns common.ErrNotFound when no bank matches.
func (s *SQLiteStorage) GetBankByName(ctx context.Context, name string) (*model.Bank, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getBankByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getBankByNameTx(ctx context.Context, q queryable, name string) (*model.Bank, error) {
	var bank model.Bank

	err := q.QueryRowContext(ctx, `
		SELECT id, name, code, is_active, created_at, updated_at
		FROM banks
		WHERE name = ?
	`, name).Scan(
		&bank.ID,
		&bank.Name,
		&bank.Code,
		&bank.IsActive,
		&bank.CreatedAt,
		&bank.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bank %q", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}

	return &bank, nil
}

// CreateBank inserts a new bank and backfills its id.
func (s *SQLiteStorage) CreateBank(ctx context.Context, bank *model.Bank) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBank(bank); err != nil {
		return err
	}
	return s.createBankTx(ctx, s.db, bank)
}

func (s *SQLiteStorage) createBankTx(ctx context.Context, q queryable, bank *model.Bank) error {
	now := time.Now().UTC()
	if bank.CreatedAt.IsZero() {
		bank.CreatedAt = now
	}
	bank.UpdatedAt = now

	result, err := q.ExecContext(ctx, `
		INSERT INTO banks (name, code, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, bank.Name, bank.Code, bank.IsActive, bank.CreatedAt, bank.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bank: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get bank id: %w", err)
	}
	bank.ID = id

	return nil
}

// UpdateBank rewrites a bank's name and derived code.
func (s *SQLiteStorage) UpdateBank(ctx context.Context, bank *model.Bank) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBank(bank); err != nil {
		return err
	}
	return s.updateBankTx(ctx, s.db, bank)
}

func (s *SQLiteStorage) updateBankTx(ctx context.Context, q queryable, bank *model.Bank) error {
	bank.UpdatedAt = time.Now().UTC()

	_, err := q.ExecContext(ctx, `
		UPDATE banks
		SET name = ?, code = ?, updated_at = ?
		WHERE id = ?
	`, bank.Name, bank.Code, bank.UpdatedAt, bank.ID)
	if err != nil {
		return fmt.Errorf("failed to update bank: %w", err)
	}

	return nil
}

// ListBanks retrieves all banks ordered by name.
func (s *SQLiteStorage) ListBanks(ctx context.Context) ([]model.Bank, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listBanksTx(ctx, s.db)
}

func (s *SQLiteStorage) listBanksTx(ctx context.Context, q queryable) ([]model.Bank, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, code, is_active, created_at, updated_at
		FROM banks
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var banks []model.Bank
	for rows.Next() {
		var bank model.Bank
		if err := rows.Scan(
			&bank.ID,
			&bank.Name,
			&bank.Code,
			&bank.IsActive,
			&bank.CreatedAt,
			&bank.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bank: %w", err)
		}
		banks = append(banks, bank)
	}

	return banks, rows.Err()
}
