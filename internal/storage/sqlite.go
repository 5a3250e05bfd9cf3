package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finveo/cardfeed/internal/model"
	"github.com/finveo/cardfeed/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// queryable abstracts *sql.DB and *sql.Tx so entity helpers run inside
// or outside a transaction.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) GetBankByName(ctx context.Context, name string) (*model.Bank, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.getBankByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) CreateBank(ctx context.Context, bank *model.Bank) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBank(bank); err != nil {
		return err
	}
	return t.storage.createBankTx(ctx, t.tx, bank)
}

func (t *sqliteTransaction) UpdateBank(ctx context.Context, bank *model.Bank) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBank(bank); err != nil {
		return err
	}
	return t.storage.updateBankTx(ctx, t.tx, bank)
}

func (t *sqliteTransaction) ListBanks(ctx context.Context) ([]model.Bank, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listBanksTx(ctx, t.tx)
}

func (t *sqliteTransaction) GetCardByID(ctx context.Context, id int64) (*model.CreditCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCardByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCardByExternalID(ctx context.Context, externalID int64) (*model.CreditCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCardByExternalIDTx(ctx, t.tx, externalID)
}

func (t *sqliteTransaction) CreateCard(ctx context.Context, card *model.CreditCard) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}
	return t.storage.createCardTx(ctx, t.tx, card)
}

func (t *sqliteTransaction) UpdateCard(ctx context.Context, card *model.CreditCard) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}
	return t.storage.updateCardTx(ctx, t.tx, card)
}

func (t *sqliteTransaction) SetCardBank(ctx context.Context, cardID, bankID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.setCardBankTx(ctx, t.tx, cardID, bankID)
}

func (t *sqliteTransaction) ListCards(ctx context.Context, filter service.CardFilter) ([]model.CreditCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listCardsTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetCatalogStats(ctx context.Context, viewerID *int64) (*service.CatalogStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCatalogStatsTx(ctx, t.tx, viewerID)
}

func (t *sqliteTransaction) CreateEdit(ctx context.Context, edit *model.CreditCardEdit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEdit(edit); err != nil {
		return err
	}
	return t.storage.createEditTx(ctx, t.tx, edit)
}

func (t *sqliteTransaction) GetLatestEditForCard(ctx context.Context, cardID int64) (*model.CreditCardEdit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getLatestEditForCardTx(ctx, t.tx, cardID, nil)
}

func (t *sqliteTransaction) GetLatestEditForCardUser(ctx context.Context, cardID, userID int64) (*model.CreditCardEdit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getLatestEditForCardTx(ctx, t.tx, cardID, &userID)
}

func (t *sqliteTransaction) ListEditsByCard(ctx context.Context, cardID int64) ([]model.CreditCardEdit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listEditsByCardTx(ctx, t.tx, cardID)
}

func (t *sqliteTransaction) CreateUser(ctx context.Context, user *model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}
	return t.storage.createUserTx(ctx, t.tx, user)
}

func (t *sqliteTransaction) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(email, "email"); err != nil {
		return nil, err
	}
	return t.storage.getUserByEmailTx(ctx, t.tx, email)
}

func (t *sqliteTransaction) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getUserByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
