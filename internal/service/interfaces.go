// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/finveo/cardfeed/internal/model"
)

// CardFilter defines filtering options for catalog queries. Nil bounds
// impose no constraint; all bounds are inclusive. When ViewerID is set,
// the charge bounds compare against the viewer's effective annual
// charges (override if present, else canonical) and returned cards
// carry the viewer's override values.
type CardFilter struct {
	CardType  *model.CardType
	RateMin   *float64
	RateMax   *float64
	ChargeMin *float64
	ChargeMax *float64
	ViewerID  *int64
	BankIDs   []int64
}

// SyncStats summarizes one reconciliation run.
type SyncStats struct {
	Total   int
	Added   int
	Updated int
	Skipped int
}

// BankCount is a per-bank card tally for catalog statistics.
type BankCount struct {
	Name  string
	ID    int64
	Count int
}

// CatalogStats aggregates catalog composition for display.
type CatalogStats struct {
	CardTypes   map[model.CardType]int
	RateBuckets RateBuckets
	Banks       []BankCount
}

// RateBuckets counts active cards by annual equivalent rate range.
type RateBuckets struct {
	Below15    int
	From15To30 int
	Above30    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Bank operations
	GetBankByName(ctx context.Context, name string) (*model.Bank, error)
	CreateBank(ctx context.Context, bank *model.Bank) error
	UpdateBank(ctx context.Context, bank *model.Bank) error
	ListBanks(ctx context.Context) ([]model.Bank, error)

	// Card operations
	GetCardByID(ctx context.Context, id int64) (*model.CreditCard, error)
	GetCardByExternalID(ctx context.Context, externalID int64) (*model.CreditCard, error)
	CreateCard(ctx context.Context, card *model.CreditCard) error
	UpdateCard(ctx context.Context, card *model.CreditCard) error
	SetCardBank(ctx context.Context, cardID, bankID int64) error
	ListCards(ctx context.Context, filter CardFilter) ([]model.CreditCard, error)
	GetCatalogStats(ctx context.Context, viewerID *int64) (*CatalogStats, error)

	// Edit operations
	CreateEdit(ctx context.Context, edit *model.CreditCardEdit) error
	GetLatestEditForCard(ctx context.Context, cardID int64) (*model.CreditCardEdit, error)
	GetLatestEditForCardUser(ctx context.Context, cardID, userID int64) (*model.CreditCardEdit, error)
	ListEditsByCard(ctx context.Context, cardID int64) ([]model.CreditCardEdit, error)

	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}
