package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finveo/cardfeed/internal/common"
	"github.com/finveo/cardfeed/internal/model"
	"github.com/finveo/cardfeed/internal/service"
)

const cardColumns = `c.id, c.bank_id, c.name, c.external_id, c.information, c.image_url,
	c.website, c.annual_equivalent_rate, c.first_year_fee, c.annual_charges,
	c.has_reward_program, c.has_insurance, c.rating, c.card_type, c.is_active,
	c.atm_free_domestic, c.provider, c.incentive_amount, c.created_at, c.updated_at`

// latestEditJoin picks the newest edit row per card for one user. Older
// rows for the same pair are inert history.
const latestEditJoin = `
	LEFT JOIN credit_card_edits e ON e.id = (
		SELECT e2.id FROM credit_card_edits e2
		WHERE e2.credit_card_id = c.id AND e2.user_id = ?
		ORDER BY e2.created_at DESC, e2.id DESC
		LIMIT 1
	)`

func scanCard(scanner interface{ Scan(...any) error }, card *model.CreditCard, extra ...any) error {
	var (
		imageURL sql.NullString
		website  sql.NullString
		provider sql.NullInt64
	)
	dest := []any{
		&card.ID,
		&card.BankID,
		&card.Name,
		&card.ExternalID,
		&card.Information,
		&imageURL,
		&website,
		&card.AnnualEquivalentRate,
		&card.FirstYearFee,
		&card.AnnualCharges,
		&card.HasRewardProgram,
		&card.HasInsurance,
		&card.Rating,
		&card.CardType,
		&card.IsActive,
		&card.AtmFreeDomestic,
		&provider,
		&card.IncentiveAmount,
		&card.CreatedAt,
		&card.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := scanner.Scan(dest...); err != nil {
		return err
	}

	card.ImageURL = imageURL.String
	card.Website = website.String
	card.Provider = int(provider.Int64)
	return nil
}

// GetCardByID retrieves a card by its internal id.
func (s *SQLiteStorage) GetCardByID(ctx context.Context, id int64) (*model.CreditCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCardByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getCardByIDTx(ctx context.Context, q queryable, id int64) (*model.CreditCard, error) {
	var card model.CreditCard
	row := q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM credit_cards c WHERE c.id = ?`, id)

	err := scanCard(row, &card)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: card %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// GetCardByExternalID retrieves an active card by the feed's stable
// identifier. This is the upsert join key for reconciliation.
func (s *SQLiteStorage) GetCardByExternalID(ctx context.Context, externalID int64) (*model.CreditCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCardByExternalIDTx(ctx, s.db, externalID)
}

func (s *SQLiteStorage) getCardByExternalIDTx(ctx context.Context, q queryable, externalID int64) (*model.CreditCard, error) {
	var card model.CreditCard
	row := q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards c WHERE c.external_id = ? AND c.is_active = 1`,
		externalID)

	err := scanCard(row, &card)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: card with external id %d", common.ErrNotFound, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card by external id: %w", err)
	}
	return &card, nil
}

// CreateCard inserts a new card and backfills its id.
func (s *SQLiteStorage) CreateCard(ctx context.Context, card *model.CreditCard) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}
	return s.createCardTx(ctx, s.db, card)
}

func (s *SQLiteStorage) createCardTx(ctx context.Context, q queryable, card *model.CreditCard) error {
	now := time.Now().UTC()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	result, err := q.ExecContext(ctx, `
		INSERT INTO credit_cards (
			bank_id, name, external_id, information, image_url, website,
			annual_equivalent_rate, first_year_fee, annual_charges,
			has_reward_program, has_insurance, rating, card_type, is_active,
			atm_free_domestic, provider, incentive_amount, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.BankID, card.Name, card.ExternalID, card.Information, card.ImageURL,
		card.Website, card.AnnualEquivalentRate, card.FirstYearFee, card.AnnualCharges,
		card.HasRewardProgram, card.HasInsurance, card.Rating, string(card.CardType),
		card.IsActive, card.AtmFreeDomestic, card.Provider, card.IncentiveAmount,
		card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get card id: %w", err)
	}
	card.ID = id

	return nil
}

// UpdateCard rewrites the updatable business fields of a card. External
// id, creation timestamp and the active flag are never touched.
func (s *SQLiteStorage) UpdateCard(ctx context.Context, card *model.CreditCard) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}
	return s.updateCardTx(ctx, s.db, card)
}

func (s *SQLiteStorage) updateCardTx(ctx context.Context, q queryable, card *model.CreditCard) error {
	card.UpdatedAt = time.Now().UTC()

	_, err := q.ExecContext(ctx, `
		UPDATE credit_cards
		SET name = ?, card_type = ?, first_year_fee = ?, annual_charges = ?,
			annual_equivalent_rate = ?, has_reward_program = ?, has_insurance = ?,
			information = ?, image_url = ?, rating = ?, website = ?, updated_at = ?
		WHERE id = ?
	`,
		card.Name, string(card.CardType), card.FirstYearFee, card.AnnualCharges,
		card.AnnualEquivalentRate, card.HasRewardProgram, card.HasInsurance,
		card.Information, card.ImageURL, card.Rating, card.Website,
		card.UpdatedAt, card.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}

	return nil
}

// SetCardBank re-points a card at its resolved bank.
func (s *SQLiteStorage) SetCardBank(ctx context.Context, cardID, bankID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.setCardBankTx(ctx, s.db, cardID, bankID)
}

func (s *SQLiteStorage) setCardBankTx(ctx context.Context, q queryable, cardID, bankID int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE credit_cards SET bank_id = ? WHERE id = ? AND bank_id != ?
	`, bankID, cardID, bankID)
	if err != nil {
		return fmt.Errorf("failed to set card bank: %w", err)
	}
	return nil
}

// ListCards retrieves active cards matching the filter, ordered by
// rating descending. With a viewer, charge bounds compare against the
// effective annual charges and the returned cards carry the viewer's
// override values for name, information and annual charges.
func (s *SQLiteStorage) ListCards(ctx context.Context, filter service.CardFilter) ([]model.CreditCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listCardsTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) listCardsTx(ctx context.Context, q queryable, filter service.CardFilter) ([]model.CreditCard, error) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString(`SELECT ` + cardColumns)
	if filter.ViewerID != nil {
		sb.WriteString(`, e.name, e.description, e.annual_charges`)
	}
	sb.WriteString(` FROM credit_cards c`)

	chargeExpr := "c.annual_charges"
	if filter.ViewerID != nil {
		sb.WriteString(latestEditJoin)
		args = append(args, *filter.ViewerID)
		chargeExpr = "COALESCE(e.annual_charges, c.annual_charges)"
	}

	sb.WriteString(` WHERE c.is_active = 1`)

	if filter.CardType != nil {
		sb.WriteString(` AND c.card_type = ?`)
		args = append(args, string(*filter.CardType))
	}
	if len(filter.BankIDs) > 0 {
		sb.WriteString(` AND c.bank_id IN (?` + strings.Repeat(", ?", len(filter.BankIDs)-1) + `)`)
		for _, id := range filter.BankIDs {
			args = append(args, id)
		}
	}
	if filter.RateMin != nil {
		sb.WriteString(` AND c.annual_equivalent_rate >= ?`)
		args = append(args, *filter.RateMin)
	}
	if filter.RateMax != nil {
		sb.WriteString(` AND c.annual_equivalent_rate <= ?`)
		args = append(args, *filter.RateMax)
	}
	if filter.ChargeMin != nil {
		sb.WriteString(` AND ` + chargeExpr + ` >= ?`)
		args = append(args, *filter.ChargeMin)
	}
	if filter.ChargeMax != nil {
		sb.WriteString(` AND ` + chargeExpr + ` <= ?`)
		args = append(args, *filter.ChargeMax)
	}

	sb.WriteString(` ORDER BY c.rating DESC`)

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []model.CreditCard
	for rows.Next() {
		var card model.CreditCard

		if filter.ViewerID == nil {
			if err := scanCard(rows, &card); err != nil {
				return nil, fmt.Errorf("failed to scan card: %w", err)
			}
			cards = append(cards, card)
			continue
		}

		var (
			editName        sql.NullString
			editDescription sql.NullString
			editCharges     sql.NullFloat64
		)
		if err := scanCard(rows, &card, &editName, &editDescription, &editCharges); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}

		// Blend the viewer's override values over the canonical record.
		if editName.Valid {
			card.Name = editName.String
		}
		if editDescription.Valid {
			card.Information = editDescription.String
		}
		if editCharges.Valid {
			card.AnnualCharges = editCharges.Float64
		}
		cards = append(cards, card)
	}

	return cards, rows.Err()
}

// GetCatalogStats aggregates catalog composition: counts by card type,
// by annual equivalent rate bucket and per bank. Overrides cannot
// change a card's type, rate or bank, so viewer-specific counts equal
// canonical ones; the viewer id is accepted for interface symmetry.
func (s *SQLiteStorage) GetCatalogStats(ctx context.Context, viewerID *int64) (*service.CatalogStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCatalogStatsTx(ctx, s.db, viewerID)
}

func (s *SQLiteStorage) getCatalogStatsTx(ctx context.Context, q queryable, _ *int64) (*service.CatalogStats, error) {
	stats := &service.CatalogStats{
		CardTypes: make(map[model.CardType]int),
	}

	rows, err := q.QueryContext(ctx, `
		SELECT card_type, COUNT(*)
		FROM credit_cards
		WHERE is_active = 1
		GROUP BY card_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count card types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cardType string
			count    int
		)
		if err := rows.Scan(&cardType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan card type count: %w", err)
		}
		stats.CardTypes[model.CardType(cardType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN annual_equivalent_rate < 15 THEN 1 END),
			COUNT(CASE WHEN annual_equivalent_rate >= 15 AND annual_equivalent_rate < 30 THEN 1 END),
			COUNT(CASE WHEN annual_equivalent_rate >= 30 THEN 1 END)
		FROM credit_cards
		WHERE is_active = 1
	`).Scan(&stats.RateBuckets.Below15, &stats.RateBuckets.From15To30, &stats.RateBuckets.Above30)
	if err != nil {
		return nil, fmt.Errorf("failed to count rate buckets: %w", err)
	}

	bankRows, err := q.QueryContext(ctx, `
		SELECT b.id, b.name, COUNT(c.id)
		FROM banks b
		LEFT JOIN credit_cards c ON c.bank_id = b.id AND c.is_active = 1
		GROUP BY b.id
		ORDER BY b.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards per bank: %w", err)
	}
	defer func() { _ = bankRows.Close() }()

	for bankRows.Next() {
		var bc service.BankCount
		if err := bankRows.Scan(&bc.ID, &bc.Name, &bc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan bank count: %w", err)
		}
		stats.Banks = append(stats.Banks, bc)
	}

	return stats, bankRows.Err()
}
