// Package edits implements the override layer: user-scoped alternate
// values resolved over canonical catalog records at read time.
package edits

import (
	"context"
	"errors"
	"fmt"

	"github.com/finveo/cardfeed/internal/common"
	"github.com/finveo/cardfeed/internal/model"
	"github.com/finveo/cardfeed/internal/service"
)

// Input carries the override fields a user submitted. Nil means the
// field was not supplied and keeps falling back to the canonical value.
type Input struct {
	Name          *string
	Description   *string
	AnnualCharges *float64
}

// hasChanges reports whether any field was actually supplied.
func (in Input) hasChanges() bool {
	return in.Name != nil || in.Description != nil || in.AnnualCharges != nil
}

// validate checks the supplied fields only and collects per-field
// messages for rejected submissions.
func (in Input) validate() error {
	fields := make(map[string]string)

	if in.Name != nil {
		if n := len(*in.Name); n < 3 || n > 255 {
			fields["name"] = "name must be between 3 and 255 characters"
		}
	}
	if in.Description != nil {
		if n := len(*in.Description); n < 5 || n > 1000 {
			fields["description"] = "description must be between 5 and 1000 characters"
		}
	}
	if in.AnnualCharges != nil && *in.AnnualCharges < 0 {
		fields["annualCharges"] = "annual charges must be greater than or equal to 0"
	}

	if len(fields) > 0 {
		return &common.ValidationError{Fields: fields}
	}
	return nil
}

// Service resolves overrides for display and handles edit submissions.
type Service struct {
	storage service.Storage
}

// NewService creates an override service on top of a store.
func NewService(storage service.Storage) *Service {
	return &Service{storage: storage}
}

// CreateEdit persists a new edit row for a card. The caller must be
// authenticated (userID > 0). The first user to edit a card claims edit
// rights on it: submissions by anyone else are rejected with
// common.ErrNotAuthorized until no edit exists. Submissions with no
// supplied fields are a no-op and return nil.
func (s *Service) CreateEdit(ctx context.Context, cardID, userID int64, in Input) (*model.CreditCardEdit, error) {
	if userID <= 0 {
		return nil, common.ErrAuthenticationRequired
	}
	if !in.hasChanges() {
		return nil, nil
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.storage.GetCardByID(ctx, cardID); err != nil {
		return nil, err
	}

	latest, err := s.storage.GetLatestEditForCard(ctx, cardID)
	switch {
	case err == nil:
		if latest.UserID != userID {
			return nil, fmt.Errorf("%w: card %d is already edited by another user", common.ErrNotAuthorized, cardID)
		}
	case errors.Is(err, common.ErrNotFound):
		// First edit for this card.
	default:
		return nil, err
	}

	edit := &model.CreditCardEdit{
		CreditCardID:  cardID,
		UserID:        userID,
		Name:          in.Name,
		Description:   in.Description,
		AnnualCharges: in.AnnualCharges,
	}
	if err := s.storage.CreateEdit(ctx, edit); err != nil {
		return nil, err
	}

	return edit, nil
}

// latestFor returns the user's current edit for a card, or nil when the
// user never edited it.
func (s *Service) latestFor(ctx context.Context, cardID, userID int64) (*model.CreditCardEdit, error) {
	edit, err := s.storage.GetLatestEditForCardUser(ctx, cardID, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return edit, nil
}

// EffectiveName resolves the display name of a card for a user.
func (s *Service) EffectiveName(ctx context.Context, card *model.CreditCard, userID int64) (string, error) {
	edit, err := s.latestFor(ctx, card.ID, userID)
	if err != nil {
		return "", err
	}
	return edit.EffectiveName(card), nil
}

// EffectiveDescription resolves the description of a card for a user.
func (s *Service) EffectiveDescription(ctx context.Context, card *model.CreditCard, userID int64) (string, error) {
	edit, err := s.latestFor(ctx, card.ID, userID)
	if err != nil {
		return "", err
	}
	return edit.EffectiveDescription(card), nil
}

// EffectiveAnnualCharges resolves the recurring annual charge of a card
// for a user.
func (s *Service) EffectiveAnnualCharges(ctx context.Context, card *model.CreditCard, userID int64) (float64, error) {
	edit, err := s.latestFor(ctx, card.ID, userID)
	if err != nil {
		return 0, err
	}
	return edit.EffectiveAnnualCharges(card), nil
}

// ApplyOverrides returns a copy of the card with the user's current
// override values blended over the canonical fields.
func (s *Service) ApplyOverrides(ctx context.Context, card *model.CreditCard, userID int64) (*model.CreditCard, error) {
	edit, err := s.latestFor(ctx, card.ID, userID)
	if err != nil {
		return nil, err
	}

	blended := *card
	blended.Name = edit.EffectiveName(card)
	blended.Information = edit.EffectiveDescription(card)
	blended.AnnualCharges = edit.EffectiveAnnualCharges(card)
	return &blended, nil
}

// History returns every edit for a card, newest first.
func (s *Service) History(ctx context.Context, cardID int64) ([]model.CreditCardEdit, error) {
	return s.storage.ListEditsByCard(ctx, cardID)
}
