// Package storage provides the data persistence layer for the card catalog.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/finveo/cardfeed/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidBank  = errors.New("invalid bank")
	ErrInvalidCard  = errors.New("invalid card")
	ErrInvalidEdit  = errors.New("invalid edit")
	ErrInvalidUser  = errors.New("invalid user")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateBank(bank *model.Bank) error {
	if bank == nil {
		return fmt.Errorf("%w: bank", ErrNilParameter)
	}
	if strings.TrimSpace(bank.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBank)
	}
	if strings.TrimSpace(bank.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidBank)
	}
	return nil
}

func validateCard(card *model.CreditCard) error {
	if card == nil {
		return fmt.Errorf("%w: card", ErrNilParameter)
	}
	if strings.TrimSpace(card.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCard)
	}
	if card.ExternalID <= 0 {
		return fmt.Errorf("%w: external id is required", ErrInvalidCard)
	}
	if card.CardType != model.CardTypeCredit && card.CardType != model.CardTypeDebit {
		return fmt.Errorf("%w: unknown card type %q", ErrInvalidCard, card.CardType)
	}
	return nil
}

func validateEdit(edit *model.CreditCardEdit) error {
	if edit == nil {
		return fmt.Errorf("%w: edit", ErrNilParameter)
	}
	if edit.CreditCardID <= 0 {
		return fmt.Errorf("%w: card id is required", ErrInvalidEdit)
	}
	if edit.UserID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidEdit)
	}
	if edit.Name == nil && edit.Description == nil && edit.AnnualCharges == nil {
		return fmt.Errorf("%w: at least one field must be set", ErrInvalidEdit)
	}
	return nil
}

func validateUser(user *model.User) error {
	if user == nil {
		return fmt.Errorf("%w: user", ErrNilParameter)
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	if user.PasswordHash == "" {
		return fmt.Errorf("%w: password hash is required", ErrInvalidUser)
	}
	return nil
}
