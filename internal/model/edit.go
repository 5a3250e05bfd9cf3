package model

import "time"

// CreditCardEdit is a user-scoped override of a card's display fields.
// Rows are append-only history; the newest row per (card, user) is the
// current edit. A nil field means "no override, fall back to canonical".
type CreditCardEdit struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Name          *string
	Description   *string
	AnnualCharges *float64
	ID            int64
	CreditCardID  int64
	UserID        int64
}

// EffectiveName returns the override name if set, else the canonical one.
func (e *CreditCardEdit) EffectiveName(card *CreditCard) string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return card.Name
}

// EffectiveDescription returns the override description if set, else
// the canonical information text.
func (e *CreditCardEdit) EffectiveDescription(card *CreditCard) string {
	if e != nil && e.Description != nil {
		return *e.Description
	}
	return card.Information
}

// EffectiveAnnualCharges returns the override charge if set, else the
// canonical one.
func (e *CreditCardEdit) EffectiveAnnualCharges(card *CreditCard) float64 {
	if e != nil && e.AnnualCharges != nil {
		return *e.AnnualCharges
	}
	return card.AnnualCharges
}
