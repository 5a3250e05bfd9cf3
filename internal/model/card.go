package model

import "time"

// CardType distinguishes credit from debit products.
type CardType string

// Supported card types.
const (
	CardTypeCredit CardType = "CREDIT"
	CardTypeDebit  CardType = "DEBIT"
)

// CreditCard is the canonical catalog record for a card product. The
// external id is the feed's stable identifier and never changes once
// assigned.
type CreditCard struct {
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Name                 string
	Information          string
	ImageURL             string
	Website              string
	CardType             CardType
	ID                   int64
	ExternalID           int64
	BankID               int64
	AnnualEquivalentRate float64
	FirstYearFee         float64
	AnnualCharges        float64
	IncentiveAmount      float64
	Rating               float64
	Provider             int
	HasRewardProgram     bool
	HasInsurance         bool
	AtmFreeDomestic      bool
	IsActive             bool
}

// CardRecord is one normalized feed record, typed and ready to upsert.
// Numeric fields are post-parse (comma decimals already converted), the
// information text is already entity-decoded.
type CardRecord struct {
	BankName             string
	Name                 string
	Information          string
	ImageURL             string
	Website              string
	CardType             CardType
	ExternalID           int64
	AnnualEquivalentRate float64
	FirstYearFee         float64
	AnnualCharges        float64
	IncentiveAmount      float64
	Rating               float64
	Provider             int
	HasRewardProgram     bool
	HasInsurance         bool
	AtmFreeDomestic      bool
}

// NewCreditCard builds a fresh active card from a feed record. Every
// field comes from the record; only here are provider, incentive amount
// and the domestic-ATM flag ever written.
func NewCreditCard(rec *CardRecord) *CreditCard {
	return &CreditCard{
		Name:                 rec.Name,
		ExternalID:           rec.ExternalID,
		CardType:             rec.CardType,
		FirstYearFee:         rec.FirstYearFee,
		AnnualCharges:        rec.AnnualCharges,
		AnnualEquivalentRate: rec.AnnualEquivalentRate,
		IncentiveAmount:      rec.IncentiveAmount,
		HasRewardProgram:     rec.HasRewardProgram,
		HasInsurance:         rec.HasInsurance,
		Information:          rec.Information,
		ImageURL:             rec.ImageURL,
		Website:              rec.Website,
		Provider:             rec.Provider,
		AtmFreeDomestic:      rec.AtmFreeDomestic,
		Rating:               rec.Rating,
		IsActive:             true,
	}
}

// ApplyRecord overwrites the updatable business fields from a feed
// record. The allow-list is fixed: external id, bank link, active flag,
// provider, incentive amount and the ATM flag are never touched here.
func (c *CreditCard) ApplyRecord(rec *CardRecord) {
	c.Name = rec.Name
	c.CardType = rec.CardType
	c.FirstYearFee = rec.FirstYearFee
	c.AnnualCharges = rec.AnnualCharges
	c.AnnualEquivalentRate = rec.AnnualEquivalentRate
	c.HasRewardProgram = rec.HasRewardProgram
	c.HasInsurance = rec.HasInsurance
	c.Information = rec.Information
	c.ImageURL = rec.ImageURL
	c.Rating = rec.Rating
	c.Website = rec.Website
}

// HasChanges compares the updatable business fields against a feed
// record using strict equality on normalized values.
func (c *CreditCard) HasChanges(rec *CardRecord) bool {
	return c.Name != rec.Name ||
		c.CardType != rec.CardType ||
		c.FirstYearFee != rec.FirstYearFee ||
		c.AnnualCharges != rec.AnnualCharges ||
		c.AnnualEquivalentRate != rec.AnnualEquivalentRate ||
		c.HasRewardProgram != rec.HasRewardProgram ||
		c.HasInsurance != rec.HasInsurance ||
		c.Information != rec.Information ||
		c.ImageURL != rec.ImageURL ||
		c.Rating != rec.Rating ||
		c.Website != rec.Website
}
