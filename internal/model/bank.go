// Package model defines the core domain types for the card catalog.
package model

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Bank is an issuing institution grouping cards in the catalog.
type Bank struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string
	Code      string
	ID        int64
	IsActive  bool
}

// codeFolder strips diacritics so "Río" folds to "Rio" before slugging.
var codeFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DeriveBankCode computes the stable short code for a bank name:
// diacritics folded, non-alphanumerics stripped, uppercased.
// "Banco Río S.A." derives "BANCORIOSA".
func DeriveBankCode(name string) string {
	folded, _, err := transform.String(codeFolder, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(unicode.ToUpper(r))
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ApplyName is the only permitted bank update: it sets the display name
// and recomputes the derived code.
func (b *Bank) ApplyName(name string) {
	b.Name = name
	b.Code = DeriveBankCode(name)
}

// NeedsUpdate reports whether the stored name or derived code differs
// from what the given feed name would produce.
func (b *Bank) NeedsUpdate(name string) bool {
	return b.Name != name || b.Code != DeriveBankCode(name)
}
