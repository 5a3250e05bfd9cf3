package feed

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/finveo/cardfeed/internal/model"
)

// cardTypeCreditSentinel is the exact upstream marker for credit cards.
// Anything else classifies as DEBIT; the fallback is load-bearing for
// feed compatibility and must not be tightened.
const cardTypeCreditSentinel = "credit"

// Raw attribute keys required on every product record.
const (
	keyBank            = "bank"
	keyExternalID      = "id"
	keyProduct         = "produkt"
	keyLogo            = "logo"
	keyProvider        = "cc_provider"
	keyATMFreeDomestic = "gc_atmfree_domestic"
	keyWebsite         = "link"
	keyInformation     = "anmerkungen"
	keyIncentiveAmount = "incentive_amount"
	keyRating          = "bewertung"
	keyRate            = "sollzins"
	keyFirstYearFee    = "gebuehrenjahr1"
	keyAnnualCharges   = "dauerhaft"
	keyInsurance       = "insurances"
	keyRewardProgram   = "bonusprogram"
	keyCardType        = "cardtype_text"
)

// Normalize maps one raw feed record into a fully populated CardRecord.
// Every required key must be present; a missing key fails with a
// MalformedRecordError naming it. Comma decimal separators are
// converted before float parsing and the information text is
// HTML-entity-decoded.
func Normalize(rec Record) (*model.CardRecord, error) {
	raw, err := requireStrings(rec,
		keyBank, keyExternalID, keyProduct, keyLogo, keyProvider,
		keyATMFreeDomestic, keyWebsite, keyInformation, keyIncentiveAmount,
		keyRating, keyRate, keyFirstYearFee, keyAnnualCharges,
		keyInsurance, keyRewardProgram, keyCardType,
	)
	if err != nil {
		return nil, err
	}

	externalID, err := parseInt(raw[keyExternalID], keyExternalID)
	if err != nil {
		return nil, err
	}
	provider, err := parseInt(raw[keyProvider], keyProvider)
	if err != nil {
		return nil, err
	}

	out := &model.CardRecord{
		BankName:         raw[keyBank],
		ExternalID:       externalID,
		Name:             raw[keyProduct],
		ImageURL:         raw[keyLogo],
		Provider:         int(provider),
		AtmFreeDomestic:  parseBool(raw[keyATMFreeDomestic]),
		Website:          raw[keyWebsite],
		Information:      html.UnescapeString(raw[keyInformation]),
		HasInsurance:     parseBool(raw[keyInsurance]),
		HasRewardProgram: parseBool(raw[keyRewardProgram]),
		CardType:         classifyCardType(raw[keyCardType]),
	}

	if out.IncentiveAmount, err = parseFloat(raw[keyIncentiveAmount], keyIncentiveAmount); err != nil {
		return nil, err
	}
	if out.Rating, err = parseFloat(raw[keyRating], keyRating); err != nil {
		return nil, err
	}
	if out.AnnualEquivalentRate, err = parseCommaFloat(raw[keyRate], keyRate); err != nil {
		return nil, err
	}
	if out.FirstYearFee, err = parseCommaFloat(raw[keyFirstYearFee], keyFirstYearFee); err != nil {
		return nil, err
	}
	if out.AnnualCharges, err = parseCommaFloat(raw[keyAnnualCharges], keyAnnualCharges); err != nil {
		return nil, err
	}

	return out, nil
}

// classifyCardType maps the upstream type marker to a CardType. Exact
// sentinel match only; every other value is DEBIT.
func classifyCardType(raw string) model.CardType {
	if raw == cardTypeCreditSentinel {
		return model.CardTypeCredit
	}
	return model.CardTypeDebit
}

// requireStrings extracts the named keys as strings, failing on the
// first one that is absent or not a flat value.
func requireStrings(rec Record, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		value, ok := rec[key]
		if !ok {
			return nil, &MalformedRecordError{Key: key}
		}
		s, ok := value.(string)
		if !ok {
			return nil, &MalformedRecordError{Key: key}
		}
		out[key] = s
	}
	return out, nil
}

func parseFloat(s, key string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q for %s: %w", s, key, err)
	}
	return f, nil
}

// parseCommaFloat parses locale numerics that use a decimal comma.
func parseCommaFloat(s, key string) (float64, error) {
	return parseFloat(strings.ReplaceAll(s, ",", "."), key)
}

func parseInt(s, key string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value %q for %s: %w", s, key, err)
	}
	return n, nil
}

// parseBool follows the feed's flag convention: empty and "0" are
// false, anything else is true.
func parseBool(s string) bool {
	return s != "" && s != "0"
}
