package validate

import (
	"fmt"

	"github.com/meridianquant/docvault/marketdata"
	"github.com/meridianquant/docvault/store"
)

// Violation codes reported by the built-in rules.
const (
	CodeRequired     = "required"
	CodeOutOfRange   = "out_of_range"
	CodeUnknownValue = "unknown_value"
	CodeBadFormat    = "bad_format"
	CodeWrongType    = "wrong_type"
)

// DefaultRules returns the built-in rule set for the known document types.
func DefaultRules() *Rules {
	r := NewRules()
	r.Register("price.spot", "fx", ValidatorFunc(validateFxSpot))
	r.Register("price.ordinal", "crypto", ValidatorFunc(validateOrdinal))
	r.Register("vol.surface", "fx", ValidatorFunc(validateVolSurface))
	return r
}

func validateFxSpot(doc marketdata.Document) []store.Violation {
	price, ok := doc.(*marketdata.FxSpotPrice)
	if !ok {
		return []store.Violation{{
			Field:   "document",
			Code:    CodeWrongType,
			Message: fmt.Sprintf("expected fx spot price, got %T", doc),
		}}
	}

	var violations []store.Violation
	violations = append(violations, coreViolations(doc)...)

	if !price.Price.IsPositive() {
		violations = append(violations, store.Violation{
			Field:   "price",
			Code:    CodeOutOfRange,
			Message: fmt.Sprintf("price must be positive, got %s", price.Price),
		})
	}
	switch price.Side {
	case marketdata.SideBid, marketdata.SideMid, marketdata.SideAsk:
	default:
		violations = append(violations, store.Violation{
			Field:   "side",
			Code:    CodeUnknownValue,
			Message: fmt.Sprintf("side must be bid, mid, or ask, got %q", price.Side),
		})
	}
	for field, ccy := range map[string]string{
		"baseCurrency":  price.BaseCurrency,
		"quoteCurrency": price.QuoteCurrency,
	} {
		if len(ccy) != 3 {
			violations = append(violations, store.Violation{
				Field:   field,
				Code:    CodeBadFormat,
				Message: fmt.Sprintf("expected a 3-letter currency code, got %q", ccy),
			})
		}
	}
	return violations
}

func validateOrdinal(doc marketdata.Document) []store.Violation {
	price, ok := doc.(*marketdata.OrdinalPrice)
	if !ok {
		return []store.Violation{{
			Field:   "document",
			Code:    CodeWrongType,
			Message: fmt.Sprintf("expected ordinal price, got %T", doc),
		}}
	}

	var violations []store.Violation
	violations = append(violations, coreViolations(doc)...)

	if price.Collection == "" {
		violations = append(violations, store.Violation{
			Field:   "collection",
			Code:    CodeRequired,
			Message: "collection is required",
		})
	}
	if price.InscriptionNumber < 0 {
		violations = append(violations, store.Violation{
			Field:   "inscriptionNumber",
			Code:    CodeOutOfRange,
			Message: fmt.Sprintf("inscription number must not be negative, got %d", price.InscriptionNumber),
		})
	}
	if price.Price.IsNegative() {
		violations = append(violations, store.Violation{
			Field:   "price",
			Code:    CodeOutOfRange,
			Message: fmt.Sprintf("price must not be negative, got %s", price.Price),
		})
	}
	if price.Currency == "" {
		violations = append(violations, store.Violation{
			Field:   "currency",
			Code:    CodeRequired,
			Message: "currency is required",
		})
	}
	return violations
}

func validateVolSurface(doc marketdata.Document) []store.Violation {
	surface, ok := doc.(*marketdata.VolatilitySurface)
	if !ok {
		return []store.Violation{{
			Field:   "document",
			Code:    CodeWrongType,
			Message: fmt.Sprintf("expected volatility surface, got %T", doc),
		}}
	}

	var violations []store.Violation
	violations = append(violations, coreViolations(doc)...)

	if len(surface.Points) == 0 {
		violations = append(violations, store.Violation{
			Field:   "points",
			Code:    CodeRequired,
			Message: "surface must contain at least one point",
		})
	}
	for i, p := range surface.Points {
		if p.Tenor == "" {
			violations = append(violations, store.Violation{
				Field:   fmt.Sprintf("points[%d].tenor", i),
				Code:    CodeRequired,
				Message: "tenor is required",
			})
		}
		if !p.Volatility.IsPositive() {
			violations = append(violations, store.Violation{
				Field:   fmt.Sprintf("points[%d].volatility", i),
				Code:    CodeOutOfRange,
				Message: fmt.Sprintf("volatility must be positive, got %s", p.Volatility),
			})
		}
	}
	return violations
}

// coreViolations checks the identity fields every document needs.
func coreViolations(doc marketdata.Document) []store.Violation {
	c := doc.DocumentCore()
	var violations []store.Violation
	for field, value := range map[string]string{
		"dataType":      c.DataType,
		"assetClass":    c.AssetClass,
		"assetId":       c.AssetID,
		"region":        c.Region,
		"documentType":  c.DocumentType,
		"schemaVersion": c.SchemaVersion,
	} {
		if value == "" {
			violations = append(violations, store.Violation{
				Field:   field,
				Code:    CodeRequired,
				Message: field + " is required",
			})
		}
	}
	if c.AsOfDate.IsZero() {
		violations = append(violations, store.Violation{
			Field:   "asOfDate",
			Code:    CodeRequired,
			Message: "asOfDate is required",
		})
	}
	return violations
}
