// Package tax resolves the GST regime for an invoice and computes the
// resulting tax split.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crestline-hq/crestline/internal/shared"
)

// EntityType identifies the legal entity issuing the invoice. The set is
// closed; anything else is a configuration error.
type EntityType string

const (
	EntityDomesticServices EntityType = "crestline_services_india"
	EntityDomesticTech     EntityType = "crestline_tech_india"
	EntityForeignUS        EntityType = "crestline_tech_usa"
)

// Valid reports whether the entity type is one of the known entities.
func (e EntityType) Valid() bool {
	switch e {
	case EntityDomesticServices, EntityDomesticTech, EntityForeignUS:
		return true
	}
	return false
}

// Foreign reports whether the entity is registered outside India.
func (e EntityType) Foreign() bool {
	return e == EntityForeignUS
}

// ClientType records where the client sits relative to the issuing entity.
type ClientType string

const (
	ClientSameState  ClientType = "same_state"
	ClientOtherState ClientType = "other_state"
	ClientForeign    ClientType = "foreign"
)

// Regime is the tax treatment applied to one invoice.
type Regime string

const (
	RegimeDomesticSameState  Regime = "DOMESTIC_SAME_STATE"
	RegimeDomesticOtherState Regime = "DOMESTIC_OTHER_STATE"
	RegimeForeign            Regime = "FOREIGN"
)

// Resolve derives the regime from the entity type first: a foreign entity is
// always billed under the foreign regime regardless of the stored client
// type, which may be stale. For domestic entities the client type selects
// between the intra-state and inter-state splits.
func Resolve(entity EntityType, client ClientType) (Regime, error) {
	if !entity.Valid() {
		return "", fmt.Errorf("%w: unknown entity type %q", shared.ErrConfiguration, entity)
	}
	if entity.Foreign() {
		return RegimeForeign, nil
	}
	switch client {
	case ClientSameState:
		return RegimeDomesticSameState, nil
	case ClientOtherState:
		return RegimeDomesticOtherState, nil
	case ClientForeign:
		return "", fmt.Errorf("%w: domestic entity %q cannot bill a foreign client type", shared.ErrConfiguration, entity)
	case "":
		return "", fmt.Errorf("%w: client type required for domestic entity %q", shared.ErrConfiguration, entity)
	default:
		return "", fmt.Errorf("%w: unknown client type %q", shared.ErrConfiguration, client)
	}
}

// Rates holds the GST percentages configured on a purchase order.
type Rates struct {
	IGST decimal.Decimal
	CGST decimal.Decimal
	SGST decimal.Decimal
}

// DefaultRates are the statutory defaults: 18% IGST, 9% CGST, 9% SGST.
func DefaultRates() Rates {
	return Rates{
		IGST: decimal.NewFromInt(18),
		CGST: decimal.NewFromInt(9),
		SGST: decimal.NewFromInt(9),
	}
}

// Breakdown is the tax amount split per GST head. Heads that do not apply
// under the regime stay zero.
type Breakdown struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

// Total sums the applied heads.
func (b Breakdown) Total() decimal.Decimal {
	return b.CGST.Add(b.SGST).Add(b.IGST)
}

var hundred = decimal.NewFromInt(100)

// Apply computes the tax on a subtotal under the regime, each head rounded
// to 2 decimal places. The foreign regime applies no tax.
func (r Regime) Apply(subtotal decimal.Decimal, rates Rates) Breakdown {
	var b Breakdown
	switch r {
	case RegimeDomesticSameState:
		b.CGST = subtotal.Mul(rates.CGST).Div(hundred).Round(2)
		b.SGST = subtotal.Mul(rates.SGST).Div(hundred).Round(2)
	case RegimeDomesticOtherState:
		b.IGST = subtotal.Mul(rates.IGST).Div(hundred).Round(2)
	}
	return b
}
