// Package pricing holds plan prices and evaluates promo codes.
package pricing

import (
	"errors"
	"sort"
	"strings"

	"ainastudio/pkg/domain"
)

// ErrInvalidPromoCode is returned when a non-empty code is not recognised.
var ErrInvalidPromoCode = errors.New("invalid promo code")

// ErrUnknownPlan is returned for plans without a price.
var ErrUnknownPlan = errors.New("unknown plan")

var planPrices = map[domain.Plan]int64{
	domain.PlanMonthly: 4900,
	domain.PlanYearly:  49000,
}

// promo code -> percent off
var promoCodes = map[string]int{
	"AINA20": 20,
	"PEPE20": 20,
}

// Quote is the evaluated price of a plan. Amounts are in cents.
type Quote struct {
	Plan            domain.Plan `json:"plan,omitempty"`
	BaseCents       int64       `json:"baseCents"`
	FinalCents      int64       `json:"finalCents"`
	DiscountPercent int         `json:"discountPercent"`
	Code            string      `json:"code,omitempty"`
	Invalid         bool        `json:"invalid"`
}

// Base returns the undiscounted price in currency units.
func (q Quote) Base() float64 { return float64(q.BaseCents) / 100 }

// Final returns the discounted price in currency units.
func (q Quote) Final() float64 { return float64(q.FinalCents) / 100 }

// PlanPrice returns the base price of plan in cents.
func PlanPrice(plan domain.Plan) (int64, error) {
	cents, ok := planPrices[plan]
	if !ok {
		return 0, ErrUnknownPlan
	}
	return cents, nil
}

// NormalizeCode trims and upper-cases a promo code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup resolves a promo code to its percent discount.
func Lookup(code string) (int, bool) {
	pct, ok := promoCodes[NormalizeCode(code)]
	return pct, ok
}

// Codes lists the recognised promo codes in sorted order.
func Codes() []string {
	out := make([]string, 0, len(promoCodes))
	for code := range promoCodes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Apply evaluates code against baseCents. An empty code is not an error.
// An unknown code leaves the price unchanged and returns ErrInvalidPromoCode
// together with a quote marked Invalid.
func Apply(baseCents int64, code string) (Quote, error) {
	q := Quote{BaseCents: baseCents, FinalCents: baseCents, Code: NormalizeCode(code)}
	if q.Code == "" {
		return q, nil
	}
	pct, ok := promoCodes[q.Code]
	if !ok {
		q.Invalid = true
		return q, ErrInvalidPromoCode
	}
	q.DiscountPercent = pct
	q.FinalCents = discounted(baseCents, pct)
	return q, nil
}

// discounted applies pct off cents, rounding half a cent up.
func discounted(cents int64, pct int) int64 {
	return (cents*int64(100-pct) + 50) / 100
}

// QuotePlan prices plan with an optional promo code.
func QuotePlan(plan domain.Plan, code string) (Quote, error) {
	base, err := PlanPrice(plan)
	if err != nil {
		return Quote{Plan: plan}, err
	}
	q, err := Apply(base, code)
	q.Plan = plan
	return q, err
}
