package offer

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is an offer together with the discount it yields for one line.
type Candidate struct {
	Offer  Offer
	Amount decimal.Decimal
}

// LineResolution holds the automatic offers applicable to a single line,
// best first, and the one selected for it.
type LineResolution struct {
	Line       Line
	Candidates []Candidate
	// Selected is nil when no automatic offer yields a discount for the line.
	Selected *Candidate
}

// Plan is the automatic discount decision for a cart.
type Plan struct {
	Lines []LineResolution
}

// Selections returns the chosen offer per line ID. Lines without a discount
// are absent.
func (p *Plan) Selections() map[string]Candidate {
	out := make(map[string]Candidate, len(p.Lines))
	for _, lr := range p.Lines {
		if lr.Selected != nil {
			out[lr.Line.ID] = *lr.Selected
		}
	}
	return out
}

// Total returns the sum of the selected discounts.
func (p *Plan) Total() decimal.Decimal {
	sum := zero
	for _, lr := range p.Lines {
		if lr.Selected != nil {
			sum = sum.Add(lr.Selected.Amount)
		}
	}
	return sum
}

// ResolveAutomatic selects at most one automatic offer per line. Only valid,
// non-coupon offers whose scope covers the line and whose discount is
// positive are considered. The largest discount wins; ties go to the
// earliest StartDate, then to the earlier position in offers.
func ResolveAutomatic(lines []Line, offers []Offer, now time.Time) *Plan {
	automatic := filterOffers(offers, now, true, false)

	plan := &Plan{Lines: make([]LineResolution, 0, len(lines))}
	for _, line := range lines {
		lr := LineResolution{Line: line}
		for i := range automatic {
			o := &automatic[i]
			if !o.Matches(line) {
				continue
			}
			amount := CalculateLine(o, line)
			if !amount.IsPositive() {
				continue
			}
			lr.Candidates = append(lr.Candidates, Candidate{Offer: *o, Amount: amount})
		}
		slices.SortStableFunc(lr.Candidates, compareCandidates)
		if len(lr.Candidates) > 0 {
			lr.Selected = &lr.Candidates[0]
		}
		plan.Lines = append(plan.Lines, lr)
	}
	return plan
}

// Applicable returns the valid offers whose scope covers at least one of the
// lines, in snapshot order. includeAutoApply and includeCouponOnly select
// automatic and coupon-gated offers respectively. With no lines only
// store-wide offers are returned.
func Applicable(lines []Line, offers []Offer, now time.Time, includeAutoApply, includeCouponOnly bool) []Offer {
	var out []Offer
	for _, o := range filterOffers(offers, now, includeAutoApply, includeCouponOnly) {
		if len(lines) == 0 {
			if o.Scope.Kind() == ScopeStoreWide {
				out = append(out, o)
			}
			continue
		}
		if o.MatchesAny(lines) {
			out = append(out, o)
		}
	}
	return out
}

func filterOffers(offers []Offer, now time.Time, automatic, couponGated bool) []Offer {
	var out []Offer
	for i := range offers {
		o := &offers[i]
		if !o.IsValid(now) {
			continue
		}
		if (o.IsAutomatic() && automatic) || (o.IsCouponGated() && couponGated) {
			out = append(out, *o)
		}
	}
	return out
}

// compareCandidates orders by amount descending, then StartDate ascending.
func compareCandidates(a, b Candidate) int {
	if c := b.Amount.Cmp(a.Amount); c != 0 {
		return c
	}
	return a.Offer.StartDate.Compare(b.Offer.StartDate)
}
