package offer

import "time"

// IsValid reports whether the offer is usable at now: it must be active and
// now must lie within the inclusive [StartDate, EndDate] window.
func (o *Offer) IsValid(now time.Time) bool {
	if !o.Active {
		return false
	}
	return !now.Before(o.StartDate) && !now.After(o.EndDate)
}
