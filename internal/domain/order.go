package domain

// orderStep is the gap left between consecutive sibling ranks so that new
// entries can be inserted between existing ones without renumbering.
const orderStep = 1024.0

// OrderBetween returns a rank strictly between lo and hi for fractional
// insertion. Callers pass lo = 0 to insert before the first sibling and
// hi = 0 to append after the last (lo being its rank).
func OrderBetween(lo, hi float64) float64 {
	switch {
	case lo == 0 && hi == 0:
		return orderStep
	case hi == 0:
		return lo + orderStep
	case lo == 0:
		return hi / 2
	default:
		return lo + (hi-lo)/2
	}
}
