package models

import "github.com/shopspring/decimal"

// Terms holds the lending policy applied when deriving loan financials
// and defaulter state.
type Terms struct {
	InterestRate   decimal.Decimal // flat rate applied to principal
	TermDays       int             // days from issue to expiry
	PenaltyPerWeek decimal.Decimal // flat fee per full week overdue
}

// DefaultTerms returns the standard 20% / 28-day / 1000-per-week policy.
func DefaultTerms() Terms {
	return Terms{
		InterestRate:   decimal.NewFromFloat(0.2),
		TermDays:       28,
		PenaltyPerWeek: decimal.NewFromInt(1000),
	}
}

// InterestOn computes the interest charge for a principal.
func (t Terms) InterestOn(principal decimal.Decimal) decimal.Decimal {
	return principal.Mul(t.InterestRate)
}
