// Package status derives a loan's lifecycle state from its payment
// history and expiry date. The derivation is pure and idempotent, so
// every write path can reapply it without risk.
package status

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kakembo/loanbook/internal/models"
)

// Derivation is the result of recomputing a loan's cached state.
type Derivation struct {
	Status       models.LoanStatus
	IsDefaulter  bool
	DefaulterFee decimal.Decimal
}

// Derive computes status, defaulter flag and defaulter fee from the
// loan's payments, total due and expiry date at the given instant.
// Completion always wins over lateness: a fully repaid loan never
// accrues a fee, however overdue it was.
func Derive(loan *models.Loan, terms models.Terms, now time.Time) Derivation {
	expiry := loan.ExpiryDate
	if expiry.IsZero() {
		expiry = loan.CreatedAt.AddDate(0, 0, terms.TermDays)
	}

	if loan.Remaining().LessThanOrEqual(decimal.Zero) {
		return Derivation{Status: models.StatusCompleted, DefaulterFee: decimal.Zero}
	}

	if now.After(expiry) {
		weeksOverdue := int64(now.Sub(expiry).Hours() / (24 * 7))
		return Derivation{
			Status:       models.StatusDefaulted,
			IsDefaulter:  true,
			DefaulterFee: terms.PenaltyPerWeek.Mul(decimal.NewFromInt(weeksOverdue)),
		}
	}

	return Derivation{Status: models.StatusActive, DefaulterFee: decimal.Zero}
}

// Apply recomputes the loan's cached fields in place and stamps the
// update time. Callers invoke this after every payment append and
// after any edit of principal, total due or expiry date.
func Apply(loan *models.Loan, terms models.Terms, now time.Time) {
	d := Derive(loan, terms, now)
	loan.Status = d.Status
	loan.IsDefaulter = d.IsDefaulter
	loan.DefaulterFee = d.DefaulterFee
	loan.UpdatedAt = now
}
