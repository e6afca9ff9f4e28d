// Package recon implements the reconciliation core: matching incoming
// payment and registration rows to loan accounts, merging them into
// the ledger, and collapsing duplicate accounts.
package recon

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/models"
	"github.com/kakembo/loanbook/internal/normalize"
	"github.com/kakembo/loanbook/internal/store"
)

// Candidate carries the identity fields of an incoming row.
type Candidate struct {
	Name          string
	Phone         string
	TransactionID string
}

// Matcher resolves a candidate to an existing loan, phone first, then
// name. Phone is the stronger signal: a phone hit wins even when the
// stored name disagrees with the candidate's.
type Matcher struct {
	store       store.Store
	countryCode string
	log         *logrus.Logger
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(st store.Store, countryCode string, log *logrus.Logger) *Matcher {
	return &Matcher{store: st, countryCode: countryCode, log: log}
}

// phoneKey reduces a free-text phone to the subscriber digits used for
// containment matching. Legacy phone fields carry trunk prefixes,
// country codes and stray text, so the last nine digits of the
// canonical form are the stable part.
func (m *Matcher) phoneKey(phone string) string {
	digits := normalize.Phone(phone, m.countryCode)
	if len(digits) > 9 {
		return digits[len(digits)-9:]
	}
	return digits
}

// Match returns the loan a candidate belongs to, or nil when neither
// phone nor name matches anything on record.
func (m *Matcher) Match(c Candidate) (*models.Loan, error) {
	if key := m.phoneKey(c.Phone); key != "" {
		loans, err := m.store.FindByPhone(key)
		if err != nil {
			return nil, fmt.Errorf("phone lookup failed: %w", err)
		}
		if len(loans) > 0 {
			loan := loans[0]
			if name := strings.TrimSpace(c.Name); name != "" && !strings.EqualFold(name, strings.TrimSpace(loan.Name)) {
				// Accepted anyway; surfaced for manual audit.
				m.log.WithFields(logrus.Fields{
					"loan_id":        loan.ID,
					"stored_name":    loan.Name,
					"candidate_name": c.Name,
					"phone":          c.Phone,
				}).Warn("Phone matched a loan with a different name")
			}
			return loan, nil
		}
	}

	if name := strings.TrimSpace(c.Name); name != "" && name != models.Placeholder {
		loans, err := m.store.FindByName(name)
		if err != nil {
			return nil, fmt.Errorf("name lookup failed: %w", err)
		}
		if len(loans) > 0 {
			return loans[0], nil
		}
	}

	return nil, nil
}
