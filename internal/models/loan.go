package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus represents the lifecycle state of a loan
type LoanStatus string

const (
	StatusActive    LoanStatus = "active"
	StatusCompleted LoanStatus = "completed"
	StatusDefaulted LoanStatus = "defaulted"
)

// Placeholder is the value legacy spreadsheets use for missing fields.
const Placeholder = "N/A"

// Loan represents a borrower's account record
type Loan struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	TotalDue  decimal.Decimal `json:"total_due"`

	CreatedAt  time.Time `json:"created_at"`
	ExpiryDate time.Time `json:"expiry_date"`

	// Cached by the status deriver; recomputed on payment append and field edits.
	Status       LoanStatus      `json:"status"`
	IsDefaulter  bool            `json:"is_defaulter"`
	DefaulterFee decimal.Decimal `json:"defaulter_fee"`

	// Append-only, insertion order = entry order.
	Payments []Payment `json:"payments"`

	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Employer   string `json:"employer,omitempty"`
	Referee    string `json:"referee,omitempty"`
	Purpose    string `json:"purpose,omitempty"`

	PassportPhoto string `json:"passport_photo,omitempty"`
	IDFrontPhoto  string `json:"id_front_photo,omitempty"`
	IDBackPhoto   string `json:"id_back_photo,omitempty"`

	// FromImport marks records auto-created by a reconciliation pass
	// rather than direct registration, for manual review.
	FromImport bool `json:"from_import"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Payment is an immutable ledger entry owned by exactly one loan
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Date           time.Time       `json:"date"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	DepositDetails string          `json:"deposit_details,omitempty"`
}

// AmountRepaid sums the loan's payment history.
func (l *Loan) AmountRepaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Remaining returns the balance still owed. Negative means overpaid.
func (l *Loan) Remaining() decimal.Decimal {
	return l.TotalDue.Sub(l.AmountRepaid())
}

// HasTransaction reports whether the loan already holds a payment
// with the given transaction id. Empty ids never match.
func (l *Loan) HasTransaction(txID string) bool {
	if txID == "" {
		return false
	}
	for _, p := range l.Payments {
		if p.TransactionID == txID {
			return true
		}
	}
	return false
}

// AppendPayment adds a ledger entry, assigning it an id if absent.
func (l *Loan) AppendPayment(p Payment) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	l.Payments = append(l.Payments, p)
}

// PendingConfirmation reports whether this is an import-created shell
// whose financials have not been confirmed yet. Deriving status for
// such a loan against its zero total due would mark it completed, so
// derivation waits until an operator fills the figures in.
func (l *Loan) PendingConfirmation() bool {
	return l.FromImport && l.TotalDue.IsZero()
}

// CompletenessScore scores a loan by how much usable data it carries.
// Used by the duplicate collapser to pick the best record per name.
func (l *Loan) CompletenessScore() int {
	score := 0
	for _, f := range []string{l.Name, l.Phone, l.Email, l.Address, l.Occupation, l.Employer, l.Referee, l.Purpose} {
		if f = strings.TrimSpace(f); f != "" && f != Placeholder {
			score++
		}
	}
	for _, amt := range []decimal.Decimal{l.Principal, l.Interest, l.TotalDue} {
		if amt.GreaterThan(decimal.Zero) {
			score += 2
		}
	}
	if len(l.Payments) > 0 {
		score += 3
	}
	for _, photo := range []string{l.PassportPhoto, l.IDFrontPhoto, l.IDBackPhoto} {
		if photo != "" && !strings.Contains(photo, "placeholder") {
			score++
		}
	}
	return score
}
