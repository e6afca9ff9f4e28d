package recon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/ingest"
	"github.com/kakembo/loanbook/internal/models"
	"github.com/kakembo/loanbook/internal/normalize"
	"github.com/kakembo/loanbook/internal/status"
	"github.com/kakembo/loanbook/internal/store"
)

// Reconciler merges incoming statement rows into the loan ledger. A
// batch is processed row by row; a failing row is counted and skipped,
// never allowed to abort the rest of the batch. Re-running the same
// batch is safe: rows whose transaction id is already on record are
// skipped.
type Reconciler struct {
	store       store.Store
	matcher     *Matcher
	terms       models.Terms
	countryCode string
	log         *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(st store.Store, terms models.Terms, countryCode string, log *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:       st,
		matcher:     NewMatcher(st, countryCode, log),
		terms:       terms,
		countryCode: countryCode,
		log:         log,
		now:         time.Now,
	}
}

func blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == models.Placeholder
}

// rowError logs a failed row with enough context to find it again.
func (r *Reconciler) rowError(row ingest.Row, err error, msg string) {
	r.log.WithFields(logrus.Fields{
		"name":           row.Name,
		"phone":          row.Phone,
		"transaction_id": row.TransactionID,
		"error":          err,
	}).Error(msg)
}

// isDuplicate runs the global transaction-id check that makes batch
// re-runs idempotent. A transaction id already present on any loan
// means the row was imported before.
func (r *Reconciler) isDuplicate(txID string) (bool, error) {
	if txID == "" {
		return false, nil
	}
	return r.store.HasTransaction(txID)
}

// ImportPayments reconciles a batch of bare payment-statement rows.
func (r *Reconciler) ImportPayments(rows []ingest.Row) *models.ImportSummary {
	summary := &models.ImportSummary{Total: len(rows), TotalAmount: decimal.Zero}
	for _, row := range rows {
		r.importPayment(row, summary)
	}
	r.log.WithFields(logrus.Fields{
		"total": summary.Total, "matched": summary.Matched, "new": summary.New,
		"skipped": summary.Skipped, "errors": summary.Errors,
		"amount": summary.TotalAmount.String(),
	}).Info("Payment import finished")
	return summary
}

func (r *Reconciler) importPayment(row ingest.Row, summary *models.ImportSummary) {
	amount := normalize.Currency(row.Amount)
	if amount.LessThanOrEqual(decimal.Zero) {
		summary.Errors++
		r.rowError(row, nil, "Rejected payment row: non-positive amount")
		return
	}
	if blank(row.Name) && blank(row.Phone) {
		summary.Errors++
		r.rowError(row, nil, "Rejected payment row: no name or phone")
		return
	}

	txID := strings.TrimSpace(row.TransactionID)
	dup, err := r.isDuplicate(txID)
	if err != nil {
		summary.Errors++
		r.rowError(row, err, "Duplicate check failed")
		return
	}
	if dup {
		summary.Skipped++
		return
	}

	loan, err := r.matcher.Match(Candidate{Name: row.Name, Phone: row.Phone, TransactionID: txID})
	if err != nil {
		summary.Errors++
		r.rowError(row, err, "Match failed")
		return
	}

	now := r.now()
	payment := models.Payment{
		Amount:         amount,
		Date:           normalize.Date(row.Date, now),
		TransactionID:  txID,
		DepositDetails: strings.TrimSpace(row.Method),
	}

	if loan != nil {
		if loan.HasTransaction(txID) {
			summary.Skipped++
			return
		}
		loan.AppendPayment(payment)
		if name := strings.TrimSpace(row.Name); name != "" && name != models.Placeholder && name != loan.Name {
			loan.Name = name
		}
		if loan.PendingConfirmation() {
			loan.UpdatedAt = now
		} else {
			status.Apply(loan, r.terms, now)
		}
		if err := r.store.Save(loan); err != nil {
			summary.Errors++
			r.rowError(row, err, "Failed to save matched loan")
			return
		}
		summary.Matched++
		summary.Updated++
		summary.TotalAmount = summary.TotalAmount.Add(amount)
		return
	}

	// Financials are unknown until an operator confirms them, so the
	// shell stays active rather than being derived against a zero due.
	created := r.newImportedLoan(row, payment.Date)
	created.AppendPayment(payment)
	created.UpdatedAt = now
	if err := r.store.Insert(created); err != nil {
		summary.Errors++
		r.rowError(row, err, "Failed to create loan for unmatched payment")
		return
	}
	summary.New++
	summary.TotalAmount = summary.TotalAmount.Add(amount)
}

// newImportedLoan builds the find-or-create shell: financials unknown
// until an operator confirms them, flagged for manual review.
func (r *Reconciler) newImportedLoan(row ingest.Row, createdAt time.Time) *models.Loan {
	return &models.Loan{
		Name:       strings.TrimSpace(row.Name),
		Phone:      strings.TrimSpace(row.Phone),
		Principal:  decimal.Zero,
		Interest:   decimal.Zero,
		TotalDue:   decimal.Zero,
		CreatedAt:  createdAt,
		ExpiryDate: createdAt.AddDate(0, 0, r.terms.TermDays),
		Status:     models.StatusActive,
		FromImport: true,
	}
}

// ImportRegistrations reconciles a dated registration batch where
// principal and repayment details are known up front. A row matching
// an existing loan is treated as authoritative for the loan's
// financial and temporal fields.
func (r *Reconciler) ImportRegistrations(rows []ingest.Row) *models.ImportSummary {
	summary := &models.ImportSummary{Total: len(rows), TotalAmount: decimal.Zero}
	for _, row := range rows {
		r.importRegistration(row, summary)
	}
	r.log.WithFields(logrus.Fields{
		"total": summary.Total, "matched": summary.Matched, "new": summary.New,
		"skipped": summary.Skipped, "errors": summary.Errors,
		"amount": summary.TotalAmount.String(),
	}).Info("Registration import finished")
	return summary
}

func (r *Reconciler) importRegistration(row ingest.Row, summary *models.ImportSummary) {
	if blank(row.Name) && blank(row.Phone) {
		summary.Errors++
		r.rowError(row, nil, "Rejected registration row: no name or phone")
		return
	}

	txID := strings.TrimSpace(row.TransactionID)
	dup, err := r.isDuplicate(txID)
	if err != nil {
		summary.Errors++
		r.rowError(row, err, "Duplicate check failed")
		return
	}
	if dup {
		summary.Skipped++
		return
	}

	now := r.now()
	principal := normalize.Currency(row.Principal)
	interest := r.terms.InterestOn(principal)
	totalDue := normalize.Currency(row.TotalDue)
	if totalDue.LessThanOrEqual(decimal.Zero) {
		totalDue = principal.Add(interest)
	}
	createdAt := normalize.Date(row.Date, now)
	expiry := createdAt.AddDate(0, 0, r.terms.TermDays)
	repaid := normalize.Currency(row.Amount)

	loan, err := r.matcher.Match(Candidate{Name: row.Name, Phone: row.Phone, TransactionID: txID})
	if err != nil {
		summary.Errors++
		r.rowError(row, err, "Match failed")
		return
	}

	isNew := loan == nil
	if isNew {
		loan = r.newImportedLoan(row, createdAt)
	}

	// The registration row is authoritative for financials and dates.
	loan.Principal = principal
	loan.Interest = interest
	loan.TotalDue = totalDue
	loan.CreatedAt = createdAt
	loan.ExpiryDate = expiry
	if name := strings.TrimSpace(row.Name); name != "" && name != models.Placeholder {
		loan.Name = name
	}
	if phone := strings.TrimSpace(row.Phone); phone != "" && phone != models.Placeholder && loan.Phone == "" {
		loan.Phone = phone
	}

	if repaid.GreaterThan(decimal.Zero) && !loan.HasTransaction(txID) {
		loan.AppendPayment(models.Payment{
			Amount:         repaid,
			Date:           createdAt,
			TransactionID:  txID,
			DepositDetails: strings.TrimSpace(row.Method),
		})
		summary.TotalAmount = summary.TotalAmount.Add(repaid)
	}

	status.Apply(loan, r.terms, now)

	if isNew {
		if err := r.store.Insert(loan); err != nil {
			summary.Errors++
			r.rowError(row, err, "Failed to create registered loan")
			return
		}
		summary.New++
		return
	}
	if err := r.store.Save(loan); err != nil {
		summary.Errors++
		r.rowError(row, err, "Failed to save registered loan")
		return
	}
	summary.Matched++
	summary.Updated++
}
