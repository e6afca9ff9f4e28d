package status

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kakembo/loanbook/internal/models"
)

func testLoan(totalDue int64, expiry time.Time) *models.Loan {
	return &models.Loan{
		TotalDue:   decimal.NewFromInt(totalDue),
		CreatedAt:  expiry.AddDate(0, 0, -28),
		ExpiryDate: expiry,
	}
}

func pay(loan *models.Loan, amount int64) {
	loan.AppendPayment(models.Payment{Amount: decimal.NewFromInt(amount), Date: time.Now()})
}

func TestDeriveActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	loan := testLoan(12000, now.AddDate(0, 0, 14))
	pay(loan, 2000)

	d := Derive(loan, models.DefaultTerms(), now)
	if d.Status != models.StatusActive {
		t.Errorf("Expected status active, got %s", d.Status)
	}
	if d.IsDefaulter {
		t.Error("Active loan must not be a defaulter")
	}
	if !d.DefaulterFee.IsZero() {
		t.Errorf("Expected zero fee before expiry, got %s", d.DefaulterFee)
	}
}

func TestDeriveCompleted(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	loan := testLoan(12000, now.AddDate(0, 0, 14))
	pay(loan, 7000)
	pay(loan, 5000)

	d := Derive(loan, models.DefaultTerms(), now)
	if d.Status != models.StatusCompleted {
		t.Errorf("Expected status completed, got %s", d.Status)
	}
}

// Completion always wins over lateness: a fully repaid loan accrues no
// fee no matter how far past expiry it is.
func TestCompletionSuppressesDefault(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	loan := testLoan(12000, now.AddDate(0, 0, -90))
	pay(loan, 12000)

	d := Derive(loan, models.DefaultTerms(), now)
	if d.Status != models.StatusCompleted {
		t.Errorf("Expected status completed, got %s", d.Status)
	}
	if d.IsDefaulter || !d.DefaulterFee.IsZero() {
		t.Errorf("Completed loan must carry no defaulter state, got fee %s", d.DefaulterFee)
	}
}

func TestDefaulterFee(t *testing.T) {
	now := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	terms := models.DefaultTerms()

	// Ten days overdue: one full week, so one penalty unit.
	loan := testLoan(12000, now.AddDate(0, 0, -10))
	pay(loan, 2000)
	d := Derive(loan, terms, now)
	if d.Status != models.StatusDefaulted || !d.IsDefaulter {
		t.Fatalf("Expected defaulted, got %s", d.Status)
	}
	if !d.DefaulterFee.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected fee 1000 for 10 days overdue, got %s", d.DefaulterFee)
	}

	// Three full weeks overdue.
	loan = testLoan(12000, now.AddDate(0, 0, -22))
	d = Derive(loan, terms, now)
	if !d.DefaulterFee.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected fee 3000 for 22 days overdue, got %s", d.DefaulterFee)
	}

	// Expiry in the future: no fee.
	loan = testLoan(12000, now.AddDate(0, 0, 5))
	d = Derive(loan, terms, now)
	if !d.DefaulterFee.IsZero() {
		t.Errorf("Expected zero fee before expiry, got %s", d.DefaulterFee)
	}
}

func TestDeriveZeroExpiryUsesTerm(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	loan := &models.Loan{
		TotalDue:  decimal.NewFromInt(12000),
		CreatedAt: now.AddDate(0, 0, -10),
	}
	d := Derive(loan, models.DefaultTerms(), now)
	if d.Status != models.StatusActive {
		t.Errorf("Loan 10 days into a 28-day term should be active, got %s", d.Status)
	}
}

// Increasing repaid for a fixed totalDue/expiry/now can only move a
// loan towards completed, never away from it.
func TestDeriveMonotonic(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	terms := models.DefaultTerms()
	rank := map[models.LoanStatus]int{
		models.StatusDefaulted: 0,
		models.StatusActive:    0,
		models.StatusCompleted: 1,
	}

	for _, expiry := range []time.Time{now.AddDate(0, 0, -30), now.AddDate(0, 0, 30)} {
		loan := testLoan(10000, expiry)
		prev := rank[Derive(loan, terms, now).Status]
		for i := 0; i < 10; i++ {
			pay(loan, 1500)
			cur := rank[Derive(loan, terms, now).Status]
			if cur < prev {
				t.Fatalf("Status regressed from completed after another payment (expiry %s)", expiry)
			}
			prev = cur
		}
		if got := Derive(loan, terms, now).Status; got != models.StatusCompleted {
			t.Errorf("Fully repaid loan should be completed, got %s", got)
		}
	}
}

func TestApplyUpdatesCachedFields(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	loan := testLoan(5000, now.AddDate(0, 0, -8))

	Apply(loan, models.DefaultTerms(), now)
	if loan.Status != models.StatusDefaulted || !loan.IsDefaulter {
		t.Fatalf("Expected cached defaulted state, got %s", loan.Status)
	}
	if !loan.UpdatedAt.Equal(now) {
		t.Error("Apply should stamp the update time")
	}

	// Reapplying after full repayment restores the derived value even
	// if the cached status was edited by hand in between.
	loan.Status = models.StatusDefaulted
	pay(loan, 5000)
	Apply(loan, models.DefaultTerms(), now)
	if loan.Status != models.StatusCompleted {
		t.Errorf("Expected recompute to restore completed, got %s", loan.Status)
	}
	if !loan.DefaulterFee.IsZero() {
		t.Errorf("Expected fee cleared on completion, got %s", loan.DefaulterFee)
	}
}
