package service

import (
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/config"
	"github.com/kakembo/loanbook/internal/models"
	"github.com/kakembo/loanbook/internal/store"
)

func testService() (*Service, *store.FileStore) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := store.NewMemoryStore()
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		CountryCode:    "256",
		InterestRate:   0.2,
		LoanTermDays:   28,
		PenaltyPerWeek: 1000,
	}
	return NewService(st, log, cfg, nil), st
}

func TestRegisterLoanDefaults(t *testing.T) {
	svc, _ := testService()

	loan, err := svc.RegisterLoan(RegisterLoanInput{
		Name:      "Grace Nakato",
		Phone:     "0712345678",
		Principal: decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("RegisterLoan failed: %v", err)
	}
	if !loan.Interest.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("Interest = %s, want 20000", loan.Interest)
	}
	if !loan.TotalDue.Equal(decimal.NewFromInt(120000)) {
		t.Errorf("TotalDue = %s, want 120000", loan.TotalDue)
	}
	if !loan.ExpiryDate.Equal(loan.CreatedAt.AddDate(0, 0, 28)) {
		t.Errorf("Expiry should default to createdAt + 28 days")
	}
	if loan.Status != models.StatusActive {
		t.Errorf("Status = %s", loan.Status)
	}
	if loan.FromImport {
		t.Error("Direct registration must not carry the import flag")
	}
}

func TestRegisterLoanOverrides(t *testing.T) {
	svc, _ := testService()

	interest := decimal.NewFromInt(5000)
	totalDue := decimal.NewFromInt(90000)
	loan, err := svc.RegisterLoan(RegisterLoanInput{
		Name:      "Peter Ssali",
		Principal: decimal.NewFromInt(80000),
		Interest:  &interest,
		TotalDue:  &totalDue,
	})
	if err != nil {
		t.Fatalf("RegisterLoan failed: %v", err)
	}
	if !loan.Interest.Equal(interest) || !loan.TotalDue.Equal(totalDue) {
		t.Errorf("Overrides ignored: interest %s, due %s", loan.Interest, loan.TotalDue)
	}
}

func TestRegisterLoanRequiresIdentity(t *testing.T) {
	svc, _ := testService()
	if _, err := svc.RegisterLoan(RegisterLoanInput{Principal: decimal.NewFromInt(1000)}); err == nil {
		t.Error("Expected an error for a loan with no name or phone")
	}
}

func TestRecordPaymentDerivesStatus(t *testing.T) {
	svc, _ := testService()
	loan, _ := svc.RegisterLoan(RegisterLoanInput{
		Name:      "Grace Nakato",
		Principal: decimal.NewFromInt(10000),
	})

	updated, err := svc.RecordPayment(loan.ID, decimal.NewFromInt(12000), time.Now(), "TX1", "MTN MoMo")
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if updated.Status != models.StatusCompleted {
		t.Errorf("Full repayment should complete the loan, got %s", updated.Status)
	}

	// Same transaction id on the same loan is rejected.
	if _, err := svc.RecordPayment(loan.ID, decimal.NewFromInt(100), time.Now(), "TX1", ""); err == nil {
		t.Error("Duplicate transaction id should be rejected")
	}
	// Non-positive amounts are rejected.
	if _, err := svc.RecordPayment(loan.ID, decimal.Zero, time.Now(), "TX2", ""); err == nil {
		t.Error("Zero amount should be rejected")
	}
}

func TestUpdateLoanRederives(t *testing.T) {
	svc, _ := testService()
	loan, _ := svc.RegisterLoan(RegisterLoanInput{
		Name:      "Grace Nakato",
		Principal: decimal.NewFromInt(10000),
	})
	if _, err := svc.RecordPayment(loan.ID, decimal.NewFromInt(12000), time.Now(), "TX1", ""); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	// Raising the total due reopens the loan.
	due := decimal.NewFromInt(20000)
	updated, err := svc.UpdateLoan(loan.ID, LoanEdits{TotalDue: &due})
	if err != nil {
		t.Fatalf("UpdateLoan failed: %v", err)
	}
	if updated.Status != models.StatusActive {
		t.Errorf("Edit of total due should re-derive status, got %s", updated.Status)
	}
}

func TestRefreshStatuses(t *testing.T) {
	svc, st := testService()
	loan, _ := svc.RegisterLoan(RegisterLoanInput{
		Name:      "Grace Nakato",
		Principal: decimal.NewFromInt(10000),
	})

	// Push the loan past expiry behind the deriver's back.
	raw, _ := st.Get(loan.ID)
	raw.CreatedAt = time.Now().AddDate(0, 0, -60)
	raw.ExpiryDate = time.Now().AddDate(0, 0, -32)
	if err := st.Save(raw); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	changed, err := svc.RefreshStatuses()
	if err != nil {
		t.Fatalf("RefreshStatuses failed: %v", err)
	}
	if changed != 1 {
		t.Errorf("Expected 1 loan to change state, got %d", changed)
	}
	got, _ := st.Get(loan.ID)
	if got.Status != models.StatusDefaulted || !got.IsDefaulter {
		t.Errorf("Expected defaulted after refresh, got %s", got.Status)
	}
	if !got.DefaulterFee.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("32 days overdue is 4 full weeks: fee %s", got.DefaulterFee)
	}
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _ := testService()
	if _, err := svc.RegisterOperator("admin", "admin@loanbook.local", "hunter2"); err != nil {
		t.Fatalf("RegisterOperator failed: %v", err)
	}

	token, err := svc.Login("admin@loanbook.local", "hunter2")
	if err != nil || token == "" {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := svc.Login("admin@loanbook.local", "wrong"); err == nil {
		t.Error("Wrong password should fail")
	}
	if _, err := svc.Login("nobody@loanbook.local", "hunter2"); err == nil {
		t.Error("Unknown operator should fail")
	}
}

func TestPortfolioStats(t *testing.T) {
	svc, _ := testService()
	a, _ := svc.RegisterLoan(RegisterLoanInput{Name: "A", Principal: decimal.NewFromInt(10000)})
	svc.RegisterLoan(RegisterLoanInput{Name: "B", Principal: decimal.NewFromInt(50000)})
	if _, err := svc.RecordPayment(a.ID, decimal.NewFromInt(12000), time.Now(), "TX1", ""); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	stats, err := svc.PortfolioStats()
	if err != nil {
		t.Fatalf("PortfolioStats failed: %v", err)
	}
	if stats.Loans != 2 || stats.Completed != 1 || stats.Active != 1 {
		t.Errorf("Got %+v", stats)
	}
	if !stats.Repaid.Equal(decimal.NewFromInt(12000)) {
		t.Errorf("Repaid = %s", stats.Repaid)
	}
	if !stats.Outstanding.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("Outstanding = %s", stats.Outstanding)
	}
}
