package recon

import (
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/models"
	"github.com/kakembo/loanbook/internal/store"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seedLoan(t *testing.T, st store.Store, name, phone string) *models.Loan {
	t.Helper()
	now := time.Now()
	loan := &models.Loan{
		Name:       name,
		Phone:      phone,
		TotalDue:   decimal.NewFromInt(12000),
		CreatedAt:  now,
		ExpiryDate: now.AddDate(0, 0, 28),
		Status:     models.StatusActive,
	}
	if err := st.Insert(loan); err != nil {
		t.Fatalf("Failed to seed loan: %v", err)
	}
	return loan
}

func TestMatchPhoneBeatsName(t *testing.T) {
	st := store.NewMemoryStore()
	byPhone := seedLoan(t, st, "Grace Nakato", "0712345678")
	seedLoan(t, st, "Amy Okello", "0700111222")

	m := NewMatcher(st, "256", testLogger())
	// Phone points at Grace's loan, name at Amy's. Phone wins.
	got, err := m.Match(Candidate{Name: "Amy Okello", Phone: "+256 712 345 678"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got == nil || got.ID != byPhone.ID {
		t.Errorf("Expected phone match to win, got %v", got)
	}
}

func TestMatchByNameFallback(t *testing.T) {
	st := store.NewMemoryStore()
	loan := seedLoan(t, st, "Grace Nakato", "0712345678")

	m := NewMatcher(st, "256", testLogger())
	got, err := m.Match(Candidate{Name: "grace nakato"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got == nil || got.ID != loan.ID {
		t.Errorf("Expected case-insensitive name match, got %v", got)
	}

	// Partial names match too; legacy sheets truncate.
	got, _ = m.Match(Candidate{Name: "Nakato"})
	if got == nil || got.ID != loan.ID {
		t.Errorf("Expected partial name match, got %v", got)
	}
}

func TestMatchLegacyPhoneWithExtraText(t *testing.T) {
	st := store.NewMemoryStore()
	loan := seedLoan(t, st, "Grace Nakato", "0712345678 (sister's phone)")

	m := NewMatcher(st, "256", testLogger())
	got, err := m.Match(Candidate{Phone: "256712345678"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got == nil || got.ID != loan.ID {
		t.Errorf("Expected match despite stray text in stored phone, got %v", got)
	}
}

func TestMatchNothing(t *testing.T) {
	st := store.NewMemoryStore()
	seedLoan(t, st, "Grace Nakato", "0712345678")

	m := NewMatcher(st, "256", testLogger())
	got, err := m.Match(Candidate{Name: "Peter Ssali", Phone: "0799999999"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected no match, got loan %s", got.ID)
	}
}

func TestMatchPlaceholderNameIgnored(t *testing.T) {
	st := store.NewMemoryStore()
	seedLoan(t, st, models.Placeholder, "0712345678")

	m := NewMatcher(st, "256", testLogger())
	got, err := m.Match(Candidate{Name: models.Placeholder})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got != nil {
		t.Error("Placeholder name must not match anything")
	}
}
