package recon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kakembo/loanbook/internal/models"
	"github.com/kakembo/loanbook/internal/store"
)

func TestCollapseKeepsMostComplete(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()

	sparse := &models.Loan{Name: "John Doe", CreatedAt: now.AddDate(0, 0, -3)}
	middling := &models.Loan{
		Name:      "John Doe",
		Phone:     "0712345678",
		Principal: decimal.NewFromInt(100000),
		CreatedAt: now.AddDate(0, 0, -2),
	}
	rich := &models.Loan{
		Name:      "John Doe",
		Phone:     "0712345678",
		Email:     "john@example.com",
		Principal: decimal.NewFromInt(100000),
		TotalDue:  decimal.NewFromInt(120000),
		CreatedAt: now.AddDate(0, 0, -1),
	}
	rich.AppendPayment(models.Payment{Amount: decimal.NewFromInt(5000), Date: now})

	unrelated := &models.Loan{Name: "Grace Nakato", CreatedAt: now}

	for _, loan := range []*models.Loan{sparse, middling, rich, unrelated} {
		if err := st.Insert(loan); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if rich.CompletenessScore() <= middling.CompletenessScore() || middling.CompletenessScore() <= sparse.CompletenessScore() {
		t.Fatalf("Fixture scores not strictly ordered: %d / %d / %d",
			sparse.CompletenessScore(), middling.CompletenessScore(), rich.CompletenessScore())
	}

	summary, err := Collapse(st, testLogger())
	if err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}
	if summary.Groups != 1 || summary.Kept != 1 || summary.Removed != 2 {
		t.Fatalf("Got %+v", summary)
	}

	if _, err := st.Get(rich.ID); err != nil {
		t.Error("The highest-scoring loan should survive")
	}
	if _, err := st.Get(sparse.ID); err == nil {
		t.Error("The sparse duplicate should be gone")
	}
	if _, err := st.Get(middling.ID); err == nil {
		t.Error("The middling duplicate should be gone")
	}
	if _, err := st.Get(unrelated.ID); err != nil {
		t.Error("Loans outside the group must be untouched")
	}
}

func TestCollapseTieBreaksOnRecency(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()

	older := &models.Loan{Name: "John Doe", Phone: "0712345678", CreatedAt: now.AddDate(0, 0, -30)}
	newer := &models.Loan{Name: "John Doe", Phone: "0712345678", CreatedAt: now.AddDate(0, 0, -1)}
	for _, loan := range []*models.Loan{older, newer} {
		if err := st.Insert(loan); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	summary, err := Collapse(st, testLogger())
	if err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}
	if summary.Removed != 1 {
		t.Fatalf("Got %+v", summary)
	}
	if _, err := st.Get(newer.ID); err != nil {
		t.Error("Tie should keep the most recently created loan")
	}
}

func TestCollapseIgnoresBlankNames(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := st.Insert(&models.Loan{Name: "", CreatedAt: now}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	summary, err := Collapse(st, testLogger())
	if err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}
	if summary.Removed != 0 {
		t.Errorf("Nameless loans must never be collapsed together, got %+v", summary)
	}
	if n, _ := st.Count(); n != 3 {
		t.Errorf("Expected 3 loans untouched, got %d", n)
	}
}
