package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/kakembo/loanbook/internal/config"
	"github.com/kakembo/loanbook/internal/models"
	"github.com/kakembo/loanbook/internal/status"
	"github.com/kakembo/loanbook/internal/store"
	"github.com/kakembo/loanbook/internal/utils/email"
)

// Service handles business logic
type Service struct {
	store  store.Store
	log    *logrus.Logger
	config *config.Config
	terms  models.Terms
	mailer *email.Sender
}

// NewService initializes a new service. mailer may be nil when no SMTP
// credentials are configured.
func NewService(st store.Store, log *logrus.Logger, cfg *config.Config, mailer *email.Sender) *Service {
	return &Service{
		store:  st,
		log:    log,
		config: cfg,
		terms: models.Terms{
			InterestRate:   decimal.NewFromFloat(cfg.InterestRate),
			TermDays:       cfg.LoanTermDays,
			PenaltyPerWeek: decimal.NewFromInt(cfg.PenaltyPerWeek),
		},
		mailer: mailer,
	}
}

// Terms exposes the lending policy in force.
func (s *Service) Terms() models.Terms {
	return s.terms
}

// RegisterOperator creates a new staff account with a hashed password
func (s *Service) RegisterOperator(username, email, password string) (*models.Operator, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	op := &models.Operator{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.store.CreateOperator(op); err != nil {
		return nil, err
	}

	s.log.Infof("Operator registered: %s", op.Email)
	return op, nil
}

// Login authenticates an operator and returns a JWT token
func (s *Service) Login(emailAddr, password string) (string, error) {
	op, err := s.store.FindOperatorByEmail(emailAddr)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", op.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("Operator logged in: %s", op.Email)
	return tokenString, nil
}

// RegisterLoanInput carries the fields of a direct registration.
type RegisterLoanInput struct {
	Name       string
	Phone      string
	Principal  decimal.Decimal
	Interest   *decimal.Decimal // overrides principal * rate when set
	TotalDue   *decimal.Decimal // overrides principal + interest when set
	CreatedAt  time.Time        // zero means now
	ExpiryDate time.Time        // zero means createdAt + term
	Email      string
	Address    string
	Occupation string
	Employer   string
	Referee    string
	Purpose    string
}

// RegisterLoan creates a loan by direct registration, filling in the
// derived defaults for any financial field not supplied.
func (s *Service) RegisterLoan(in RegisterLoanInput) (*models.Loan, error) {
	if strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.Phone) == "" {
		return nil, fmt.Errorf("a loan needs a name or a phone number")
	}
	if in.Principal.IsNegative() {
		return nil, fmt.Errorf("principal cannot be negative")
	}

	now := time.Now()
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	interest := s.terms.InterestOn(in.Principal)
	if in.Interest != nil {
		interest = *in.Interest
	}
	totalDue := in.Principal.Add(interest)
	if in.TotalDue != nil {
		totalDue = *in.TotalDue
	}
	expiry := in.ExpiryDate
	if expiry.IsZero() {
		expiry = createdAt.AddDate(0, 0, s.terms.TermDays)
	}

	loan := &models.Loan{
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		Principal:  in.Principal,
		Interest:   interest,
		TotalDue:   totalDue,
		CreatedAt:  createdAt,
		ExpiryDate: expiry,
		Email:      in.Email,
		Address:    in.Address,
		Occupation: in.Occupation,
		Employer:   in.Employer,
		Referee:    in.Referee,
		Purpose:    in.Purpose,
	}
	status.Apply(loan, s.terms, now)

	if err := s.store.Insert(loan); err != nil {
		return nil, err
	}
	s.log.Infof("Loan registered for %s: %s due", loan.Name, loan.TotalDue.StringFixed(0))
	return loan, nil
}

// GetLoan retrieves a loan with a freshly derived status.
func (s *Service) GetLoan(id uuid.UUID) (*models.Loan, error) {
	loan, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if !loan.PendingConfirmation() {
		status.Apply(loan, s.terms, time.Now())
	}
	return loan, nil
}

// ListLoans returns every loan on record.
func (s *Service) ListLoans() ([]*models.Loan, error) {
	return s.store.All()
}

// RecordPayment appends a repayment to a loan's ledger and recomputes
// its status. The transaction id, when present, is an idempotency key
// within the loan.
func (s *Service) RecordPayment(loanID uuid.UUID, amount decimal.Decimal, date time.Time, txID, details string) (*models.Loan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	loan, err := s.store.Get(loanID)
	if err != nil {
		return nil, err
	}
	if loan.HasTransaction(txID) {
		return nil, fmt.Errorf("transaction %s already recorded on this loan", txID)
	}

	now := time.Now()
	if date.IsZero() {
		date = now
	}
	loan.AppendPayment(models.Payment{
		Amount:         amount,
		Date:           date,
		TransactionID:  strings.TrimSpace(txID),
		DepositDetails: details,
	})
	if loan.PendingConfirmation() {
		loan.UpdatedAt = now
	} else {
		status.Apply(loan, s.terms, now)
	}

	if err := s.store.Save(loan); err != nil {
		return nil, err
	}
	s.log.Infof("Payment of %s recorded for loan %s", amount.StringFixed(0), loan.ID)
	return loan, nil
}

// LoanEdits lists the directly editable loan fields. Nil pointers
// leave the stored value alone.
type LoanEdits struct {
	Name       *string
	Phone      *string
	Principal  *decimal.Decimal
	Interest   *decimal.Decimal
	TotalDue   *decimal.Decimal
	ExpiryDate *time.Time
	Email      *string
	Address    *string
	Occupation *string
	Employer   *string
	Referee    *string
	Purpose    *string
}

// UpdateLoan applies direct field edits and re-derives the cached
// status, so an edit of the total due or expiry date immediately
// reflects in the defaulter state.
func (s *Service) UpdateLoan(id uuid.UUID, edits LoanEdits) (*models.Loan, error) {
	loan, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&loan.Name, edits.Name)
	setStr(&loan.Phone, edits.Phone)
	setStr(&loan.Email, edits.Email)
	setStr(&loan.Address, edits.Address)
	setStr(&loan.Occupation, edits.Occupation)
	setStr(&loan.Employer, edits.Employer)
	setStr(&loan.Referee, edits.Referee)
	setStr(&loan.Purpose, edits.Purpose)
	if edits.Principal != nil {
		loan.Principal = *edits.Principal
	}
	if edits.Interest != nil {
		loan.Interest = *edits.Interest
	}
	if edits.TotalDue != nil {
		loan.TotalDue = *edits.TotalDue
	}
	if edits.ExpiryDate != nil {
		loan.ExpiryDate = *edits.ExpiryDate
	}

	status.Apply(loan, s.terms, time.Now())
	if err := s.store.Save(loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// RefreshStatuses re-derives every loan's cached status so defaulter
// state tracks wall-clock time between payment events. Newly defaulted
// borrowers with an email on file get an overdue notice.
func (s *Service) RefreshStatuses() (int, error) {
	loans, err := s.store.All()
	if err != nil {
		return 0, fmt.Errorf("failed to load loans for status refresh: %w", err)
	}

	now := time.Now()
	changed := 0
	for _, loan := range loans {
		if loan.PendingConfirmation() {
			continue
		}
		before := loan.Status
		wasDefaulter := loan.IsDefaulter
		status.Apply(loan, s.terms, now)
		if loan.Status == before && loan.IsDefaulter == wasDefaulter && loan.Status != models.StatusDefaulted {
			continue
		}
		if err := s.store.Save(loan); err != nil {
			s.log.Errorf("Failed to save loan %s during status refresh: %v", loan.ID, err)
			continue
		}
		if loan.Status != before {
			changed++
		}
		if s.mailer != nil && loan.Email != "" && loan.Status == models.StatusDefaulted && before != models.StatusDefaulted {
			if err := s.mailer.SendOverdueNotice(loan.Email, loan.Name, loan.Remaining(), loan.DefaulterFee, loan.ExpiryDate); err != nil {
				s.log.Errorf("Failed to send overdue notice for loan %s: %v", loan.ID, err)
			}
		}
	}
	s.log.Infof("Status refresh complete: %d loans changed state", changed)
	return changed, nil
}

// Stats summarises the portfolio for the dashboard.
type Stats struct {
	Loans       int             `json:"loans"`
	Active      int             `json:"active"`
	Completed   int             `json:"completed"`
	Defaulted   int             `json:"defaulted"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Repaid      decimal.Decimal `json:"repaid"`
}

// PortfolioStats computes portfolio-wide counts and totals.
func (s *Service) PortfolioStats() (*Stats, error) {
	loans, err := s.store.All()
	if err != nil {
		return nil, err
	}
	stats := &Stats{Loans: len(loans), Outstanding: decimal.Zero, Repaid: decimal.Zero}
	for _, loan := range loans {
		switch loan.Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusDefaulted:
			stats.Defaulted++
		}
		if rem := loan.Remaining(); rem.GreaterThan(decimal.Zero) {
			stats.Outstanding = stats.Outstanding.Add(rem)
		}
		stats.Repaid = stats.Repaid.Add(loan.AmountRepaid())
	}
	return stats, nil
}

// ReportImport emails a batch summary to the configured report
// address, when there is one.
func (s *Service) ReportImport(kind string, summary *models.ImportSummary) {
	if s.mailer == nil || s.config.ReportEmail == "" {
		return
	}
	if err := s.mailer.SendImportReport(s.config.ReportEmail, kind, summary); err != nil {
		s.log.Errorf("Failed to send import report: %v", err)
	}
}
