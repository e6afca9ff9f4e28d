package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kakembo/loanbook/internal/models"
)

// PostgresStore persists loans in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection and ensures the schema exists.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS loans (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			principal NUMERIC(14,2) NOT NULL DEFAULT 0,
			interest NUMERIC(14,2) NOT NULL DEFAULT 0,
			total_due NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			expiry_date TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			is_defaulter BOOLEAN NOT NULL DEFAULT FALSE,
			defaulter_fee NUMERIC(14,2) NOT NULL DEFAULT 0,
			email TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			occupation TEXT NOT NULL DEFAULT '',
			employer TEXT NOT NULL DEFAULT '',
			referee TEXT NOT NULL DEFAULT '',
			purpose TEXT NOT NULL DEFAULT '',
			passport_photo TEXT NOT NULL DEFAULT '',
			id_front_photo TEXT NOT NULL DEFAULT '',
			id_back_photo TEXT NOT NULL DEFAULT '',
			from_import BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS loan_payments (
			id UUID PRIMARY KEY,
			loan_id UUID NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
			amount NUMERIC(14,2) NOT NULL,
			paid_on TIMESTAMPTZ NOT NULL,
			transaction_id TEXT NOT NULL DEFAULT '',
			deposit_details TEXT NOT NULL DEFAULT '',
			position INT NOT NULL DEFAULT 0
		)`,
		// Guards the duplicate-transaction check against concurrent batch
		// runs; the application-level check remains the primary mechanism.
		`CREATE UNIQUE INDEX IF NOT EXISTS loan_payments_txid_idx
			ON loan_payments (loan_id, transaction_id)
			WHERE transaction_id <> ''`,
		`CREATE TABLE IF NOT EXISTS operators (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const loanColumns = `id, name, phone, principal, interest, total_due, created_at, expiry_date,
	status, is_defaulter, defaulter_fee, email, address, occupation, employer, referee,
	purpose, passport_photo, id_front_photo, id_back_photo, from_import, updated_at`

func (s *PostgresStore) scanLoan(row interface{ Scan(...any) error }) (*models.Loan, error) {
	loan := &models.Loan{}
	var status string
	err := row.Scan(&loan.ID, &loan.Name, &loan.Phone, &loan.Principal, &loan.Interest,
		&loan.TotalDue, &loan.CreatedAt, &loan.ExpiryDate, &status, &loan.IsDefaulter,
		&loan.DefaulterFee, &loan.Email, &loan.Address, &loan.Occupation, &loan.Employer,
		&loan.Referee, &loan.Purpose, &loan.PassportPhoto, &loan.IDFrontPhoto,
		&loan.IDBackPhoto, &loan.FromImport, &loan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	loan.Status = models.LoanStatus(status)
	return loan, nil
}

func (s *PostgresStore) loadPayments(loan *models.Loan) error {
	rows, err := s.db.Query(`
		SELECT id, amount, paid_on, transaction_id, deposit_details
		FROM loan_payments WHERE loan_id = $1 ORDER BY position, paid_on`, loan.ID)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.Amount, &p.Date, &p.TransactionID, &p.DepositDetails); err != nil {
			return fmt.Errorf("failed to scan payment: %w", err)
		}
		loan.Payments = append(loan.Payments, p)
	}
	return rows.Err()
}

func (s *PostgresStore) queryLoans(query string, args ...any) ([]*models.Loan, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := s.scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, loan := range loans {
		if err := s.loadPayments(loan); err != nil {
			return nil, err
		}
	}
	return loans, nil
}

// Get retrieves one loan with its payment history.
func (s *PostgresStore) Get(id uuid.UUID) (*models.Loan, error) {
	loan, err := s.scanLoan(s.db.QueryRow(`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if err := s.loadPayments(loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// All returns every loan on record.
func (s *PostgresStore) All() ([]*models.Loan, error) {
	return s.queryLoans(`SELECT ` + loanColumns + ` FROM loans ORDER BY created_at`)
}

// FindByPhone matches on digit-stripped containment, so legacy phone
// fields with extra text still match a canonical number.
func (s *PostgresStore) FindByPhone(digits string) ([]*models.Loan, error) {
	if digits == "" {
		return nil, nil
	}
	return s.queryLoans(`SELECT `+loanColumns+` FROM loans
		WHERE regexp_replace(phone, '[^0-9]', '', 'g') LIKE '%' || $1 || '%'`, digits)
}

// FindByName matches case-insensitive substrings of the stored name.
func (s *PostgresStore) FindByName(name string) ([]*models.Loan, error) {
	if name == "" {
		return nil, nil
	}
	return s.queryLoans(`SELECT `+loanColumns+` FROM loans WHERE name ILIKE '%' || $1 || '%'`, name)
}

// HasTransaction reports whether any loan holds the transaction id.
func (s *PostgresStore) HasTransaction(txID string) (bool, error) {
	if txID == "" {
		return false, nil
	}
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM loan_payments WHERE transaction_id = $1)`, txID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction id: %w", err)
	}
	return exists, nil
}

// Insert persists a new loan and its payments.
func (s *PostgresStore) Insert(loan *models.Loan) error {
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	_, err := s.db.Exec(`INSERT INTO loans (`+loanColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		loan.ID, loan.Name, loan.Phone, loan.Principal, loan.Interest, loan.TotalDue,
		loan.CreatedAt, loan.ExpiryDate, string(loan.Status), loan.IsDefaulter,
		loan.DefaulterFee, loan.Email, loan.Address, loan.Occupation, loan.Employer,
		loan.Referee, loan.Purpose, loan.PassportPhoto, loan.IDFrontPhoto,
		loan.IDBackPhoto, loan.FromImport, loan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return s.savePayments(loan)
}

// Save persists the current state of an existing loan. Payments are
// append-only, so already-stored entries are left untouched.
func (s *PostgresStore) Save(loan *models.Loan) error {
	res, err := s.db.Exec(`UPDATE loans SET
		name=$2, phone=$3, principal=$4, interest=$5, total_due=$6, created_at=$7,
		expiry_date=$8, status=$9, is_defaulter=$10, defaulter_fee=$11, email=$12,
		address=$13, occupation=$14, employer=$15, referee=$16, purpose=$17,
		passport_photo=$18, id_front_photo=$19, id_back_photo=$20, from_import=$21,
		updated_at=$22
		WHERE id=$1`,
		loan.ID, loan.Name, loan.Phone, loan.Principal, loan.Interest, loan.TotalDue,
		loan.CreatedAt, loan.ExpiryDate, string(loan.Status), loan.IsDefaulter,
		loan.DefaulterFee, loan.Email, loan.Address, loan.Occupation, loan.Employer,
		loan.Referee, loan.Purpose, loan.PassportPhoto, loan.IDFrontPhoto,
		loan.IDBackPhoto, loan.FromImport, loan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save loan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return s.savePayments(loan)
}

func (s *PostgresStore) savePayments(loan *models.Loan) error {
	for i, p := range loan.Payments {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
			loan.Payments[i].ID = p.ID
		}
		_, err := s.db.Exec(`INSERT INTO loan_payments
			(id, loan_id, amount, paid_on, transaction_id, deposit_details, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, loan.ID, p.Amount, p.Date, p.TransactionID, p.DepositDetails, i)
		if err != nil {
			return fmt.Errorf("failed to store payment: %w", err)
		}
	}
	return nil
}

// DeleteMany removes loans by id. Payments cascade.
func (s *PostgresStore) DeleteMany(ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var removed int64
	for _, id := range ids {
		res, err := s.db.Exec(`DELETE FROM loans WHERE id = $1`, id)
		if err != nil {
			return removed, fmt.Errorf("failed to delete loan %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, nil
}

// Count returns the number of loans on record.
func (s *PostgresStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM loans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count loans: %w", err)
	}
	return n, nil
}

// CreateOperator creates a staff account.
func (s *PostgresStore) CreateOperator(op *models.Operator) error {
	err := s.db.QueryRow(`
		INSERT INTO operators (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		op.Username, op.Email, op.PasswordHash).
		Scan(&op.ID, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}
	return nil
}

// FindOperatorByEmail retrieves a staff account by email.
func (s *PostgresStore) FindOperatorByEmail(email string) (*models.Operator, error) {
	op := &models.Operator{}
	err := s.db.QueryRow(`
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM operators WHERE email = $1`, email).
		Scan(&op.ID, &op.Username, &op.Email, &op.PasswordHash, &op.CreatedAt, &op.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("operator not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find operator: %w", err)
	}
	return op, nil
}

// Close releases the underlying connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
