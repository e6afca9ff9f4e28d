// Package store provides persistence for loans and operators. The
// reconciliation core depends only on the Store interface; the backend
// (postgres or a JSON file) is chosen once at process start.
package store

import (
	"errors"

	"github.com/google/uuid"

	"github.com/kakembo/loanbook/internal/models"
)

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("loan not found")

// Store defines the persistence operations the reconciliation core
// and the API depend on.
type Store interface {
	// Get retrieves one loan with its full payment history.
	Get(id uuid.UUID) (*models.Loan, error)
	// All returns every loan. Used by the duplicate collapser and the
	// scheduled status refresh.
	All() ([]*models.Loan, error)
	// FindByPhone returns loans whose stored phone, reduced to digits,
	// contains the given digit string.
	FindByPhone(digits string) ([]*models.Loan, error)
	// FindByName returns loans whose name contains the given text,
	// case-insensitively.
	FindByName(name string) ([]*models.Loan, error)
	// HasTransaction reports whether any loan holds a payment with the
	// given transaction id.
	HasTransaction(txID string) (bool, error)
	// Insert persists a new loan, assigning it an id if absent.
	Insert(loan *models.Loan) error
	// Save persists the current in-memory state of an existing loan,
	// including newly appended payments.
	Save(loan *models.Loan) error
	// DeleteMany removes loans by id and returns how many went away.
	DeleteMany(ids []uuid.UUID) (int64, error)
	// Count returns the number of loans on record.
	Count() (int, error)

	CreateOperator(op *models.Operator) error
	FindOperatorByEmail(email string) (*models.Operator, error)

	Close() error
}
