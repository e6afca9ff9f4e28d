package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kakembo/loanbook/internal/models"
)

// FileStore keeps loans in memory, optionally mirrored to a JSON file.
// It replaces the legacy runtime CSV-fallback switch: the backend is
// picked once at startup and injected, never checked per call. With an
// empty path it doubles as the in-memory store used by tests.
type FileStore struct {
	mu        sync.RWMutex
	path      string
	loans     map[uuid.UUID]*models.Loan
	operators map[string]*models.Operator
	nextOpID  int64
}

type filePayload struct {
	Loans     []*models.Loan     `json:"loans"`
	Operators []*models.Operator `json:"operators,omitempty"`
}

// NewMemoryStore creates an unpersisted store.
func NewMemoryStore() *FileStore {
	return &FileStore{
		loans:     make(map[uuid.UUID]*models.Loan),
		operators: make(map[string]*models.Operator),
	}
}

// NewFileStore creates a store backed by the JSON file at path,
// loading any existing contents.
func NewFileStore(path string) (*FileStore, error) {
	s := NewMemoryStore()
	s.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	for _, loan := range payload.Loans {
		s.loans[loan.ID] = loan
	}
	for _, op := range payload.Operators {
		s.operators[op.Email] = op
		if op.ID >= s.nextOpID {
			s.nextOpID = op.ID
		}
	}
	return s, nil
}

// flush writes the store to disk. Callers hold the write lock.
func (s *FileStore) flush() error {
	if s.path == "" {
		return nil
	}
	payload := filePayload{}
	for _, loan := range s.loans {
		payload.Loans = append(payload.Loans, loan)
	}
	sort.Slice(payload.Loans, func(i, j int) bool {
		return payload.Loans[i].CreatedAt.Before(payload.Loans[j].CreatedAt)
	})
	for _, op := range s.operators {
		payload.Operators = append(payload.Operators, op)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}

func cloneLoan(loan *models.Loan) *models.Loan {
	out := *loan
	out.Payments = append([]models.Payment(nil), loan.Payments...)
	return &out
}

// Get retrieves one loan by id.
func (s *FileStore) Get(id uuid.UUID) (*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loan, ok := s.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneLoan(loan), nil
}

// All returns every loan, ordered by creation date.
func (s *FileStore) All() ([]*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loans := make([]*models.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		loans = append(loans, cloneLoan(loan))
	}
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].CreatedAt.Before(loans[j].CreatedAt)
	})
	return loans, nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindByPhone matches on digit-stripped containment.
func (s *FileStore) FindByPhone(digits string) ([]*models.Loan, error) {
	if digits == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Loan
	for _, loan := range s.loans {
		if strings.Contains(onlyDigits(loan.Phone), digits) {
			out = append(out, cloneLoan(loan))
		}
	}
	sortByCreated(out)
	return out, nil
}

// FindByName matches case-insensitive substrings.
func (s *FileStore) FindByName(name string) ([]*models.Loan, error) {
	if name == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(name)
	var out []*models.Loan
	for _, loan := range s.loans {
		if strings.Contains(strings.ToLower(loan.Name), needle) {
			out = append(out, cloneLoan(loan))
		}
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(loans []*models.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].CreatedAt.Before(loans[j].CreatedAt)
	})
}

// HasTransaction reports whether any loan holds the transaction id.
func (s *FileStore) HasTransaction(txID string) (bool, error) {
	if txID == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, loan := range s.loans {
		if loan.HasTransaction(txID) {
			return true, nil
		}
	}
	return false, nil
}

// Insert persists a new loan, assigning an id if absent.
func (s *FileStore) Insert(loan *models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	for i := range loan.Payments {
		if loan.Payments[i].ID == uuid.Nil {
			loan.Payments[i].ID = uuid.New()
		}
	}
	s.loans[loan.ID] = cloneLoan(loan)
	return s.flush()
}

// Save persists the current state of an existing loan.
func (s *FileStore) Save(loan *models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[loan.ID]; !ok {
		return ErrNotFound
	}
	for i := range loan.Payments {
		if loan.Payments[i].ID == uuid.Nil {
			loan.Payments[i].ID = uuid.New()
		}
	}
	s.loans[loan.ID] = cloneLoan(loan)
	return s.flush()
}

// DeleteMany removes loans by id.
func (s *FileStore) DeleteMany(ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for _, id := range ids {
		if _, ok := s.loans[id]; ok {
			delete(s.loans, id)
			removed++
		}
	}
	return removed, s.flush()
}

// Count returns the number of loans on record.
func (s *FileStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loans), nil
}

// CreateOperator creates a staff account.
func (s *FileStore) CreateOperator(op *models.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.operators[op.Email]; ok {
		return fmt.Errorf("operator already exists: %s", op.Email)
	}
	s.nextOpID++
	op.ID = s.nextOpID
	s.operators[op.Email] = op
	return s.flush()
}

// FindOperatorByEmail retrieves a staff account by email.
func (s *FileStore) FindOperatorByEmail(email string) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[email]
	if !ok {
		return nil, fmt.Errorf("operator not found")
	}
	return op, nil
}

// Close flushes any pending state.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

var _ Store = (*FileStore)(nil)
