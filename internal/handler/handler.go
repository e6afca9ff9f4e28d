package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/ingest"
	"github.com/kakembo/loanbook/internal/normalize"
	"github.com/kakembo/loanbook/internal/recon"
	"github.com/kakembo/loanbook/internal/service"
	"github.com/kakembo/loanbook/internal/store"
)

// Handler exposes the operator API.
type Handler struct {
	svc   *service.Service
	recon *recon.Reconciler
	store store.Store
	log   *logrus.Logger
}

// NewHandler creates an API handler.
func NewHandler(svc *service.Service, rec *recon.Reconciler, st store.Store, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, recon: rec, store: st, log: log}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// Register handles operator registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	op, err := h.svc.RegisterOperator(req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

// Login handles operator authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type loanRequest struct {
	Name       string           `json:"name"`
	Phone      string           `json:"phone"`
	Principal  decimal.Decimal  `json:"principal"`
	Interest   *decimal.Decimal `json:"interest,omitempty"`
	TotalDue   *decimal.Decimal `json:"total_due,omitempty"`
	CreatedAt  string           `json:"created_at,omitempty"`
	ExpiryDate string           `json:"expiry_date,omitempty"`
	Email      string           `json:"email,omitempty"`
	Address    string           `json:"address,omitempty"`
	Occupation string           `json:"occupation,omitempty"`
	Employer   string           `json:"employer,omitempty"`
	Referee    string           `json:"referee,omitempty"`
	Purpose    string           `json:"purpose,omitempty"`
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	return normalize.Date(s, time.Now())
}

// CreateLoan handles direct loan registration
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	loan, err := h.svc.RegisterLoan(service.RegisterLoanInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Principal:  req.Principal,
		Interest:   req.Interest,
		TotalDue:   req.TotalDue,
		CreatedAt:  parseDate(req.CreatedAt),
		ExpiryDate: parseDate(req.ExpiryDate),
		Email:      req.Email,
		Address:    req.Address,
		Occupation: req.Occupation,
		Employer:   req.Employer,
		Referee:    req.Referee,
		Purpose:    req.Purpose,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// ListLoans returns every loan
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.ListLoans()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func loanID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

// GetLoan returns one loan with a freshly derived status
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := loanID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	loan, err := h.svc.GetLoan(id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// UpdateLoan applies direct field edits
func (h *Handler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	id, err := loanID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Name       *string          `json:"name"`
		Phone      *string          `json:"phone"`
		Principal  *decimal.Decimal `json:"principal"`
		Interest   *decimal.Decimal `json:"interest"`
		TotalDue   *decimal.Decimal `json:"total_due"`
		ExpiryDate *string          `json:"expiry_date"`
		Email      *string          `json:"email"`
		Address    *string          `json:"address"`
		Occupation *string          `json:"occupation"`
		Employer   *string          `json:"employer"`
		Referee    *string          `json:"referee"`
		Purpose    *string          `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	edits := service.LoanEdits{
		Name:       req.Name,
		Phone:      req.Phone,
		Principal:  req.Principal,
		Interest:   req.Interest,
		TotalDue:   req.TotalDue,
		Email:      req.Email,
		Address:    req.Address,
		Occupation: req.Occupation,
		Employer:   req.Employer,
		Referee:    req.Referee,
		Purpose:    req.Purpose,
	}
	if req.ExpiryDate != nil {
		d := parseDate(*req.ExpiryDate)
		edits.ExpiryDate = &d
	}
	loan, err := h.svc.UpdateLoan(id, edits)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// RecordPayment appends a repayment to a loan
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := loanID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Amount         decimal.Decimal `json:"amount"`
		Date           string          `json:"date,omitempty"`
		TransactionID  string          `json:"transaction_id,omitempty"`
		DepositDetails string          `json:"deposit_details,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	loan, err := h.svc.RecordPayment(id, req.Amount, parseDate(req.Date), req.TransactionID, req.DepositDetails)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// importBatch parses the request body as statement rows and runs the
// requested reconciliation variant. Row-level failures surface only as
// counts in the summary; the endpoint itself fails only when the body
// cannot be parsed at all.
func (h *Handler) importBatch(w http.ResponseWriter, r *http.Request, kind string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	rows, err := ingest.Load(r.Body, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var summary any
	switch kind {
	case "payments":
		s := h.recon.ImportPayments(rows)
		h.svc.ReportImport(kind, s)
		summary = s
	case "registrations":
		s := h.recon.ImportRegistrations(rows)
		h.svc.ReportImport(kind, s)
		summary = s
	}
	writeJSON(w, http.StatusOK, summary)
}

// ImportPayments reconciles a payment-statement upload
func (h *Handler) ImportPayments(w http.ResponseWriter, r *http.Request) {
	h.importBatch(w, r, "payments")
}

// ImportRegistrations reconciles a registration-batch upload
func (h *Handler) ImportRegistrations(w http.ResponseWriter, r *http.Request) {
	h.importBatch(w, r, "registrations")
}

// CollapseDuplicates runs the duplicate-collapse maintenance pass
func (h *Handler) CollapseDuplicates(w http.ResponseWriter, r *http.Request) {
	summary, err := recon.Collapse(h.store, h.log)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Stats returns portfolio-wide counts and totals
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.PortfolioStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
