package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/config"
	"github.com/kakembo/loanbook/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}

// SendOverdueNotice tells a borrower their loan has passed its expiry
// date and what the accrued penalty is.
func (s *Sender) SendOverdueNotice(to, name string, remaining, fee decimal.Decimal, expiry time.Time) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Overdue Loan Notice"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your loan was due on %s and is now overdue.\n"+
			"Outstanding balance: %s UGX\n"+
			"Accrued late fee: %s UGX\n"+
			"Please clear the balance as soon as possible to avoid further penalties.\n"+
			"\nBest regards,\nLoanbook",
		name, expiry.Format("2006-01-02"), remaining.StringFixed(0), fee.StringFixed(0),
	)
	e.Text = []byte(body)
	return s.send(e)
}

// SendImportReport mails a batch reconciliation summary to the
// operator address configured for reports.
func (s *Sender) SendImportReport(to, kind string, summary *models.ImportSummary) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Import report: %s", kind)

	body := fmt.Sprintf(
		"Import finished at %s.\n\n"+
			"Rows seen:        %d\n"+
			"Matched/updated:  %d\n"+
			"New accounts:     %d\n"+
			"Duplicates skipped: %d\n"+
			"Errors:           %d\n"+
			"Amount processed: %s UGX\n",
		time.Now().Format("2006-01-02 15:04:05"),
		summary.Total, summary.Updated, summary.New, summary.Skipped,
		summary.Errors, summary.TotalAmount.StringFixed(0),
	)
	e.Text = []byte(body)
	return s.send(e)
}
