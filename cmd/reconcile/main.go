// Command reconcile runs a one-shot batch import of a payment
// statement or registration sheet against the loan store. Row-level
// failures are counted in the printed summary; the process exits
// non-zero only when the job itself cannot run.
package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/config"
	"github.com/kakembo/loanbook/internal/ingest"
	"github.com/kakembo/loanbook/internal/models"
	"github.com/kakembo/loanbook/internal/recon"
	"github.com/kakembo/loanbook/internal/service"
	"github.com/kakembo/loanbook/internal/store"
	"github.com/kakembo/loanbook/internal/utils/email"
)

func main() {
	var (
		file   = flag.String("file", "", "statement file to import")
		format = flag.String("format", "csv", "statement format: csv, json or xml")
		kind   = flag.String("kind", "payments", "batch kind: payments or registrations")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if *file == "" {
		logger.Fatal("-file is required")
	}
	if *kind != "payments" && *kind != "registrations" {
		logger.Fatalf("Unknown batch kind: %s", *kind)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatalf("Failed to open statement file: %v", err)
	}
	defer f.Close()

	rows, err := ingest.Load(f, *format)
	if err != nil {
		logger.Fatalf("Failed to parse statement file: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Fatalf("Failed to open loan store: %v", err)
	}
	defer st.Close()

	var mailer *email.Sender
	if cfg.SMTPUsername != "" {
		mailer = email.NewSender(cfg, logger)
	}
	svc := service.NewService(st, logger, cfg, mailer)
	rec := recon.NewReconciler(st, svc.Terms(), cfg.CountryCode, logger)

	var summary *models.ImportSummary
	if *kind == "registrations" {
		summary = rec.ImportRegistrations(rows)
	} else {
		summary = rec.ImportPayments(rows)
	}
	svc.ReportImport(*kind, summary)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(summary)
}
