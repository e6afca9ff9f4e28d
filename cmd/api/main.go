package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/config"
	"github.com/kakembo/loanbook/internal/handler"
	"github.com/kakembo/loanbook/internal/middleware"
	"github.com/kakembo/loanbook/internal/recon"
	"github.com/kakembo/loanbook/internal/service"
	"github.com/kakembo/loanbook/internal/store"
	"github.com/kakembo/loanbook/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize store
	st, err := store.Open(cfg)
	if err != nil {
		logger.Fatalf("Failed to open loan store: %v", err)
	}
	defer st.Close()

	// Initialize layers
	var mailer *email.Sender
	if cfg.SMTPUsername != "" {
		mailer = email.NewSender(cfg, logger)
	}
	svc := service.NewService(st, logger, cfg, mailer)
	rec := recon.NewReconciler(st, svc.Terms(), cfg.CountryCode, logger)
	h := handler.NewHandler(svc, rec, st, logger)

	// Daily status refresh keeps cached defaulter state tracking
	// wall-clock time between payment events.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@daily", func() {
		if _, err := svc.RefreshStatuses(); err != nil {
			logger.Errorf("Scheduled status refresh failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule status refresh: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	authRouter.HandleFunc("/loans", h.ListLoans).Methods("GET")
	authRouter.HandleFunc("/loans/{id}", h.GetLoan).Methods("GET")
	authRouter.HandleFunc("/loans/{id}", h.UpdateLoan).Methods("PATCH")
	authRouter.HandleFunc("/loans/{id}/payments", h.RecordPayment).Methods("POST")
	authRouter.HandleFunc("/import/payments", h.ImportPayments).Methods("POST")
	authRouter.HandleFunc("/import/registrations", h.ImportRegistrations).Methods("POST")
	authRouter.HandleFunc("/maintenance/dedupe", h.CollapseDuplicates).Methods("POST")
	authRouter.HandleFunc("/stats", h.Stats).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
