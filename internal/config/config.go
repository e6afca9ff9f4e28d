package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port           string
	DBConn         string
	StoreBackend   string
	StoreFile      string
	LogLevel       string
	JWTSecret      string
	CountryCode    string
	InterestRate   float64
	LoanTermDays   int
	PenaltyPerWeek int64
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SenderEmail    string
	ReportEmail    string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5432 user=loanbook password=loanbook dbname=loanbook sslmode=disable"),
		StoreBackend: getEnv("STORE_BACKEND", "postgres"),
		StoreFile:    getEnv("STORE_FILE", "loans.json"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		CountryCode:  getEnv("COUNTRY_CODE", "256"),
		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "noreply@loanbook.local"),
		ReportEmail:  getEnv("REPORT_EMAIL", ""),
	}

	rate, err := strconv.ParseFloat(getEnv("INTEREST_RATE", "0.2"), 64)
	if err != nil || rate < 0 {
		return nil, fmt.Errorf("INTEREST_RATE must be a non-negative number")
	}
	cfg.InterestRate = rate

	termDays, err := strconv.Atoi(getEnv("LOAN_TERM_DAYS", "28"))
	if err != nil || termDays <= 0 {
		return nil, fmt.Errorf("LOAN_TERM_DAYS must be a positive integer")
	}
	cfg.LoanTermDays = termDays

	penalty, err := strconv.ParseInt(getEnv("PENALTY_PER_WEEK", "1000"), 10, 64)
	if err != nil || penalty < 0 {
		return nil, fmt.Errorf("PENALTY_PER_WEEK must be a non-negative integer")
	}
	cfg.PenaltyPerWeek = penalty

	if cfg.StoreBackend != "postgres" && cfg.StoreBackend != "file" {
		return nil, fmt.Errorf("STORE_BACKEND must be postgres or file, got %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "postgres" && cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required for the postgres backend")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
