// Command dedupe collapses duplicate loan accounts that share a name,
// keeping the most complete record of each group. Destructive; it
// refuses to run without the -yes flag.
package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/config"
	"github.com/kakembo/loanbook/internal/recon"
	"github.com/kakembo/loanbook/internal/store"
)

func main() {
	yes := flag.Bool("yes", false, "confirm the destructive collapse")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if !*yes {
		logger.Fatal("Refusing to collapse duplicates without -yes")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Fatalf("Failed to open loan store: %v", err)
	}
	defer st.Close()

	summary, err := recon.Collapse(st, logger)
	if err != nil {
		logger.Fatalf("Duplicate collapse failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(summary)
}
