package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kakembo/loanbook/internal/config"
)

// Open builds the store backend the configuration selects. A failure
// here is fatal to the process: batch jobs must never run against a
// store that is not reachable.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "file":
		s, err := NewFileStore(cfg.StoreFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return s, nil
	default:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return NewPostgresStore(db)
	}
}
