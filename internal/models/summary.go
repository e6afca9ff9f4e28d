package models

import "github.com/shopspring/decimal"

// ImportSummary reports the outcome of a batch reconciliation run.
type ImportSummary struct {
	Total       int             `json:"total"`
	Matched     int             `json:"matched"`
	Updated     int             `json:"updated"`
	New         int             `json:"new"`
	Skipped     int             `json:"skipped"`
	Errors      int             `json:"errors"`
	TotalAmount decimal.Decimal `json:"total_amount_processed"`
}

// CollapseSummary reports the outcome of a duplicate-collapse pass.
type CollapseSummary struct {
	Groups  int `json:"groups"`
	Kept    int `json:"kept"`
	Removed int `json:"removed"`
}
