package recon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kakembo/loanbook/internal/models"
	"github.com/kakembo/loanbook/internal/store"
)

// Collapse groups loans by trimmed name and keeps the single most
// complete record of each group, deleting the rest. Destructive and
// irreversible: it runs only as an explicit maintenance pass, never
// during normal reconciliation.
func Collapse(st store.Store, log *logrus.Logger) (*models.CollapseSummary, error) {
	loans, err := st.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}

	groups := make(map[string][]*models.Loan)
	for _, loan := range loans {
		name := strings.TrimSpace(loan.Name)
		if name == "" || name == models.Placeholder {
			continue
		}
		groups[name] = append(groups[name], loan)
	}

	summary := &models.CollapseSummary{}
	var doomed []uuid.UUID
	for name, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			si, sj := group[i].CompletenessScore(), group[j].CompletenessScore()
			if si != sj {
				return si > sj
			}
			return group[i].CreatedAt.After(group[j].CreatedAt)
		})

		summary.Groups++
		summary.Kept++
		for _, loser := range group[1:] {
			doomed = append(doomed, loser.ID)
		}
		log.WithFields(logrus.Fields{
			"name":    name,
			"kept":    group[0].ID,
			"removed": len(group) - 1,
			"score":   group[0].CompletenessScore(),
		}).Info("Collapsed duplicate loans")
	}

	removed, err := st.DeleteMany(doomed)
	if err != nil {
		return nil, fmt.Errorf("failed to delete duplicates: %w", err)
	}
	summary.Removed = int(removed)
	return summary, nil
}
