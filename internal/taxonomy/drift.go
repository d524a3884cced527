package taxonomy

import (
	"context"
	"fmt"
)

// DriftReport names categories referenced by historical AI insight
// documents that no longer resolve against the current category tree
// (e.g. the tree was pruned or renamed after blogs were analyzed).
type DriftReport struct {
	UnresolvedNames []string
}

// AuditDrift resolves the primary_categories codes stored on blogs
// whose insights still lack category/tag assignments (up to limit
// blogs) against the current category code index, for
// audit_taxonomy_drift. Unlike RetryMissingMappings, this never writes
// — it only reports what would fail to resolve today, so an operator
// can decide whether to extend the taxonomy or treat the drift as
// expected churn.
func (m *Matcher) AuditDrift(ctx context.Context, limit int) (DriftReport, error) {
	idx, err := m.categoryIndex(ctx)
	if err != nil {
		return DriftReport{}, fmt.Errorf("list categories: %w", err)
	}

	blogs, err := m.repo.BlogsWithInsightsMissingMappings(ctx, limit)
	if err != nil {
		return DriftReport{}, fmt.Errorf("list blogs: %w", err)
	}

	seen := make(map[string]bool)
	var unresolved []string
	for _, blog := range blogs {
		if blog.AIInsights == nil {
			continue
		}
		for _, name := range blog.AIInsights.Content.PrimaryCategories {
			if _, ok := lookup(name, idx.ByCode); !ok && !seen[name] {
				seen[name] = true
				unresolved = append(unresolved, name)
			}
		}
	}
	return DriftReport{UnresolvedNames: unresolved}, nil
}
