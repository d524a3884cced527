// Package embeddings renders a blog's AI insights into the fixed-order
// text the embedding provider turns into a vector, and drives the
// embedding-generation retry path.
package embeddings

import (
	"fmt"
	"strings"

	"github.com/bloglens/intel-service/internal/domain"
)

// Render builds the embedding input text in the exact section order
// the original embedding producer used: label/summary, profile,
// tags, audience, marketing. Empty sections are omitted entirely; if
// every section is empty the single-word Russian fallback used
// upstream is kept verbatim so embeddings generated before and after
// the port stay comparable.
func Render(insights domain.AIInsights) string {
	var sections []string

	if line := labelLine(insights); line != "" {
		sections = append(sections, line)
	}
	if line := profileLine(insights); line != "" {
		sections = append(sections, line)
	}
	if line := tagsLine(insights); line != "" {
		sections = append(sections, line)
	}
	if line := audienceLine(insights); line != "" {
		sections = append(sections, line)
	}
	if line := marketingLine(insights); line != "" {
		sections = append(sections, line)
	}

	if len(sections) == 0 {
		return "блогер"
	}
	return strings.Join(sections, "\n")
}

func labelLine(insights domain.AIInsights) string {
	parts := nonEmpty(insights.ShortLabel, insights.ShortSummary)
	return strings.Join(parts, ". ")
}

func profileLine(insights domain.AIInsights) string {
	p := insights.BloggerProfile
	var city string
	if p.City != "" && p.Country != "" {
		city = p.City + ", " + p.Country
	} else {
		city = firstNonEmpty(p.City, p.Country)
	}
	languages := strings.Join(p.SpeaksLanguages, ", ")

	parts := nonEmpty(
		joinPrimaryCategories(insights),
		strings.Join(insights.Content.SecondaryTopics, ", "),
		p.Profession,
		city,
		languages,
		p.PageType,
	)
	return strings.Join(parts, ". ")
}

func joinPrimaryCategories(insights domain.AIInsights) string {
	return strings.Join(insights.Content.PrimaryCategories, ", ")
}

func tagsLine(insights domain.AIInsights) string {
	if len(insights.Tags) == 0 {
		return ""
	}
	return "Tags: " + strings.Join(insights.Tags, ", ")
}

func audienceLine(insights domain.AIInsights) string {
	a := insights.AudienceInference
	var gender string
	if a.AudienceMalePct != nil || a.AudienceFemalePct != nil {
		gender = fmt.Sprintf("%d%% male / %d%% female", deref(a.AudienceMalePct), deref(a.AudienceFemalePct))
	}
	parts := nonEmpty(gender, a.EstimatedAudienceAge, a.EstimatedAudienceGeo, strings.Join(a.AudienceInterests, ", "))
	if len(parts) == 0 {
		return ""
	}
	return "Audience: " + strings.Join(parts, ". ")
}

func marketingLine(insights domain.AIInsights) string {
	m := insights.MarketingValue
	parts := nonEmpty(
		strings.Join(m.BestFitIndustries, ", "),
		strings.Join(m.NotSuitableFor, ", "),
		strings.Join(insights.Commercial.DetectedBrandCategories, ", "),
	)
	if len(parts) == 0 {
		return ""
	}
	return "Marketing: " + strings.Join(parts, ". ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
