package embeddings

import (
	"strings"
	"testing"

	"github.com/bloglens/intel-service/internal/domain"
)

func TestRenderEmptyInsightsFallsBackToPlaceholder(t *testing.T) {
	got := Render(domain.AIInsights{})
	if got != "блогер" {
		t.Errorf("Render(empty) = %q, want the fallback placeholder", got)
	}
}

func TestRenderOmitsEmptySections(t *testing.T) {
	insights := domain.AIInsights{
		ShortLabel: "Fitness coach",
		Tags:       []string{"Yoga", "Nutrition"},
	}
	got := Render(insights)

	if !strings.Contains(got, "Fitness coach") {
		t.Errorf("Render output missing label line: %q", got)
	}
	if !strings.Contains(got, "Tags: Yoga, Nutrition") {
		t.Errorf("Render output missing tags line: %q", got)
	}
	if strings.Contains(got, "Audience:") {
		t.Errorf("Render output should omit empty audience section: %q", got)
	}
	if strings.Contains(got, "Marketing:") {
		t.Errorf("Render output should omit empty marketing section: %q", got)
	}
}

func TestRenderIncludesAllPopulatedSectionsInOrder(t *testing.T) {
	male, female := 40, 60
	insights := domain.AIInsights{
		ShortLabel: "Lifestyle blogger",
		BloggerProfile: domain.BloggerProfile{
			City:       "Sao Paulo",
			Country:    "Brazil",
			Profession: "Content creator",
		},
		Tags: []string{"Travel"},
		AudienceInference: domain.AudienceInference{
			AudienceMalePct:   &male,
			AudienceFemalePct: &female,
		},
		MarketingValue: domain.MarketingValue{
			BestFitIndustries: []string{"Travel", "Hospitality"},
		},
	}

	got := Render(insights)
	lines := strings.Split(got, "\n")
	if len(lines) != 5 {
		t.Fatalf("Render() produced %d lines, want 5: %q", len(lines), got)
	}
	if !strings.Contains(lines[1], "Sao Paulo, Brazil") {
		t.Errorf("profile line missing city/country: %q", lines[1])
	}
	if !strings.Contains(lines[3], "40% male / 60% female") {
		t.Errorf("audience line missing gender split: %q", lines[3])
	}
}
