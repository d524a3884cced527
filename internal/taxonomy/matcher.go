// Package taxonomy resolves AI-inferred category/tag/city names
// against the canonical taxonomy trees and persists the result.
package taxonomy

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bloglens/intel-service/internal/cache"
	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
)

// fuzzyCutoff mirrors the original matcher's threshold: below 0.8
// similarity, a name is treated as unresolved rather than guessed.
const fuzzyCutoff = 0.8

type Matcher struct {
	repo   repository.TaxonomyRepository
	cache  cache.Cache
	logger *log.Logger
}

func New(repo repository.TaxonomyRepository, logger *log.Logger) *Matcher {
	return &Matcher{repo: repo, logger: logger}
}

// WithCache attaches a lookup cache for the canonical category/tag/city
// name maps, so a batch reconcile pass doesn't re-list the full
// taxonomy tables for every blog it matches.
func (m *Matcher) WithCache(c cache.Cache) *Matcher {
	m.cache = c
	return m
}

// categoryIndex holds two independent lookups over the category tree:
// ByCode for top-level categories (primary_categories entries are AI-
// provided codes, not names) and ByName for every category including
// subcategories, which only carry a human name.
type categoryIndex struct {
	ByCode map[string]string
	ByName map[string]string
}

func (m *Matcher) categoryIndex(ctx context.Context) (categoryIndex, error) {
	const signature = "taxonomy:categories"
	if m.cache != nil {
		var cached categoryIndex
		if ok, _ := m.cache.Get(ctx, signature, &cached); ok {
			return cached, nil
		}
	}
	categories, err := m.repo.ListCategories(ctx)
	if err != nil {
		return categoryIndex{}, err
	}
	idx := categoryIndex{
		ByCode: make(map[string]string),
		ByName: make(map[string]string, len(categories)),
	}
	for _, c := range categories {
		if c.Code != "" {
			idx.ByCode[c.Code] = c.ID
		}
		idx.ByName[c.Name] = c.ID
	}
	if m.cache != nil {
		_ = m.cache.Set(ctx, signature, idx)
	}
	return idx, nil
}

func (m *Matcher) tagMap(ctx context.Context) (map[string]string, error) {
	const signature = "taxonomy:tags"
	if m.cache != nil {
		var cached map[string]string
		if ok, _ := m.cache.Get(ctx, signature, &cached); ok {
			return cached, nil
		}
	}
	tags, err := m.repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(tags))
	for _, t := range tags {
		byName[t.Name] = t.ID
	}
	if m.cache != nil {
		_ = m.cache.Set(ctx, signature, byName)
	}
	return byName, nil
}

func (m *Matcher) cityMap(ctx context.Context) (map[string]string, error) {
	const signature = "taxonomy:cities"
	if m.cache != nil {
		var cached map[string]string
		if ok, _ := m.cache.Get(ctx, signature, &cached); ok {
			return cached, nil
		}
	}
	cities, err := m.repo.ListCities(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(cities))
	for _, c := range cities {
		byName[c.Name] = c.ID
	}
	if m.cache != nil {
		_ = m.cache.Set(ctx, signature, byName)
	}
	return byName, nil
}

// lookup resolves a candidate name against a set of canonical names
// using exact match, then case/whitespace-normalized match, then a
// fuzzy match at fuzzyCutoff.
func lookup(name string, canonical map[string]string) (id string, ok bool) {
	if id, ok := canonical[name]; ok {
		return id, true
	}
	normalized := normalize(name)
	for candidateName, id := range canonical {
		if normalize(candidateName) == normalized {
			return id, true
		}
	}
	names := make([]string, 0, len(canonical))
	for candidateName := range canonical {
		names = append(names, candidateName)
	}
	if match, found := BestMatch(name, names, fuzzyCutoff); found {
		return canonical[match], true
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// MatchCategories resolves insights.content.primary_categories against
// the code-keyed index and secondary_topics against the name-keyed
// index, then persists the resolved set, replacing whatever was
// previously assigned. The first primary category that resolves
// successfully is written with is_primary = true; every other
// resolved category, primary or secondary, is written with
// is_primary = false.
func (m *Matcher) MatchCategories(ctx context.Context, blogID string, insights domain.AIInsights) error {
	idx, err := m.categoryIndex(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	resolved := make([]domain.BlogCategory, 0, len(insights.Content.PrimaryCategories)+len(insights.Content.SecondaryTopics))
	seen := make(map[string]bool)
	havePrimary := false

	resolve := func(name string, canonical map[string]string, isPrimaryCandidate bool) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		id, ok := lookup(name, canonical)
		if !ok {
			m.logf("category %q for blog %s did not resolve against the category tree", name, blogID)
			return
		}
		if seen[id] {
			return
		}
		seen[id] = true
		isPrimary := isPrimaryCandidate && !havePrimary
		if isPrimary {
			havePrimary = true
		}
		resolved = append(resolved, domain.BlogCategory{CategoryID: id, IsPrimary: isPrimary})
	}

	for _, code := range insights.Content.PrimaryCategories {
		resolve(code, idx.ByCode, true)
	}
	for _, name := range insights.Content.SecondaryTopics {
		resolve(name, idx.ByName, false)
	}

	return m.repo.ReplaceBlogCategories(ctx, blogID, resolved)
}

// tagSources enumerates every insight field that should become a tag,
// paired with the TagGroup it belongs to. Ordering mirrors the
// field groups in domain.AIInsights.
func tagSources(insights domain.AIInsights) map[domain.TagGroup][]string {
	sources := map[domain.TagGroup][]string{
		domain.TagGroupContent:      append(append([]string{}, insights.Tags...), insights.Content.PrimaryCategories...),
		domain.TagGroupPersonal:     {insights.BloggerProfile.PageType, insights.LifeSituation.RelationshipStatus},
		domain.TagGroupProfessional: {insights.BloggerProfile.Profession},
		domain.TagGroupCommercial:   insights.Commercial.DetectedBrandCategories,
		domain.TagGroupAudience:     insights.AudienceInference.AudienceInterests,
		domain.TagGroupMarketing:    insights.MarketingValue.BestFitIndustries,
	}
	for group, names := range sources {
		filtered := names[:0]
		for _, name := range names {
			if strings.TrimSpace(name) != "" {
				filtered = append(filtered, name)
			}
		}
		sources[group] = filtered
	}
	return sources
}

// MatchTags resolves every tag-eligible insight field against the tag
// table. Unresolved names are written back as new unconfirmed tags
// rather than silently dropped — this is the one place the Go port
// diverges from a pure lookup, because an unconfirmed tag still
// carries marketing value and an operator can promote it later.
func (m *Matcher) MatchTags(ctx context.Context, blogID string, insights domain.AIInsights) error {
	byName, err := m.tagMap(ctx)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}

	resolved := make([]string, 0)
	seen := make(map[string]bool)
	for group, names := range tagSources(insights) {
		for _, name := range names {
			id, ok := lookup(name, byName)
			if !ok {
				id, err = m.repo.CreateUnconfirmedTag(ctx, name, group)
				if err != nil {
					m.logf("create unconfirmed tag %q for blog %s failed: %v", name, blogID, err)
					continue
				}
				byName[name] = id
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			resolved = append(resolved, id)
		}
	}

	return m.repo.ReplaceBlogTags(ctx, blogID, resolved)
}

// MatchCity resolves insights.blogger_profile.city against the city
// table. Absent a confident match, the blog's city assignment is left
// untouched rather than cleared, since a missing AI-inferred city is
// not evidence the blog has no city.
func (m *Matcher) MatchCity(ctx context.Context, blogID string, insights domain.AIInsights) error {
	city := strings.TrimSpace(insights.BloggerProfile.City)
	if city == "" {
		return nil
	}
	byName, err := m.cityMap(ctx)
	if err != nil {
		return fmt.Errorf("list cities: %w", err)
	}
	id, ok := lookup(city, byName)
	if !ok {
		m.logf("city %q for blog %s did not resolve against the city table", city, blogID)
		return nil
	}
	return m.repo.SetBlogCity(ctx, blogID, id)
}

// MatchAll runs every matcher against one blog's insights.
func (m *Matcher) MatchAll(ctx context.Context, blogID string, insights domain.AIInsights) error {
	if err := m.MatchCategories(ctx, blogID, insights); err != nil {
		return fmt.Errorf("match categories: %w", err)
	}
	if err := m.MatchTags(ctx, blogID, insights); err != nil {
		return fmt.Errorf("match tags: %w", err)
	}
	if err := m.MatchCity(ctx, blogID, insights); err != nil {
		return fmt.Errorf("match city: %w", err)
	}
	return nil
}

// RetryMissingMappings re-runs matching for blogs with insights but no
// category/tag assignments yet, backing the retry_taxonomy_mappings
// scheduler job.
func (m *Matcher) RetryMissingMappings(ctx context.Context, limit int) (int, error) {
	blogs, err := m.repo.BlogsWithInsightsMissingMappings(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list blogs missing mappings: %w", err)
	}
	matched := 0
	for _, blog := range blogs {
		if blog.AIInsights == nil {
			continue
		}
		if err := m.MatchAll(ctx, blog.ID, *blog.AIInsights); err != nil {
			m.logf("retry taxonomy mapping for blog %s failed: %v", blog.ID, err)
			continue
		}
		matched++
	}
	return matched, nil
}

// BackfillCityMatching resolves city for every analyzed blog that
// doesn't have one yet. It backs a one-time startup job rather than a
// recurring one: once every blog has a city_id (resolved or not,
// MatchCity never clears an assignment) the underlying query returns
// nothing, so calling it again on a later boot is a cheap no-op.
func (m *Matcher) BackfillCityMatching(ctx context.Context, limit int) (int, error) {
	blogs, err := m.repo.BlogsWithInsightsMissingCity(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list blogs missing city: %w", err)
	}
	matched := 0
	for _, blog := range blogs {
		if blog.AIInsights == nil {
			continue
		}
		if err := m.MatchCity(ctx, blog.ID, *blog.AIInsights); err != nil {
			m.logf("backfill city matching for blog %s failed: %v", blog.ID, err)
			continue
		}
		matched++
	}
	return matched, nil
}

func (m *Matcher) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
