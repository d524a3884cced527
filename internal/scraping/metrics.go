package scraping

import (
	"sort"

	"github.com/bloglens/intel-service/internal/domain"
)

// ComputeMetrics derives engagement-rate, trend, and cadence metrics
// from a scraped profile's posts, mirroring the original scraper's
// calculate_er/calculate_er_trend/calculate_posts_per_week. It mutates
// nothing; callers attach the result onto the domain.ScrapedProfile
// they're about to return.
func ComputeMetrics(posts []domain.ScrapedPost, followerCount int) domain.ScrapedProfile {
	reelsForER := make([]domain.ScrapedPost, 0, len(posts))
	for _, p := range posts {
		if p.MediaType == 2 && p.ProductType == "clips" {
			reelsForER = append(reelsForER, p)
		}
	}

	return domain.ScrapedProfile{
		EngagementRate: engagementRate(posts, followerCount),
		ERReels:        engagementRate(reelsForER, followerCount),
		ERTrend:        erTrend(posts, followerCount),
		PostsPerWeek:   postsPerWeek(posts),
	}
}

// engagementRate is the median of (likes+comments)/followers*100 across
// posts. A median, not a mean, so a single viral post doesn't distort
// the figure.
func engagementRate(posts []domain.ScrapedPost, followerCount int) float64 {
	if len(posts) == 0 || followerCount == 0 {
		return 0
	}
	engagements := make([]float64, len(posts))
	for i, p := range posts {
		engagements[i] = float64(p.LikeCount + p.CommentCount)
	}
	return round2(median(engagements) / float64(followerCount) * 100)
}

// erTrend compares the engagement rate of the newer half of posts
// against the older half. A change beyond 20% either direction is
// growing/declining; anything smaller is stable. Fewer than 4 posts
// isn't enough signal to call a trend.
func erTrend(posts []domain.ScrapedPost, followerCount int) domain.ERTrend {
	if len(posts) < 4 || followerCount == 0 {
		return ""
	}
	sorted := append([]domain.ScrapedPost(nil), posts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TakenAt.After(sorted[j].TakenAt) })
	mid := len(sorted) / 2
	newer, older := sorted[:mid], sorted[mid:]

	erNewer := engagementRate(newer, followerCount)
	erOlder := engagementRate(older, followerCount)
	if erOlder == 0 {
		return ""
	}

	change := (erNewer - erOlder) / erOlder
	switch {
	case change > 0.2:
		return domain.ERTrendGrowing
	case change < -0.2:
		return domain.ERTrendDeclining
	default:
		return domain.ERTrendStable
	}
}

// postsPerWeek divides the post count by the span (in weeks) between
// the oldest and newest taken_at. Fewer than 2 posts leaves no span to
// divide by.
func postsPerWeek(posts []domain.ScrapedPost) float64 {
	if len(posts) < 2 {
		return 0
	}
	sorted := append([]domain.ScrapedPost(nil), posts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TakenAt.Before(sorted[j].TakenAt) })
	days := sorted[len(sorted)-1].TakenAt.Sub(sorted[0].TakenAt).Hours() / 24
	if days == 0 {
		return 0
	}
	return round2(float64(len(posts)) / (days / 7))
}

// AverageReelsViews is the integer mean play_count across posts with
// product_type "clips" (media_type is not checked), or nil if none have
// a play count. Grounded on the full_scrape handler's avg_reels_views.
func AverageReelsViews(posts []domain.ScrapedPost) *int {
	sum, count := 0, 0
	for _, p := range posts {
		if p.ProductType != "clips" || p.PlayCount == nil {
			continue
		}
		sum += *p.PlayCount
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / count
	return &avg
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
