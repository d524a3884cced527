package scraping

import (
	"testing"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
)

func postAt(daysAgo int, likes, comments int) domain.ScrapedPost {
	return domain.ScrapedPost{
		LikeCount:    likes,
		CommentCount: comments,
		TakenAt:      time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
}

func TestComputeMetricsEngagementRateIsMedianOfEngagements(t *testing.T) {
	posts := []domain.ScrapedPost{
		postAt(1, 10, 0),
		postAt(2, 20, 0),
		postAt(3, 1000, 0), // outlier the median should ignore
	}
	metrics := ComputeMetrics(posts, 1000)
	if metrics.EngagementRate != 2.0 {
		t.Errorf("EngagementRate = %v, want 2.0 (median engagement 20 / 1000 * 100)", metrics.EngagementRate)
	}
}

func TestComputeMetricsZeroFollowersYieldsZero(t *testing.T) {
	metrics := ComputeMetrics([]domain.ScrapedPost{postAt(1, 10, 0)}, 0)
	if metrics.EngagementRate != 0 {
		t.Errorf("expected zero engagement rate with zero followers, got %v", metrics.EngagementRate)
	}
}

func TestComputeMetricsERReelsOnlyCountsClips(t *testing.T) {
	posts := []domain.ScrapedPost{
		{MediaType: 2, ProductType: "clips", LikeCount: 100, TakenAt: time.Now()},
		{MediaType: 1, ProductType: "feed", LikeCount: 5, TakenAt: time.Now()},
	}
	metrics := ComputeMetrics(posts, 1000)
	if metrics.ERReels != 10.0 {
		t.Errorf("ERReels = %v, want 10.0 (only the clips post counted)", metrics.ERReels)
	}
}

func TestComputeMetricsTrendRequiresAtLeastFourPosts(t *testing.T) {
	posts := []domain.ScrapedPost{postAt(1, 10, 0), postAt(2, 10, 0), postAt(3, 10, 0)}
	metrics := ComputeMetrics(posts, 1000)
	if metrics.ERTrend != "" {
		t.Errorf("expected no trend with fewer than 4 posts, got %q", metrics.ERTrend)
	}
}

func TestComputeMetricsTrendGrowingWhenNewerOutperforms(t *testing.T) {
	posts := []domain.ScrapedPost{
		postAt(30, 10, 0), postAt(25, 10, 0), // older half: ER ~1.0
		postAt(2, 50, 0), postAt(1, 50, 0), // newer half: ER ~5.0
	}
	metrics := ComputeMetrics(posts, 1000)
	if metrics.ERTrend != domain.ERTrendGrowing {
		t.Errorf("ERTrend = %q, want growing", metrics.ERTrend)
	}
}

func TestComputeMetricsTrendStableWithinTwentyPercent(t *testing.T) {
	posts := []domain.ScrapedPost{
		postAt(30, 10, 0), postAt(25, 10, 0),
		postAt(2, 11, 0), postAt(1, 11, 0),
	}
	metrics := ComputeMetrics(posts, 1000)
	if metrics.ERTrend != domain.ERTrendStable {
		t.Errorf("ERTrend = %q, want stable", metrics.ERTrend)
	}
}

func TestComputeMetricsPostsPerWeekRequiresAtLeastTwoPosts(t *testing.T) {
	metrics := ComputeMetrics([]domain.ScrapedPost{postAt(1, 10, 0)}, 1000)
	if metrics.PostsPerWeek != 0 {
		t.Errorf("expected zero posts_per_week with a single post, got %v", metrics.PostsPerWeek)
	}
}

func TestComputeMetricsPostsPerWeekDividesCountBySpan(t *testing.T) {
	posts := []domain.ScrapedPost{postAt(14, 10, 0), postAt(7, 10, 0), postAt(0, 10, 0)}
	metrics := ComputeMetrics(posts, 1000)
	if metrics.PostsPerWeek != 1.5 {
		t.Errorf("PostsPerWeek = %v, want 1.5 (3 posts over a 2-week span)", metrics.PostsPerWeek)
	}
}

func TestAverageReelsViewsMeansPlayCountOfClipsOnly(t *testing.T) {
	p1, p2 := 100, 300
	posts := []domain.ScrapedPost{
		{ProductType: "clips", PlayCount: &p1},
		{ProductType: "clips", PlayCount: &p2},
		{ProductType: "feed", PlayCount: &p1},
	}
	avg := AverageReelsViews(posts)
	if avg == nil || *avg != 200 {
		t.Errorf("AverageReelsViews = %v, want 200", avg)
	}
}

func TestAverageReelsViewsNilWhenNoReelsHavePlayCount(t *testing.T) {
	posts := []domain.ScrapedPost{{ProductType: "feed", LikeCount: 10}}
	if avg := AverageReelsViews(posts); avg != nil {
		t.Errorf("expected nil avg_reels_views, got %v", *avg)
	}
}
