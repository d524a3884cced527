package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBlogRepository is the relational store for blog profiles,
// their posts/highlights, and AI-derived insights/embeddings. Writes
// to blogs/posts/highlights follow the same ON CONFLICT upsert shape
// the original scraper used against its own tables, ported to a
// single parameterized statement per call instead of a client-side
// read-merge-write.
type PostgresBlogRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresBlogRepository(pool *pgxpool.Pool) *PostgresBlogRepository {
	return &PostgresBlogRepository{pool: pool}
}

var _ BlogRepository = (*PostgresBlogRepository)(nil)

func (r *PostgresBlogRepository) UpsertProfile(ctx context.Context, profile domain.ScrapedProfile, status domain.ScrapeStatus) (string, error) {
	bioLinks, err := json.Marshal(profile.BioLinks)
	if err != nil {
		return "", fmt.Errorf("marshal bio links: %w", err)
	}

	var id string
	err = r.pool.QueryRow(ctx, `
		INSERT INTO blogs (
			platform, username, platform_id, full_name, bio, bio_links, avatar_url,
			followers_count, following_count, media_count, is_verified, is_business,
			engagement_rate, er_reels, er_trend, posts_per_week,
			scrape_status, scraped_at, created_at
		) VALUES (
			'instagram', $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now()
		)
		ON CONFLICT (platform, platform_id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			bio = excluded.bio,
			bio_links = excluded.bio_links,
			avatar_url = excluded.avatar_url,
			followers_count = excluded.followers_count,
			following_count = excluded.following_count,
			media_count = excluded.media_count,
			is_verified = excluded.is_verified,
			is_business = excluded.is_business,
			engagement_rate = excluded.engagement_rate,
			er_reels = excluded.er_reels,
			er_trend = excluded.er_trend,
			posts_per_week = excluded.posts_per_week,
			scrape_status = excluded.scrape_status,
			scraped_at = now()
		RETURNING id
	`,
		profile.Username, profile.PlatformID, profile.FullName, profile.Biography, bioLinks, profile.ProfilePicURL,
		profile.FollowerCount, profile.FollowingCount, profile.MediaCount, profile.IsVerified, profile.IsBusiness,
		profile.EngagementRate, profile.ERReels, string(profile.ERTrend), profile.PostsPerWeek,
		string(status),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert blog profile: %w", err)
	}
	return id, nil
}

// CreateStub inserts a row with only a username and no platform_id,
// which is not known until the first successful scrape. platform_id
// stays NULL so it never collides with a real upsert's ON CONFLICT
// (platform, platform_id) target.
func (r *PostgresBlogRepository) CreateStub(ctx context.Context, username string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO blogs (platform, username, platform_id, scrape_status, created_at)
		VALUES ('instagram', $1, NULL, $2, now())
		ON CONFLICT (platform, username) DO UPDATE SET username = excluded.username
		RETURNING id
	`, username, string(domain.ScrapeStatusPending)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create blog stub: %w", err)
	}
	return id, nil
}

// UpdateProfile writes a scraped profile onto an already-known blog
// id, so a stub row created before the account's platform_id was
// known keeps that id across the first real scrape.
func (r *PostgresBlogRepository) UpdateProfile(ctx context.Context, blogID string, profile domain.ScrapedProfile, avgReelsViews *int, status domain.ScrapeStatus) error {
	bioLinks, err := json.Marshal(profile.BioLinks)
	if err != nil {
		return fmt.Errorf("marshal bio links: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE blogs SET
			username = $2, platform_id = $3, full_name = $4, bio = $5, bio_links = $6, avatar_url = $7,
			followers_count = $8, following_count = $9, media_count = $10, is_verified = $11, is_business = $12,
			engagement_rate = $13, er_reels = $14, er_trend = $15, posts_per_week = $16, avg_reels_views = $17,
			scrape_status = $18, scraped_at = now()
		WHERE id = $1
	`,
		blogID, profile.Username, profile.PlatformID, profile.FullName, profile.Biography, bioLinks, profile.ProfilePicURL,
		profile.FollowerCount, profile.FollowingCount, profile.MediaCount, profile.IsVerified, profile.IsBusiness,
		profile.EngagementRate, profile.ERReels, string(profile.ERTrend), profile.PostsPerWeek, avgReelsViews,
		string(status),
	)
	if err != nil {
		return fmt.Errorf("update blog profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresBlogRepository) UpsertPosts(ctx context.Context, blogID string, posts []domain.ScrapedPost) error {
	batch := &pgx.Batch{}
	for _, post := range posts {
		hashtags, _ := json.Marshal(post.Hashtags)
		mentions, _ := json.Marshal(post.Mentions)
		usertags, _ := json.Marshal(post.Usertags)
		batch.Queue(`
			INSERT INTO posts (
				blog_id, platform_id, media_type, product_type, caption_text, hashtags, mentions,
				like_count, comment_count, play_count, thumbnail_url, taken_at, video_duration,
				usertags, accessibility_caption, comments_disabled, title
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			ON CONFLICT (blog_id, platform_id) DO UPDATE SET
				like_count = excluded.like_count,
				comment_count = excluded.comment_count,
				play_count = excluded.play_count
		`,
			blogID, post.PlatformID, post.MediaType, post.ProductType, post.CaptionText, hashtags, mentions,
			post.LikeCount, post.CommentCount, post.PlayCount, post.ThumbnailURL, post.TakenAt, post.VideoDuration,
			usertags, post.AccessibilityCaption, post.CommentsDisabled, post.Title,
		)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range posts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert post: %w", err)
		}
	}
	return nil
}

func (r *PostgresBlogRepository) UpsertHighlights(ctx context.Context, blogID string, highlights []domain.ScrapedHighlight) error {
	batch := &pgx.Batch{}
	for _, h := range highlights {
		batch.Queue(`
			INSERT INTO highlights (blog_id, platform_id, title, media_count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (blog_id, platform_id) DO UPDATE SET
				title = excluded.title, media_count = excluded.media_count
		`, blogID, h.PlatformID, h.Title, h.MediaCount)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range highlights {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert highlight: %w", err)
		}
	}
	return nil
}

func (r *PostgresBlogRepository) GetByID(ctx context.Context, blogID string) (domain.Blog, error) {
	row := r.pool.QueryRow(ctx, blogSelectQuery+` WHERE id = $1`, blogID)
	blog, err := scanBlog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Blog{}, ErrNotFound
		}
		return domain.Blog{}, fmt.Errorf("get blog: %w", err)
	}
	return blog, nil
}

func (r *PostgresBlogRepository) GetByUsername(ctx context.Context, username string) (domain.Blog, error) {
	row := r.pool.QueryRow(ctx, blogSelectQuery+` WHERE lower(username) = lower($1)`, username)
	blog, err := scanBlog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Blog{}, ErrNotFound
		}
		return domain.Blog{}, fmt.Errorf("get blog by username: %w", err)
	}
	return blog, nil
}

func (r *PostgresBlogRepository) GetByIDs(ctx context.Context, blogIDs []string) ([]domain.Blog, error) {
	if len(blogIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, blogSelectQuery+` WHERE id = ANY($1)`, blogIDs)
	if err != nil {
		return nil, fmt.Errorf("get blogs by ids: %w", err)
	}
	defer rows.Close()
	return scanBlogs(rows)
}

func (r *PostgresBlogRepository) SetScrapeStatus(ctx context.Context, blogID string, status domain.ScrapeStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE blogs SET scrape_status = $2 WHERE id = $1`, blogID, string(status))
	if err != nil {
		return fmt.Errorf("set scrape status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveInsights moves scrape_status to ai_refused on a first refusal,
// but to ai_analyzed (terminal) if the blog is already ai_refused —
// a second consecutive refusal doesn't loop back to ai_refused, it
// settles the blog instead of leaving it stuck. The decision reads
// the row's current status in the same statement that writes it, so
// there's no read-then-write race with a concurrent reconcile pass.
func (r *PostgresBlogRepository) SaveInsights(ctx context.Context, blogID string, insights domain.AIInsights, raw []byte) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE blogs SET
			ai_insights_raw = $2,
			ai_confidence = $3,
			ai_analyzed_at = now(),
			scrape_status = CASE
				WHEN $4 = '' THEN 'ai_analyzed'
				WHEN scrape_status = 'ai_refused' THEN 'ai_analyzed'
				ELSE 'ai_refused'
			END
		WHERE id = $1
	`, blogID, raw, insights.Confidence, insights.RefusalReason)
	if err != nil {
		return fmt.Errorf("save insights: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresBlogRepository) SaveEmbedding(ctx context.Context, blogID string, embedding []float32) error {
	tag, err := r.pool.Exec(ctx, `UPDATE blogs SET embedding = $2 WHERE id = $1`, blogID, embedding)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresBlogRepository) MissingEmbeddings(ctx context.Context, limit int) ([]domain.Blog, error) {
	rows, err := r.pool.Query(ctx, blogSelectQuery+`
		WHERE scrape_status = 'ai_analyzed' AND embedding IS NULL
		ORDER BY ai_analyzed_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("missing embeddings: %w", err)
	}
	defer rows.Close()
	return scanBlogs(rows)
}

func (r *PostgresBlogRepository) ExistingUsernames(ctx context.Context, usernames []string) (map[string]bool, error) {
	if len(usernames) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT username FROM blogs WHERE username = ANY($1)`, usernames)
	if err != nil {
		return nil, fmt.Errorf("existing usernames: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		found[strings.ToLower(username)] = true
	}
	return found, rows.Err()
}

func (r *PostgresBlogRepository) StaleForRescrape(ctx context.Context, olderThanHours int, limit int) ([]domain.Blog, error) {
	threshold := time.Now().UTC().Add(-time.Duration(olderThanHours) * time.Hour)
	rows, err := r.pool.Query(ctx, blogSelectQuery+`
		WHERE scraped_at < $1 AND scrape_status NOT IN ('deleted', 'private')
		ORDER BY scraped_at ASC
		LIMIT $2
	`, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("stale for rescrape: %w", err)
	}
	defer rows.Close()
	return scanBlogs(rows)
}

const blogSelectQuery = `
	SELECT id, platform, username, platform_id, full_name, bio, bio_links, avatar_url,
	       followers_count, following_count, media_count, is_verified, is_business,
	       engagement_rate, er_reels, er_trend, posts_per_week, avg_reels_views,
	       scrape_status, ai_insights_raw, ai_confidence, ai_analyzed_at, embedding,
	       scraped_at, created_at
	FROM blogs
`

func scanBlog(row rowScanner) (domain.Blog, error) {
	var (
		b            domain.Blog
		bioLinksJSON []byte
		erTrend      string
		scrapeStatus string
		rawInsights  []byte
		embedding    []float32
	)
	if err := row.Scan(
		&b.ID, &b.Platform, &b.Username, &b.PlatformID, &b.FullName, &b.Bio, &bioLinksJSON, &b.AvatarURL,
		&b.FollowersCount, &b.FollowingCount, &b.MediaCount, &b.IsVerified, &b.IsBusiness,
		&b.EngagementRate, &b.ERReels, &erTrend, &b.PostsPerWeek, &b.AvgReelsViews,
		&scrapeStatus, &rawInsights, &b.AIConfidence, &b.AIAnalyzedAt, &embedding,
		&b.ScrapedAt, &b.CreatedAt,
	); err != nil {
		return domain.Blog{}, err
	}
	b.ERTrend = domain.ERTrend(erTrend)
	b.ScrapeStatus = domain.ScrapeStatus(scrapeStatus)
	b.Embedding = embedding
	if len(bioLinksJSON) > 0 {
		_ = json.Unmarshal(bioLinksJSON, &b.BioLinks)
	}
	if len(rawInsights) > 0 {
		b.AIInsightsRaw = rawInsights
		var insights domain.AIInsights
		if err := json.Unmarshal(rawInsights, &insights); err == nil {
			b.AIInsights = &insights
		}
	}
	return b, nil
}

func scanBlogs(rows pgx.Rows) ([]domain.Blog, error) {
	blogs := make([]domain.Blog, 0)
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blog row: %w", err)
		}
		blogs = append(blogs, b)
	}
	return blogs, rows.Err()
}
