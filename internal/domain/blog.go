package domain

import "time"

type ScrapeStatus string

const (
	ScrapeStatusPending    ScrapeStatus = "pending"
	ScrapeStatusScraping   ScrapeStatus = "scraping"
	ScrapeStatusAnalyzing  ScrapeStatus = "analyzing"
	ScrapeStatusActive     ScrapeStatus = "active"
	ScrapeStatusPrivate    ScrapeStatus = "private"
	ScrapeStatusDeleted    ScrapeStatus = "deleted"
	ScrapeStatusFailed     ScrapeStatus = "failed"
	ScrapeStatusAIRefused  ScrapeStatus = "ai_refused"
	ScrapeStatusAIAnalyzed ScrapeStatus = "ai_analyzed"
)

type ERTrend string

const (
	ERTrendGrowing  ERTrend = "growing"
	ERTrendStable   ERTrend = "stable"
	ERTrendDeclining ERTrend = "declining"
)

// BioLink is one entry of a profile's link-in-bio list.
type BioLink struct {
	URL      string  `json:"url"`
	Title    *string `json:"title,omitempty"`
	LinkType *string `json:"link_type,omitempty"`
}

// Blog is a tracked Instagram account and its derived metrics.
type Blog struct {
	ID           string
	Platform     string
	Username     string
	PlatformID   string
	FullName     string
	Bio          string
	BioLinks     []BioLink
	AvatarURL    string

	FollowersCount int
	FollowingCount int
	MediaCount     int
	IsVerified     bool
	IsBusiness     bool

	EngagementRate  float64
	ERReels         float64
	ERTrend         ERTrend
	PostsPerWeek    float64
	AvgReelsViews   *int

	ScrapeStatus ScrapeStatus

	AIInsights    *AIInsights
	AIInsightsRaw []byte
	AIConfidence  int
	AIAnalyzedAt  *time.Time

	Embedding []float32

	ScrapedAt *time.Time
	CreatedAt time.Time
}

// Post is a scraped media item (feed post, reel/clip, or carousel).
type Post struct {
	BlogID               string
	PlatformID           string
	MediaType            int
	ProductType           string
	CaptionText          string
	Hashtags             []string
	Mentions             []string
	LikeCount            int
	CommentCount         int
	PlayCount            *int
	ThumbnailURL         string
	TakenAt              time.Time
	VideoDuration        *float64
	Usertags             []string
	AccessibilityCaption string
	CommentsDisabled     bool
	Title                string
	CarouselMediaCount   *int
	TopComments          []Comment
}

type Comment struct {
	Text     string `json:"text"`
	Username string `json:"username"`
}

// Highlight is a scraped Instagram Story highlight reel.
type Highlight struct {
	BlogID             string
	PlatformID         string
	Title              string
	MediaCount         int
	StoryMentions      []string
	StoryLocations     []string
	StoryLinks         []string
	StorySponsorTags   []string
	HasPaidPartnership bool
	StoryHashtags      []string
}

// Category is a node in the category tree; top-level nodes carry Code.
type Category struct {
	ID       string
	ParentID *string
	Code     string
	Name     string
}

// BlogCategory is a blog's assignment to one category. IsPrimary
// distinguishes the single category resolved from
// AIInsights.Content.PrimaryCategories from the rest, resolved from
// SecondaryTopics.
type BlogCategory struct {
	CategoryID string
	IsPrimary  bool
}

type TagGroup string

const (
	TagGroupContent      TagGroup = "content"
	TagGroupPersonal     TagGroup = "personal"
	TagGroupProfessional TagGroup = "professional"
	TagGroupCommercial   TagGroup = "commercial"
	TagGroupAudience     TagGroup = "audience"
	TagGroupMarketing    TagGroup = "marketing"
)

type TagStatus string

const (
	TagActive      TagStatus = "active"
	TagUnconfirmed TagStatus = "unconfirmed"
)

type Tag struct {
	ID     string
	Name   string
	Group  TagGroup
	Status TagStatus
}

// City is the canonical entity a blog's AI-inferred city string resolves to.
type City struct {
	ID      string
	Name    string
	Country string
}
