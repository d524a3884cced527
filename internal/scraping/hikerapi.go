package scraping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
)

// HikerAPIClientConfig configures the reference HTTP-backed adapter.
// The request/response shapes are the backend's own wire format and
// are out of scope beyond what ScrapeProfile/Discover need to build a
// domain.ScrapedProfile; this client only normalizes errors and maps
// fields, mirroring the teacher's ai.OpenAIClient shape (timeout,
// max retries, typed HTTP errors) applied to a scraping backend
// instead of a completions API.
type HikerAPIClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

type HikerAPIClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func NewHikerAPIClient(config HikerAPIClientConfig) *HikerAPIClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.hikerapi.com"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 2
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &HikerAPIClient{
		apiKey:     strings.TrimSpace(config.APIKey),
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		httpClient: config.HTTPClient,
	}
}

var _ Adapter = (*HikerAPIClient)(nil)

// minDiscoverMediaCount is the "at least 5 posts" bar a hashtag
// candidate must clear, alongside not-private and the caller's
// follower floor, before it's worth turning into a tracked blog.
const minDiscoverMediaCount = 5

func (c *HikerAPIClient) ScrapeProfile(ctx context.Context, username string) (domain.ScrapedProfile, error) {
	var raw hikerProfileResponse
	if err := c.getJSON(ctx, "/v2/user/by/username", map[string]string{"username": username}, &raw); err != nil {
		return domain.ScrapedProfile{}, err
	}
	if raw.IsPrivate {
		return domain.ScrapedProfile{}, ErrPrivateAccount
	}

	var medias hikerMediaResponse
	if err := c.getJSON(ctx, "/v2/user/medias", map[string]string{"user_id": raw.PK, "amount": "25"}, &medias); err != nil {
		return domain.ScrapedProfile{}, err
	}

	// Highlights are supplementary; a failure here does not fail the
	// whole scrape and leaves the profile's highlights nil.
	var highlightList []domain.ScrapedHighlight
	var highlights hikerHighlightsResponse
	if err := c.getJSON(ctx, "/v2/user/highlights", map[string]string{"user_id": raw.PK}, &highlights); err == nil {
		highlightList = highlights.toHighlights()
	}

	profile := raw.toProfile(medias.toPosts(), highlightList)
	metrics := ComputeMetrics(profile.Medias, profile.FollowerCount)
	profile.EngagementRate = metrics.EngagementRate
	profile.ERReels = metrics.ERReels
	profile.ERTrend = metrics.ERTrend
	profile.PostsPerWeek = metrics.PostsPerWeek
	return profile, nil
}

func (c *HikerAPIClient) Discover(ctx context.Context, hashtag string, minFollowers int) ([]domain.DiscoveredProfile, error) {
	var raw hikerHashtagResponse
	if err := c.getJSON(ctx, "/v2/hashtag/medias/top", map[string]string{"name": hashtag}, &raw); err != nil {
		return nil, err
	}

	candidates := make([]domain.DiscoveredProfile, 0, len(raw.Items))
	for _, item := range raw.Items {
		if item.User.IsPrivate {
			continue
		}
		if item.User.FollowerCount < minFollowers {
			continue
		}
		if item.User.MediaCount < minDiscoverMediaCount {
			continue
		}
		candidates = append(candidates, domain.DiscoveredProfile{
			Username:      item.User.Username,
			FullName:      item.User.FullName,
			FollowerCount: item.User.FollowerCount,
			PlatformID:    item.User.PK,
			IsBusiness:    item.User.IsBusiness,
			IsVerified:    item.User.IsVerified,
			Biography:     item.User.Biography,
			MediaCount:    item.User.MediaCount,
		})
	}
	return candidates, nil
}

func (c *HikerAPIClient) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + path
	if len(query) > 0 {
		values := make([]string, 0, len(query))
		for k, v := range query {
			values = append(values, k+"="+v)
		}
		url += "?" + strings.Join(values, "&")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("x-access-key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &TransientError{Cause: err}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &TransientError{Cause: readErr}
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var buf bytes.Buffer
			buf.Write(body)
			dec := json.NewDecoder(&buf)
			if err := dec.Decode(out); err != nil {
				return fmt.Errorf("decode hikerapi response: %w", err)
			}
			return nil
		case http.StatusNotFound:
			return ErrUserNotFound
		case http.StatusPaymentRequired:
			return &InsufficientBalanceError{Detail: strings.TrimSpace(string(body))}
		case http.StatusTooManyRequests:
			retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			return &RateLimitedError{RetryAfterSeconds: retryAfter}
		default:
			if resp.StatusCode >= 500 {
				lastErr = &TransientError{Cause: fmt.Errorf("hikerapi status %d", resp.StatusCode)}
				continue
			}
			return fmt.Errorf("hikerapi status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}
	if lastErr == nil {
		lastErr = &TransientError{Cause: fmt.Errorf("exhausted retries")}
	}
	return lastErr
}

// Wire-format structs for the reference backend. Kept private and
// minimal: only fields the domain model consumes are decoded.

type hikerProfileResponse struct {
	PK              string `json:"pk"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Biography       string `json:"biography"`
	IsPrivate       bool   `json:"is_private"`
	IsVerified      bool   `json:"is_verified"`
	IsBusiness      bool   `json:"is_business"`
	FollowerCount   int    `json:"follower_count"`
	FollowingCount  int    `json:"following_count"`
	MediaCount      int    `json:"media_count"`
	ProfilePicURL   string `json:"profile_pic_url"`
	PublicEmail     string `json:"public_email"`
	ContactPhone    string `json:"contact_phone_number"`
	CityName        string `json:"city_name"`
	AddressStreet   string `json:"address_street"`
	BusinessCategory string `json:"category"`
	ExternalURL     string `json:"external_url"`
}

func (r hikerProfileResponse) toProfile(posts []domain.ScrapedPost, highlights []domain.ScrapedHighlight) domain.ScrapedProfile {
	var bioLinks []domain.BioLink
	if r.ExternalURL != "" {
		bioLinks = append(bioLinks, domain.BioLink{URL: r.ExternalURL})
	}
	return domain.ScrapedProfile{
		PlatformID:       r.PK,
		Username:         r.Username,
		FullName:         r.FullName,
		Biography:        r.Biography,
		BioLinks:         bioLinks,
		FollowerCount:    r.FollowerCount,
		FollowingCount:   r.FollowingCount,
		MediaCount:       r.MediaCount,
		IsVerified:       r.IsVerified,
		IsBusiness:       r.IsBusiness,
		BusinessCategory: r.BusinessCategory,
		PublicEmail:      r.PublicEmail,
		ContactPhoneNumber: r.ContactPhone,
		CityName:         r.CityName,
		AddressStreet:    r.AddressStreet,
		ProfilePicURL:    r.ProfilePicURL,
		Medias:           posts,
		Highlights:       highlights,
	}
}

type hikerMediaResponse struct {
	Items []struct {
		PK             string   `json:"pk"`
		MediaType      int      `json:"media_type"`
		ProductType    string   `json:"product_type"`
		CaptionText    string   `json:"caption_text"`
		Hashtags       []string `json:"hashtags"`
		Mentions       []string `json:"mentions"`
		LikeCount      int      `json:"like_count"`
		CommentCount   int      `json:"comment_count"`
		PlayCount      *int     `json:"play_count"`
		ThumbnailURL   string   `json:"thumbnail_url"`
		TakenAt        string   `json:"taken_at"`
		VideoDuration  *float64 `json:"video_duration"`
		Usertags       []string `json:"usertags"`
		AccessibilityCaption string `json:"accessibility_caption"`
		CommentsDisabled bool   `json:"comments_disabled"`
		Title          string   `json:"title"`
	} `json:"items"`
}

func (r hikerMediaResponse) toPosts() []domain.ScrapedPost {
	posts := make([]domain.ScrapedPost, 0, len(r.Items))
	for _, item := range r.Items {
		takenAt, _ := time.Parse(time.RFC3339, item.TakenAt)
		posts = append(posts, domain.ScrapedPost{
			PlatformID:           item.PK,
			MediaType:            item.MediaType,
			ProductType:          item.ProductType,
			CaptionText:          item.CaptionText,
			Hashtags:             item.Hashtags,
			Mentions:             item.Mentions,
			LikeCount:            item.LikeCount,
			CommentCount:         item.CommentCount,
			PlayCount:            item.PlayCount,
			ThumbnailURL:         item.ThumbnailURL,
			TakenAt:              takenAt,
			VideoDuration:        item.VideoDuration,
			Usertags:             item.Usertags,
			AccessibilityCaption: item.AccessibilityCaption,
			CommentsDisabled:     item.CommentsDisabled,
			Title:                item.Title,
		})
	}
	return posts
}

type hikerHighlightsResponse struct {
	Items []struct {
		PK         string   `json:"pk"`
		Title      string   `json:"title"`
		MediaCount int      `json:"media_count"`
	} `json:"items"`
}

func (r hikerHighlightsResponse) toHighlights() []domain.ScrapedHighlight {
	highlights := make([]domain.ScrapedHighlight, 0, len(r.Items))
	for _, item := range r.Items {
		highlights = append(highlights, domain.ScrapedHighlight{
			PlatformID: item.PK,
			Title:      item.Title,
			MediaCount: item.MediaCount,
		})
	}
	return highlights
}

type hikerHashtagResponse struct {
	Items []struct {
		User struct {
			PK            string `json:"pk"`
			Username      string `json:"username"`
			FullName      string `json:"full_name"`
			Biography     string `json:"biography"`
			FollowerCount int    `json:"follower_count"`
			MediaCount    int    `json:"media_count"`
			IsBusiness    bool   `json:"is_business"`
			IsVerified    bool   `json:"is_verified"`
			IsPrivate     bool   `json:"is_private"`
		} `json:"user"`
	} `json:"items"`
}
