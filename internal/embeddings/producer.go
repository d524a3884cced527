package embeddings

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bloglens/intel-service/internal/cache"
	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
)

// Provider generates a single embedding vector for text. A failure
// returns an error rather than a zero vector, so callers can tell
// "the provider has nothing" apart from "the provider said no".
type Provider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbeddingClient calls the provider's /v1/embeddings endpoint,
// retrying any failed attempt with the same linear backoff as
// aipipeline.OpenAIBatchClient.
type OpenAIEmbeddingClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func NewOpenAIEmbeddingClient(apiKey, baseURL, model string, timeout time.Duration, maxRetries int, httpClient *http.Client) *OpenAIEmbeddingClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIEmbeddingClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: httpClient,
	}
}

var _ Provider = (*OpenAIEmbeddingClient)(nil)

func (c *OpenAIEmbeddingClient) Generate(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]string{"model": c.model, "input": text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		vector, err := c.call(ctx, payload)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(350*(attempt+1)) * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (c *OpenAIEmbeddingClient) call(ctx context.Context, payload []byte) ([]float32, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding transport error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("embedding provider status %d: %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("embedding response had no data")
	}
	return decoded.Data[0].Embedding, nil
}

// Service drives embedding generation for blogs that have AI insights
// but no stored vector yet. Any provider failure is logged and
// skipped, matching the original producer's "return None on any
// exception" behavior — these blogs fall back into the next
// retry_missing_embeddings sweep rather than failing a task.
type Service struct {
	provider Provider
	blogs    repository.BlogRepository
	cache    cache.Cache
	logger   *log.Logger
}

func NewService(provider Provider, blogs repository.BlogRepository, logger *log.Logger) *Service {
	return &Service{provider: provider, blogs: blogs, logger: logger}
}

// WithCache attaches a lookup cache keyed on the rendered embedding
// text, so re-embedding a blog whose insights haven't changed since
// the last run skips the provider call entirely.
func (s *Service) WithCache(c cache.Cache) *Service {
	s.cache = c
	return s
}

// GenerateFor renders and embeds one blog's insights, then persists
// the vector.
func (s *Service) GenerateFor(ctx context.Context, blog domain.Blog) error {
	if blog.AIInsights == nil {
		return fmt.Errorf("blog %s has no ai insights to embed", blog.ID)
	}
	text := Render(*blog.AIInsights)

	vector, err := s.cachedGenerate(ctx, text)
	if err != nil {
		return fmt.Errorf("generate embedding for blog %s: %w", blog.ID, err)
	}
	return s.blogs.SaveEmbedding(ctx, blog.ID, vector)
}

func (s *Service) cachedGenerate(ctx context.Context, text string) ([]float32, error) {
	signature := "embedding:" + embeddingSignature(text)
	if s.cache != nil {
		var cached []float32
		if ok, _ := s.cache.Get(ctx, signature, &cached); ok {
			return cached, nil
		}
	}
	vector, err := s.provider.Generate(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, signature, vector)
	}
	return vector, nil
}

// RetryMissing embeds every analyzed blog that still lacks a vector,
// backing the retry_missing_embeddings scheduler job. ai_refused blogs
// are excluded upstream by BlogRepository.MissingEmbeddings, since a
// refused blog has no insights to embed.
func (s *Service) RetryMissing(ctx context.Context, limit int) (int, error) {
	blogs, err := s.blogs.MissingEmbeddings(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list blogs missing embeddings: %w", err)
	}
	embedded := 0
	for _, blog := range blogs {
		if err := s.GenerateFor(ctx, blog); err != nil {
			s.logf("embed blog %s failed: %v", blog.ID, err)
			continue
		}
		embedded++
	}
	return embedded, nil
}

func embeddingSignature(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
