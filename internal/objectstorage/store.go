// Package objectstorage persists scraped avatar and post thumbnails
// under a deterministic per-blog layout and removes the media
// directory of any blog that is no longer tracked. Thumbnails of
// individual posts are not pruned while their blog is still tracked.
package objectstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bloglens/intel-service/internal/repository"
)

// Store writes media to a local directory tree, laid out as
// {blog_id}/avatar.jpg and {blog_id}/post_{platform_id}.jpg.
type Store struct {
	rootDir    string
	httpClient *http.Client
	blogs      repository.BlogRepository
}

func NewStore(rootDir string, blogs repository.BlogRepository) *Store {
	return &Store{
		rootDir:    rootDir,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		blogs:      blogs,
	}
}

// SaveAvatar downloads sourceURL and writes it to {blog_id}/avatar.jpg.
func (s *Store) SaveAvatar(ctx context.Context, blogID, sourceURL string) (string, error) {
	return s.download(ctx, sourceURL, filepath.Join(blogID, "avatar.jpg"))
}

// SavePostThumbnail downloads sourceURL and writes it to
// {blog_id}/post_{platform_id}.jpg.
func (s *Store) SavePostThumbnail(ctx context.Context, blogID, platformID, sourceURL string) (string, error) {
	return s.download(ctx, sourceURL, filepath.Join(blogID, fmt.Sprintf("post_%s.jpg", platformID)))
}

func (s *Store) download(ctx context.Context, sourceURL, relPath string) (string, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return "", nil
	}
	destPath := filepath.Join(s.rootDir, relPath)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build media request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return relPath, nil
}

// CleanupOrphans removes any per-blog media directory whose blog no
// longer exists in the store, backing the weekly cleanup job. Returns
// the count of directories removed.
func (s *Store) CleanupOrphans(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read media root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		blogID := entry.Name()
		if _, err := s.blogs.GetByID(ctx, blogID); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return removed, fmt.Errorf("look up blog %s: %w", blogID, err)
		}
		if err := os.RemoveAll(filepath.Join(s.rootDir, blogID)); err != nil {
			return removed, fmt.Errorf("remove orphaned media dir %s: %w", blogID, err)
		}
		removed++
	}
	return removed, nil
}
