package objectstorage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
)

type fakeStoreBlogRepository struct {
	repository.BlogRepository
	tracked map[string]bool
}

func (f *fakeStoreBlogRepository) GetByID(_ context.Context, blogID string) (domain.Blog, error) {
	if f.tracked[blogID] {
		return domain.Blog{ID: blogID}, nil
	}
	return domain.Blog{}, repository.ErrNotFound
}

func TestSaveAvatarWritesFileUnderBlogDirectory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer server.Close()

	root := t.TempDir()
	store := NewStore(root, &fakeStoreBlogRepository{})

	relPath, err := store.SaveAvatar(context.Background(), "blog-1", server.URL)
	if err != nil {
		t.Fatalf("SaveAvatar: %v", err)
	}
	if relPath != filepath.Join("blog-1", "avatar.jpg") {
		t.Errorf("relPath = %q, want blog-1/avatar.jpg", relPath)
	}
	data, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "fake-jpeg-bytes" {
		t.Errorf("file content = %q, want fake-jpeg-bytes", string(data))
	}
}

func TestSaveAvatarSkipsEmptyURL(t *testing.T) {
	store := NewStore(t.TempDir(), &fakeStoreBlogRepository{})
	relPath, err := store.SaveAvatar(context.Background(), "blog-1", "")
	if err != nil {
		t.Fatalf("SaveAvatar: %v", err)
	}
	if relPath != "" {
		t.Errorf("relPath = %q, want empty for a blank source URL", relPath)
	}
}

func TestSaveAvatarFailsOnNon2xxResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := NewStore(t.TempDir(), &fakeStoreBlogRepository{})
	_, err := store.SaveAvatar(context.Background(), "blog-1", server.URL)
	if err == nil {
		t.Fatal("expected an error for a 404 media response")
	}
}

func TestSavePostThumbnailUsesPlatformIDInFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("thumb"))
	}))
	defer server.Close()

	root := t.TempDir()
	store := NewStore(root, &fakeStoreBlogRepository{})
	relPath, err := store.SavePostThumbnail(context.Background(), "blog-1", "post-42", server.URL)
	if err != nil {
		t.Fatalf("SavePostThumbnail: %v", err)
	}
	if relPath != filepath.Join("blog-1", "post_post-42.jpg") {
		t.Errorf("relPath = %q, want blog-1/post_post-42.jpg", relPath)
	}
}

func TestCleanupOrphansRemovesUntrackedBlogDirs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "blog-tracked"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "blog-orphaned"), 0o755); err != nil {
		t.Fatal(err)
	}

	blogs := &fakeStoreBlogRepository{tracked: map[string]bool{"blog-tracked": true}}
	store := NewStore(root, blogs)

	removed, err := store.CleanupOrphans(context.Background())
	if err != nil {
		t.Fatalf("CleanupOrphans: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(root, "blog-orphaned")); !os.IsNotExist(err) {
		t.Errorf("expected blog-orphaned directory to be removed")
	}
	if _, err := os.Stat(filepath.Join(root, "blog-tracked")); err != nil {
		t.Errorf("expected blog-tracked directory to survive: %v", err)
	}
}

func TestCleanupOrphansToleratesMissingRoot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"), &fakeStoreBlogRepository{})
	removed, err := store.CleanupOrphans(context.Background())
	if err != nil {
		t.Fatalf("CleanupOrphans: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 for a nonexistent root", removed)
	}
}
