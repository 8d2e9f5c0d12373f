package socialshare

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewMultiProvider(t *testing.T) {
	local := NewFSProvider(t.TempDir())
	store := newMemoryUploader()
	logger := &mockLogger{}

	provider := NewMultiProvider(local, store).WithLogger(logger)

	if provider.local != local {
		t.Error("Local provider not set correctly")
	}

	if provider.objectStore != store {
		t.Error("Object store not set correctly")
	}

	if provider.logger != logger {
		t.Error("Logger not set correctly")
	}
}

func TestMultiProviderStoresOriginal(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := newMemoryUploader()
	provider := NewMultiProvider(NewFSProvider(base).WithLogger(&mockLogger{}), store)
	original := testPNG(t, 4, 4)

	url, err := provider.UploadFile(ctx, "next-cloudinary-uploads/abc123", original, WithContentType("image/png"))
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}

	if url != "/next-cloudinary-uploads/abc123" {
		t.Errorf("Expected the object store URL, got '%s'", url)
	}

	if !bytes.Equal(store.objects["next-cloudinary-uploads/abc123"], original) {
		t.Error("Expected original in the object store")
	}

	local, err := os.ReadFile(filepath.Join(base, "next-cloudinary-uploads", "abc123"))
	if err != nil {
		t.Fatalf("Expected local copy: %v", err)
	}

	if !bytes.Equal(local, original) {
		t.Error("Expected local copy to match the original")
	}
}

func TestMultiProviderObjectStoreFailure(t *testing.T) {
	base := t.TempDir()
	store := &mockUploader{
		uploadFunc: func(ctx context.Context, path string, content []byte, opts ...UploadOption) (string, error) {
			return "", errors.New("bucket unavailable")
		},
	}
	provider := NewMultiProvider(NewFSProvider(base), store)

	if _, err := provider.UploadFile(context.Background(), "next-cloudinary-uploads/abc123", []byte("x")); err == nil {
		t.Fatal("Expected object store error")
	}

	if _, err := os.Stat(filepath.Join(base, "next-cloudinary-uploads", "abc123")); !os.IsNotExist(err) {
		t.Error("Expected no local copy when the object store write fails")
	}
}

func TestMultiProviderRenditionReads(t *testing.T) {
	ctx := context.Background()
	publicID := "next-cloudinary-uploads/abc123"
	preset, _ := MustDefaultCatalog().Lookup("Twitter Post (16:9)")
	key := renditionKey(publicID, preset.Transformation())

	t.Run("local hit skips the object store", func(t *testing.T) {
		local := NewFSProvider(t.TempDir())
		if _, err := local.UploadFile(ctx, key, []byte("cached rendition")); err != nil {
			t.Fatalf("Seeding local copy failed: %v", err)
		}

		store := &mockUploader{
			getFunc: func(ctx context.Context, path string) ([]byte, error) {
				t.Errorf("Object store should not be read, got '%s'", path)
				return nil, ErrImageNotFound
			},
		}

		data, err := NewMultiProvider(local, store).GetFile(ctx, key)
		if err != nil {
			t.Fatalf("GetFile failed: %v", err)
		}

		if string(data) != "cached rendition" {
			t.Errorf("Expected 'cached rendition', got '%s'", string(data))
		}
	})

	t.Run("local miss warms the cache", func(t *testing.T) {
		base := t.TempDir()
		store := newMemoryUploader()
		store.objects[key] = []byte("rendition from bucket")

		provider := NewMultiProvider(NewFSProvider(base).WithLogger(&mockLogger{}), store)

		data, err := provider.GetFile(ctx, key)
		if err != nil {
			t.Fatalf("GetFile failed: %v", err)
		}

		if string(data) != "rendition from bucket" {
			t.Errorf("Expected 'rendition from bucket', got '%s'", string(data))
		}

		warmed, err := NewFSProvider(base).GetFile(ctx, key)
		if err != nil {
			t.Fatalf("Expected local copy after read: %v", err)
		}

		if string(warmed) != "rendition from bucket" {
			t.Errorf("Expected warmed copy 'rendition from bucket', got '%s'", string(warmed))
		}
	})

	t.Run("missing everywhere", func(t *testing.T) {
		provider := NewMultiProvider(NewFSProvider(t.TempDir()), newMemoryUploader())

		if _, err := provider.GetFile(ctx, key); !errors.Is(err, ErrImageNotFound) {
			t.Errorf("Expected ErrImageNotFound, got %v", err)
		}
	})

	t.Run("warm failure is logged", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not-a-dir")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}

		store := newMemoryUploader()
		store.objects[key] = []byte("rendition")
		logger := &mockLogger{}

		provider := NewMultiProvider(NewFSProvider(file), store).WithLogger(logger)

		if _, err := provider.GetFile(ctx, key); err != nil {
			t.Fatalf("GetFile should succeed when warming fails, got %v", err)
		}

		if len(logger.errorMessages) != 1 || !strings.Contains(logger.errorMessages[0], "local cache write failed") {
			t.Errorf("Expected cache write failure log, got %v", logger.errorMessages)
		}
	})
}

func TestMultiProviderGetPresignedURL(t *testing.T) {
	var gotTTL time.Duration
	store := &mockUploader{
		getPresignedFunc: func(ctx context.Context, path string, expires time.Duration) (string, error) {
			gotTTL = expires
			return "https://bucket.s3.amazonaws.com/" + path + "?X-Amz-Signature=sig", nil
		},
	}

	provider := NewMultiProvider(NewFSProvider(t.TempDir()), store)

	url, err := provider.GetPresignedURL(context.Background(), "next-cloudinary-uploads/abc123", 5*time.Minute)
	if err != nil {
		t.Fatalf("GetPresignedURL failed: %v", err)
	}

	if !strings.HasPrefix(url, "https://bucket.s3.amazonaws.com/next-cloudinary-uploads/abc123") {
		t.Errorf("Expected object store URL, got '%s'", url)
	}

	if gotTTL != 5*time.Minute {
		t.Errorf("Expected TTL 5m, got %v", gotTTL)
	}
}

func TestMultiProviderValidate(t *testing.T) {
	t.Run("both stores valid", func(t *testing.T) {
		provider := NewMultiProvider(NewFSProvider(t.TempDir()), &mockUploader{})

		if err := provider.Validate(context.Background()); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	})

	t.Run("missing local", func(t *testing.T) {
		provider := NewMultiProvider(nil, &mockUploader{})

		if err := provider.Validate(context.Background()); err == nil || !strings.Contains(err.Error(), "local provider not configured") {
			t.Errorf("Expected local provider error, got %v", err)
		}
	})

	t.Run("missing object store", func(t *testing.T) {
		provider := NewMultiProvider(NewFSProvider(t.TempDir()), nil)

		if err := provider.Validate(context.Background()); err == nil || !strings.Contains(err.Error(), "object store not configured") {
			t.Errorf("Expected object store error, got %v", err)
		}
	})

	t.Run("object store validation failure", func(t *testing.T) {
		store := &mockUploader{
			shouldValidate: true,
			validateFunc: func(ctx context.Context) error {
				return errors.New("bucket missing")
			},
		}

		err := NewMultiProvider(NewFSProvider(t.TempDir()), store).Validate(context.Background())
		if err == nil || !strings.Contains(err.Error(), "object store validation failed") {
			t.Errorf("Expected object store validation error, got %v", err)
		}
	})
}
