package socialshare

import (
	"context"
	"time"
)

// Asset is what a media service reports back after an upload. PublicID is
// the only field callers rely on.
type Asset struct {
	PublicID string `json:"publicId"`
	Folder   string `json:"folder,omitempty"`
	Format   string `json:"format,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
	URL      string `json:"url,omitempty"`
}

// MediaService stores originals and hands out rendition URLs.
type MediaService interface {
	Upload(ctx context.Context, content []byte, opts ...UploadOption) (*Asset, error)
	RenditionURL(publicID string, t Transformation) (string, error)
}

type Metadata struct {
	Folder       string
	ContentType  string
	CacheControl string
}

type UploadOption func(*Metadata)

func WithFolder(folder string) UploadOption {
	return func(m *Metadata) { m.Folder = folder }
}

func WithContentType(t string) UploadOption {
	return func(m *Metadata) { m.ContentType = t }
}

func WithCacheControl(c string) UploadOption {
	return func(m *Metadata) { m.CacheControl = c }
}

func applyUploadOptions(opts []UploadOption) *Metadata {
	md := &Metadata{}
	for _, opt := range opts {
		opt(md)
	}
	return md
}

// Uploader is implemented by the storage providers backing the self-hosted
// media service. Originals and renditions are write once, nothing is ever
// removed through it. GetPresignedURL links to a stored original.
type Uploader interface {
	UploadFile(ctx context.Context, path string, content []byte, opts ...UploadOption) (string, error)
	GetFile(ctx context.Context, path string) ([]byte, error)
	GetPresignedURL(ctx context.Context, path string, expires time.Duration) (string, error)
}

type ProviderValidator interface {
	Validate(context.Context) error
}

// Renderer produces rendition bytes and their content type.
type Renderer interface {
	Render(ctx context.Context, source []byte, t Transformation) ([]byte, string, error)
}
