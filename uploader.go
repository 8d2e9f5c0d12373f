package socialshare

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ MediaService = &Manager{}

// Manager is the self-hosted media service. Originals and cached renditions
// go through the storage provider, reads can be served from an fs.FS view
// of the same storage.
type Manager struct {
	logger      Logger
	provider    Uploader
	assets      fs.FS
	renderer    Renderer
	deliveryURL string
	urlTTL      time.Duration
	newID       func() string
	providerErr error
	validated   bool
	validateCtx context.Context
}

type Option func(m *Manager)

func WithLogger(l Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func WithProvider(p Uploader) Option {
	return func(m *Manager) {
		m.provider = p
		m.validated = false
		m.providerErr = nil

		ctx := m.validateCtx
		if ctx == nil {
			ctx = context.Background()
		}

		if err := m.validateProvider(ctx); err != nil {
			m.providerErr = err
			return
		}

		m.validated = true
	}
}

func WithProviderValidationContext(ctx context.Context) Option {
	return func(m *Manager) {
		m.validateCtx = ctx
	}
}

// WithAssetsFS makes reads go through fsys instead of the provider.
func WithAssetsFS(fsys fs.FS) Option {
	return func(m *Manager) {
		m.assets = fsys
	}
}

func WithRenderer(r Renderer) Option {
	return func(m *Manager) {
		if r != nil {
			m.renderer = r
		}
	}
}

// WithDeliveryURL sets the URL prefix renditions are served under.
func WithDeliveryURL(prefix string) Option {
	return func(m *Manager) {
		m.deliveryURL = strings.TrimSuffix(prefix, "/")
	}
}

// WithURLTTL sets how long the original link on an uploaded Asset stays
// valid.
func WithURLTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.urlTTL = ttl
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:      &DefaultLogger{},
		validateCtx: context.Background(),
		renderer:    NewImagingRenderer(),
		deliveryURL: DefaultDeliveryPrefix,
		urlTTL:      DefaultPresignedURLTTL,
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Upload stores content under <folder>/<uuid> and returns that key as the
// public id.
func (m *Manager) Upload(ctx context.Context, content []byte, opts ...UploadOption) (*Asset, error) {
	md := applyUploadOptions(opts)

	folder := strings.Trim(md.Folder, "/")
	if folder == "" {
		folder = DefaultUploadFolder
	}

	publicID := path.Join(folder, m.newID())
	if err := validateObjectKey(publicID); err != nil {
		return nil, err
	}

	if len(content) == 0 {
		return nil, fmt.Errorf("manager: upload content is empty")
	}

	contentType := md.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	if err := m.ensureProvider(ctx); err != nil {
		return nil, err
	}

	if _, err := m.provider.UploadFile(ctx, publicID, content,
		WithContentType(contentType),
		WithCacheControl(md.CacheControl),
	); err != nil {
		return nil, err
	}

	m.logger.Info("asset stored", "public_id", publicID, "bytes", len(content))

	asset := &Asset{
		PublicID: publicID,
		Folder:   folder,
		Format:   extensionForMime(contentType),
		Bytes:    len(content),
	}

	// the original stays private, the asset only carries a short lived link
	url, err := m.provider.GetPresignedURL(ctx, publicID, m.urlTTL)
	if err != nil {
		m.logger.Error("original url failed", "public_id", publicID, "error", err)
	} else {
		asset.URL = url
	}

	return asset, nil
}

// RenditionURL points at the delivery route which renders on demand.
func (m *Manager) RenditionURL(publicID string, t Transformation) (string, error) {
	if err := validateObjectKey(publicID); err != nil {
		return "", err
	}

	if err := t.Validate(); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/image/upload/%s/%s", m.deliveryURL, t.String(), publicID), nil
}

// Render returns the rendition bytes for publicID. Renditions are cached
// next to the original.
func (m *Manager) Render(ctx context.Context, publicID string, t Transformation) ([]byte, string, error) {
	if err := validateObjectKey(publicID); err != nil {
		return nil, "", err
	}

	if err := t.Validate(); err != nil {
		return nil, "", err
	}

	if err := m.ensureProvider(ctx); err != nil {
		return nil, "", err
	}

	key := renditionKey(publicID, t)
	if cached, err := m.readAsset(ctx, key); err == nil && len(cached) > 0 {
		return cached, http.DetectContentType(cached), nil
	}

	original, err := m.readAsset(ctx, publicID)
	if err != nil {
		return nil, "", err
	}

	out, contentType, err := m.ensureRenderer().Render(ctx, original, t)
	if err != nil {
		return nil, "", err
	}

	if _, err := m.provider.UploadFile(ctx, key, out,
		WithContentType(contentType),
		WithCacheControl(RenditionCacheControl),
	); err != nil {
		m.logger.Error("rendition cache write failed", "key", key, "error", err)
	}

	return out, contentType, nil
}

func (m *Manager) readAsset(ctx context.Context, key string) ([]byte, error) {
	if m.assets == nil {
		return m.provider.GetFile(ctx, key)
	}

	data, err := fs.ReadFile(m.assets, key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrImageNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("assets read: %w", err)
	}

	return data, nil
}

func (m *Manager) ensureProvider(ctx context.Context) error {
	if m.provider == nil {
		return ErrProviderNotConfigured
	}

	if m.providerErr != nil {
		return m.providerErr
	}

	if m.validated {
		return nil
	}

	if err := m.validateProvider(ctx); err != nil {
		m.providerErr = err
		return err
	}

	m.validated = true
	return nil
}

func (m *Manager) validateProvider(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	validator, ok := m.provider.(ProviderValidator)
	if !ok {
		return nil
	}

	return validator.Validate(ctx)
}

func (m *Manager) ValidateProvider(ctx context.Context) error {
	if m.provider == nil {
		return ErrProviderNotConfigured
	}

	if err := m.validateProvider(ctx); err != nil {
		m.providerErr = err
		m.validated = false
		return err
	}

	m.providerErr = nil
	m.validated = true
	return nil
}

func (m *Manager) ensureRenderer() Renderer {
	if m.renderer == nil {
		m.renderer = NewImagingRenderer()
	}
	return m.renderer
}

func validateObjectKey(key string) error {
	if key == "" {
		return ErrInvalidPath
	}

	if strings.Contains(key, "..") {
		return ErrInvalidPath
	}

	if strings.HasPrefix(key, "/") {
		return ErrInvalidPath
	}

	return nil
}

var renditionKeyReplacer = strings.NewReplacer(":", "-", ",", "_")

func renditionKey(publicID string, t Transformation) string {
	return fmt.Sprintf("%s__%s", publicID, renditionKeyReplacer.Replace(t.String()))
}
