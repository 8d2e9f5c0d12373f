package socialshare

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	_ Uploader          = &FSProvider{}
	_ ProviderValidator = &FSProvider{}
)

// FSProvider keeps originals and cached renditions on local disk. An object
// key such as next-cloudinary-uploads/abc123 is a slash separated path
// below base.
type FSProvider struct {
	root      fs.FS
	base      string
	urlPrefix string
	logger    Logger
}

func NewFSProvider(base string) *FSProvider {
	return &FSProvider{
		root:   os.DirFS(base),
		base:   base,
		logger: &DefaultLogger{},
	}
}

func (p *FSProvider) WithLogger(l Logger) *FSProvider {
	p.logger = l
	return p
}

// WithURLPrefix sets what GetPresignedURL puts in front of a key, for
// example file:///var/lib/social-share/.
func (p *FSProvider) WithURLPrefix(prefix string) *FSProvider {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	p.urlPrefix = prefix
	return p
}

// FS is a read view over the stored objects, keyed the same way.
func (p *FSProvider) FS() fs.FS {
	return p.root
}

// UploadFile writes content to a temporary file next to the target and
// renames it in place, so a concurrent render never reads a partial
// rendition.
func (p *FSProvider) UploadFile(ctx context.Context, key string, content []byte, _ ...UploadOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := p.objectPath(key)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	if err := writeAndClose(tmp, content); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fs write %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), name); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fs write %s: %w", key, err)
	}

	p.logger.Info("object stored", "key", key, "bytes", len(content))

	return p.urlPrefix + key, nil
}

func writeAndClose(f *os.File, content []byte) error {
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}

	if err := f.Chmod(0644); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func (p *FSProvider) GetFile(ctx context.Context, key string) ([]byte, error) {
	if _, err := p.objectPath(key); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(p.root, key)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, ErrImageNotFound
	case errors.Is(err, fs.ErrPermission):
		return nil, ErrPermissionDenied
	case err != nil:
		return nil, fmt.Errorf("fs read %s: %w", key, err)
	}

	return data, nil
}

// GetPresignedURL links to a stored object. Local files carry no
// signature so the TTL does not apply.
func (p *FSProvider) GetPresignedURL(ctx context.Context, key string, _ time.Duration) (string, error) {
	if _, err := p.objectPath(key); err != nil {
		return "", err
	}

	info, err := fs.Stat(p.root, key)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrImageNotFound
	}

	if err != nil {
		return "", fmt.Errorf("fs stat %s: %w", key, err)
	}

	if info.IsDir() {
		return "", ErrImageNotFound
	}

	return p.urlPrefix + key, nil
}

// objectPath maps a key to its file under base. Keys that are not plain
// relative paths are refused.
func (p *FSProvider) objectPath(key string) (string, error) {
	if key == "." || !fs.ValidPath(key) {
		return "", ErrInvalidPath
	}
	return filepath.Join(p.base, filepath.FromSlash(key)), nil
}

// Validate creates base when missing and checks that objects can be
// written to it.
func (p *FSProvider) Validate(ctx context.Context) error {
	if p.base == "" {
		return fmt.Errorf("fs provider: base path not configured")
	}

	if err := os.MkdirAll(p.base, 0755); err != nil {
		return fmt.Errorf("fs provider: create base path: %w", err)
	}

	info, err := os.Stat(p.base)
	if err != nil {
		return fmt.Errorf("fs provider: stat base path: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("fs provider: base path %s is not a directory", p.base)
	}

	f, err := os.CreateTemp(p.base, ".writable-*")
	if err != nil {
		return fmt.Errorf("fs provider: base path not writable: %w", err)
	}
	f.Close()
	os.Remove(f.Name())

	return nil
}
