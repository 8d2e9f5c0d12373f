package socialshare

import (
	"bytes"
	"fmt"
	"image"
	"mime"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"

	gerrors "github.com/goliatone/go-errors"
)

// imageFormat ties a decoder name, as image.DecodeConfig reports it, to the
// names an upload of that format may carry.
type imageFormat struct {
	contentType string
	extensions  []string
}

var imageFormats = map[string]imageFormat{
	"jpeg": {contentType: "image/jpeg", extensions: []string{".jpg", ".jpeg"}},
	"png":  {contentType: "image/png", extensions: []string{".png"}},
	"gif":  {contentType: "image/gif", extensions: []string{".gif"}},
	"webp": {contentType: "image/webp", extensions: []string{".webp"}},
	"bmp":  {contentType: "image/bmp", extensions: []string{".bmp"}},
}

// DefaultImageFormats are the formats the renderer can read back.
var DefaultImageFormats = []string{"jpeg", "png", "gif", "webp", "bmp"}

// ImageInfo is what the validator learned about an accepted upload.
type ImageInfo struct {
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Validator is the upload policy applied before bytes leave the server.
// Content is accepted only when a registered decoder can read its header,
// so every stored original can be rendered later.
type Validator struct {
	maxFileSize int64
	maxPixels   int
	formats     map[string]imageFormat
}

type ValidatorOption func(*Validator)

func WithUploadMaxFileSize(size int64) ValidatorOption {
	return func(v *Validator) {
		if size > 0 {
			v.maxFileSize = size
		}
	}
}

// WithMaxPixels bounds width*height of the decoded image.
func WithMaxPixels(pixels int) ValidatorOption {
	return func(v *Validator) {
		if pixels > 0 {
			v.maxPixels = pixels
		}
	}
}

// WithImageFormats restricts uploads to the named formats. Unknown names
// are ignored.
func WithImageFormats(names ...string) ValidatorOption {
	return func(v *Validator) {
		v.formats = formatSet(names)
	}
}

func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		maxFileSize: DefaultMaxFileSize,
		maxPixels:   DefaultMaxPixels,
		formats:     formatSet(DefaultImageFormats),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

func formatSet(names []string) map[string]imageFormat {
	out := make(map[string]imageFormat, len(names))
	for _, name := range names {
		if f, ok := imageFormats[strings.ToLower(name)]; ok {
			out[strings.ToLower(name)] = f
		}
	}
	return out
}

func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// IsAllowedMimeType ignores media type parameters such as charset.
func (v *Validator) IsAllowedMimeType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	for _, f := range v.formats {
		if f.contentType == mediaType {
			return true
		}
	}
	return false
}

func (v *Validator) isAllowedExtension(ext string) bool {
	for _, f := range v.formats {
		for _, allowed := range f.extensions {
			if allowed == ext {
				return true
			}
		}
	}
	return false
}

func (v *Validator) allowedExtensions() string {
	out := []string{}
	for _, f := range v.formats {
		out = append(out, f.extensions...)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func (v *Validator) allowedMimeTypes() string {
	out := []string{}
	for _, f := range v.formats {
		out = append(out, f.contentType)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// ValidateFile checks what the client declared about the file: its size,
// name and content type.
func (v *Validator) ValidateFile(file *multipart.FileHeader) error {
	declared := file.Header.Get("Content-Type")

	if file.Size > v.maxFileSize {
		return uploadRejected("FILE_TOO_LARGE", "file_size",
			fmt.Sprintf("file too large, max: %d bytes", v.maxFileSize), file.Size,
			map[string]any{"filename": file.Filename, "max_size": v.maxFileSize})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !v.isAllowedExtension(ext) {
		return uploadRejected("INVALID_FILE_FORMAT", "file_format",
			fmt.Sprintf("invalid format, allowed: %s", v.allowedExtensions()), ext,
			map[string]any{"filename": file.Filename})
	}

	if !v.IsAllowedMimeType(declared) {
		return uploadRejected("INVALID_MIME_TYPE", "content_type",
			fmt.Sprintf("invalid mime type, allowed: %s", v.allowedMimeTypes()), declared,
			map[string]any{"filename": file.Filename})
	}

	return nil
}

// ValidateFileContent reads the image header and reports the detected
// format and size. The declared content type plays no part here.
func (v *Validator) ValidateFileContent(content []byte) (*ImageInfo, error) {
	if int64(len(content)) > v.maxFileSize {
		return nil, uploadRejected("FILE_TOO_LARGE", "file_size",
			fmt.Sprintf("file too large, max: %d bytes", v.maxFileSize), len(content), nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, uploadRejected("INVALID_FILE_CONTENT", "file_content",
			"file is not a readable image", "binary_data", nil)
	}

	f, ok := v.formats[format]
	if !ok {
		return nil, uploadRejected("UNSUPPORTED_IMAGE_FORMAT", "file_content",
			fmt.Sprintf("image format %s is not accepted", format), format, nil)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, uploadRejected("INVALID_FILE_CONTENT", "file_content",
			"image has no pixels", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height), nil)
	}

	if cfg.Width*cfg.Height > v.maxPixels {
		return nil, uploadRejected("IMAGE_TOO_LARGE", "dimensions",
			fmt.Sprintf("image too large, max: %d pixels", v.maxPixels),
			fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
			map[string]any{"width": cfg.Width, "height": cfg.Height})
	}

	return &ImageInfo{
		Format:      format,
		ContentType: f.contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

func uploadRejected(code, field, msg string, value any, meta map[string]any) error {
	err := gerrors.NewValidation("file validation failed",
		gerrors.FieldError{
			Field:   field,
			Message: msg,
			Value:   value,
		},
	).WithCode(400).WithTextCode(code)

	if meta != nil {
		err = err.WithMetadata(meta)
	}
	return err
}
