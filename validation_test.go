package socialshare

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	gerrors "github.com/goliatone/go-errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func createTestFileHeader(t *testing.T, filename, contentType string, size int64) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		t.Fatalf("Failed to create part: %v", err)
	}
	part.Write([]byte("x"))
	writer.Close()

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("Failed to read form: %v", err)
	}

	fh := form.File["file"][0]
	fh.Size = size
	return fh
}

func testImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	return img
}

func encodeTestImage(t *testing.T, format string, width, height int) []byte {
	t.Helper()

	img := testImage(width, height)
	buf := &bytes.Buffer{}

	var err error
	switch format {
	case "png":
		return testPNG(t, width, height)
	case "webp":
		return testWebP(t)
	case "jpeg":
		err = jpeg.Encode(buf, img, nil)
	case "gif":
		err = gif.Encode(buf, img, nil)
	case "bmp":
		err = bmp.Encode(buf, img)
	case "tiff":
		err = tiff.Encode(buf, img, nil)
	default:
		t.Fatalf("No encoder for %s", format)
	}

	if err != nil {
		t.Fatalf("Failed to encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func assertRejected(t *testing.T, err error, code string) {
	t.Helper()

	if err == nil {
		t.Fatalf("Expected %s, got nil", code)
	}

	var gerr *gerrors.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("Expected go-errors error, got %T", err)
	}

	if gerr.TextCode != code {
		t.Errorf("Expected code '%s', got '%s'", code, gerr.TextCode)
	}

	if gerr.Code != 400 {
		t.Errorf("Expected status 400, got %d", gerr.Code)
	}

	if !gerrors.IsValidation(err) {
		t.Error("Expected a validation error")
	}
}

func TestNewValidator(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		v := NewValidator()

		if v.MaxFileSize() != DefaultMaxFileSize {
			t.Errorf("Expected max file size %d, got %d", DefaultMaxFileSize, v.MaxFileSize())
		}

		if v.maxPixels != DefaultMaxPixels {
			t.Errorf("Expected max pixels %d, got %d", DefaultMaxPixels, v.maxPixels)
		}

		if len(v.formats) != len(DefaultImageFormats) {
			t.Errorf("Expected %d formats, got %d", len(DefaultImageFormats), len(v.formats))
		}
	})

	t.Run("non positive limits keep defaults", func(t *testing.T) {
		v := NewValidator(WithUploadMaxFileSize(0), WithMaxPixels(-1))

		if v.MaxFileSize() != DefaultMaxFileSize || v.maxPixels != DefaultMaxPixels {
			t.Errorf("Expected defaults, got %d bytes and %d pixels", v.MaxFileSize(), v.maxPixels)
		}
	})

	t.Run("format subset ignores unknown names", func(t *testing.T) {
		v := NewValidator(WithImageFormats("PNG", "jpeg", "heic"))

		if len(v.formats) != 2 {
			t.Errorf("Expected 2 formats, got %d", len(v.formats))
		}

		if !v.IsAllowedMimeType("image/png") || v.IsAllowedMimeType("image/webp") {
			t.Error("Expected only png and jpeg to be allowed")
		}
	})
}

func TestValidatorValidateFile(t *testing.T) {
	v := NewValidator(WithUploadMaxFileSize(1024))

	accepted := []struct {
		filename    string
		contentType string
	}{
		{"photo.jpg", "image/jpeg"},
		{"PHOTO.JPEG", "image/jpeg"},
		{"photo.png", "image/png"},
		{"photo.webp", "image/webp"},
		{"anim.gif", "image/gif"},
		{"scan.bmp", "image/bmp"},
		{"photo.png", "image/png; charset=binary"},
	}

	for _, test := range accepted {
		t.Run("accepts "+test.filename+" "+test.contentType, func(t *testing.T) {
			if err := v.ValidateFile(createTestFileHeader(t, test.filename, test.contentType, 512)); err != nil {
				t.Errorf("Expected file to be accepted, got %v", err)
			}
		})
	}

	rejected := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		code        string
	}{
		{"too large", "photo.png", "image/png", 2048, "FILE_TOO_LARGE"},
		{"tiff decodes but is not offered", "scan.tiff", "image/tiff", 512, "INVALID_FILE_FORMAT"},
		{"no extension", "photo", "image/png", 512, "INVALID_FILE_FORMAT"},
		{"svg", "logo.svg", "image/svg+xml", 512, "INVALID_FILE_FORMAT"},
		{"image name with pdf type", "photo.png", "application/pdf", 512, "INVALID_MIME_TYPE"},
		{"empty type", "photo.png", "", 512, "INVALID_MIME_TYPE"},
	}

	for _, test := range rejected {
		t.Run(test.name, func(t *testing.T) {
			assertRejected(t, v.ValidateFile(createTestFileHeader(t, test.filename, test.contentType, test.size)), test.code)
		})
	}

	t.Run("messages list what is accepted", func(t *testing.T) {
		err := v.ValidateFile(createTestFileHeader(t, "logo.svg", "image/svg+xml", 512))

		fields, ok := gerrors.GetValidationErrors(err)
		if !ok || len(fields) != 1 {
			t.Fatalf("Expected 1 field error, got %d", len(fields))
		}

		for _, ext := range []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".webp"} {
			if !strings.Contains(fields[0].Message, ext) {
				t.Errorf("Expected message to list '%s', got '%s'", ext, fields[0].Message)
			}
		}
	})
}

// every accepted upload must be readable by the renderer afterwards
func TestValidatorAcceptedFormatsRender(t *testing.T) {
	v := NewValidator()
	renderer := NewImagingRenderer()
	square, _ := MustDefaultCatalog().Lookup("Instagram Square (1:1)")

	for _, format := range DefaultImageFormats {
		t.Run(format, func(t *testing.T) {
			content := encodeTestImage(t, format, 12, 8)

			info, err := v.ValidateFileContent(content)
			if err != nil {
				t.Fatalf("ValidateFileContent failed: %v", err)
			}

			if info.Format != format {
				t.Errorf("Expected format '%s', got '%s'", format, info.Format)
			}

			if info.ContentType != imageFormats[format].contentType {
				t.Errorf("Expected content type '%s', got '%s'", imageFormats[format].contentType, info.ContentType)
			}

			if format != "webp" && (info.Width != 12 || info.Height != 8) {
				t.Errorf("Expected 12x8, got %dx%d", info.Width, info.Height)
			}

			if _, _, err := renderer.Render(context.Background(), content, square.Transformation()); err != nil {
				t.Errorf("Expected accepted %s to render, got %v", format, err)
			}
		})
	}
}

func TestValidatorValidateFileContent(t *testing.T) {
	tests := []struct {
		name    string
		v       *Validator
		content []byte
		code    string
	}{
		{"text", NewValidator(), []byte("definitely not an image"), "INVALID_FILE_CONTENT"},
		{"png signature only", NewValidator(), []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "INVALID_FILE_CONTENT"},
		{"empty", NewValidator(), nil, "INVALID_FILE_CONTENT"},
		{"tiff decodes but is not offered", NewValidator(), encodeTestImage(t, "tiff", 4, 4), "UNSUPPORTED_IMAGE_FORMAT"},
		{"format outside subset", NewValidator(WithImageFormats("jpeg")), encodeTestImage(t, "png", 4, 4), "UNSUPPORTED_IMAGE_FORMAT"},
		{"too many pixels", NewValidator(WithMaxPixels(15)), encodeTestImage(t, "png", 4, 4), "IMAGE_TOO_LARGE"},
		{"too many bytes", NewValidator(WithUploadMaxFileSize(16)), encodeTestImage(t, "png", 4, 4), "FILE_TOO_LARGE"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			info, err := test.v.ValidateFileContent(test.content)
			if info != nil {
				t.Errorf("Expected no image info, got %+v", info)
			}
			assertRejected(t, err, test.code)
		})
	}

	t.Run("pixel limit is inclusive", func(t *testing.T) {
		if _, err := NewValidator(WithMaxPixels(16)).ValidateFileContent(encodeTestImage(t, "png", 4, 4)); err != nil {
			t.Errorf("Expected 4x4 to fit 16 pixels, got %v", err)
		}
	})

	t.Run("oversized image reports dimensions", func(t *testing.T) {
		_, err := NewValidator(WithMaxPixels(10)).ValidateFileContent(encodeTestImage(t, "gif", 5, 3))

		fields, _ := gerrors.GetValidationErrors(err)
		if len(fields) != 1 || fields[0].Value != "5x3" {
			t.Errorf("Expected dimensions '5x3' in field error, got %+v", fields)
		}
	})
}

func TestValidatorIsAllowedMimeType(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		contentType string
		expected    bool
	}{
		{"image/jpeg", true},
		{"image/webp", true},
		{"image/bmp", true},
		{"image/png; charset=utf-8", true},
		{"image/tiff", false},
		{"image/svg+xml", false},
		{"text/html", false},
		{"", false},
		{";;", false},
	}

	for _, test := range tests {
		t.Run(test.contentType, func(t *testing.T) {
			if got := v.IsAllowedMimeType(test.contentType); got != test.expected {
				t.Errorf("Expected %v for '%s', got %v", test.expected, test.contentType, got)
			}
		})
	}
}
