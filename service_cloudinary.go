package socialshare

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/asset"
	"github.com/goliatone/go-print"
)

var _ MediaService = &CloudinaryService{}

type cloudinaryUploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

type cloudinaryAssetBuilder interface {
	Image(publicID string) (*asset.Asset, error)
}

// CloudinaryService delegates storage and transformations to Cloudinary.
type CloudinaryService struct {
	upload cloudinaryUploadAPI
	assets cloudinaryAssetBuilder
	logger Logger
}

// NewCloudinaryService builds the SDK client from account credentials.
// Credentials are not checked here, bad ones surface on the first call.
func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: configure client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryService{
		upload: &cld.Upload,
		assets: cld,
		logger: &DefaultLogger{},
	}, nil
}

func (s *CloudinaryService) WithLogger(l Logger) *CloudinaryService {
	s.logger = l
	return s
}

func (s *CloudinaryService) Upload(ctx context.Context, content []byte, opts ...UploadOption) (*Asset, error) {
	md := applyUploadOptions(opts)

	folder := md.Folder
	if folder == "" {
		folder = DefaultUploadFolder
	}

	res, err := s.upload.Upload(ctx, bytes.NewReader(content), uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary: upload: %w", err)
	}

	if res == nil {
		return nil, fmt.Errorf("cloudinary: upload: empty response")
	}

	// API errors come back in the body with a nil error
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary: upload: %s", res.Error.Message)
	}

	if res.PublicID == "" {
		return nil, ErrEmptyPublicID
	}

	s.logger.Info("cloudinary upload", "res", print.MaybeHighlightJSON(res))

	return &Asset{
		PublicID: res.PublicID,
		Folder:   folder,
		Format:   res.Format,
		Bytes:    res.Bytes,
		URL:      res.SecureURL,
	}, nil
}

func (s *CloudinaryService) RenditionURL(publicID string, t Transformation) (string, error) {
	if strings.TrimSpace(publicID) == "" {
		return "", ErrInvalidPath
	}

	if err := t.Validate(); err != nil {
		return "", err
	}

	img, err := s.assets.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("cloudinary: build asset: %w", err)
	}
	img.Transformation = t.String()

	url, err := img.String()
	if err != nil {
		return "", fmt.Errorf("cloudinary: build url: %w", err)
	}

	return url, nil
}
