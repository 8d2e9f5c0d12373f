package socialshare

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	gerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// UploadResponse is the success body of the upload endpoint.
type UploadResponse struct {
	PublicID string `json:"publicId"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// UploadHandler accepts one multipart file and forwards it to the media
// service. It keeps no state between requests.
type UploadHandler struct {
	media     MediaService
	auth      Authenticator
	validator *Validator
	logger    Logger
	folder    string
	field     string
}

type HandlerOption func(*UploadHandler)

func WithHandlerLogger(l Logger) HandlerOption {
	return func(h *UploadHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHandlerValidator replaces the upload policy, nil disables it.
func WithHandlerValidator(v *Validator) HandlerOption {
	return func(h *UploadHandler) {
		h.validator = v
	}
}

func WithUploadFolder(folder string) HandlerOption {
	return func(h *UploadHandler) {
		if folder != "" {
			h.folder = folder
		}
	}
}

func WithFormField(field string) HandlerOption {
	return func(h *UploadHandler) {
		if field != "" {
			h.field = field
		}
	}
}

func NewUploadHandler(media MediaService, auth Authenticator, opts ...HandlerOption) *UploadHandler {
	h := &UploadHandler{
		media:     media,
		auth:      auth,
		validator: NewValidator(),
		logger:    &DefaultLogger{},
		folder:    DefaultUploadFolder,
		field:     DefaultFormFileField,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	userID, ok := h.authenticate(c)
	if !ok {
		return ErrUnauthorized
	}

	file, err := c.FormFile(h.field)
	if err != nil || file == nil {
		return ErrFileNotFound
	}

	if h.validator != nil {
		if err := h.validator.ValidateFile(file); err != nil {
			return err
		}
	}

	content, err := readFormFile(file)
	if err != nil {
		h.logger.Error("Image Uploading failed", "user", userID, "stage", "read", "error", err)
		return ErrUploadFailed
	}

	contentType := file.Header.Get(fiber.HeaderContentType)
	if h.validator != nil {
		info, err := h.validator.ValidateFileContent(content)
		if err != nil {
			return err
		}
		contentType = info.ContentType
	}

	asset, err := h.media.Upload(c.UserContext(), content,
		WithFolder(h.folder),
		WithContentType(contentType),
	)
	if err == nil && (asset == nil || asset.PublicID == "") {
		err = ErrEmptyPublicID
	}

	if err != nil {
		h.logger.Error("Image Uploading failed", "user", userID, "filename", file.Filename, "error", err)
		return ErrUploadFailed
	}

	h.logger.Info("image uploaded", "user", userID, "public_id", asset.PublicID, "url", asset.URL)

	return c.Status(fiber.StatusOK).JSON(UploadResponse{PublicID: asset.PublicID})
}

func (h *UploadHandler) authenticate(c *fiber.Ctx) (string, bool) {
	if h.auth == nil {
		return "", false
	}
	return h.auth.Authenticate(c)
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// RenditionResponse describes where the preview of a preset lives.
type RenditionResponse struct {
	URL         string `json:"url"`
	Format      string `json:"format"`
	Slug        string `json:"slug"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AspectRatio string `json:"aspectRatio"`
	Crop        string `json:"crop"`
	Gravity     string `json:"gravity"`
}

// RenditionHandler resolves a preset into a delivery URL.
type RenditionHandler struct {
	media   MediaService
	catalog *PresetCatalog
}

func NewRenditionHandler(media MediaService, catalog *PresetCatalog) *RenditionHandler {
	if catalog == nil {
		catalog = MustDefaultCatalog()
	}
	return &RenditionHandler{media: media, catalog: catalog}
}

func (h *RenditionHandler) Resolve(publicID, format string) (*RenditionResponse, error) {
	if publicID == "" {
		return nil, gerrors.NewValidation("rendition request invalid",
			gerrors.FieldError{
				Field:   "publicId",
				Message: "publicId is required",
			},
		).WithCode(400).WithTextCode("PUBLIC_ID_REQUIRED")
	}

	preset := h.catalog.Default()
	if format != "" {
		p, ok := h.catalog.Lookup(format)
		if !ok {
			return nil, UnknownFormatError(format)
		}
		preset = p
	}

	t := preset.Transformation()
	url, err := h.media.RenditionURL(publicID, t)
	if err != nil {
		return nil, err
	}

	return &RenditionResponse{
		URL:         url,
		Format:      preset.Name,
		Slug:        preset.Slug(),
		Width:       t.Width,
		Height:      t.Height,
		AspectRatio: t.AspectRatio,
		Crop:        t.Crop,
		Gravity:     t.Gravity,
	}, nil
}

func (h *RenditionHandler) Handle(c *fiber.Ctx) error {
	res, err := h.Resolve(c.Query("publicId"), c.Query("format"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// Formats lists the preset catalog.
func (h *RenditionHandler) Formats(ctx router.Context) error {
	return ctx.JSON(http.StatusOK, router.ViewContext{
		"formats": h.catalog.All(),
		"default": h.catalog.Default().Name,
	})
}

// DeliveryHandler serves renditions rendered by the self-hosted service.
// Only catalog presets are rendered, anything else is a 400 before the
// original is read.
func DeliveryHandler(m *Manager, catalog *PresetCatalog) router.HandlerFunc {
	if catalog == nil {
		catalog = MustDefaultCatalog()
	}

	return func(ctx router.Context) error {
		t, err := ParseTransformation(ctx.Param("transformation", ""))
		if err != nil {
			return err
		}

		if _, ok := catalog.Match(t); !ok {
			return ErrTransformationNotAllowed
		}

		data, contentType, err := m.Render(ctx.Context(), ctx.Param("*", ""), t)
		if err != nil {
			return err
		}

		ctx.SetHeader(router.HeaderContentType, contentType)
		ctx.SetHeader("Cache-Control", RenditionCacheControl)
		return ctx.Send(data)
	}
}

func healthHandler(ctx router.Context) error {
	return ctx.JSON(http.StatusOK, router.ViewContext{
		"status":  "healthy",
		"service": "social-share",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// ErrorHandler renders structured errors as ErrorResponse bodies. Anything
// that is not a go-errors or fiber error becomes an opaque 500.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = &DefaultLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		status, body := errorResponse(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(status).JSON(body)
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	var gerr *gerrors.Error
	if errors.As(err, &gerr) {
		status := gerr.Code
		if status == 0 {
			status = fiber.StatusInternalServerError
			if gerr.Category == gerrors.CategoryValidation || gerr.Category == gerrors.CategoryBadInput {
				status = fiber.StatusBadRequest
			}
		}

		body := ErrorResponse{Error: gerr.Message, Code: gerr.TextCode}
		if status >= fiber.StatusInternalServerError && gerr.Category != gerrors.CategoryExternal {
			body = ErrorResponse{Error: "Internal Server Error", Code: gerr.TextCode}
		}

		if len(gerr.ValidationErrors) > 0 {
			body.Fields = make(map[string]string, len(gerr.ValidationErrors))
			for _, fe := range gerr.ValidationErrors {
				body.Fields[fe.Field] = fe.Message
			}
		}

		return status, body
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code, ErrorResponse{Error: ferr.Message}
	}

	return fiber.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"}
}
