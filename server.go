package socialshare

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// ServerOptions wires the HTTP surface. Media and Auth are required.
type ServerOptions struct {
	AppName   string
	Media     MediaService
	Auth      Authenticator
	Catalog   *PresetCatalog
	Validator *Validator
	Logger    Logger
	Folder    string
	BodyLimit int

	// Delivery serves self-hosted renditions under DeliveryPrefix.
	Delivery       *Manager
	DeliveryPrefix string

	// DevUser, when set together with a JWTAuthenticator, signs page
	// visitors in automatically.
	DevUser string
	DevTTL  time.Duration
}

// NewServer builds the fiber app with every route mounted.
func NewServer(opts ServerOptions) (*fiber.App, error) {
	if opts.Media == nil {
		return nil, fmt.Errorf("server: media service is required")
	}

	if opts.Auth == nil {
		return nil, fmt.Errorf("server: authenticator is required")
	}

	if opts.Logger == nil {
		opts.Logger = &DefaultLogger{}
	}

	if opts.Catalog == nil {
		opts.Catalog = MustDefaultCatalog()
	}

	if opts.Validator == nil {
		opts.Validator = NewValidator()
	}

	if opts.AppName == "" {
		opts.AppName = "Social Share"
	}

	if opts.BodyLimit <= 0 {
		// room for the multipart envelope around the largest allowed file
		opts.BodyLimit = int(opts.Validator.MaxFileSize()) + 1024*1024
	}

	engine, err := NewViewEngine()
	if err != nil {
		return nil, err
	}

	var app *fiber.App
	server := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{
			AppName:      opts.AppName,
			BodyLimit:    opts.BodyLimit,
			Views:        engine,
			ErrorHandler: ErrorHandler(opts.Logger),
		})
		return app
	})
	if app == nil {
		return nil, fmt.Errorf("server: router adapter did not build the fiber app")
	}

	upload := NewUploadHandler(opts.Media, opts.Auth,
		WithHandlerLogger(opts.Logger),
		WithHandlerValidator(opts.Validator),
		WithUploadFolder(opts.Folder),
	)
	renditions := NewRenditionHandler(opts.Media, opts.Catalog)

	page := NewPageHandler(opts.Media, opts.Catalog).WithLogger(opts.Logger)
	if jwtAuth, ok := opts.Auth.(*JWTAuthenticator); ok && opts.DevUser != "" {
		page.WithDevSession(jwtAuth, opts.DevUser, opts.DevTTL)
	}

	// session cookies, templates and query parsing live on the fiber context
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/social-share", fiber.StatusFound)
	})
	app.Get("/social-share", page.Handle)
	app.Post("/api/image-upload", upload.Handle)
	app.Get("/api/renditions", renditions.Handle)

	builder := router.NewRouteBuilder(server.Router().Group("/api"))

	builder.NewRoute().
		GET().
		Path("/formats").
		Summary("List Formats").
		Description("Social formats in display order, the first one is preselected").
		Tags("Renditions").
		Handler(renditions.Formats).
		Name("formats.list")

	builder.NewRoute().
		GET().
		Path("/health").
		Description("Health endpoint").
		Tags("Health").
		Handler(healthHandler).
		Name("health")

	builder.BuildAll()

	if opts.Delivery != nil {
		prefix := "/" + strings.Trim(opts.DeliveryPrefix, "/")
		if prefix == "/" {
			prefix = DefaultDeliveryPrefix
		}

		media := router.NewRouteBuilder(server.Router().Group(prefix))
		media.NewRoute().
			GET().
			Path("/image/upload/:transformation/*").
			Summary("Get Rendition").
			Description("Renders a stored original with a catalog preset transformation").
			Tags("Media").
			Handler(DeliveryHandler(opts.Delivery, opts.Catalog)).
			Name("media.rendition")
		media.BuildAll()
	}

	router.ServeOpenAPI(server.Router(), router.NewOpenAPIRenderer(router.OpenAPIRenderer{
		Title:   opts.AppName,
		Version: "v1.0.0",
		Description: `## Social Media Image Creator
Upload an image once, then preview and download it cropped for each social format.`,
	}))

	return app, nil
}
