package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gconf "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-logger/glog"
	"github.com/joho/godotenv"

	socialshare "github.com/goliatone/go-social-share"
	"github.com/goliatone/go-social-share/config"
)

type App struct {
	logger   socialshare.Logger
	cfg      *config.Config
	media    socialshare.MediaService
	delivery *socialshare.Manager
	catalog  *socialshare.PresetCatalog
	auth     *socialshare.JWTAuthenticator
}

func (a App) Config() *config.Config {
	return a.cfg
}

func (a *App) Logger(name string) socialshare.Logger {
	return a.logger
}

func NewApp(configPath string) (*App, error) {
	logger := glog.NewLogger(
		glog.WithName("social-share"),
		glog.WithLevel(glog.Debug),
		glog.WithLoggerTypePretty(),
	)

	// a missing .env is fine, the process environment still applies
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Error("failed to load .env", err)
	}

	cfg := &config.Config{}
	container := gconf.New(cfg).
		WithProvider(gconf.EnvProvider[*config.Config]("APP_", "__")).
		WithProvider(gconf.FileProvider[*config.Config](configPath)).
		WithLogger(logger)

	if err := container.LoadWithDefaults(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.ApplyEnvFallbacks(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

func WithPresetCatalog(app *App) error {
	file := app.Config().Presets.File
	if file == "" {
		app.catalog = socialshare.MustDefaultCatalog()
		return nil
	}

	catalog, err := socialshare.LoadPresetsFile(file)
	if err != nil {
		return err
	}

	app.Logger("presets").Info("loaded preset catalog", "file", file, "formats", catalog.Names())
	app.catalog = catalog
	return nil
}

func WithAuthenticator(app *App) error {
	cfg := app.Config().Auth

	secret := cfg.Secret
	if secret == "" {
		if !app.Config().IsDevelopment() {
			app.Logger("auth").Error("auth.secret is not set, every upload will be rejected")
		} else {
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				return err
			}
			secret = hex.EncodeToString(buf)
			app.Logger("auth").Info("using an ephemeral session secret for development")
		}
	}

	app.auth = socialshare.NewJWTAuthenticator(secret).
		WithCookieName(cfg.CookieName).
		WithIssuer(cfg.Issuer)
	return nil
}

func WithMediaService(ctx context.Context, app *App) error {
	cfg := app.Config().Media

	if cfg.Driver == config.MediaDriverCloudinary {
		svc, err := socialshare.NewCloudinaryService(
			cfg.Cloudinary.CloudName,
			cfg.Cloudinary.APIKey,
			cfg.Cloudinary.APISecret,
		)
		if err != nil {
			return err
		}
		app.media = svc.WithLogger(app.Logger("svc.cloudinary"))
		return nil
	}

	provider, assets, err := newStorageProvider(ctx, app)
	if err != nil {
		return err
	}

	deliveryURL := strings.TrimSuffix(app.Config().Server.PublicURL, "/") + "/" +
		strings.Trim(cfg.Storage.DeliveryPrefix, "/")

	manager := socialshare.NewManager(
		socialshare.WithLogger(app.Logger("svc.media")),
		socialshare.WithProviderValidationContext(ctx),
		socialshare.WithProvider(provider),
		socialshare.WithAssetsFS(assets),
		socialshare.WithDeliveryURL(deliveryURL),
		socialshare.WithURLTTL(time.Duration(cfg.Storage.URLTTLSeconds)*time.Second),
	)

	if err := manager.ValidateProvider(ctx); err != nil {
		return fmt.Errorf("storage provider: %w", err)
	}

	app.media = manager
	app.delivery = manager
	return nil
}

func newStorageProvider(ctx context.Context, app *App) (socialshare.Uploader, fs.FS, error) {
	cfg := app.Config().Media.Storage

	base, err := filepath.Abs(cfg.Fs.BasePath)
	if err != nil {
		return nil, nil, err
	}

	local := socialshare.NewFSProvider(base).
		WithLogger(app.Logger("svc.media.fs")).
		WithURLPrefix("file://" + filepath.ToSlash(base))

	if cfg.Driver == config.StorageDriverFS {
		return local, local.FS(), nil
	}

	s3Cfg, err := aconfig.LoadDefaultConfig(ctx,
		aconfig.WithRegion(cfg.S3.Region),
		aconfig.WithSharedConfigProfile(cfg.S3.Profile),
	)
	if err != nil {
		return nil, nil, err
	}

	var opts = func(o *s3.Options) {}
	if cfg.S3.EndpointURL != "" {
		opts = func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3.EndpointURL)
			o.UsePathStyle = true
		}
	}

	client := s3.NewFromConfig(s3Cfg, opts)
	awsProvider := socialshare.NewAWSProvider(client, cfg.S3.Bucket).
		WithLogger(app.Logger("svc.media.aws")).
		WithBasePath(cfg.S3.BasePath)

	if cfg.Driver == config.StorageDriverMulti {
		multi := socialshare.NewMultiProvider(local, awsProvider).
			WithLogger(app.Logger("svc.media.multi"))
		// reads go through the provider so the local copy acts as a cache
		return multi, nil, nil
	}

	assets, err := socialshare.NewFileFS(client, cfg.S3.Bucket, cfg.S3.BasePath)
	if err != nil {
		return nil, nil, err
	}

	return awsProvider, assets, nil
}

func main() {
	configPath := os.Getenv("APP_CONFIG_FILE")
	if configPath == "" {
		configPath = "./config/app.json"
	}

	app, err := NewApp(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	if err := WithPresetCatalog(app); err != nil {
		log.Fatalf("presets: %v", err)
	}

	if err := WithAuthenticator(app); err != nil {
		log.Fatalf("auth: %v", err)
	}

	if err := WithMediaService(ctx, app); err != nil {
		log.Fatalf("media: %v", err)
	}

	cfg := app.Config()
	opts := socialshare.ServerOptions{
		AppName: "Social Media Image Creator",
		Media:   app.media,
		Auth:    app.auth,
		Catalog: app.catalog,
		Validator: socialshare.NewValidator(
			socialshare.WithUploadMaxFileSize(cfg.Upload.MaxFileSize),
			socialshare.WithMaxPixels(cfg.Upload.MaxPixels),
		),
		Logger:         app.Logger("http"),
		Folder:         cfg.Media.Folder,
		Delivery:       app.delivery,
		DeliveryPrefix: cfg.Media.Storage.DeliveryPrefix,
	}

	if cfg.IsDevelopment() {
		opts.DevUser = cfg.Auth.DevUser
		opts.DevTTL = 24 * time.Hour
	}

	server, err := socialshare.NewServer(opts)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	go func() {
		if err := server.Listen(cfg.Server.Address); err != nil {
			log.Panic(err)
		}
	}()

	app.Logger("app").Info("social share started", "address", cfg.Server.Address, "media", cfg.Media.Driver)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	app.Logger("app").Info("shutting down server")

	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Panic(err)
	}
}
