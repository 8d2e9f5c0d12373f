package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	MediaDriverCloudinary = "cloudinary"
	MediaDriverStorage    = "storage"

	StorageDriverFS    = "fs"
	StorageDriverS3    = "s3"
	StorageDriverMulti = "multi"
)

type Config struct {
	Environment string       `koanf:"environment" json:"environment"`
	Server      ServerConfig `koanf:"server" json:"server"`
	Auth        AuthConfig   `koanf:"auth" json:"auth"`
	Media       MediaConfig  `koanf:"media" json:"media"`
	Upload      UploadConfig `koanf:"upload" json:"upload"`
	Presets     PresetConfig `koanf:"presets" json:"presets"`
}

type ServerConfig struct {
	Address string `koanf:"address" json:"address"`
	// PublicURL is used to build absolute self-hosted delivery URLs.
	PublicURL string `koanf:"public_url" json:"public_url"`
}

type AuthConfig struct {
	Secret     string `koanf:"secret" json:"secret"`
	CookieName string `koanf:"cookie_name" json:"cookie_name"`
	Issuer     string `koanf:"issuer" json:"issuer"`
	DevUser    string `koanf:"dev_user" json:"dev_user"`
}

type MediaConfig struct {
	Driver     string           `koanf:"driver" json:"driver"`
	Folder     string           `koanf:"folder" json:"folder"`
	Cloudinary CloudinaryConfig `koanf:"cloudinary" json:"cloudinary"`
	Storage    StorageConfig    `koanf:"storage" json:"storage"`
}

type CloudinaryConfig struct {
	CloudName string `koanf:"cloud_name" json:"cloud_name"`
	APIKey    string `koanf:"api_key" json:"api_key"`
	APISecret string `koanf:"api_secret" json:"api_secret"`
}

type StorageConfig struct {
	Driver         string   `koanf:"driver" json:"driver"`
	DeliveryPrefix string   `koanf:"delivery_prefix" json:"delivery_prefix"`
	URLTTLSeconds  int      `koanf:"url_ttl_seconds" json:"url_ttl_seconds"`
	Fs             FsConfig `koanf:"fs" json:"fs"`
	S3             S3Config `koanf:"s3" json:"s3"`
}

type FsConfig struct {
	BasePath string `koanf:"base_path" json:"base_path"`
}

type S3Config struct {
	Bucket      string `koanf:"bucket" json:"bucket"`
	Region      string `koanf:"region" json:"region"`
	Profile     string `koanf:"profile" json:"profile"`
	EndpointURL string `koanf:"endpoint_url" json:"endpoint_url"`
	BasePath    string `koanf:"base_path" json:"base_path"`
}

type UploadConfig struct {
	MaxFileSize int64 `koanf:"max_file_size" json:"max_file_size"`
	MaxPixels   int   `koanf:"max_pixels" json:"max_pixels"`
}

type PresetConfig struct {
	// File is an optional YAML catalog replacing the built-in presets.
	File string `koanf:"file" json:"file"`
}

func (c Config) GetEnvironment() string {
	return c.Environment
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks structural settings only. Cloudinary credentials are
// deliberately left alone, missing ones surface as failed uploads.
func (c Config) Validate() error {
	switch c.Media.Driver {
	case "", MediaDriverCloudinary, MediaDriverStorage:
	default:
		return fmt.Errorf("config: unknown media driver %q", c.Media.Driver)
	}

	switch c.Media.Storage.Driver {
	case "", StorageDriverFS, StorageDriverS3, StorageDriverMulti:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Media.Storage.Driver)
	}

	if c.Media.Driver == MediaDriverStorage && c.Media.Storage.Driver != StorageDriverFS &&
		c.Media.Storage.Driver != "" && c.Media.Storage.S3.Bucket == "" {
		return fmt.Errorf("config: media.storage.s3.bucket is required for driver %q", c.Media.Storage.Driver)
	}

	if c.Upload.MaxFileSize < 0 {
		return fmt.Errorf("config: upload.max_file_size cannot be negative")
	}

	if c.Upload.MaxPixels < 0 {
		return fmt.Errorf("config: upload.max_pixels cannot be negative")
	}

	if c.Media.Storage.URLTTLSeconds < 0 {
		return fmt.Errorf("config: media.storage.url_ttl_seconds cannot be negative")
	}

	return nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":9092"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "__session"
	}
	if c.Media.Driver == "" {
		c.Media.Driver = MediaDriverCloudinary
	}
	if c.Media.Folder == "" {
		c.Media.Folder = "next-cloudinary-uploads"
	}
	if c.Media.Storage.Driver == "" {
		c.Media.Storage.Driver = StorageDriverFS
	}
	if c.Media.Storage.DeliveryPrefix == "" {
		c.Media.Storage.DeliveryPrefix = "/media"
	}
	if c.Media.Storage.URLTTLSeconds == 0 {
		c.Media.Storage.URLTTLSeconds = 600
	}
	if c.Media.Storage.Fs.BasePath == "" {
		c.Media.Storage.Fs.BasePath = "./uploads"
	}
	if c.Media.Storage.S3.Region == "" {
		c.Media.Storage.S3.Region = "us-east-1"
	}
}

// ApplyEnvFallbacks reads the credential variable names the hosted
// deployment uses when the APP_ prefixed ones are not set.
func (c *Config) ApplyEnvFallbacks(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cld := &c.Media.Cloudinary
	cld.CloudName = firstNonEmpty(cld.CloudName,
		getenv("CLOUDINARY_CLOUD_NAME"),
		getenv("NEXT_PUBLIC_CLOUDINARY_CLOUD_NAME"),
	)
	cld.APIKey = firstNonEmpty(cld.APIKey,
		getenv("CLOUDINARY_API_KEY"),
		getenv("CLOUDINARY_KEY"),
	)
	cld.APISecret = firstNonEmpty(cld.APISecret,
		getenv("CLOUDINARY_API_SECRET"),
		getenv("CLOUDINARY_SECRET"),
	)
	c.Auth.Secret = firstNonEmpty(c.Auth.Secret, getenv("SESSION_SECRET"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
