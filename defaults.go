package socialshare

import "time"

var (
	// DefaultUploadFolder is the logical folder every upload lands in.
	DefaultUploadFolder = "next-cloudinary-uploads"

	// DefaultFormFileField is the multipart field the upload handler reads.
	DefaultFormFileField = "file"

	// DefaultCrop and DefaultGravity are applied to every preset rendition.
	DefaultCrop    = CropFill
	DefaultGravity = GravityAuto

	// DefaultPresignedURLTTL determines how long presigned URLs handed out by storage providers remain valid.
	DefaultPresignedURLTTL = 10 * time.Minute

	// MaxRenditionDimension caps either side of a rendition.
	MaxRenditionDimension = 4096

	// DefaultMaxFileSize is the largest upload the validator accepts.
	DefaultMaxFileSize int64 = 25 * 1024 * 1024

	// DefaultMaxPixels bounds the decoded size of an upload, 50 megapixels.
	DefaultMaxPixels = 50_000_000

	// RenditionCacheControl is stored with cached renditions and sent by the
	// delivery route. A rendition key never changes content.
	RenditionCacheControl = "public, max-age=31536000, immutable"

	// DefaultDeliveryPrefix is where the self-hosted media service serves renditions.
	DefaultDeliveryPrefix = "/media"

	// DefaultJPEGQuality is used when re-encoding JPEG renditions.
	DefaultJPEGQuality = 85

	// DefaultSessionCookie matches the cookie name the hosted auth provider sets.
	DefaultSessionCookie = "__session"

	// DefaultDownloadExtension is used when a rendition's MIME type is unknown.
	DefaultDownloadExtension = "png"
)
