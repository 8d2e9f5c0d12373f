package socialshare

import (
	gerrors "github.com/goliatone/go-errors"
)

var (
	ErrImageNotFound = gerrors.New("image not found", gerrors.CategoryNotFound).
				WithCode(404).
				WithTextCode("IMAGE_NOT_FOUND")

	ErrPermissionDenied = gerrors.New("permission denied", gerrors.CategoryAuthz).
				WithCode(403).
				WithTextCode("PERMISSION_DENIED")

	ErrInvalidPath = gerrors.New("invalid path", gerrors.CategoryBadInput).
			WithCode(400).
			WithTextCode("INVALID_PATH")

	ErrProviderNotConfigured = gerrors.New("storage provider not configured", gerrors.CategoryInternal).
					WithCode(500).
					WithTextCode("PROVIDER_NOT_CONFIGURED")

	ErrUnauthorized = gerrors.New("Unauthorized", gerrors.CategoryAuth).
			WithCode(401).
			WithTextCode("UNAUTHORIZED")

	ErrFileNotFound = gerrors.New("File not found", gerrors.CategoryBadInput).
			WithCode(400).
			WithTextCode("FILE_NOT_FOUND")

	// ErrUploadFailed is the only thing a client sees when the media service
	// rejects an upload. The cause is logged, never returned.
	ErrUploadFailed = gerrors.New("Image Uploading failed", gerrors.CategoryExternal).
			WithCode(500).
			WithTextCode("UPLOAD_FAILED")

	ErrUploadInProgress = gerrors.New("upload already in progress", gerrors.CategoryConflict).
				WithCode(409).
				WithTextCode("UPLOAD_IN_PROGRESS")

	ErrEmptyPublicID = gerrors.New("media service returned an empty public id", gerrors.CategoryExternal).
				WithCode(502).
				WithTextCode("EMPTY_PUBLIC_ID")

	ErrTransformationNotAllowed = gerrors.New("transformation is not a catalog preset", gerrors.CategoryBadInput).
					WithCode(400).
					WithTextCode("TRANSFORMATION_NOT_ALLOWED")
)

// UnknownFormatError reports a preset name missing from the catalog.
func UnknownFormatError(name string) error {
	return gerrors.NewValidation("unknown social format",
		gerrors.FieldError{
			Field:   "format",
			Message: "format is not in the preset catalog",
			Value:   name,
		},
	).WithCode(400).WithTextCode("UNKNOWN_FORMAT")
}
