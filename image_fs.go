package socialshare

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jszwec/s3fs/v2"
)

// NewFileFS exposes bucket as a read only fs.FS. A non empty basePath
// scopes the view the same way AWSProvider.WithBasePath scopes writes.
func NewFileFS(client *s3.Client, bucket, basePath string) (fs.FS, error) {
	fsys := fs.FS(s3fs.New(client, bucket))

	basePath = strings.Trim(basePath, "/")
	if basePath == "" {
		return fsys, nil
	}

	sub, err := fs.Sub(fsys, basePath)
	if err != nil {
		return nil, fmt.Errorf("s3 fs: scope to %s: %w", basePath, err)
	}

	return sub, nil
}
