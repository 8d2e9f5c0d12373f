package socialshare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/goliatone/go-print"
)

var (
	_ Uploader          = &AWSProvider{}
	_ ProviderValidator = &AWSProvider{}
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type s3PresignClient interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AWSProvider stores originals and renditions in an S3 bucket.
type AWSProvider struct {
	client    s3API
	bucket    string
	basePath  string
	presigner s3PresignClient
	logger    Logger
}

func NewAWSProvider(client *s3.Client, bucket string) *AWSProvider {
	return &AWSProvider{
		client:    client,
		bucket:    bucket,
		logger:    &DefaultLogger{},
		presigner: s3.NewPresignClient(client),
	}
}

func (p *AWSProvider) WithLogger(logger Logger) *AWSProvider {
	p.logger = logger
	return p
}

func (p *AWSProvider) WithBasePath(basePath string) *AWSProvider {
	p.basePath = basePath
	return p
}

func (p *AWSProvider) UploadFile(ctx context.Context, path string, content []byte, opts ...UploadOption) (string, error) {
	md := applyUploadOptions(opts)

	p.logger.Info("upload asset", "bucket", p.bucket, "path", path)

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    p.getKey(path),
		Body:   bytes.NewReader(content),
		ACL:    types.ObjectCannedACLPrivate,
	}

	if md.ContentType != "" {
		input.ContentType = aws.String(md.ContentType)
	}

	if md.CacheControl != "" {
		input.CacheControl = aws.String(md.CacheControl)
	}

	res, err := p.client.PutObject(ctx, input)
	if err != nil {
		p.logger.Error("S3 upload failed", "error", err)
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	p.logger.Info("upload asset", "res", print.MaybeHighlightJSON(res))

	return p.getURL(path), nil
}

func (p *AWSProvider) GetFile(ctx context.Context, path string) ([]byte, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    p.getKey(path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(out.Body)
	return buf.Bytes(), err
}

// GetPresignedURL signs a GET for the object, objects themselves are never
// public.
func (p *AWSProvider) GetPresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPresignedURLTTL
	}

	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    p.getKey(path),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (p *AWSProvider) getKey(key string) *string {
	if p.basePath == "" {
		return aws.String(key)
	}
	return aws.String(path.Join(p.basePath, key))
}

func (p *AWSProvider) getURL(key string) string {
	out := key

	if p.basePath != "" {
		out = path.Join(p.basePath, key)
	}

	if len(out) == 0 || out[0] != '/' {
		out = "/" + out
	}

	return out
}

func (p *AWSProvider) Validate(ctx context.Context) error {
	if p.client == nil {
		return fmt.Errorf("aws provider: client not configured")
	}

	if p.bucket == "" {
		return fmt.Errorf("aws provider: bucket not configured")
	}

	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	if err != nil {
		return fmt.Errorf("aws provider: head bucket: %w", err)
	}

	return nil
}
