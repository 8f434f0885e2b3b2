package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/hongminglow/community-site/internal/config"
	"github.com/hongminglow/community-site/internal/logging"
)

var _ Delegate = (*S3Delegate)(nil)

// objectAPI is the part of *s3.Client the delegate needs.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"application/pdf": ".pdf",
}

// S3Delegate stores assets in an S3-compatible bucket.
type S3Delegate struct {
	client  objectAPI
	bucket  string
	baseURL string
	logger  logging.Logger
	now     func() time.Time
}

// NewS3Delegate builds a delegate from the S3 settings.
func NewS3Delegate(ctx context.Context, cfg config.S3Config, logger logging.Logger) (*S3Delegate, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Delegate(client, cfg, logger), nil
}

func newS3Delegate(client objectAPI, cfg config.S3Config, logger logging.Logger) *S3Delegate {
	return &S3Delegate{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
		logger:  logger.With("component", "upload"),
		now:     time.Now,
	}
}

// publicBaseURL is the prefix under which uploaded keys are publicly readable.
func publicBaseURL(cfg config.S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Upload stores data under folder with a sniffed content type.
func (d *S3Delegate) Upload(ctx context.Context, data []byte, folder string) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, fmt.Errorf("%w: empty file", ErrUpload)
	}

	contentType := http.DetectContentType(data)
	key := d.objectKey(folder, contentType)

	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		d.logger.Error(ctx, "remote upload failed", "folder", folder, "key", key, "error", err)
		return Asset{}, ErrUpload
	}

	d.logger.Info(ctx, "asset uploaded", "key", key, "content_type", contentType, "bytes", len(data))
	return Asset{PublicID: key, URL: d.baseURL + "/" + key}, nil
}

// Delete removes the object identified by publicID.
func (d *S3Delegate) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("%w: empty public id", ErrDelete)
	}
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		d.logger.Error(ctx, "remote delete failed", "key", publicID, "error", err)
		return ErrDelete
	}
	return nil
}

func (d *S3Delegate) objectKey(folder, contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "misc"
	}
	t := d.now().UTC()
	return fmt.Sprintf("%s/%d/%02d/%02d/%s%s", folder, t.Year(), t.Month(), t.Day(), uuid.NewString(), extensions[mediaType])
}
