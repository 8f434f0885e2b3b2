package upload

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/community-site/internal/config"
	"github.com/hongminglow/community-site/internal/logging"
)

// 1x1 transparent PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

type fakeObjects struct {
	put       *s3.PutObjectInput
	body      []byte
	del       *s3.DeleteObjectInput
	putErr    error
	deleteErr error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.del = in
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func newTestDelegate(f *fakeObjects) *S3Delegate {
	d := newS3Delegate(f, config.S3Config{Bucket: "site", PublicBaseURL: "https://cdn.example.com/"}, logging.Discard())
	d.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestUpload_Success(t *testing.T) {
	f := &fakeObjects{}
	d := newTestDelegate(f)

	asset, err := d.Upload(context.Background(), pngBytes, "events")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^events/2025/09/10/[0-9a-f-]{36}\.png$`), asset.PublicID)
	assert.Equal(t, "https://cdn.example.com/"+asset.PublicID, asset.URL)

	require.NotNil(t, f.put)
	assert.Equal(t, "site", aws.ToString(f.put.Bucket))
	assert.Equal(t, asset.PublicID, aws.ToString(f.put.Key))
	assert.Equal(t, "image/png", aws.ToString(f.put.ContentType))
	assert.Equal(t, int64(len(pngBytes)), aws.ToInt64(f.put.ContentLength))
	assert.Equal(t, pngBytes, f.body)
}

func TestUpload_RemoteErrorIsHidden(t *testing.T) {
	f := &fakeObjects{putErr: errors.New("AccessDenied: secret bucket policy detail")}
	d := newTestDelegate(f)

	_, err := d.Upload(context.Background(), pngBytes, "media")
	require.ErrorIs(t, err, ErrUpload)
	assert.NotContains(t, err.Error(), "AccessDenied")
}

func TestUpload_Empty(t *testing.T) {
	f := &fakeObjects{}
	_, err := newTestDelegate(f).Upload(context.Background(), nil, "media")
	assert.ErrorIs(t, err, ErrUpload)
	assert.Nil(t, f.put)
}

func TestUpload_UnknownTypeHasNoExtension(t *testing.T) {
	f := &fakeObjects{}
	asset, err := newTestDelegate(f).Upload(context.Background(), []byte("plain words"), "/coordinators/")
	require.NoError(t, err)
	assert.Regexp(t, `^coordinators/2025/09/10/[0-9a-f-]{36}$`, asset.PublicID)
	assert.Equal(t, "text/plain; charset=utf-8", aws.ToString(f.put.ContentType))
}

func TestDelete(t *testing.T) {
	f := &fakeObjects{}
	d := newTestDelegate(f)

	require.NoError(t, d.Delete(context.Background(), "events/k.png"))
	assert.Equal(t, "events/k.png", aws.ToString(f.del.Key))
	assert.Equal(t, "site", aws.ToString(f.del.Bucket))

	f.deleteErr = errors.New("NoSuchBucket")
	assert.ErrorIs(t, d.Delete(context.Background(), "events/k.png"), ErrDelete)
	assert.ErrorIs(t, d.Delete(context.Background(), ""), ErrDelete)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBaseURL(config.S3Config{PublicBaseURL: "https://cdn.example.com/", Endpoint: "http://minio:9000"}))
	assert.Equal(t, "http://minio:9000/site", publicBaseURL(config.S3Config{Endpoint: "http://minio:9000/", Bucket: "site"}))
	assert.Equal(t, "https://site.s3.eu-west-1.amazonaws.com", publicBaseURL(config.S3Config{Bucket: "site", Region: "eu-west-1"}))
}

func TestNewS3Delegate_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &fakeObjects{}
	}

	d, err := NewS3Delegate(context.Background(), config.S3Config{
		Endpoint: "http://127.0.0.1:9000", Region: "us-east-1", Bucket: "site",
		AccessKey: "minioadmin", SecretKey: "minioadmin", UsePathStyle: true,
	}, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://127.0.0.1:9000/site", d.baseURL)

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Delegate(context.Background(), config.S3Config{}, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load-fail")
}
