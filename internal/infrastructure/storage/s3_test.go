package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// fakeS3 keeps objects in a map and records calls
type fakeS3 struct {
	objects map[string][]byte
	put     *s3.PutObjectInput
	bucket  bool

	headBucketErr error
	createErr     error
	created       int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.put = in
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headBucketErr != nil {
		return nil, f.headBucketErr
	}
	if !f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.bucket = true
	return &s3.CreateBucketOutput{}, nil
}

func newFakeImages(t *testing.T) (*S3Images, *fakeS3) {
	fake := newFakeS3()
	return &S3Images{api: fake, bucket: "images", baseURL: "https://cdn.example.com", log: zaptest.NewLogger(t)}, fake
}

func TestNewS3Images_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3Images(ctx, config.StorageConfig{}, nil)
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewS3Images(ctx, config.StorageConfig{Bucket: "images", AccessKeyID: "key"}, nil)
	assert.ErrorContains(t, err, "secret access key")

	_, err = NewS3Images(ctx, config.StorageConfig{Bucket: "images", Endpoint: "http://"}, nil)
	assert.ErrorContains(t, err, "invalid storage endpoint")
}

func TestNewS3Images_PublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "explicit public base url",
			cfg:  config.StorageConfig{Bucket: "images", PublicBaseURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com/products/a.png",
		},
		{
			name: "bare endpoint defaults to https",
			cfg:  config.StorageConfig{Bucket: "images", Endpoint: "minio:9000", UsePathStyle: true},
			want: "https://minio:9000/images/products/a.png",
		},
		{
			name: "aws virtual host",
			cfg:  config.StorageConfig{Bucket: "images", Region: "sa-east-1"},
			want: "https://images.s3.sa-east-1.amazonaws.com/products/a.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, err := NewS3Images(context.Background(), tt.cfg, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, images.PublicURL("products/a.png"))
		})
	}
}

func TestS3Images_UploadExistsDelete(t *testing.T) {
	images, fake := newFakeImages(t)
	ctx := context.Background()
	key := "products/p1/a.png"

	require.NoError(t, images.Upload(ctx, key, []byte("png"), "image/png"))
	assert.Equal(t, []byte("png"), fake.objects[key])
	assert.Equal(t, "images", aws.ToString(fake.put.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.put.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(fake.put.ContentLength))
	assert.Equal(t, imageCacheControl, aws.ToString(fake.put.CacheControl))

	ok, err := images.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, images.DeleteObject(ctx, key))
	ok, err = images.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Images_EmptyKey(t *testing.T) {
	images, _ := newFakeImages(t)
	ctx := context.Background()

	assert.ErrorIs(t, images.Upload(ctx, "", []byte("x"), "image/png"), errEmptyKey)
	assert.ErrorIs(t, images.DeleteObject(ctx, ""), errEmptyKey)
	_, err := images.Exists(ctx, "")
	assert.ErrorIs(t, err, errEmptyKey)
}

func TestS3Images_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("creates once", func(t *testing.T) {
		images, fake := newFakeImages(t)
		require.NoError(t, images.EnsureBucket(ctx))
		require.NoError(t, images.EnsureBucket(ctx))
		assert.Equal(t, 1, fake.created)
	})

	t.Run("lost creation race", func(t *testing.T) {
		images, fake := newFakeImages(t)
		fake.createErr = &types.BucketAlreadyOwnedByYou{}
		assert.NoError(t, images.EnsureBucket(ctx))
	})

	t.Run("access denied", func(t *testing.T) {
		images, fake := newFakeImages(t)
		fake.headBucketErr = errors.New("AccessDenied")
		assert.ErrorContains(t, images.EnsureBucket(ctx), "AccessDenied")
		assert.Zero(t, fake.created)
	})
}

// Runs against a MinIO on localhost:9000 when INTEGRATION_TEST=1
func TestS3Images_MinIO(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("set INTEGRATION_TEST=1 and run MinIO to enable")
	}
	ctx := context.Background()
	images, err := NewS3Images(ctx, config.StorageConfig{
		Bucket:          "test-integration",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, images.EnsureBucket(ctx))

	key := "integration-test/image.png"
	require.NoError(t, images.Upload(ctx, key, []byte("png"), "image/png"))
	ok, err := images.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, images.DeleteObject(ctx, key))
}
