package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3 implements S3API with overridable behavior per call.
type mockS3 struct {
	headBucketFunc    func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	createBucketFunc  func(*s3.CreateBucketInput) (*s3.CreateBucketOutput, error)
	listObjectsFunc   func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	headObjectFunc    func(*s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
	putObjectFunc     func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
	deleteObjectFunc  func(*s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error)
	createBucketCalls int
}

func (m *mockS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return m.headBucketFunc(in)
}

func (m *mockS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	m.createBucketCalls++
	if m.createBucketFunc == nil {
		return &s3.CreateBucketOutput{}, nil
	}
	return m.createBucketFunc(in)
}

func (m *mockS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return m.listObjectsFunc(in)
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return m.headObjectFunc(in)
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putObjectFunc == nil {
		return &s3.PutObjectOutput{}, nil
	}
	return m.putObjectFunc(in)
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.deleteObjectFunc == nil {
		return &s3.DeleteObjectOutput{}, nil
	}
	return m.deleteObjectFunc(in)
}

// notFoundErr mimics the control plane's missing-bucket error.
type notFoundErr struct{}

func (notFoundErr) Error() string      { return "NotFound" }
func (notFoundErr) ErrorCode() string  { return "NotFound" }
func (notFoundErr) ErrorMessage() string { return "Not Found" }
func (notFoundErr) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func TestEnsureBucket(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("existing bucket is not recreated", func(t *testing.T) {
		mock := &mockS3{
			headBucketFunc: func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
				return &s3.HeadBucketOutput{}, nil
			},
		}
		created, err := New(mock, "us-east-1", logger).EnsureBucket(context.Background(), "b")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Zero(t, mock.createBucketCalls)
	})

	t.Run("absent bucket is created with location constraint", func(t *testing.T) {
		mock := &mockS3{
			headBucketFunc: func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
				return nil, notFoundErr{}
			},
			createBucketFunc: func(in *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
				require.NotNil(t, in.CreateBucketConfiguration)
				assert.EqualValues(t, "eu-west-1", in.CreateBucketConfiguration.LocationConstraint)
				return &s3.CreateBucketOutput{}, nil
			},
		}
		created, err := New(mock, "eu-west-1", logger).EnsureBucket(context.Background(), "b")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 1, mock.createBucketCalls)
	})

	t.Run("us-east-1 omits the location constraint", func(t *testing.T) {
		mock := &mockS3{
			headBucketFunc: func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
				return nil, notFoundErr{}
			},
			createBucketFunc: func(in *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
				assert.Nil(t, in.CreateBucketConfiguration)
				return &s3.CreateBucketOutput{}, nil
			},
		}
		_, err := New(mock, "us-east-1", logger).EnsureBucket(context.Background(), "b")
		require.NoError(t, err)
	})

	t.Run("other errors become publish errors", func(t *testing.T) {
		mock := &mockS3{
			headBucketFunc: func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
				return nil, errors.New("network unreachable")
			},
		}
		_, err := New(mock, "us-east-1", logger).EnsureBucket(context.Background(), "b")
		require.Error(t, err)
		assert.True(t, IsPublishError(err))
	})
}

func TestRemoteHashes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("paginates and reads metadata hashes", func(t *testing.T) {
		hashes := map[string]string{
			"templates/a.yaml": "hash-a",
			"templates/b.yaml": "hash-b",
		}
		page := 0
		mock := &mockS3{
			listObjectsFunc: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
				page++
				if page == 1 {
					assert.Nil(t, in.ContinuationToken)
					return &s3.ListObjectsV2Output{
						Contents:              []s3types.Object{{Key: aws.String("templates/a.yaml")}},
						IsTruncated:           aws.Bool(true),
						NextContinuationToken: aws.String("next"),
					}, nil
				}
				assert.Equal(t, "next", aws.ToString(in.ContinuationToken))
				return &s3.ListObjectsV2Output{
					Contents: []s3types.Object{{Key: aws.String("templates/b.yaml")}},
				}, nil
			},
			headObjectFunc: func(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
				return &s3.HeadObjectOutput{
					Metadata: map[string]string{HashMetadataKey: hashes[aws.ToString(in.Key)]},
				}, nil
			},
		}
		got, err := New(mock, "us-east-1", logger).RemoteHashes(context.Background(), "b", "templates")
		require.NoError(t, err)
		assert.Equal(t, hashes, got)
	})
}
