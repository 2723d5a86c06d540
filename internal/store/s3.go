// Package store implements the artifact store on S3: idempotent bucket
// provisioning, content-hash inventory, and object transfer.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
)

// HashMetadataKey is the object metadata key recording the SHA-256 content
// hash of the uploaded file. The publisher diffs against it on the next run.
const HashMetadataKey = "content-sha256"

// S3API is the narrow slice of the S3 client used by the artifact store.
// It exists so tests can substitute a mock implementation.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PublishError indicates that the artifact store was unreachable or a
// transfer failed. Nothing downstream of publishing proceeds after one.
type PublishError struct {
	// Op is the failed store operation.
	Op string
	// Bucket is the affected bucket.
	Bucket string
	// Key is the affected object key, when applicable.
	Key string
	// Err is the underlying cause.
	Err error
}

func (e *PublishError) Error() string {
	if e == nil {
		return "publish error"
	}
	if e.Key != "" {
		return fmt.Sprintf("publish %s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("publish %s s3://%s: %v", e.Op, e.Bucket, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// IsPublishError reports whether err is a PublishError.
func IsPublishError(err error) bool {
	var target *PublishError
	return errors.As(err, &target)
}

// Client provides artifact-store operations against S3.
type Client struct {
	api    S3API
	region string
	logger *slog.Logger
}

// New constructs a Client around an S3API implementation.
func New(api S3API, region string, logger *slog.Logger) *Client {
	return &Client{api: api, region: region, logger: logger}
}

// NewFromConfig constructs a Client backed by the real S3 service client.
func NewFromConfig(cfg aws.Config, logger *slog.Logger) *Client {
	return New(s3.NewFromConfig(cfg), cfg.Region, logger)
}

// EnsureBucket checks for the bucket and creates it when absent. The check
// runs first so repeated invocations are idempotent. It returns whether a
// bucket was created.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) (bool, error) {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return false, nil
	}
	if !isNotFound(err) {
		return false, &PublishError{Op: "head bucket", Bucket: bucket, Err: err}
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 rejects an explicit location constraint.
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		return false, &PublishError{Op: "create bucket", Bucket: bucket, Err: err}
	}
	c.logger.Info("created artifact bucket", "bucket", bucket, "region", c.region)
	return true, nil
}

// RemoteHashes inventories the destination prefix and returns each object's
// recorded content hash keyed by object key. Objects uploaded without a hash
// record map to the empty string and therefore always re-transfer.
func (c *Client) RemoteHashes(ctx context.Context, bucket, prefix string) (map[string]string, error) {
	out := make(map[string]string)
	var token *string
	for {
		page, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, &PublishError{Op: "list objects", Bucket: bucket, Err: err}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			head, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, &PublishError{Op: "head object", Bucket: bucket, Key: key, Err: err}
			}
			out[key] = head.Metadata[HashMetadataKey]
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		token = page.NextContinuationToken
	}
	return out, nil
}

// Upload transfers a local file to the bucket, recording its content hash in
// object metadata and detecting the content type from the file itself.
func (c *Client) Upload(ctx context.Context, bucket, key, path, hash string) error {
	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	}

	f, err := os.Open(path)
	if err != nil {
		return &PublishError{Op: "open source", Bucket: bucket, Key: key, Err: err}
	}
	defer func() { _ = f.Close() }()

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{HashMetadataKey: hash},
	})
	if err != nil {
		return &PublishError{Op: "put object", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// Delete removes an object from the bucket.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &PublishError{Op: "delete object", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// isNotFound reports whether an S3 error means the bucket or object is absent.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchKey":
			return true
		}
	}
	return false
}
