package artifact

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtejapy/new-cft2/internal/store"
)

// fakeS3 is an in-memory artifact store tracking uploads and deletions.
type fakeS3 struct {
	// hashes maps object key to the recorded content hash.
	hashes  map[string]string
	puts    []string
	deletes []string
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for key := range f.hashes {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{
		Metadata: map[string]string{store.HashMetadataKey: f.hashes[aws.ToString(in.Key)]},
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.puts = append(f.puts, key)
	if f.hashes == nil {
		f.hashes = make(map[string]string)
	}
	f.hashes[key] = in.Metadata[store.HashMetadataKey]
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.deletes = append(f.deletes, key)
	delete(f.hashes, key)
	return &s3.DeleteObjectOutput{}, nil
}

func newTestPublisher(f *fakeS3) *Publisher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublisher(store.New(f, "us-east-1", logger), logger)
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestPublishDir(t *testing.T) {
	t.Run("first publish uploads everything", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"main.yaml":          "a",
			"nested/child.yaml":  "b",
		})
		fake := &fakeS3{}
		plan, err := newTestPublisher(fake).PublishDir(context.Background(), dir, "bucket", "templates", false)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"templates/main.yaml", "templates/nested/child.yaml"}, plan.Uploaded)
		assert.Empty(t, plan.Deleted)
		assert.Zero(t, plan.Skipped)
		assert.True(t, plan.Changed())
	})

	t.Run("unchanged files are never re-transferred", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"main.yaml": "same content"})
		fake := &fakeS3{}
		pub := newTestPublisher(fake)

		_, err := pub.PublishDir(context.Background(), dir, "bucket", "templates", false)
		require.NoError(t, err)
		require.Len(t, fake.puts, 1)

		plan, err := pub.PublishDir(context.Background(), dir, "bucket", "templates", false)
		require.NoError(t, err)
		assert.Empty(t, plan.Uploaded)
		assert.Equal(t, 1, plan.Skipped)
		assert.False(t, plan.Changed())
		assert.Len(t, fake.puts, 1, "no second transfer for identical content")
	})

	t.Run("changed content re-uploads", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"main.yaml": "v1"})
		fake := &fakeS3{}
		pub := newTestPublisher(fake)
		_, err := pub.PublishDir(context.Background(), dir, "bucket", "templates", false)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.yaml"), []byte("v2"), 0o644))
		plan, err := pub.PublishDir(context.Background(), dir, "bucket", "templates", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"templates/main.yaml"}, plan.Uploaded)
	})

	t.Run("files removed from source are deleted from destination", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"keep.yaml": "k",
			"drop.yaml": "d",
		})
		fake := &fakeS3{}
		pub := newTestPublisher(fake)
		_, err := pub.PublishDir(context.Background(), dir, "bucket", "templates", false)
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(dir, "drop.yaml")))
		plan, err := pub.PublishDir(context.Background(), dir, "bucket", "templates", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"templates/drop.yaml"}, plan.Deleted)
		assert.Equal(t, []string{"templates/drop.yaml"}, fake.deletes)
	})

	t.Run("dry run computes the plan without writing", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"main.yaml": "content"})
		fake := &fakeS3{hashes: map[string]string{"templates/stale.yaml": "x"}}
		plan, err := newTestPublisher(fake).PublishDir(context.Background(), dir, "bucket", "templates", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"templates/main.yaml"}, plan.Uploaded)
		assert.Equal(t, []string{"templates/stale.yaml"}, plan.Deleted)
		assert.Empty(t, fake.puts)
		assert.Empty(t, fake.deletes)
	})
}

func TestScanDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"b.yaml":       "bb",
		"a.yaml":       "aa",
		"sub/c.yaml":   "cc",
	})
	artifacts, err := ScanDir(dir, "templates")
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	assert.Equal(t, "a.yaml", artifacts[0].LogicalName)
	assert.Equal(t, "templates/a.yaml", artifacts[0].Key)
	assert.EqualValues(t, 2, artifacts[0].Size)
	assert.Len(t, artifacts[0].ContentHash, 64)

	// Identical content hashes identically, different content differently.
	hashA, err := HashFile(filepath.Join(dir, "a.yaml"))
	require.NoError(t, err)
	assert.Equal(t, artifacts[0].ContentHash, hashA)
	assert.NotEqual(t, artifacts[0].ContentHash, artifacts[1].ContentHash)
}
