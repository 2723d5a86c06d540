package artifact

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/vtejapy/new-cft2/internal/store"
)

// SyncPlan describes the result of one mirror sync against a destination.
type SyncPlan struct {
	// Uploaded lists object keys transferred because they were new or changed.
	Uploaded []string
	// Deleted lists object keys removed because they left the source set.
	Deleted []string
	// Skipped counts artifacts whose recorded hash already matched.
	Skipped int
	// Bytes is the total size of uploaded artifacts.
	Bytes int64
}

// Changed reports whether the sync transferred or removed anything.
func (p *SyncPlan) Changed() bool {
	return len(p.Uploaded) > 0 || len(p.Deleted) > 0
}

// Publisher mirrors validated artifacts into the artifact store.
type Publisher struct {
	store  *store.Client
	logger *slog.Logger
}

// NewPublisher constructs a Publisher over a store client.
func NewPublisher(st *store.Client, logger *slog.Logger) *Publisher {
	return &Publisher{store: st, logger: logger}
}

// PublishDir provisions the destination bucket if absent and mirror-syncs the
// directory into it under prefix: unchanged files (by recorded content hash)
// are not re-transferred, and destination objects no longer present in the
// source set are deleted. With dryRun set, the plan is computed but no write
// is issued.
func (p *Publisher) PublishDir(ctx context.Context, dir, bucket, prefix string, dryRun bool) (*SyncPlan, error) {
	artifacts, err := ScanDir(dir, prefix)
	if err != nil {
		return nil, err
	}
	return p.Publish(ctx, artifacts, bucket, prefix, dryRun)
}

// Publish mirror-syncs an already scanned artifact set into bucket/prefix.
func (p *Publisher) Publish(ctx context.Context, artifacts []Artifact, bucket, prefix string, dryRun bool) (*SyncPlan, error) {
	if !dryRun {
		if _, err := p.store.EnsureBucket(ctx, bucket); err != nil {
			return nil, err
		}
	}

	remote, err := p.store.RemoteHashes(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	plan := &SyncPlan{}
	inSource := make(map[string]struct{}, len(artifacts))
	for _, a := range artifacts {
		inSource[a.Key] = struct{}{}
		if remote[a.Key] == a.ContentHash && a.ContentHash != "" {
			plan.Skipped++
			continue
		}
		if !dryRun {
			if err := p.store.Upload(ctx, bucket, a.Key, a.SourcePath, a.ContentHash); err != nil {
				return nil, err
			}
		}
		plan.Uploaded = append(plan.Uploaded, a.Key)
		plan.Bytes += a.Size
		p.logger.Debug("uploaded artifact", "bucket", bucket, "key", a.Key, "bytes", a.Size)
	}

	for key := range remote {
		if _, ok := inSource[key]; ok {
			continue
		}
		if !dryRun {
			if err := p.store.Delete(ctx, bucket, key); err != nil {
				return nil, err
			}
		}
		plan.Deleted = append(plan.Deleted, key)
		p.logger.Debug("removed stale artifact", "bucket", bucket, "key", key)
	}
	sort.Strings(plan.Deleted)

	p.logger.Info("artifact sync complete",
		"bucket", bucket,
		"prefix", prefix,
		"uploaded", len(plan.Uploaded),
		"deleted", len(plan.Deleted),
		"skipped", plan.Skipped,
		"bytes", plan.Bytes,
		"dryRun", dryRun)
	return plan, nil
}

// DirExists reports whether a source directory is present. Publishing a
// missing code-payload directory degrades to a warning no-op, not a failure.
func DirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
