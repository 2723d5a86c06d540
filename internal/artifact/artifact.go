// Package artifact models content-addressed deployable artifacts and the
// publisher that mirrors them into the artifact store.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact is a content-addressed template or code payload. It is immutable
// once hashed; the publisher re-transfers it only when the hash differs from
// the destination's recorded hash.
type Artifact struct {
	// LogicalName is the artifact's name relative to its source root, using
	// forward slashes.
	LogicalName string
	// SourcePath is the absolute path of the source file.
	SourcePath string
	// Key is the destination object key (prefix + logical name).
	Key string
	// ContentHash is the hex-encoded SHA-256 of the file contents.
	ContentHash string
	// Size is the file size in bytes.
	Size int64
}

// HashFile computes the hex-encoded SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ScanDir walks root and returns one hashed Artifact per regular file, with
// destination keys under prefix. Results are sorted by logical name so plans
// are deterministic.
func ScanDir(root, prefix string) ([]Artifact, error) {
	var out []Artifact
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		logical := filepath.ToSlash(rel)

		hash, err := HashFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Artifact{
			LogicalName: logical,
			SourcePath:  path,
			Key:         joinKey(prefix, logical),
			ContentHash: hash,
			Size:        info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalName < out[j].LogicalName })
	return out, nil
}

// joinKey joins an object key prefix and a logical name with a single slash.
func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
