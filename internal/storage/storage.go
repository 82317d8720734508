// Package storage persists rendered share cards.
//
// LocalStorage writes to the filesystem for development and R2Storage writes
// to Cloudflare R2 (S3-compatible) in production.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage is the object store used by the share image service.
type Storage interface {
	// Put writes data at key. Existing objects are replaced only when
	// opts.Overwrite is set.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a public URL when expires is zero and the backend has one,
	// otherwise a signed URL valid for expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// PutOptions configures a single write.
type PutOptions struct {
	ContentType string
	// MaxSize rejects payloads larger than this many bytes. Zero disables
	// the check.
	MaxSize   int64
	Overwrite bool
	Public    bool
}

// LocalConfig configures LocalStorage.
type LocalConfig struct {
	BasePath string // e.g. "./storage"
	BaseURL  string // e.g. "http://localhost:8080/files"
}

// R2Config configures R2Storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	// PublicURL is the bucket's public domain. Without it every URL is
	// presigned.
	PublicURL string
	Region    string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

const shareCardPrefix = "share"

// ShareCardKey returns a fresh key for a user's share card:
// share/{userID}/{uuid}.png
func ShareCardKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s.png", shareCardPrefix, userID, uuid.New())
}

// validateKey rejects empty keys, absolute paths and traversal segments.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return ErrInvalidKey
		}
	}
	return nil
}
