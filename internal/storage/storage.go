// Package storage persists identity documents uploaded with registrations.
// Two backends exist: a local directory for development and S3 for
// production.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"saazebharat/internal/config"

	"github.com/google/uuid"
)

var ErrDocumentNotFound = errors.New("document not found")

// Store saves and serves registration documents addressed by an opaque key.
type Store interface {
	Put(ctx context.Context, registrationID uuid.UUID, filename string, content io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New selects a backend from configuration.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalStore(cfg.LocalPath)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires a bucket name")
		}
		return NewS3Store(cfg.S3Bucket, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// documentKey scopes a document under its registration, with a random prefix
// so a re-upload never clobbers an earlier file.
func documentKey(registrationID uuid.UUID, filename string) string {
	return registrationID.String() + "/" + uuid.New().String() + "_" + sanitizeFilename(filename)
}

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", "..", "_", ":", "_",
		"*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	return replacer.Replace(filename)
}
