// Package storage provides artifact stores for the build pipeline. Stages
// exchange opaque zip-wrapped payloads by artifact name; the backend is the
// GitHub Actions artifact service in CI, with S3-compatible and local
// filesystem stores for mirroring and tests.
package storage

import (
	"context"
	"fmt"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/actions"
)

// CompressionStore disables zip compression for an upload. Used for
// payloads that are already compressed tarballs, where a second deflate
// pass only burns CPU.
const CompressionStore = -1

// UploadOptions control how a payload is retained and packed.
type UploadOptions struct {
	// RetentionDays bounds how long the store keeps the artifact
	RetentionDays int

	// CompressionLevel selects the zip packing: the zero value deflates,
	// CompressionStore stores entries uncompressed
	CompressionLevel int
}

// Store is the interface every artifact backend implements. Payload paths
// may name a file or a directory tree; either way the stored object is a
// zip archive under the artifact name.
type Store interface {
	// Upload packs the payload at path and stores it under name
	Upload(ctx context.Context, name, path string, opts UploadOptions) error

	// Download fetches the artifact zip into destDir and returns its path
	Download(ctx context.Context, name, destDir string) (string, error)

	// Exists checks whether an artifact with the given name is stored
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes the named artifact; missing artifacts are not an error
	Delete(ctx context.Context, name string) error

	// List returns the stored artifact names
	List(ctx context.Context) ([]string, error)

	// Type returns the store backend type
	Type() string
}

// Config holds the storage configuration
type Config struct {
	// Type is the store backend type: "actions", "s3" or "local"
	Type string `mapstructure:"type"`

	// TmpDir is where upload payloads are staged before packing
	TmpDir string `mapstructure:"tmp_dir"`

	// Local storage configuration
	Local LocalConfig `mapstructure:"local"`

	// S3 storage configuration
	S3 S3Config `mapstructure:"s3"`
}

// DefaultConfig returns the default storage configuration (the CI artifact
// service).
func DefaultConfig() Config {
	return Config{
		Type: "actions",
	}
}

// New creates a storage backend based on configuration. The runner context
// is only required for the actions backend.
func New(cfg Config, runnerCtx *actions.Context) (Store, error) {
	switch cfg.Type {
	case "s3":
		return NewS3(cfg.S3, cfg.TmpDir)
	case "local":
		return NewLocal(cfg.Local)
	case "", "actions":
		return NewActions(runnerCtx, cfg.TmpDir)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
