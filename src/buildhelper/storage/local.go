package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/archive"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/paths"
)

// LocalConfig holds the local filesystem storage configuration. The
// mapstructure tag is the contract with the storage.local.path viper key
// the --storage-path flag binds to.
type LocalConfig struct {
	// BasePath is the root directory for storing artifacts
	BasePath string `mapstructure:"path"`
}

// LocalStore implements Store on the local filesystem. It exists for
// workflow-free runs and for tests; the zip layout matches what the
// actions backend produces so stages cannot tell the difference.
type LocalStore struct {
	basePath string
}

// NewLocal creates a local filesystem store.
func NewLocal(cfg LocalConfig) (*LocalStore, error) {
	basePath := paths.Expand(cfg.BasePath)
	if basePath == "" {
		return nil, fmt.Errorf("local store requires a base path")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	return &LocalStore{basePath: basePath}, nil
}

// objectPath returns the on-disk path for an artifact name. Names are
// flattened to their base to keep keys from escaping the store root.
func (s *LocalStore) objectPath(name string) string {
	return filepath.Join(s.basePath, filepath.Base(name)+".zip")
}

// Upload packs the payload into the store directory.
func (s *LocalStore) Upload(ctx context.Context, name, path string, opts UploadOptions) error {
	return archive.CreateZip(s.objectPath(name), path, opts.CompressionLevel)
}

// Download copies the artifact zip into destDir.
func (s *LocalStore) Download(ctx context.Context, name, destDir string) (string, error) {
	srcPath := s.objectPath(name)

	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("artifact not found: %s", name)
		}
		return "", fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer src.Close()

	destPath := filepath.Join(destDir, name+".zip")
	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to copy artifact %s: %w", name, err)
	}
	return destPath, nil
}

// Exists checks if the artifact zip is present.
func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(s.objectPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat artifact %s: %w", name, err)
	}
	return true, nil
}

// Delete removes the artifact zip.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(s.objectPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact %s: %w", name, err)
	}
	return nil
}

// List returns the stored artifact names.
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".zip"))
	}
	return names, nil
}

// Type returns the store backend type
func (s *LocalStore) Type() string {
	return "local"
}
