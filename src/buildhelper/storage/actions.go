package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/actions"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/archive"
)

// ActionsStore implements Store on the GitHub Actions artifact service.
type ActionsStore struct {
	client *actions.ArtifactClient
	tmpDir string
}

// NewActions creates the artifact-service store for the current run.
func NewActions(runnerCtx *actions.Context, tmpDir string) (*ActionsStore, error) {
	if runnerCtx == nil {
		return nil, fmt.Errorf("actions store requires a runner context")
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &ActionsStore{
		client: runnerCtx.NewArtifactClient(),
		tmpDir: tmpDir,
	}, nil
}

// Upload zips the payload and pushes it to the artifact exchange.
func (s *ActionsStore) Upload(ctx context.Context, name, path string, opts UploadOptions) error {
	zipPath := filepath.Join(s.tmpDir, fmt.Sprintf("upload-%s.zip", uuid.NewString()))
	if err := archive.CreateZip(zipPath, path, opts.CompressionLevel); err != nil {
		return fmt.Errorf("failed to pack %s: %w", name, err)
	}
	defer os.Remove(zipPath)

	return s.client.Upload(ctx, name, zipPath, opts.RetentionDays)
}

// Download fetches the artifact zip into destDir.
func (s *ActionsStore) Download(ctx context.Context, name, destDir string) (string, error) {
	return s.client.Download(ctx, name, destDir)
}

// Exists checks the run's artifact list for the name.
func (s *ActionsStore) Exists(ctx context.Context, name string) (bool, error) {
	artifacts, err := s.client.List(ctx)
	if err != nil {
		return false, err
	}
	for _, artifact := range artifacts {
		if artifact.Name == name && !artifact.Expired {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes the named artifact from the run.
func (s *ActionsStore) Delete(ctx context.Context, name string) error {
	return s.client.Delete(ctx, name)
}

// List returns the current run's artifact names.
func (s *ActionsStore) List(ctx context.Context) ([]string, error) {
	artifacts, err := s.client.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		names = append(names, artifact.Name)
	}
	return names, nil
}

// Type returns the store backend type
func (s *ActionsStore) Type() string {
	return "actions"
}
