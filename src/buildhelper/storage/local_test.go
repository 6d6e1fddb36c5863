package storage

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/archive"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocal(LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	return store
}

func seedPayload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}
	return path
}

// =============================================================================
// Local Store Tests
// =============================================================================

func TestLocalStore_UploadDownloadRoundTrip(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	payload := seedPayload(t, "builds.tar.gz", "tarball-bytes")
	err := store.Upload(ctx, "base-builds-stock", payload, UploadOptions{CompressionLevel: 0})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	exists, err := store.Exists(ctx, "base-builds-stock")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Fatal("uploaded artifact not found")
	}

	destDir := t.TempDir()
	zipPath, err := store.Download(ctx, "base-builds-stock", destDir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	extracted, err := archive.ExtractZipMember(zipPath, "builds.tar.gz", destDir)
	if err != nil {
		t.Fatalf("downloaded zip has no payload member: %v", err)
	}
	data, err := os.ReadFile(extracted)
	if err != nil {
		t.Fatalf("failed to read extracted payload: %v", err)
	}
	if string(data) != "tarball-bytes" {
		t.Errorf("got %q, want %q", data, "tarball-bytes")
	}
}

func TestLocalStore_UploadDirectory(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	for _, name := range []string{"a.ipk", "b.ipk"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatalf("failed to seed dir: %v", err)
		}
	}

	if err := store.Upload(ctx, "packages-stock", dir, UploadOptions{}); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	zipPath, err := store.Download(ctx, "packages-stock", t.TempDir())
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	names, err := archive.ZipMemberNames(zipPath)
	if err != nil {
		t.Fatalf("ZipMemberNames failed: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("got members %v, want 2", names)
	}
}

func zipEntryMethod(t *testing.T, zipPath string) uint16 {
	t.Helper()
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("failed to open zip: %v", err)
	}
	defer r.Close()
	if len(r.File) == 0 {
		t.Fatal("zip has no entries")
	}
	return r.File[0].Method
}

func TestLocalStore_UploadCompressesByDefault(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	payload := seedPayload(t, "pkg.ipk", "package-bytes")
	if err := store.Upload(ctx, "packages-stock", payload, UploadOptions{RetentionDays: 1}); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if got := zipEntryMethod(t, store.objectPath("packages-stock")); got != zip.Deflate {
		t.Errorf("got zip method %d, want Deflate %d", got, zip.Deflate)
	}
}

func TestLocalStore_UploadCompressionStore(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	payload := seedPayload(t, "builds.tar.gz", "tarball-bytes")
	opts := UploadOptions{RetentionDays: 1, CompressionLevel: CompressionStore}
	if err := store.Upload(ctx, "base-builds-stock", payload, opts); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if got := zipEntryMethod(t, store.objectPath("base-builds-stock")); got != zip.Store {
		t.Errorf("got zip method %d, want Store %d", got, zip.Store)
	}
}

func TestLocalStore_DownloadMissing(t *testing.T) {
	store := newTestLocalStore(t)

	if _, err := store.Download(context.Background(), "nosuch", t.TempDir()); err == nil {
		t.Error("expected error for missing artifact")
	}
}

func TestLocalStore_DeleteAndList(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	payload := seedPayload(t, "x.bin", "x")
	for _, name := range []string{"firmware-stock", "kmods-stock"} {
		if err := store.Upload(ctx, name, payload, UploadOptions{}); err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
	}

	if err := store.Delete(ctx, "kmods-stock"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "firmware-stock" {
		t.Errorf("got %v, want [firmware-stock]", names)
	}

	// Deleting an absent artifact is not an error
	if err := store.Delete(ctx, "nosuch"); err != nil {
		t.Errorf("Delete of missing artifact failed: %v", err)
	}
}

// =============================================================================
// Backend Selection Tests
// =============================================================================

func TestNew_BackendSelection(t *testing.T) {
	local, err := New(Config{Type: "local", Local: LocalConfig{BasePath: t.TempDir()}}, nil)
	if err != nil {
		t.Fatalf("New(local) failed: %v", err)
	}
	if local.Type() != "local" {
		t.Errorf("got type %q, want local", local.Type())
	}

	if _, err := New(Config{Type: "teleport"}, nil); err == nil {
		t.Error("expected error for unknown backend type")
	}
}

// TestNew_FromViperKeys decodes the storage section the way the command
// layer does, so the storage.local.path binding behind --storage-path
// must reach the local store.
func TestNew_FromViperKeys(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	viper.Set("storage.type", "local")
	viper.Set("storage.local.path", dir)

	var cfg Config
	if err := viper.UnmarshalKey("storage", &cfg); err != nil {
		t.Fatalf("UnmarshalKey failed: %v", err)
	}
	if cfg.Local.BasePath != dir {
		t.Fatalf("got base path %q, want %q", cfg.Local.BasePath, dir)
	}

	store, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	payload := seedPayload(t, "x.bin", "x")
	if err := store.Upload(ctx, "firmware-stock", payload, UploadOptions{}); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "firmware-stock.zip")); err != nil {
		t.Errorf("artifact not written under configured path: %v", err)
	}
}
