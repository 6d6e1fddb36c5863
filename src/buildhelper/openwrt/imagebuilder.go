package openwrt

import (
	"context"
	"path/filepath"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/logs"
)

// ImageBuilder wraps an extracted OpenWrt Image Builder tree. It shares
// the make plumbing with Tree; the Image Builder is a pre-built slice of
// the same build system.
type ImageBuilder struct {
	*Tree
}

// NewImageBuilder wraps the Image Builder tree at path.
func NewImageBuilder(path string, log *logs.Logger) *ImageBuilder {
	return &ImageBuilder{Tree: NewTree(path, log)}
}

// PackagesDir returns the directory the Image Builder resolves local
// packages from.
func (ib *ImageBuilder) PackagesDir() string {
	return filepath.Join(ib.Path, "packages")
}

// FilesDir returns the custom-rootfs overlay directory.
func (ib *ImageBuilder) FilesDir() string {
	return filepath.Join(ib.Path, "files")
}

// MakeInfo prints the profiles and packages this Image Builder knows.
func (ib *ImageBuilder) MakeInfo(ctx context.Context) error {
	return ib.run(ctx, "make", "info")
}

// MakeManifest resolves and prints the package manifest for the build.
func (ib *ImageBuilder) MakeManifest(ctx context.Context) error {
	return ib.run(ctx, "make", "manifest")
}

// MakeImage assembles the firmware images from prebuilt packages. The
// overlay directory is passed when present so custom files land in the
// rootfs.
func (ib *ImageBuilder) MakeImage(ctx context.Context) error {
	args := []string{"image"}
	if fi, err := filepath.Glob(filepath.Join(ib.FilesDir(), "*")); err == nil && len(fi) > 0 {
		args = append(args, "FILES="+ib.FilesDir())
	}
	return ib.run(ctx, "make", args...)
}
