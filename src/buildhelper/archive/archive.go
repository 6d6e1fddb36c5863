// Package archive implements the archive plumbing between pipeline stages:
// tar extraction and creation for build trees and zip packing for the CI
// artifact exchange.
package archive

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ExtractTar extracts a tar archive (optionally compressed) to a directory.
// The compression codec is chosen by file suffix: .tar.gz/.tgz, .tar.xz/.txz,
// .tar.zst, .tar.bz2/.tbz2 and plain .tar are supported.
func ExtractTar(ctx context.Context, archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file

	switch {
	case strings.HasSuffix(archivePath, ".tar.gz") || strings.HasSuffix(archivePath, ".tgz"):
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader

	case strings.HasSuffix(archivePath, ".tar.xz") || strings.HasSuffix(archivePath, ".txz"):
		xzReader, err := xz.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		reader = xzReader

	case strings.HasSuffix(archivePath, ".tar.zst"):
		zstReader, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zstReader.Close()
		reader = zstReader

	case strings.HasSuffix(archivePath, ".tar.bz2") || strings.HasSuffix(archivePath, ".tbz2"):
		reader = bzip2.NewReader(file)

	case strings.HasSuffix(archivePath, ".tar"):
		// Plain tar, no decompression needed

	default:
		return fmt.Errorf("unsupported archive format: %s", archivePath)
	}

	return extractTarStream(ctx, reader, destDir)
}

// extractTarStream extracts an uncompressed tar stream to destDir
func extractTarStream(ctx context.Context, reader io.Reader, destDir string) error {
	tarReader := tar.NewReader(reader)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target := filepath.Join(destDir, header.Name)

		// Prevent path traversal attacks. Archives packed as "tar -czf x ."
		// carry a "./" member that cleans to destDir itself; that is the
		// destination, not an escape.
		cleaned := filepath.Clean(target)
		if cleaned != filepath.Clean(destDir) &&
			!strings.HasPrefix(cleaned, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid tar path: %s", header.Name)
		}
		if cleaned == filepath.Clean(destDir) && header.Typeflag != tar.TypeDir {
			return fmt.Errorf("invalid tar path: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			if _, err := io.Copy(outFile, tarReader); err != nil {
				outFile.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			outFile.Close()

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			// Re-extraction over an existing tree must not fail
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink: %w", err)
			}

		case tar.TypeLink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			linkTarget := filepath.Join(destDir, header.Linkname)
			os.Remove(target)
			if err := os.Link(linkTarget, target); err != nil {
				return fmt.Errorf("failed to create hard link: %w", err)
			}
		}
	}

	return nil
}

// CreateTarGz archives the named members of root into a gzip-compressed
// tarball at destPath. Each member keeps its name as the archive prefix,
// so extracting over another tree restores the same layout.
func CreateTarGz(ctx context.Context, destPath, root string, members []string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", destPath, err)
	}
	defer out.Close()

	gzWriter := gzip.NewWriter(out)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	for _, member := range members {
		memberPath := filepath.Join(root, member)
		err := filepath.Walk(memberPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			var linkname string
			if info.Mode()&os.ModeSymlink != 0 {
				if linkname, err = os.Readlink(path); err != nil {
					return fmt.Errorf("failed to read symlink %s: %w", path, err)
				}
			}

			header, err := tar.FileInfoHeader(info, linkname)
			if err != nil {
				return fmt.Errorf("failed to build tar header for %s: %w", path, err)
			}
			header.Name = filepath.ToSlash(relPath)

			if err := tarWriter.WriteHeader(header); err != nil {
				return fmt.Errorf("failed to write tar header for %s: %w", path, err)
			}

			if !info.Mode().IsRegular() {
				return nil
			}

			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer file.Close()

			if _, err := io.Copy(tarWriter, file); err != nil {
				return fmt.Errorf("failed to archive %s: %w", path, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to archive %s: %w", member, err)
		}
	}

	return nil
}

// TopLevelDir returns the name of the single top-level directory in dir.
// Archives like the Image Builder tarball wrap their content in one
// versioned directory; the caller renames it to a stable path.
func TopLevelDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}

	if len(dirs) != 1 {
		return "", fmt.Errorf("expected exactly one top-level directory in %s, found %d", dir, len(dirs))
	}
	return dirs[0], nil
}
