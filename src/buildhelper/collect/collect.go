// Package collect classifies and gathers build outputs by filename. The
// predicates are pure so the selection rules stay testable without a
// build tree on disk.
package collect

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// IsPackage reports whether name looks like an installable package file.
func IsPackage(name string) bool {
	return strings.HasSuffix(name, ".ipk") || strings.HasSuffix(name, ".apk")
}

// IsKmodPackage reports whether name is a kernel module package.
func IsKmodPackage(name string) bool {
	return strings.HasPrefix(name, "kmod-") && IsPackage(name)
}

// firmwareSuffixes are the file endings that count as firmware output.
var firmwareSuffixes = []string{".bin", ".ubi", ".itb", ".manifest"}

// firmwareNames are exact output names that ship alongside the images.
var firmwareNames = map[string]bool{
	"profiles.json": true,
	"sha256sums":    true,
}

// IsFirmwareFile reports whether name belongs in a firmware artifact.
func IsFirmwareFile(name string) bool {
	if firmwareNames[name] {
		return true
	}
	for _, suffix := range firmwareSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// IsImageBuilderArchive reports whether name is the Image Builder tarball
// for the given target/subtarget.
func IsImageBuilderArchive(name, target, subtarget string) bool {
	if !strings.Contains(name, "-imagebuilder-") {
		return false
	}
	if !strings.Contains(name, fmt.Sprintf("%s-%s.Linux-x86_64.tar.", target, subtarget)) {
		return false
	}
	return true
}

// Into walks root and copies every file matching the predicate into
// destDir, flattened to its base name. Files whose name already exists in
// destDir are skipped. Returns the copied file names.
func Into(root, destDir string, match func(name string) bool) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	var copied []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() || !match(info.Name()) {
			return nil
		}

		destPath := filepath.Join(destDir, info.Name())
		if _, err := os.Stat(destPath); err == nil {
			return nil
		}

		if err := copyFile(path, destPath); err != nil {
			return err
		}
		copied = append(copied, info.Name())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect from %s: %w", root, err)
	}
	return copied, nil
}

// FindFirst returns the first file in dir whose name matches the
// predicate, in lexical order.
func FindFirst(dir string, match func(name string) bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && match(entry.Name()) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", nil
}

// AnyMatch reports whether dir directly holds a file matching the predicate.
func AnyMatch(dir string, match func(name string) bool) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && match(entry.Name()) {
			return true, nil
		}
	}
	return false, nil
}

func copyFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to copy %s: %w", srcPath, err)
	}
	return nil
}
