package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExtractZipMember extracts a single named member of a zip archive into
// destDir and returns the extracted file path.
func ExtractZipMember(zipPath, member, destDir string) (string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open zip %s: %w", zipPath, err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if f.Name != member {
			continue
		}

		src, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open zip member %s: %w", member, err)
		}
		defer src.Close()

		destPath := filepath.Join(destDir, filepath.Base(member))
		dst, err := os.Create(destPath)
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", destPath, err)
		}
		defer dst.Close()

		if _, err := io.Copy(dst, src); err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", member, err)
		}
		return destPath, nil
	}

	return "", fmt.Errorf("member %s not found in %s", member, zipPath)
}

// ZipMemberNames returns the member names of a zip archive.
func ZipMemberNames(zipPath string) ([]string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip %s: %w", zipPath, err)
	}
	defer reader.Close()

	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// MergeZipFlat extracts every regular member of a zip archive into destDir,
// flattening directory structure to the member's base name. Existing files
// are kept, so packages already shipped with the destination win over the
// archive's copy.
func MergeZipFlat(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open zip %s: %w", zipPath, err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}

		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		if _, err := os.Stat(destPath); err == nil {
			continue
		}

		if err := extractZipFile(f, destPath); err != nil {
			return err
		}
	}

	return nil
}

func extractZipFile(f *zip.File, destPath string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip member %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}

// CreateZip packs srcPath (a file or a directory tree) into a zip archive
// at destPath. A negative compressionLevel stores entries uncompressed,
// which is what already-compressed payloads like tarballs want; any other
// value deflates.
func CreateZip(destPath, srcPath string, compressionLevel int) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create zip %s: %w", destPath, err)
	}
	defer out.Close()

	zipWriter := zip.NewWriter(out)
	defer zipWriter.Close()

	method := zip.Deflate
	if compressionLevel < 0 {
		method = zip.Store
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	if !info.IsDir() {
		return addZipEntry(zipWriter, srcPath, filepath.Base(srcPath), method)
	}

	return filepath.Walk(srcPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		relPath, err := filepath.Rel(srcPath, path)
		if err != nil {
			return err
		}
		return addZipEntry(zipWriter, path, filepath.ToSlash(relPath), method)
	})
}

func addZipEntry(zipWriter *zip.Writer, path, name string, method uint16) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	writer, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: method,
	})
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", name, err)
	}

	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", name, err)
	}
	return nil
}
