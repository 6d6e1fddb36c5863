package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func seedFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// =============================================================================
// Tar Round-Trip Tests
// =============================================================================

func TestCreateTarGzAndExtractTar(t *testing.T) {
	root := seedFiles(t, map[string]string{
		"staging_dir/host/bin/tool": "tool",
		"build_dir/target/obj.o":    "obj",
		"dl/source.tar.gz":          "ignored",
	})

	tarPath := filepath.Join(t.TempDir(), "builds.tar.gz")
	err := CreateTarGz(context.Background(), tarPath, root, []string{"staging_dir", "build_dir"})
	if err != nil {
		t.Fatalf("CreateTarGz failed: %v", err)
	}

	destDir := t.TempDir()
	if err := ExtractTar(context.Background(), tarPath, destDir); err != nil {
		t.Fatalf("ExtractTar failed: %v", err)
	}

	if got := readFile(t, filepath.Join(destDir, "staging_dir", "host", "bin", "tool")); got != "tool" {
		t.Errorf("staging_dir content: got %q, want %q", got, "tool")
	}
	if got := readFile(t, filepath.Join(destDir, "build_dir", "target", "obj.o")); got != "obj" {
		t.Errorf("build_dir content: got %q, want %q", got, "obj")
	}
	if _, err := os.Stat(filepath.Join(destDir, "dl")); !os.IsNotExist(err) {
		t.Error("unlisted member ended up in the archive")
	}
}

func TestCreateTarGz_PreservesSymlinks(t *testing.T) {
	root := seedFiles(t, map[string]string{"tree/file.txt": "data"})
	if err := os.Symlink("file.txt", filepath.Join(root, "tree", "link.txt")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	tarPath := filepath.Join(t.TempDir(), "tree.tar.gz")
	if err := CreateTarGz(context.Background(), tarPath, root, []string{"tree"}); err != nil {
		t.Fatalf("CreateTarGz failed: %v", err)
	}

	destDir := t.TempDir()
	if err := ExtractTar(context.Background(), tarPath, destDir); err != nil {
		t.Fatalf("ExtractTar failed: %v", err)
	}

	linkname, err := os.Readlink(filepath.Join(destDir, "tree", "link.txt"))
	if err != nil {
		t.Fatalf("symlink not restored: %v", err)
	}
	if linkname != "file.txt" {
		t.Errorf("got link target %q, want %q", linkname, "file.txt")
	}
}

func TestExtractTar_UnknownSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.rar")
	if err := os.WriteFile(path, []byte("not a tar"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := ExtractTar(context.Background(), path, t.TempDir()); err == nil {
		t.Error("expected error for unsupported archive suffix")
	}
}

type tarMember struct {
	name     string
	typeflag byte
	content  string
}

// writeTarGz builds a tarball with exactly the given members, the way
// "tar -czf x ." does with its leading "./" entries.
func writeTarGz(t *testing.T, members []tarMember) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hand.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create tarball: %v", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, m := range members {
		hdr := &tar.Header{
			Name:     m.name,
			Typeflag: m.typeflag,
			Mode:     0755,
			Size:     int64(len(m.content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write header %s: %v", m.name, err)
		}
		if m.typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(m.content)); err != nil {
				t.Fatalf("failed to write body %s: %v", m.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return path
}

func TestExtractTar_DotRootMember(t *testing.T) {
	tarPath := writeTarGz(t, []tarMember{
		{name: "./", typeflag: tar.TypeDir},
		{name: "./bin/", typeflag: tar.TypeDir},
		{name: "./bin/firmware.bin", typeflag: tar.TypeReg, content: "fw"},
	})

	destDir := t.TempDir()
	if err := ExtractTar(context.Background(), tarPath, destDir); err != nil {
		t.Fatalf("ExtractTar failed: %v", err)
	}
	if got := readFile(t, filepath.Join(destDir, "bin", "firmware.bin")); got != "fw" {
		t.Errorf("got %q, want %q", got, "fw")
	}
}

func TestExtractTar_RejectsEscapingMembers(t *testing.T) {
	tests := []struct {
		name   string
		member tarMember
	}{
		{"parent traversal", tarMember{name: "../evil.txt", typeflag: tar.TypeReg, content: "x"}},
		{"file named dot", tarMember{name: ".", typeflag: tar.TypeReg, content: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tarPath := writeTarGz(t, []tarMember{tt.member})
			if err := ExtractTar(context.Background(), tarPath, t.TempDir()); err == nil {
				t.Error("expected error for escaping member")
			}
		})
	}
}

// =============================================================================
// Zip Tests
// =============================================================================

func TestCreateZipAndExtractZipMember(t *testing.T) {
	src := filepath.Join(seedFiles(t, map[string]string{"openwrt-source.tar.gz": "payload"}), "openwrt-source.tar.gz")

	zipPath := filepath.Join(t.TempDir(), "artifact.zip")
	if err := CreateZip(zipPath, src, 0); err != nil {
		t.Fatalf("CreateZip failed: %v", err)
	}

	names, err := ZipMemberNames(zipPath)
	if err != nil {
		t.Fatalf("ZipMemberNames failed: %v", err)
	}
	if len(names) != 1 || names[0] != "openwrt-source.tar.gz" {
		t.Fatalf("got members %v, want [openwrt-source.tar.gz]", names)
	}

	destDir := t.TempDir()
	extracted, err := ExtractZipMember(zipPath, "openwrt-source.tar.gz", destDir)
	if err != nil {
		t.Fatalf("ExtractZipMember failed: %v", err)
	}
	if got := readFile(t, extracted); got != "payload" {
		t.Errorf("got %q, want %q", got, "payload")
	}
}

func TestCreateZip_CompressionMethod(t *testing.T) {
	tests := []struct {
		name  string
		level int
		want  uint16
	}{
		{"default deflates", 0, zip.Deflate},
		{"explicit level deflates", 6, zip.Deflate},
		{"negative level stores", -1, zip.Store},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := filepath.Join(seedFiles(t, map[string]string{"payload.bin": "payload"}), "payload.bin")
			zipPath := filepath.Join(t.TempDir(), "artifact.zip")
			if err := CreateZip(zipPath, src, tt.level); err != nil {
				t.Fatalf("CreateZip failed: %v", err)
			}

			r, err := zip.OpenReader(zipPath)
			if err != nil {
				t.Fatalf("failed to open zip: %v", err)
			}
			defer r.Close()
			if len(r.File) != 1 {
				t.Fatalf("got %d entries, want 1", len(r.File))
			}
			if got := r.File[0].Method; got != tt.want {
				t.Errorf("got zip method %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCreateZip_Directory(t *testing.T) {
	src := seedFiles(t, map[string]string{
		"a.ipk":     "a",
		"sub/b.ipk": "b",
	})

	zipPath := filepath.Join(t.TempDir(), "packages.zip")
	if err := CreateZip(zipPath, src, 6); err != nil {
		t.Fatalf("CreateZip failed: %v", err)
	}

	names, err := ZipMemberNames(zipPath)
	if err != nil {
		t.Fatalf("ZipMemberNames failed: %v", err)
	}
	want := map[string]bool{"a.ipk": true, "sub/b.ipk": true}
	if len(names) != len(want) {
		t.Fatalf("got members %v, want 2", names)
	}
	for _, name := range names {
		if !want[name] {
			t.Errorf("unexpected member %q", name)
		}
	}
}

func TestExtractZipMember_NotFound(t *testing.T) {
	src := filepath.Join(seedFiles(t, map[string]string{"a.txt": "a"}), "a.txt")
	zipPath := filepath.Join(t.TempDir(), "artifact.zip")
	if err := CreateZip(zipPath, src, 0); err != nil {
		t.Fatalf("CreateZip failed: %v", err)
	}

	if _, err := ExtractZipMember(zipPath, "missing.txt", t.TempDir()); err == nil {
		t.Error("expected error for missing member")
	}
}

func TestMergeZipFlat(t *testing.T) {
	src := seedFiles(t, map[string]string{
		"base/a.ipk": "new-a",
		"luci/b.ipk": "new-b",
	})
	zipPath := filepath.Join(t.TempDir(), "packages.zip")
	if err := CreateZip(zipPath, src, 0); err != nil {
		t.Fatalf("CreateZip failed: %v", err)
	}

	// Pre-existing files win over the archive's copy
	destDir := seedFiles(t, map[string]string{"a.ipk": "old-a"})
	if err := MergeZipFlat(zipPath, destDir); err != nil {
		t.Fatalf("MergeZipFlat failed: %v", err)
	}

	if got := readFile(t, filepath.Join(destDir, "a.ipk")); got != "old-a" {
		t.Errorf("existing file overwritten: got %q", got)
	}
	if got := readFile(t, filepath.Join(destDir, "b.ipk")); got != "new-b" {
		t.Errorf("flattened member: got %q, want %q", got, "new-b")
	}
}

// =============================================================================
// TopLevelDir Tests
// =============================================================================

func TestTopLevelDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "openwrt-imagebuilder-23.05.3"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	got, err := TopLevelDir(dir)
	if err != nil {
		t.Fatalf("TopLevelDir failed: %v", err)
	}
	if got != "openwrt-imagebuilder-23.05.3" {
		t.Errorf("got %q, want %q", got, "openwrt-imagebuilder-23.05.3")
	}
}

func TestTopLevelDir_Ambiguous(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one", "two"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
	}

	if _, err := TopLevelDir(dir); err == nil {
		t.Error("expected error for multiple top-level directories")
	}
}

func TestTopLevelDir_Empty(t *testing.T) {
	if _, err := TopLevelDir(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}
