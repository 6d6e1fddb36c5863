package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace describes the fixed directory layout every stage works in.
// All state that crosses job boundaries lives under Uploads (outgoing
// artifacts) or Workdir (the restored build tree); Tmp holds per-stage
// scratch directories that are safe to lose.
type Workspace struct {
	// Root is the workspace base, usually GITHUB_WORKSPACE
	Root string
	// Workdir is where source trees are restored and built
	Workdir string
	// Uploads collects files and directories staged for artifact upload
	Uploads string
	// Tmp is the base for scratch directories
	Tmp string
}

// NewWorkspace builds the workspace layout rooted at root. When root is
// empty, GITHUB_WORKSPACE is used, falling back to the current directory.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = os.Getenv("GITHUB_WORKSPACE")
	}
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine workspace root: %w", err)
		}
		root = cwd
	}

	ws := &Workspace{
		Root:    root,
		Workdir: filepath.Join(root, "workdir"),
		Uploads: filepath.Join(root, "uploads"),
		Tmp:     filepath.Join(root, "tmp"),
	}

	for _, dir := range []string{ws.Workdir, ws.Uploads, ws.Tmp} {
		if err := EnsureDirPath(dir); err != nil {
			return nil, fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}

	return ws, nil
}

// TmpDir creates a fresh scratch directory under the workspace tmp base.
func (w *Workspace) TmpDir(pattern string) (string, error) {
	dir, err := os.MkdirTemp(w.Tmp, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

// OpenWrtPath returns the location of the restored OpenWrt checkout.
func (w *Workspace) OpenWrtPath() string {
	return filepath.Join(w.Workdir, "openwrt")
}

// ImageBuilderPath returns the location of the extracted Image Builder tree.
func (w *Workspace) ImageBuilderPath() string {
	return filepath.Join(w.Workdir, "ImageBuilder")
}
