// Package openwrt wraps an OpenWrt/ImmortalWrt build tree. All real
// engineering lives in the external build system; this package only knows
// where the tree is, how to invoke its make targets, and how to read and
// rewrite its .config.
package openwrt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/logs"
)

// Tree is a checked-out OpenWrt source tree.
type Tree struct {
	// Path is the tree root
	Path string

	log *logs.Logger

	// jobs is the -j value passed to make
	jobs int
}

// NewTree wraps the build tree at path.
func NewTree(path string, log *logs.Logger) *Tree {
	return &Tree{
		Path: path,
		log:  log,
		jobs: runtime.NumCPU(),
	}
}

// ConfigPath returns the path of the tree's .config file.
func (t *Tree) ConfigPath() string {
	return filepath.Join(t.Path, ".config")
}

// BinDir returns the tree's output directory.
func (t *Tree) BinDir() string {
	return filepath.Join(t.Path, "bin")
}

// TargetBinDir returns the firmware output directory for target/subtarget.
func (t *Tree) TargetBinDir(target, subtarget string) string {
	return filepath.Join(t.Path, "bin", "targets", target, subtarget)
}

// Make runs one make target inside the tree. The external tool's exit
// status is the only success signal; on failure the captured stderr tail
// is folded into the error and the stage dies with it.
func (t *Tree) Make(ctx context.Context, target string) error {
	return t.run(ctx, "make", fmt.Sprintf("-j%d", t.jobs), target)
}

// DownloadSource fetches the sources a make target needs. An empty target
// downloads everything the current .config selects.
func (t *Tree) DownloadSource(ctx context.Context, target string) error {
	if target == "" {
		target = "download"
	}
	return t.run(ctx, "make", fmt.Sprintf("-j%d", t.jobs), target)
}

// Defconfig regenerates the full .config from the current seed.
func (t *Tree) Defconfig(ctx context.Context) error {
	return t.run(ctx, "make", "defconfig")
}

// run executes a command in the tree root, streaming output to the logger.
func (t *Tree) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = t.Path
	cmd.Env = os.Environ()

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)

	t.log.Debug("运行命令", "cmd", name, "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		return errors.ErrMakeFailed.
			WithMessagef("%s %s: %v\nstderr: %s", name, strings.Join(args, " "), err, tail(stderr.String(), 2048)).
			WithCause(err)
	}
	return nil
}

// tail returns at most n trailing bytes of s.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Config value patterns: CONFIG_TARGET_BOARD="qualcommax"
var (
	targetBoardRe     = regexp.MustCompile(`(?m)^CONFIG_TARGET_BOARD="(.*)"$`)
	targetSubtargetRe = regexp.MustCompile(`(?m)^CONFIG_TARGET_SUBTARGET="(.*)"$`)
)

// Target reads the target and subtarget names from the tree's .config.
// Either value may be empty when the config does not carry it.
func (t *Tree) Target() (target, subtarget string, err error) {
	data, err := os.ReadFile(t.ConfigPath())
	if err != nil {
		return "", "", fmt.Errorf("failed to read .config: %w", err)
	}

	if m := targetBoardRe.FindSubmatch(data); m != nil {
		target = string(m[1])
	}
	if m := targetSubtargetRe.FindSubmatch(data); m != nil {
		subtarget = string(m[1])
	}
	return target, subtarget, nil
}

// RequireTarget reads target/subtarget and fails when either is missing.
func (t *Tree) RequireTarget() (string, string, error) {
	target, subtarget, err := t.Target()
	if err != nil {
		return "", "", err
	}
	if target == "" || subtarget == "" {
		return "", "", errors.ErrMissingTarget
	}
	return target, subtarget, nil
}

// ccacheDir returns the tree's ccache directory.
func (t *Tree) ccacheDir() string {
	return filepath.Join(t.Path, ".ccache")
}

// StashCcache moves the restored .ccache directory out of the way so the
// toolchain build cannot clobber it, returning the stash path (empty when
// there was nothing to stash).
func (t *Tree) StashCcache(tmpBase string) (string, error) {
	ccachePath := t.ccacheDir()
	if _, err := os.Stat(ccachePath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat ccache: %w", err)
	}

	stash, err := os.MkdirTemp(tmpBase, "ccache-")
	if err != nil {
		return "", fmt.Errorf("failed to create ccache stash: %w", err)
	}
	// os.Rename requires a non-existent target
	os.Remove(stash)

	if err := os.Rename(ccachePath, stash); err != nil {
		return "", fmt.Errorf("failed to stash ccache: %w", err)
	}
	return stash, nil
}

// RestoreCcache moves a stashed ccache directory back into the tree,
// replacing whatever the toolchain build left there.
func (t *Tree) RestoreCcache(stash string) error {
	if stash == "" {
		return nil
	}

	ccachePath := t.ccacheDir()
	if _, err := os.Stat(ccachePath); err == nil {
		if err := os.RemoveAll(ccachePath); err != nil {
			return fmt.Errorf("failed to remove stale ccache: %w", err)
		}
	}

	if err := os.Rename(stash, ccachePath); err != nil {
		return fmt.Errorf("failed to restore ccache: %w", err)
	}
	return nil
}
