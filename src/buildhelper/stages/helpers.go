package stages

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/cachekey"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/openwrt"
)

// restoreKey builds the cache restore key for the current job and tree.
func restoreKey(sc *StageContext, tree *openwrt.Tree) (string, error) {
	jobPrefix, ok := cachekey.JobPrefix(sc.Runner.Job)
	if !ok {
		return "", fmt.Errorf("job %q has no cache key prefix", sc.Runner.Job)
	}

	target, subtarget, err := tree.Target()
	if err != nil {
		return "", err
	}

	return cachekey.Restore(jobPrefix, sc.Cfg.Compile.OpenWrtTagBranch, sc.Cfg.Name, target, subtarget), nil
}

// deleteStaleCaches drops every cache entry under the job's restore key
// except the one this run just wrote. Runs after a successful rebuild so
// a failed build never loses its last good cache.
func deleteStaleCaches(ctx context.Context, sc *StageContext, tree *openwrt.Tree) error {
	key, err := restoreKey(sc, tree)
	if err != nil {
		return err
	}

	sc.Log.Info("删除旧缓存...")
	deleted, err := sc.Cache.DeleteStale(ctx, key, cachekey.Exact(key, sc.Runner.RunID))
	if err != nil {
		return err
	}
	sc.Log.Debug("已删除过期缓存", "restore_key", key, "count", deleted)
	return nil
}

// copyDir copies a directory tree. Symlinks are copied as links; the
// files/ overlay ships device configs that rely on them.
func copyDir(srcDir, destDir string) error {
	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(destDir, relPath)

		switch {
		case info.IsDir():
			return os.MkdirAll(destPath, info.Mode().Perm())

		case info.Mode()&os.ModeSymlink != 0:
			linkname, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.Remove(destPath)
			return os.Symlink(linkname, destPath)

		case info.Mode().IsRegular():
			return copyFile(path, destPath, info.Mode().Perm())
		}
		return nil
	})
}

func copyFile(srcPath, destPath string, perm os.FileMode) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
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
