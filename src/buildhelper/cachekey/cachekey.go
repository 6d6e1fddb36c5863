// Package cachekey builds the Actions cache keys that keep unrelated
// build configurations from ever sharing a toolchain cache. All functions
// are pure; the only inputs are strings and directory trees.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Restore builds the cache restore key for a job type. Target and
// subtarget are appended only when known, so the key degrades gracefully
// on configs without target metadata while staying unique per tuple.
func Restore(jobPrefix, tagBranch, name, target, subtarget string) string {
	key := fmt.Sprintf("%s-%s-%s", jobPrefix, tagBranch, name)
	if target != "" {
		key += "-" + target
	}
	if subtarget != "" {
		key += "-" + subtarget
	}
	return key
}

// Exact builds the per-run cache key from a restore key. Folding the run
// ID in means every run writes its own entry while still restoring from
// the newest entry under the restore prefix.
func Exact(restoreKey, runID string) string {
	return restoreKey + "-" + runID
}

// Toolchain builds the toolchain cache key from the source content hash.
func Toolchain(hash, target, subtarget string) string {
	key := "toolchain-" + hash
	if target != "" {
		key += "-" + target
	}
	if subtarget != "" {
		key += "-" + subtarget
	}
	return key
}

// HashDirs computes a deterministic content hash over the given directory
// trees. The hash folds in each file's tree-relative path and content in
// sorted order, so it changes exactly when any input file changes, moves,
// appears, or disappears.
func HashDirs(dirs ...string) (string, error) {
	hasher := sha256.New()

	for _, dir := range dirs {
		var files []string
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.Mode().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to walk %s: %w", dir, err)
		}

		sort.Strings(files)

		for _, path := range files {
			relPath, err := filepath.Rel(dir, path)
			if err != nil {
				return "", err
			}
			// Prefix the tree name so moving a file between trees changes the hash
			io.WriteString(hasher, filepath.Base(dir)+"/"+filepath.ToSlash(relPath)+"\x00")

			file, err := os.Open(path)
			if err != nil {
				return "", fmt.Errorf("failed to open %s: %w", path, err)
			}
			if _, err := io.Copy(hasher, file); err != nil {
				file.Close()
				return "", fmt.Errorf("failed to hash %s: %w", path, err)
			}
			file.Close()
			io.WriteString(hasher, "\x00")
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// JobPrefix derives the cache key prefix from a workflow job name. Matrix
// jobs carry suffixes ("base-builds (stock)"), so the prefix match is the
// contract, not equality.
func JobPrefix(job string) (string, bool) {
	for _, prefix := range []string{"base-builds", "build-packages", "build-ImageBuilder"} {
		if strings.HasPrefix(job, prefix) {
			return prefix, true
		}
	}
	return "", false
}
