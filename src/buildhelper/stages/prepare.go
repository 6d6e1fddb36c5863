package stages

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/archive"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/cachekey"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/openwrt"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/paths"
)

// PrepareStage is the stage dispatcher: it inspects the workflow job name,
// restores the job's input artifacts into the workspace, and publishes the
// cache keys and paths the rest of the job consumes. It runs inside every
// job before the job's build stage, so it is not itself a member of the
// job set and is invoked directly rather than through ForJob.
type PrepareStage struct{}

// Execute restores inputs and publishes outputs for the current job.
func (s *PrepareStage) Execute(ctx context.Context, sc *StageContext) error {
	job, err := ParseJobName(sc.Runner.Job)
	if err != nil {
		return err
	}
	sc.Log.Debug("job", "name", sc.Runner.Job)

	if err := openwrt.RequireHostDeps(job.IsCompileJob()); err != nil {
		return err
	}

	tmpDir, err := sc.Workspace.TmpDir("prepare-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	sc.Log.Info("还原openwrt源码...")
	sourceZip, err := sc.Store.Download(ctx, sourceArtifact(sc.Cfg), tmpDir)
	if err != nil {
		return err
	}
	sourceTar, err := archive.ExtractZipMember(sourceZip, "openwrt-source.tar.gz", tmpDir)
	if err != nil {
		return err
	}
	if err := archive.ExtractTar(ctx, sourceTar, sc.Workspace.Workdir); err != nil {
		return err
	}
	tree := openwrt.NewTree(sc.Workspace.OpenWrtPath(), sc.Log)

	switch job {
	case JobBaseBuilds:
		if err := s.publishToolchainKey(tree, sc); err != nil {
			return err
		}

	case JobBuildPackages, JobBuildImageBuilder:
		if err := s.restoreBaseBuilds(ctx, sc, tree, tmpDir); err != nil {
			return err
		}

	case JobBuildImagesRelease:
		if err := s.restoreImageBuilder(ctx, sc, tree, tmpDir); err != nil {
			return err
		}

	default:
		return errors.ErrUnknownJob.WithMessagef("未知的工作流 %s", sc.Runner.Job)
	}

	if job.IsCompileJob() {
		key, err := restoreKey(sc, tree)
		if err != nil {
			return err
		}
		if err := sc.Runner.SetOutput("cache-key", cachekey.Exact(key, sc.Runner.RunID)); err != nil {
			return err
		}
		if err := sc.Runner.SetOutput("cache-restore-key", key); err != nil {
			return err
		}
	}
	if err := sc.Runner.SetOutput("use-cache", strconv.FormatBool(sc.Cfg.Compile.UseCache)); err != nil {
		return err
	}
	return sc.Runner.SetOutput("openwrt-path", tree.Path)
}

// publishToolchainKey hashes the toolchain source inputs and publishes the
// toolchain cache key.
func (s *PrepareStage) publishToolchainKey(tree *openwrt.Tree, sc *StageContext) error {
	sc.Log.Info("构建toolchain缓存key...")

	hash, err := cachekey.HashDirs(
		filepath.Join(tree.Path, "tools"),
		filepath.Join(tree.Path, "toolchain"),
	)
	if err != nil {
		return err
	}

	target, subtarget, err := tree.Target()
	if err != nil {
		return err
	}

	return sc.Runner.SetOutput("toolchain-key", cachekey.Toolchain(hash, target, subtarget))
}

// restoreBaseBuilds replaces the tree's staging/build dirs with the output
// of the base-build job. A stale staging_dir from the source archive is
// removed first so extraction never merges two toolchain generations.
func (s *PrepareStage) restoreBaseBuilds(ctx context.Context, sc *StageContext, tree *openwrt.Tree, tmpDir string) error {
	stagingDir := filepath.Join(tree.Path, "staging_dir")
	if paths.Exists(stagingDir) {
		if err := os.RemoveAll(stagingDir); err != nil {
			return err
		}
	}

	buildsZip, err := sc.Store.Download(ctx, baseBuildsArtifact(sc.Cfg), tmpDir)
	if err != nil {
		return err
	}
	buildsTar, err := archive.ExtractZipMember(buildsZip, "builds.tar.gz", tmpDir)
	if err != nil {
		return err
	}
	return archive.ExtractTar(ctx, buildsTar, tree.Path)
}

// restoreImageBuilder extracts the Image Builder tree and seeds it with
// the built packages, the files/ overlay, and the build's .config.
func (s *PrepareStage) restoreImageBuilder(ctx context.Context, sc *StageContext, tree *openwrt.Tree, tmpDir string) error {
	ibZip, err := sc.Store.Download(ctx, imageBuilderArtifact(sc.Cfg), tmpDir)
	if err != nil {
		return err
	}

	// The packaging stage ships the tarball as zstd or xz depending on
	// what the build system produced
	members, err := archive.ZipMemberNames(ibZip)
	if err != nil {
		return err
	}
	member := "openwrt-imagebuilder.tar.xz"
	for _, name := range members {
		if name == "openwrt-imagebuilder.tar.zst" {
			member = name
			break
		}
	}

	ibTar, err := archive.ExtractZipMember(ibZip, member, tmpDir)
	if err != nil {
		return err
	}

	extractDir := filepath.Join(tmpDir, "imagebuilder")
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return err
	}
	if err := archive.ExtractTar(ctx, ibTar, extractDir); err != nil {
		return err
	}

	// The tarball wraps everything in one versioned directory; move it to
	// the stable path the image stage expects
	topDir, err := archive.TopLevelDir(extractDir)
	if err != nil {
		return err
	}
	ibPath := sc.Workspace.ImageBuilderPath()
	if err := os.RemoveAll(ibPath); err != nil {
		return err
	}
	if err := os.Rename(filepath.Join(extractDir, topDir), ibPath); err != nil {
		return err
	}

	ib := openwrt.NewImageBuilder(ibPath, sc.Log)

	pkgsZip, err := sc.Store.Download(ctx, packagesArtifact(sc.Cfg), tmpDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(ib.PackagesDir(), 0755); err != nil {
		return err
	}
	if err := archive.MergeZipFlat(pkgsZip, ib.PackagesDir()); err != nil {
		return err
	}

	filesDir := filepath.Join(tree.Path, "files")
	if paths.IsDir(filesDir) {
		if err := copyDir(filesDir, ib.FilesDir()); err != nil {
			return err
		}
	}

	if err := os.Remove(ib.ConfigPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return copyFile(tree.ConfigPath(), ib.ConfigPath(), 0644)
}
