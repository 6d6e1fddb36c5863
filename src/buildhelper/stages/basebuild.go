package stages

import (
	"context"
	"path/filepath"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/actions"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/archive"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/openwrt"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/storage"
)

// BaseBuildStage compiles the toolchain and the kernel and archives the
// resulting staging_dir and build_dir for the downstream compile jobs.
type BaseBuildStage struct{}

func (s *BaseBuildStage) Name() JobName { return JobBaseBuilds }

func (s *BaseBuildStage) Execute(ctx context.Context, sc *StageContext) error {
	tree := openwrt.NewTree(sc.Workspace.OpenWrtPath(), sc.Log)

	// ccache sits inside build_dir, which the toolchain clean step wipes.
	// Park it outside the tree and bring it back before kernel compile.
	ccacheStash, err := tree.StashCcache(sc.Workspace.Tmp)
	if err != nil {
		return err
	}

	sc.Log.Info("修改配置(设置编译所有kmod)...")
	if err := tree.EnableAllKmods(sc.Cfg.Compile.KmodCompileExcludeList, false); err != nil {
		return err
	}

	if !actions.CacheHit() {
		sc.Log.Info("下载编译工具链所需源码...")
		if err := tree.DownloadSource(ctx, "tools/download"); err != nil {
			return err
		}
		if err := tree.DownloadSource(ctx, "target/prereq"); err != nil {
			return err
		}
		if err := tree.DownloadSource(ctx, "toolchain/download"); err != nil {
			return err
		}

		sc.Log.Info("开始编译tools...")
		if err := tree.Make(ctx, "tools/install"); err != nil {
			return err
		}

		sc.Log.Info("开始编译toolchain...")
		if err := tree.Make(ctx, "toolchain/install"); err != nil {
			return err
		}

		sc.Log.Info("正在清理...")
		if err := tree.Make(ctx, "clean"); err != nil {
			return err
		}
	}

	sc.Log.Info("下载编译内核所需源码...")
	if err := tree.DownloadSource(ctx, "target/download"); err != nil {
		return err
	}

	if err := tree.RestoreCcache(ccacheStash); err != nil {
		return err
	}

	sc.Log.Info("开始编译内核...")
	if err := tree.Make(ctx, "target/compile"); err != nil {
		return err
	}

	sc.Log.Info("归档文件...")
	tarPath := filepath.Join(sc.Workspace.Uploads, "builds.tar.gz")
	if err := archive.CreateTarGz(ctx, tarPath, tree.Path, []string{"staging_dir", "build_dir"}); err != nil {
		return err
	}

	// The tarball is already gzipped; a second compression pass inside
	// the artifact zip only burns CPU
	err = sc.Store.Upload(ctx, baseBuildsArtifact(sc.Cfg), tarPath, storage.UploadOptions{
		RetentionDays:    artifactRetentionDays,
		CompressionLevel: storage.CompressionStore,
	})
	if err != nil {
		return err
	}

	return deleteStaleCaches(ctx, sc, tree)
}
