package stages

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/collect"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/openwrt"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/storage"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

// ImageBuilderStage produces the Image Builder archive plus the kmod
// package set. It compiles every kmod but no other packages and disables
// image generation, then lets target/install emit the Image Builder.
type ImageBuilderStage struct{}

func (s *ImageBuilderStage) Name() JobName { return JobBuildImageBuilder }

func (s *ImageBuilderStage) Execute(ctx context.Context, sc *StageContext) error {
	tree := openwrt.NewTree(sc.Workspace.OpenWrtPath(), sc.Log)

	sc.Log.Info("修改配置(设置编译所有kmod/取消编译其他软件包/取消生成镜像/)...")
	if err := tree.EnableAllKmods(sc.Cfg.Compile.KmodCompileExcludeList, true); err != nil {
		return err
	}
	if err := tree.DisableImageFormats(); err != nil {
		return err
	}
	if err := tree.Defconfig(ctx); err != nil {
		return err
	}

	sc.Log.Info("下载编译所需源码...")
	if err := tree.DownloadSource(ctx, ""); err != nil {
		return err
	}

	sc.Log.Info("开始编译软件包...")
	if err := tree.Make(ctx, "package/compile"); err != nil {
		return err
	}
	if err := tree.Make(ctx, "package/install"); err != nil {
		return err
	}

	sc.Log.Info("制作Image Builder包...")
	if err := tree.Make(ctx, "target/install"); err != nil {
		return err
	}

	sc.Log.Info("制作包索引、镜像概述信息并计算校验和...")
	if err := tree.Make(ctx, "package/index"); err != nil {
		return err
	}
	if err := tree.Make(ctx, "json_overview_image_info"); err != nil {
		return err
	}
	if err := tree.Make(ctx, "checksum"); err != nil {
		return err
	}

	sc.Log.Info("整理kmods...")
	kmodsDir := filepath.Join(sc.Workspace.Uploads, "kmods")
	if _, err := collect.Into(tree.BinDir(), kmodsDir, collect.IsKmodPackage); err != nil {
		return err
	}
	err := sc.Store.Upload(ctx, kmodsArtifact(sc.Cfg), kmodsDir, storage.UploadOptions{
		RetentionDays: artifactRetentionDays,
	})
	if err != nil {
		return err
	}

	target, subtarget, err := tree.RequireTarget()
	if err != nil {
		return err
	}

	ibPath, err := collect.FindFirst(tree.TargetBinDir(target, subtarget), func(name string) bool {
		return collect.IsImageBuilderArchive(name, target, subtarget)
	})
	if err != nil {
		return err
	}
	if ibPath == "" {
		return errors.ErrOutputNotFound.WithMessagef(
			"no image builder archive under %s", tree.TargetBinDir(target, subtarget))
	}

	// Preserve the compression the build system chose (zst or xz) but
	// pin the rest of the name, so downstream jobs need not know the
	// version string baked into the original file name
	ext := filepath.Base(ibPath)
	ext = ext[strings.LastIndex(ext, ".tar.")+len(".tar."):]
	destPath := filepath.Join(sc.Workspace.Uploads, "openwrt-imagebuilder.tar."+ext)
	if err := os.Rename(ibPath, destPath); err != nil {
		return err
	}

	err = sc.Store.Upload(ctx, imageBuilderArtifact(sc.Cfg), destPath, storage.UploadOptions{
		RetentionDays:    artifactRetentionDays,
		CompressionLevel: storage.CompressionStore,
	})
	if err != nil {
		return err
	}

	return deleteStaleCaches(ctx, sc, tree)
}
