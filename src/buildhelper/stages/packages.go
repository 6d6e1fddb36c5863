package stages

import (
	"context"
	"path/filepath"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/collect"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/openwrt"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/storage"
)

// PackagesStage compiles the configured packages on top of the restored
// base build and uploads the built package files.
type PackagesStage struct{}

func (s *PackagesStage) Name() JobName { return JobBuildPackages }

func (s *PackagesStage) Execute(ctx context.Context, sc *StageContext) error {
	tree := openwrt.NewTree(sc.Workspace.OpenWrtPath(), sc.Log)

	sc.Log.Info("下载编译所需源码...")
	if err := tree.DownloadSource(ctx, ""); err != nil {
		return err
	}

	sc.Log.Info("开始编译软件包...")
	if err := tree.Make(ctx, "package/compile"); err != nil {
		return err
	}

	sc.Log.Info("开始生成软件包...")
	if err := tree.Make(ctx, "package/install"); err != nil {
		return err
	}

	sc.Log.Info("整理软件包...")
	packagesDir := filepath.Join(sc.Workspace.Uploads, "packages")
	if _, err := collect.Into(tree.BinDir(), packagesDir, collect.IsPackage); err != nil {
		return err
	}

	err := sc.Store.Upload(ctx, packagesArtifact(sc.Cfg), packagesDir, storage.UploadOptions{
		RetentionDays: artifactRetentionDays,
	})
	if err != nil {
		return err
	}

	return deleteStaleCaches(ctx, sc, tree)
}
