package stages

import (
	"context"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/collect"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/openwrt"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/storage"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

// ImagesStage builds the flashable firmware images from the prepared
// Image Builder tree and uploads them.
type ImagesStage struct{}

func (s *ImagesStage) Name() JobName { return JobBuildImagesRelease }

func (s *ImagesStage) Execute(ctx context.Context, sc *StageContext) error {
	ib := openwrt.NewImageBuilder(sc.Workspace.ImageBuilderPath(), sc.Log)

	sc.Log.Info("收集镜像信息...")
	if err := ib.MakeInfo(ctx); err != nil {
		return err
	}
	if err := ib.MakeManifest(ctx); err != nil {
		return err
	}

	sc.Log.Info("开始构建镜像...")
	if err := ib.MakeImage(ctx); err != nil {
		return err
	}

	target, subtarget, err := ib.RequireTarget()
	if err != nil {
		return err
	}
	outDir := ib.TargetBinDir(target, subtarget)

	// An image build that produced nothing must fail here, not hand an
	// empty firmware artifact to the release job
	ok, err := collect.AnyMatch(outDir, collect.IsFirmwareFile)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrEmptyArtifact.WithMessagef("no firmware files under %s", outDir)
	}

	sc.Log.Info("准备上传...")
	return sc.Store.Upload(ctx, firmwareArtifact(sc.Cfg), outDir, storage.UploadOptions{
		RetentionDays:    artifactRetentionDays,
		CompressionLevel: storage.CompressionStore,
	})
}
