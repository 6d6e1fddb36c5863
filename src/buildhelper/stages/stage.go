// Package stages implements the CI pipeline stages. Each stage is a
// linear sequence of file and subprocess operations; state crosses stage
// boundaries only through uploaded artifacts and cache keys, so a failed
// stage is simply re-run by the CI platform.
package stages

import (
	"context"
	"strings"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/actions"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/config"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/storage"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/logs"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/paths"
)

// JobName enumerates the workflow jobs the helper knows. The set is
// closed: a job name outside it is a configuration error, never a no-op.
type JobName string

const (
	JobBaseBuilds         JobName = "base-builds"
	JobBuildPackages      JobName = "build-packages"
	JobBuildImageBuilder  JobName = "build-ImageBuilder"
	JobBuildImagesRelease JobName = "build-images-releases"
)

// knownJobs holds every job in dispatch-priority order. Longer names come
// first so prefix matching can never pick a shorter sibling by accident.
var knownJobs = []JobName{
	JobBuildImagesRelease,
	JobBuildImageBuilder,
	JobBuildPackages,
	JobBaseBuilds,
}

// ParseJobName maps a workflow job string onto the closed job set. Matrix
// jobs carry display suffixes ("base-builds (stock)"), so an exact match
// is tried first and a prefix match second.
func ParseJobName(job string) (JobName, error) {
	for _, known := range knownJobs {
		if job == string(known) {
			return known, nil
		}
	}
	for _, known := range knownJobs {
		if strings.HasPrefix(job, string(known)) {
			return known, nil
		}
	}
	return "", errors.ErrUnknownJob.WithMessagef("未知的工作流 %s", job)
}

// IsCompileJob reports whether the job drives the OpenWrt build system
// directly (and therefore participates in build caching).
func (j JobName) IsCompileJob() bool {
	switch j {
	case JobBaseBuilds, JobBuildPackages, JobBuildImageBuilder:
		return true
	}
	return false
}

// StageContext holds everything a stage needs, constructed once per
// invocation. Stages never reach for ambient globals; the context is the
// whole world.
type StageContext struct {
	// Cfg is the build configuration record
	Cfg *config.Build

	// Runner is the CI environment this job executes in
	Runner *actions.Context

	// Workspace is the on-disk layout
	Workspace *paths.Workspace

	// Store exchanges artifacts with the next/previous job
	Store storage.Store

	// Cache invalidates stale Actions cache entries
	Cache *actions.CacheClient

	// Log is the stage logger
	Log *logs.Logger
}

// Stage is one pipeline stage. Execute either completes or returns the
// fatal error that aborts the job; there is no retry and no partial
// recovery in-process.
type Stage interface {
	// Name returns the stage name for logs and dispatch
	Name() JobName

	// Execute runs the stage to completion
	Execute(ctx context.Context, sc *StageContext) error
}

// ForJob returns the build stage that the given job runs after prepare.
// The switch is exhaustive over the closed job set.
func ForJob(job JobName) (Stage, error) {
	switch job {
	case JobBaseBuilds:
		return &BaseBuildStage{}, nil
	case JobBuildPackages:
		return &PackagesStage{}, nil
	case JobBuildImageBuilder:
		return &ImageBuilderStage{}, nil
	case JobBuildImagesRelease:
		return &ImagesStage{}, nil
	default:
		return nil, errors.ErrUnknownJob.WithMessagef("未知的工作流 %s", job)
	}
}

// Artifact name builders. These strings are the contract with the
// workflow definition; changing one breaks artifact hand-off between jobs.
func sourceArtifact(cfg *config.Build) string       { return "openwrt-source-" + cfg.Name }
func baseBuildsArtifact(cfg *config.Build) string   { return "base-builds-" + cfg.Name }
func packagesArtifact(cfg *config.Build) string     { return "packages-" + cfg.Name }
func imageBuilderArtifact(cfg *config.Build) string { return "Image_Builder-" + cfg.Name }
func kmodsArtifact(cfg *config.Build) string        { return "kmods-" + cfg.Name }
func firmwareArtifact(cfg *config.Build) string     { return "firmware-" + cfg.Name }

// artifactRetentionDays is the fixed retention for every pipeline
// artifact; each one only needs to survive until the next job consumes it.
const artifactRetentionDays = 1
