package stages

import (
	"testing"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/config"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

// =============================================================================
// Job Name Parsing Tests
// =============================================================================

func TestParseJobName(t *testing.T) {
	tests := []struct {
		job     string
		want    JobName
		wantErr bool
	}{
		{"base-builds", JobBaseBuilds, false},
		{"base-builds (stock)", JobBaseBuilds, false},
		{"build-packages", JobBuildPackages, false},
		{"build-packages (xiaomi_ax3600-stock)", JobBuildPackages, false},
		{"build-ImageBuilder", JobBuildImageBuilder, false},
		{"build-images-releases", JobBuildImagesRelease, false},
		{"build-images-releases (stock)", JobBuildImagesRelease, false},
		{"deploy", "", true},
		{"", "", true},
		{"base", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.job, func(t *testing.T) {
			got, err := ParseJobName(tt.job)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.job)
				}
				if !errors.Is(err, errors.ErrUnknownJob) {
					t.Errorf("got %v, want ErrUnknownJob", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseJobName(%q) failed: %v", tt.job, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJobName_IsCompileJob(t *testing.T) {
	tests := []struct {
		job  JobName
		want bool
	}{
		{JobBaseBuilds, true},
		{JobBuildPackages, true},
		{JobBuildImageBuilder, true},
		{JobBuildImagesRelease, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.job), func(t *testing.T) {
			if got := tt.job.IsCompileJob(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Stage Dispatch Tests
// =============================================================================

func TestForJob(t *testing.T) {
	for _, job := range knownJobs {
		t.Run(string(job), func(t *testing.T) {
			stage, err := ForJob(job)
			if err != nil {
				t.Fatalf("ForJob(%q) failed: %v", job, err)
			}
			if stage.Name() != job {
				t.Errorf("stage name: got %q, want %q", stage.Name(), job)
			}
		})
	}
}

func TestForJob_Unknown(t *testing.T) {
	if _, err := ForJob(JobName("deploy")); !errors.Is(err, errors.ErrUnknownJob) {
		t.Errorf("got %v, want ErrUnknownJob", err)
	}
}

// =============================================================================
// Artifact Naming Tests
// =============================================================================

func TestArtifactNames(t *testing.T) {
	cfg := &config.Build{Name: "xiaomi_ax3600-stock"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"source", sourceArtifact(cfg), "openwrt-source-xiaomi_ax3600-stock"},
		{"base builds", baseBuildsArtifact(cfg), "base-builds-xiaomi_ax3600-stock"},
		{"packages", packagesArtifact(cfg), "packages-xiaomi_ax3600-stock"},
		{"image builder", imageBuilderArtifact(cfg), "Image_Builder-xiaomi_ax3600-stock"},
		{"kmods", kmodsArtifact(cfg), "kmods-xiaomi_ax3600-stock"},
		{"firmware", firmwareArtifact(cfg), "firmware-xiaomi_ax3600-stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
