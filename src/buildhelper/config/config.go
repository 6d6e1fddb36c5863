// Package config defines the per-build configuration record the workflow
// feeds to every stage.
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

// Compile holds the compilation options of a build.
type Compile struct {
	// OpenWrtTagBranch is the upstream tag or branch the source checkout
	// was created from (e.g., "v23.05.3" or "openwrt-23.05")
	OpenWrtTagBranch string `mapstructure:"openwrt_tag_branch"`

	// UseCache controls whether the workflow restores the toolchain cache
	UseCache bool `mapstructure:"use_cache"`

	// KmodCompileExcludeList names kernel module packages that must not be
	// force-enabled when building all kmods
	KmodCompileExcludeList []string `mapstructure:"kmod_compile_exclude_list"`
}

// Build is the configuration record for one firmware build.
type Build struct {
	// Name identifies the build and is folded into every artifact name
	// and cache key (e.g., "xiaomi_ax3600-stock")
	Name string `mapstructure:"name"`

	// Compile holds the compilation options
	Compile Compile `mapstructure:"compile"`
}

// Load unmarshals the build configuration from the already-initialized
// Viper instance and validates it.
func Load() (*Build, error) {
	var cfg Build
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidConfig.WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the required fields are present.
func (b *Build) Validate() error {
	if b.Name == "" {
		return errors.ErrInvalidConfig.WithMessage("build name is required")
	}
	if b.Compile.OpenWrtTagBranch == "" {
		return errors.ErrInvalidConfig.WithMessagef(
			"compile.openwrt_tag_branch is required for build %q", b.Name)
	}
	return nil
}

// String returns a short description of the build for log lines.
func (b *Build) String() string {
	return fmt.Sprintf("%s (%s)", b.Name, b.Compile.OpenWrtTagBranch)
}
