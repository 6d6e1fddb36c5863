package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

func TestBuild_Validate(t *testing.T) {
	tests := []struct {
		name    string
		build   Build
		wantErr bool
	}{
		{
			name: "valid",
			build: Build{
				Name:    "xiaomi_ax3600-stock",
				Compile: Compile{OpenWrtTagBranch: "v23.05.3"},
			},
		},
		{
			name:    "missing name",
			build:   Build{Compile: Compile{OpenWrtTagBranch: "v23.05.3"}},
			wantErr: true,
		},
		{
			name:    "missing tag branch",
			build:   Build{Name: "stock"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build.Validate()
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidConfig) {
					t.Errorf("got %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("name", "xiaomi_ax3600-stock")
	viper.Set("compile.openwrt_tag_branch", "v23.05.3")
	viper.Set("compile.use_cache", true)
	viper.Set("compile.kmod_compile_exclude_list", []string{"kmod-ath11k"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Name != "xiaomi_ax3600-stock" {
		t.Errorf("name: got %q", cfg.Name)
	}
	if cfg.Compile.OpenWrtTagBranch != "v23.05.3" {
		t.Errorf("tag branch: got %q", cfg.Compile.OpenWrtTagBranch)
	}
	if !cfg.Compile.UseCache {
		t.Error("use_cache not set")
	}
	if len(cfg.Compile.KmodCompileExcludeList) != 1 || cfg.Compile.KmodCompileExcludeList[0] != "kmod-ath11k" {
		t.Errorf("exclude list: got %v", cfg.Compile.KmodCompileExcludeList)
	}
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	if _, err := Load(); !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestBuild_String(t *testing.T) {
	b := Build{Name: "stock", Compile: Compile{OpenWrtTagBranch: "v23.05.3"}}
	if got := b.String(); got != "stock (v23.05.3)" {
		t.Errorf("got %q", got)
	}
}
