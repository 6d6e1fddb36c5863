package openwrt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/logs"
)

func testLogger() *logs.Logger {
	return logs.New(logs.Config{Output: logs.OutputStdout, Level: "error"})
}

func seedConfig(t *testing.T, tree *Tree, content string) {
	t.Helper()
	if err := os.WriteFile(tree.ConfigPath(), []byte(content), 0644); err != nil {
		t.Fatalf("failed to seed .config: %v", err)
	}
}

// =============================================================================
// Target Parsing Tests
// =============================================================================

func TestTree_Target(t *testing.T) {
	tests := []struct {
		name          string
		config        string
		wantTarget    string
		wantSubtarget string
	}{
		{
			name:          "both present",
			config:        "CONFIG_TARGET_BOARD=\"qualcommax\"\nCONFIG_TARGET_SUBTARGET=\"ipq807x\"\n",
			wantTarget:    "qualcommax",
			wantSubtarget: "ipq807x",
		},
		{
			name:          "board only",
			config:        "CONFIG_TARGET_BOARD=\"x86\"\n",
			wantTarget:    "x86",
			wantSubtarget: "",
		},
		{
			name:          "neither",
			config:        "CONFIG_FOO=y\n",
			wantTarget:    "",
			wantSubtarget: "",
		},
		{
			name:          "surrounded by other options",
			config:        "CONFIG_FOO=y\nCONFIG_TARGET_BOARD=\"ath79\"\nCONFIG_BAR=y\nCONFIG_TARGET_SUBTARGET=\"generic\"\n",
			wantTarget:    "ath79",
			wantSubtarget: "generic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewTree(t.TempDir(), testLogger())
			seedConfig(t, tree, tt.config)

			target, subtarget, err := tree.Target()
			if err != nil {
				t.Fatalf("Target failed: %v", err)
			}
			if target != tt.wantTarget {
				t.Errorf("target: got %q, want %q", target, tt.wantTarget)
			}
			if subtarget != tt.wantSubtarget {
				t.Errorf("subtarget: got %q, want %q", subtarget, tt.wantSubtarget)
			}
		})
	}
}

func TestTree_RequireTarget_Missing(t *testing.T) {
	tree := NewTree(t.TempDir(), testLogger())
	seedConfig(t, tree, "CONFIG_TARGET_BOARD=\"x86\"\n")

	_, _, err := tree.RequireTarget()
	if !errors.Is(err, errors.ErrMissingTarget) {
		t.Errorf("got %v, want ErrMissingTarget", err)
	}
}

func TestTree_TargetBinDir(t *testing.T) {
	tree := NewTree("/work/openwrt", testLogger())

	got := tree.TargetBinDir("qualcommax", "ipq807x")
	want := filepath.Join("/work/openwrt", "bin", "targets", "qualcommax", "ipq807x")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// =============================================================================
// ccache Stash Tests
// =============================================================================

func TestTree_StashAndRestoreCcache(t *testing.T) {
	tree := NewTree(t.TempDir(), testLogger())
	tmpBase := t.TempDir()

	ccacheFile := filepath.Join(tree.ccacheDir(), "0", "cache.bin")
	if err := os.MkdirAll(filepath.Dir(ccacheFile), 0755); err != nil {
		t.Fatalf("failed to create ccache dir: %v", err)
	}
	if err := os.WriteFile(ccacheFile, []byte("cached"), 0644); err != nil {
		t.Fatalf("failed to write ccache file: %v", err)
	}

	stash, err := tree.StashCcache(tmpBase)
	if err != nil {
		t.Fatalf("StashCcache failed: %v", err)
	}
	if stash == "" {
		t.Fatal("expected a stash path")
	}
	if _, err := os.Stat(tree.ccacheDir()); !os.IsNotExist(err) {
		t.Error("ccache dir still present after stash")
	}

	// Simulate the toolchain build leaving a fresh ccache behind
	if err := os.MkdirAll(tree.ccacheDir(), 0755); err != nil {
		t.Fatalf("failed to recreate ccache dir: %v", err)
	}

	if err := tree.RestoreCcache(stash); err != nil {
		t.Fatalf("RestoreCcache failed: %v", err)
	}

	data, err := os.ReadFile(ccacheFile)
	if err != nil {
		t.Fatalf("stashed file not restored: %v", err)
	}
	if string(data) != "cached" {
		t.Errorf("got %q, want %q", data, "cached")
	}
}

func TestTree_StashCcache_NothingToStash(t *testing.T) {
	tree := NewTree(t.TempDir(), testLogger())

	stash, err := tree.StashCcache(t.TempDir())
	if err != nil {
		t.Fatalf("StashCcache failed: %v", err)
	}
	if stash != "" {
		t.Errorf("got stash %q, want empty", stash)
	}

	// Restoring an empty stash is a no-op
	if err := tree.RestoreCcache(stash); err != nil {
		t.Errorf("RestoreCcache of empty stash failed: %v", err)
	}
}

// =============================================================================
// Host Dependency Tests
// =============================================================================

func TestGetHostDeps(t *testing.T) {
	plain := GetHostDeps(false)
	if len(plain.Build) != 0 {
		t.Errorf("non-compile stage got build deps: %v", plain.Build)
	}
	if len(plain.Common) == 0 {
		t.Error("common deps missing")
	}

	compile := GetHostDeps(true)
	if len(compile.Build) == 0 {
		t.Error("compile stage got no build deps")
	}
	if len(compile.All()) != len(compile.Build)+len(compile.Common) {
		t.Error("All() does not cover build + common")
	}
}

func TestValidateHostDeps_Missing(t *testing.T) {
	deps := HostDeps{Common: []string{"definitely-not-a-real-binary-xyz"}}

	missing := ValidateHostDeps(deps)
	if len(missing) != 1 || missing[0] != "definitely-not-a-real-binary-xyz" {
		t.Errorf("got missing %v, want the fake binary", missing)
	}
}
