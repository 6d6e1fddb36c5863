package openwrt

import (
	"os/exec"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

// HostDeps lists the host binaries a stage needs before touching the tree.
type HostDeps struct {
	Build  []string // compiler/build binaries for compile stages
	Common []string // utilities required by every stage
}

// All returns all required binaries (build + common).
func (d HostDeps) All() []string {
	return append(d.Build, d.Common...)
}

// commonHostDeps are required regardless of stage.
var commonHostDeps = []string{"make", "git", "tar", "unzip"}

// GetHostDeps returns the required host binaries. Compile stages drive the
// full OpenWrt build system and need the whole host toolchain; prepare and
// image stages only shuffle archives.
func GetHostDeps(compileStage bool) HostDeps {
	if compileStage {
		return HostDeps{
			Build:  []string{"gcc", "g++", "rsync", "file", "wget", "python3", "patch", "bzip2"},
			Common: commonHostDeps,
		}
	}
	return HostDeps{Common: commonHostDeps}
}

// ValidateHostDeps checks that all required binaries are in PATH and
// returns the missing ones.
func ValidateHostDeps(deps HostDeps) []string {
	var missing []string
	for _, bin := range deps.All() {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}

// RequireHostDeps fails with a configuration error when host binaries are
// missing. Provisioning them is the workflow's job, not the helper's; the
// helper only refuses to start a build that cannot finish.
func RequireHostDeps(compileStage bool) error {
	if missing := ValidateHostDeps(GetHostDeps(compileStage)); len(missing) > 0 {
		return errors.ErrMissingHostDeps.WithMessagef("missing host tools: %v", missing)
	}
	return nil
}
