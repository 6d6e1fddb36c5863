// buildhelper drives the OpenWrt firmware build pipeline inside a CI
// workflow. Each job runs `buildhelper prepare` followed by the stage
// subcommand matching its job name.
package main

import (
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/core"
)

func main() {
	core.Execute()
}
