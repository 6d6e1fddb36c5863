// Package core provides the command-line surface of the build helper.
package core

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/stages"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/cli"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/logs"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/version"
)

var (
	// VersionInfo holds version information - set at build time via ldflags
	VersionInfo = version.New()

	// Global logger instance
	log *logs.Logger

	// Configuration file path
	cfgFile string
)

// Linker variables - these are set via ldflags at build time
// They must be initialized as empty strings or literals for ldflags to work
var (
	Version        = "dev"
	ReleaseVersion = "0.0.0"
	BuildDate      = "unknown"
	GitCommit      = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "buildhelper",
	Short: "OpenWrt firmware build pipeline helper",
	Long: `buildhelper drives the OpenWrt firmware build pipeline inside a
CI workflow.

Each workflow job runs the prepare subcommand first to restore its input
artifacts and publish its cache keys, then the subcommand matching the
job name to run the build stage itself. State crosses job boundaries
only through uploaded artifacts and the cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command and maps the stage error onto the process
// exit code.
func Execute() {
	// Populate VersionInfo from linker variables
	VersionInfo.Version = Version
	VersionInfo.ReleaseVersion = ReleaseVersion
	VersionInfo.BuildDate = BuildDate
	VersionInfo.GitCommit = GitCommit

	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error(err.Error())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(errors.GetExitCode(err))
	}
}

func init() {
	// Configuration file flag
	cli.RegisterConfigFlag(rootCmd, &cfgFile, ".github/buildhelper.yaml")

	// Build flags
	rootCmd.PersistentFlags().String("name", "", "Build name, folded into artifact names and cache keys")
	rootCmd.PersistentFlags().String("tag-branch", "", "Upstream OpenWrt tag or branch of the source checkout")
	rootCmd.PersistentFlags().Bool("use-cache", true, "Whether the workflow restores the build cache")

	// Logging flags (using common helper)
	cli.RegisterLogFlags(rootCmd)

	// Storage flags
	rootCmd.PersistentFlags().String("storage-type", "actions", "Artifact storage backend: 'actions', 's3' or 'local'")
	rootCmd.PersistentFlags().String("storage-path", "", "Local storage path (for local backend)")
	rootCmd.PersistentFlags().String("s3-endpoint", "", "S3-compatible storage endpoint URL")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region")
	rootCmd.PersistentFlags().String("s3-bucket", "openwrt-artifacts", "S3 bucket for pipeline artifacts")
	rootCmd.PersistentFlags().String("s3-access-key", "", "S3 access key ID")
	rootCmd.PersistentFlags().String("s3-secret-key", "", "S3 secret access key")
	rootCmd.PersistentFlags().Bool("s3-path-style", true, "Use path-style addressing for S3")

	// Bind flags to viper
	_ = viper.BindPFlag("name", rootCmd.PersistentFlags().Lookup("name"))
	_ = viper.BindPFlag("compile.openwrt_tag_branch", rootCmd.PersistentFlags().Lookup("tag-branch"))
	_ = viper.BindPFlag("compile.use_cache", rootCmd.PersistentFlags().Lookup("use-cache"))
	_ = viper.BindPFlag("storage.type", rootCmd.PersistentFlags().Lookup("storage-type"))
	_ = viper.BindPFlag("storage.local.path", rootCmd.PersistentFlags().Lookup("storage-path"))
	_ = viper.BindPFlag("storage.s3.endpoint", rootCmd.PersistentFlags().Lookup("s3-endpoint"))
	_ = viper.BindPFlag("storage.s3.region", rootCmd.PersistentFlags().Lookup("s3-region"))
	_ = viper.BindPFlag("storage.s3.bucket", rootCmd.PersistentFlags().Lookup("s3-bucket"))
	_ = viper.BindPFlag("storage.s3.access_key_id", rootCmd.PersistentFlags().Lookup("s3-access-key"))
	_ = viper.BindPFlag("storage.s3.secret_access_key", rootCmd.PersistentFlags().Lookup("s3-secret-key"))
	_ = viper.BindPFlag("storage.s3.use_path_style", rootCmd.PersistentFlags().Lookup("s3-path-style"))

	// Set defaults
	viper.SetDefault("compile.use_cache", true)
	viper.SetDefault("storage.type", "actions")
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("storage.s3.use_path_style", true)

	rootCmd.AddCommand(newPrepareCmd())
	rootCmd.AddCommand(newStageCmd("base-builds", stages.JobBaseBuilds,
		"Build the toolchain and the kernel and archive the base build"))
	rootCmd.AddCommand(newStageCmd("build-packages", stages.JobBuildPackages,
		"Compile the configured packages and upload them"))
	rootCmd.AddCommand(newStageCmd("build-image-builder", stages.JobBuildImageBuilder,
		"Build the Image Builder archive and the kmod package set"))
	rootCmd.AddCommand(newStageCmd("build-images", stages.JobBuildImagesRelease,
		"Build the firmware images with the restored Image Builder"))
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set
func initConfig() error {
	opts := cli.DefaultConfigOptions("buildhelper", "BUILDHELPER")
	opts.ConfigFile = cfgFile

	if err := cli.InitConfig(opts); err != nil {
		return err
	}

	// Initialize logger using common helper
	log = cli.InitLogger("buildhelper")

	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(VersionInfo.Full())
		},
	}
}
