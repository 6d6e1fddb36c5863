package core

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/actions"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/config"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/stages"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/storage"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/paths"
)

// newPrepareCmd returns the prepare subcommand. Prepare dispatches on the
// workflow job name, so unlike the stage subcommands it has no fixed job.
func newPrepareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Restore the current job's inputs and publish its cache keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(func(ctx context.Context, sc *stages.StageContext) error {
				stage := &stages.PrepareStage{}
				return stage.Execute(ctx, sc)
			})
		},
	}
}

// newStageCmd returns a subcommand that runs one build stage.
func newStageCmd(use string, job stages.JobName, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(func(ctx context.Context, sc *stages.StageContext) error {
				stage, err := stages.ForJob(job)
				if err != nil {
					return err
				}
				sc.Log.Debug("stage", "name", stage.Name())
				return stage.Execute(ctx, sc)
			})
		},
	}
}

// runStage assembles the stage context and runs fn under a
// signal-cancelled context so an aborted job stops its subprocesses.
func runStage(fn func(context.Context, *stages.StageContext) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := newStageContext()
	if err != nil {
		return err
	}

	log.Info("build", "config", sc.Cfg.String(), "job", sc.Runner.Job)
	return fn(ctx, sc)
}

// newStageContext loads the configuration and wires every stage
// dependency from the environment.
func newStageContext() (*stages.StageContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	runner, err := actions.FromEnv()
	if err != nil {
		return nil, err
	}

	workspace, err := paths.NewWorkspace("")
	if err != nil {
		return nil, err
	}

	var storeCfg storage.Config
	if err := viper.UnmarshalKey("storage", &storeCfg); err != nil {
		return nil, errors.ErrInvalidConfig.WithCause(err)
	}
	if storeCfg.TmpDir == "" {
		storeCfg.TmpDir = workspace.Tmp
	}
	store, err := storage.New(storeCfg, runner)
	if err != nil {
		return nil, err
	}

	return &stages.StageContext{
		Cfg:       cfg,
		Runner:    runner,
		Workspace: workspace,
		Store:     store,
		Cache:     runner.NewCacheClient(),
		Log:       log,
	}, nil
}
