package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/agent"
	"github.com/fdr/walk/internal/config"
	"github.com/fdr/walk/internal/digest"
	"github.com/fdr/walk/internal/driver"
	"github.com/fdr/walk/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the driver loop against a walk",
	Long: `Start the driver loop: dispatch ready issues to worker subprocesses,
plan as context accumulates, and run until the walk completes, stalls, is
stopped by a signal, or requests a restart (exit code 42).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		walk, err := s.Walk()
		if err != nil {
			return err
		}

		log, err := logging.New(walkDir)
		if err != nil {
			return fmt.Errorf("opening driver log: %w", err)
		}
		if ok, warning := config.CheckSchemaVersion(walk.Config.SchemaVersion); !ok {
			log.Warn(warning)
		}

		thresholds, err := config.LoadThresholds(walkDir)
		if err != nil {
			return err
		}

		workerCmd := config.WorkerCommand()
		if workerCmd == "" {
			workerCmd = walk.Config.WorkerCommand
		}
		if workerCmd == "" {
			return fmt.Errorf("no worker command configured (--worker-command, WALK_WORKER_COMMAND, or walk config)")
		}
		mode := agent.ModeStream
		if capture, _ := cmd.Flags().GetBool("capture"); capture {
			mode = agent.ModeCapture
		}

		runner := &agent.Runner{
			Store:       s,
			Log:         log,
			Command:     workerCmd,
			Mode:        mode,
			WalkTitle:   walk.Title,
			WalkGoals:   walk.Body,
			MaxFailures: thresholds.MaxFailures,
		}

		maxConcurrency := config.MaxConcurrency()
		if maxConcurrency <= 0 {
			maxConcurrency = walk.Config.MaxConcurrency
		}
		if maxConcurrency <= 0 {
			maxConcurrency = 1
		}

		d := driver.New(s, runner, log, driver.Config{
			SleepInterval:         config.SleepInterval(),
			ShutdownDrainTimeout:  config.ShutdownDrainTimeout(),
			MaxConcurrency:        maxConcurrency,
			PlannerByteBudget:     int64(config.V().GetInt("planner-byte-budget")),
		}, thresholds)

		if summarizer, err := digest.NewSummarizer(""); err != nil {
			log.Warn("closed-issue summarizer unavailable, planner prompt will carry raw text", "error", err)
		} else {
			d.Summarizer = summarizer
		}

		return d.Run(context.Background())
	},
}

func init() {
	runCmd.Flags().Bool("capture", false, "use capture mode (single completion payload) instead of streaming JSON lines")
}
