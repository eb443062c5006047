// Command walk runs and inspects autonomous investigation walks: a
// directory of issues worked by an LLM-driven agent loop, planned and
// replanned as it goes. See internal/driver for the loop itself.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/config"
	"github.com/fdr/walk/internal/driver"
	"github.com/fdr/walk/internal/store"
)

var walkDir string

var rootCmd = &cobra.Command{
	Use:   "walk",
	Short: "Run and inspect autonomous investigation walks",
	Long: `walk drives an LLM-based agent against a directory of issues,
planning new work as context accumulates and retrying or blocking issues
that keep failing.

Most commands operate on the walk directory given by --dir (default the
current directory); run starts the driver loop against it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&walkDir, "dir", ".", "walk directory")

	rootCmd.PersistentFlags().Int("max-concurrency", 1, "number of concurrent workers (1 = sequential)")
	rootCmd.PersistentFlags().String("worker-command", "", "shell command that invokes the worker agent")
	rootCmd.PersistentFlags().String("planner-command", "", "shell command that invokes the planner agent; defaults to worker-command")
	rootCmd.PersistentFlags().Duration("sleep-interval", 0, "pause between driver iterations when idle")
	rootCmd.PersistentFlags().Duration("shutdown-drain-timeout", 0, "bound on waiting for in-flight workers at shutdown")

	v := config.V()
	_ = v.BindPFlag("max-concurrency", rootCmd.PersistentFlags().Lookup("max-concurrency"))
	_ = v.BindPFlag("worker-command", rootCmd.PersistentFlags().Lookup("worker-command"))
	_ = v.BindPFlag("planner-command", rootCmd.PersistentFlags().Lookup("planner-command"))
	_ = v.BindPFlag("sleep-interval", rootCmd.PersistentFlags().Lookup("sleep-interval"))
	_ = v.BindPFlag("shutdown-drain-timeout", rootCmd.PersistentFlags().Lookup("shutdown-drain-timeout"))

	rootCmd.AddCommand(createCmd, listCmd, showCmd, commentCmd, closeCmd, runCmd,
		statusCmd, historyCmd, summaryCmd, doctorCmd, repairCmd)
}

func main() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, "walk:", err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, driver.ErrRestartRequested) {
			os.Exit(42)
		}
		fmt.Fprintln(os.Stderr, "walk:", err)
		os.Exit(1)
	}
}

// openStore opens the walk store at the --dir flag's target, using
// slog.Default() as its logger; commands that need the driver's rotating
// logger build their own via internal/logging instead.
func openStore() (*store.Store, error) {
	return store.Open(walkDir, slog.Default())
}
