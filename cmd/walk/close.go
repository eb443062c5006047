package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/types"
)

var closeCmd = &cobra.Command{
	Use:   "close SLUG [REASON]",
	Short: "Close an open issue",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		reason := "closed manually"
		if len(args) == 2 {
			reason = args[1]
		}
		signalStr, _ := cmd.Flags().GetString("signal")
		signal := types.SignalRoutine
		switch signalStr {
		case "surprising":
			signal = types.SignalSurprising
		case "pivotal":
			signal = types.SignalPivotal
		case "", "routine":
		default:
			return fmt.Errorf("unknown signal %q (want routine, surprising, or pivotal)", signalStr)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		issue, err := s.Close(slug, reason, signal)
		if err != nil {
			return err
		}
		fmt.Printf("closed %s: %s\n", issue.Slug, issue.CloseReason)
		return nil
	},
}

func init() {
	closeCmd.Flags().String("signal", "routine", "epistemic signal for the planner: routine, surprising, or pivotal")
}
