package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show closed issues since a given time",
	Long: `Show closed issues since a given time. --since accepts a natural
language expression ("3 hours ago", "yesterday") as well as RFC3339.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sinceStr, _ := cmd.Flags().GetString("since")
		since, err := parseSince(sinceStr)
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		snap, err := report.BuildSnapshot(s)
		if err != nil {
			return err
		}
		md := report.RenderHistory(snap, since)
		if report.ShouldUseColor() {
			fmt.Print(report.RenderANSI(md, 0))
			return nil
		}
		fmt.Print(md)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("since", "24 hours ago", "lower bound on closed time, natural language or RFC3339")
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing --since %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", s)
	}
	return r.Time, nil
}
