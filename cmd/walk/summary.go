package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Render the full walk summary (timeline, open issues, expansion stats)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		snap, err := report.BuildSnapshot(s)
		if err != nil {
			return err
		}
		md := report.RenderSummary(snap)
		if report.ShouldUseColor() {
			fmt.Print(report.RenderANSI(md, 0))
			return nil
		}
		fmt.Print(md)
		return nil
	},
}
