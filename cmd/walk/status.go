package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a short status line for the walk",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		snap, err := report.BuildSnapshot(s)
		if err != nil {
			return err
		}
		md := report.RenderStatus(snap)
		if report.ShouldUseColor() {
			fmt.Print(report.RenderANSI(md, 0))
			return nil
		}
		fmt.Print(md)
		return nil
	},
}
