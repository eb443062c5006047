package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		closed, _ := cmd.Flags().GetBool("closed")
		readyOnly, _ := cmd.Flags().GetBool("ready")

		s, err := openStore()
		if err != nil {
			return err
		}

		if readyOnly {
			ready, err := s.ReadyIssues()
			if err != nil {
				return err
			}
			for _, issue := range ready {
				fmt.Printf("%-24s p%d  %-10s %s\n", issue.Slug, issue.Priority, issue.Type, issue.Title)
			}
			return nil
		}

		status := types.IssueOpen
		if closed {
			status = types.IssueClosed
		}
		issues, err := s.List(status)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			line := fmt.Sprintf("%-24s p%d  %-10s %s", issue.Slug, issue.Priority, issue.Type, issue.Title)
			if closed {
				line += fmt.Sprintf("  [%s] %s", issue.Signal, issue.CloseReason)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("closed", false, "list closed issues instead of open ones")
	listCmd.Flags().Bool("ready", false, "list only ready (dispatchable) issues")
}
