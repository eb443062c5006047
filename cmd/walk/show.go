package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show SLUG",
	Short: "Show an issue's body, dependencies, runs, and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		s, err := openStore()
		if err != nil {
			return err
		}
		issue, err := s.Show(slug)
		if err != nil {
			return err
		}

		fmt.Printf("%s  (%s, priority %d, %s)\n", issue.Slug, issue.Type, issue.Priority, issue.Status)
		fmt.Println(issue.Title)
		if len(issue.BlockedBy) > 0 {
			fmt.Println("blocked by:", strings.Join(issue.BlockedBy, ", "))
		}
		if len(issue.DerivedFrom) > 0 {
			fmt.Println("derived from:", strings.Join(issue.DerivedFrom, ", "))
		}
		if issue.Status == "closed" {
			fmt.Printf("closed: %s (%s)\n", issue.CloseReason, issue.Signal)
		}
		fmt.Println()
		fmt.Println(issue.Body)

		if len(issue.Runs) > 0 {
			fmt.Println()
			fmt.Println("runs:")
			for _, run := range issue.Runs {
				status := "interrupted"
				if run.ExitCode != nil {
					status = fmt.Sprintf("exit %d", *run.ExitCode)
				}
				fmt.Printf("  %s  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"), status)
			}
		}

		comments, err := s.Comments(slug)
		if err != nil {
			return err
		}
		if strings.TrimSpace(comments) != "" {
			fmt.Println()
			fmt.Println("comments:")
			fmt.Println(comments)
		}
		return nil
	},
}
