package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Fix structural problems reported by doctor",
	Long: `Fix structural problems reported by doctor. Currently only
--unblock is implemented: it deletes the blocked_by_driver marker (spec
§4.2's documented unblock mechanism) from one issue, or every blocked
issue if no slug is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		unblock, _ := cmd.Flags().GetBool("unblock")
		if !unblock {
			return fmt.Errorf("repair requires a flag naming what to fix (currently: --unblock)")
		}

		s, err := openStore()
		if err != nil {
			return err
		}

		var slugs []string
		if len(args) == 1 {
			slugs = []string{args[0]}
		} else {
			open, err := s.List("open")
			if err != nil {
				return err
			}
			for _, issue := range open {
				slugs = append(slugs, issue.Slug)
			}
		}

		unblocked := 0
		for _, slug := range slugs {
			dir, _, err := s.IssueDir(slug)
			if err != nil {
				continue
			}
			marker := filepath.Join(dir, "blocked_by_driver")
			if _, err := os.Stat(marker); err != nil {
				continue
			}
			if err := os.Remove(marker); err != nil {
				return fmt.Errorf("removing %s: %w", marker, err)
			}
			if err := s.AddComment(slug, "Unblocked manually via repair --unblock."); err != nil {
				return err
			}
			fmt.Println("unblocked", slug)
			unblocked++
		}
		if unblocked == 0 {
			fmt.Println("nothing to unblock")
		}
		return nil
	},
	Args: cobra.MaximumNArgs(1),
}

func init() {
	repairCmd.Flags().Bool("unblock", false, "clear the blocked_by_driver marker")
}
