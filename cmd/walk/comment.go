package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment SLUG TEXT...",
	Short: "Append a comment to an issue's log",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		text := strings.Join(args[1:], " ")
		s, err := openStore()
		if err != nil {
			return err
		}
		return s.AddComment(slug, text)
	},
}
