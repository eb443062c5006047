package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/store"
)

var createCmd = &cobra.Command{
	Use:   "create SLUG TITLE",
	Short: "Create a new open issue",
	Long: `Create a new open issue.

With --interactive, an editor-free terminal form collects the slug,
title, type, priority, and body instead of positional arguments.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		typ, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetInt("priority")
		body, _ := cmd.Flags().GetString("body")
		blockedBy, _ := cmd.Flags().GetStringSlice("blocked-by")
		derivedFrom, _ := cmd.Flags().GetStringSlice("derived-from")

		var slug, title string
		if interactive {
			var err error
			slug, title, typ, priority, body, err = runCreateForm()
			if err != nil {
				return err
			}
		} else {
			if len(args) != 2 {
				return fmt.Errorf("create requires SLUG and TITLE, or --interactive")
			}
			slug, title = args[0], args[1]
		}

		if !store.ValidSlug(slug) {
			return fmt.Errorf("invalid slug %q: must match ^[a-z0-9][a-z0-9-]*$", slug)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		issue, err := s.Create(slug, title, body, typ, priority, blockedBy, derivedFrom)
		if err != nil {
			return err
		}
		fmt.Printf("created %s (%s, priority %d)\n", issue.Slug, issue.Type, issue.Priority)
		return nil
	},
}

func init() {
	createCmd.Flags().Bool("interactive", false, "collect fields via an interactive form")
	createCmd.Flags().String("type", "task", "issue type (task, bug, fix, ablation, selfmod, epic, ...)")
	createCmd.Flags().Int("priority", 2, "priority, lower sorts first")
	createCmd.Flags().String("body", "", "issue body (Markdown)")
	createCmd.Flags().StringSlice("blocked-by", nil, "slugs this issue is blocked by")
	createCmd.Flags().StringSlice("derived-from", nil, "slugs this issue was derived from during planning")
}

// runCreateForm collects issue fields via an interactive huh form,
// mirroring the teacher's create-form command.
func runCreateForm() (slug, title, typ string, priority int, body string, err error) {
	priorityStr := "2"
	typeOptions := []huh.Option[string]{
		huh.NewOption("Task", "task"),
		huh.NewOption("Fix", "fix"),
		huh.NewOption("Ablation", "ablation"),
		huh.NewOption("Self-modification", "selfmod"),
		huh.NewOption("Epic", "epic"),
	}
	priorityOptions := []huh.Option[string]{
		huh.NewOption("P0 - Critical", "0"),
		huh.NewOption("P1 - High", "1"),
		huh.NewOption("P2 - Medium (default)", "2"),
		huh.NewOption("P3 - Low", "3"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Slug").
				Description("Lowercase, hyphenated, unique across open and closed").
				Value(&slug).
				Validate(func(s string) error {
					if !store.ValidSlug(s) {
						return fmt.Errorf("must match ^[a-z0-9][a-z0-9-]*$")
					}
					return nil
				}),
			huh.NewInput().
				Title("Title").
				Value(&title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Type").
				Options(typeOptions...).
				Value(&typ),
			huh.NewSelect[string]().
				Title("Priority").
				Options(priorityOptions...).
				Value(&priorityStr),
			huh.NewText().
				Title("Body").
				Value(&body),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", "", 0, "", err
	}
	priority, convErr := strconv.Atoi(priorityStr)
	if convErr != nil {
		priority = 2
	}
	return slug, title, typ, priority, body, nil
}
