package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fdr/walk/internal/retry"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check a walk directory for structural problems",
	Long: `Check a walk directory for structural problems: issues in both
open/ and closed/, issues blocked by the driver, an unreadable _walk.md,
and a discovery tree that fails to build. The .walk.lock file is only
noted when present; its staleness is not checked. Reports findings and
exits non-zero if any were found, but makes no changes — see repair for
that.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		problems := 0
		report := func(format string, a ...interface{}) {
			problems++
			fmt.Printf("FAIL  "+format+"\n", a...)
		}
		pass := func(format string, a ...interface{}) {
			fmt.Printf("pass  "+format+"\n", a...)
		}

		s, err := openStore()
		if err != nil {
			return err
		}

		openSlugs := map[string]bool{}
		open, err := s.List("open")
		if err != nil {
			return err
		}
		for _, issue := range open {
			openSlugs[issue.Slug] = true
		}
		closed, err := s.List("closed")
		if err != nil {
			return err
		}
		dupes := 0
		for _, issue := range closed {
			if openSlugs[issue.Slug] {
				report("slug %q present in both open/ and closed/", issue.Slug)
				dupes++
			}
		}
		if dupes == 0 {
			pass("no slug present in both open/ and closed/")
		}

		blocked := 0
		for _, issue := range open {
			dir, _, err := s.IssueDir(issue.Slug)
			if err != nil {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, "blocked_by_driver")); err == nil {
				report("%s is blocked by driver (%d consecutive failures)", issue.Slug, retry.ConsecutiveFailures(issue))
				blocked++
			}
		}
		if blocked == 0 {
			pass("no issues blocked by driver")
		}

		lockPath := filepath.Join(s.Dir(), ".walk.lock")
		if info, err := os.Stat(lockPath); err == nil {
			pass(".walk.lock present (size %d bytes, ordinary for an advisory lock file)", info.Size())
		}

		if _, err := s.Walk(); err != nil {
			report("_walk.md unreadable: %v", err)
		} else {
			pass("_walk.md parses")
		}

		if _, err := s.BuildDiscoveryTree(true); err != nil {
			report("discovery tree build failed: %v", err)
		} else {
			pass("discovery tree builds")
		}

		if problems > 0 {
			return fmt.Errorf("%d problem(s) found; see repair --unblock for blocked issues", problems)
		}
		return nil
	},
}
