package main

import (
	"testing"

	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

func TestCreateCommandCreatesOpenIssue(t *testing.T) {
	dir := withWalkDir(t)
	if err := createCmd.RunE(createCmd, []string{"fix-thing", "Fix the thing"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	open, err := s.List(types.IssueOpen)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 1 || open[0].Slug != "fix-thing" {
		t.Errorf("open issues = %+v, want one issue fix-thing", open)
	}
	if open[0].Title != "Fix the thing" {
		t.Errorf("title = %q, want %q", open[0].Title, "Fix the thing")
	}
}

func TestCreateCommandRejectsInvalidSlug(t *testing.T) {
	withWalkDir(t)
	if err := createCmd.RunE(createCmd, []string{"Bad_Slug", "Title"}); err == nil {
		t.Error("create with an invalid slug = nil error, want rejection")
	}
}

func TestCreateCommandRequiresArgsWithoutInteractive(t *testing.T) {
	withWalkDir(t)
	if err := createCmd.RunE(createCmd, nil); err == nil {
		t.Error("create with no args and no --interactive = nil error, want usage error")
	}
}
