package main

import (
	"strings"
	"testing"

	"github.com/fdr/walk/internal/store"
)

func TestCommentCommandAppendsJoinedText(t *testing.T) {
	dir := withWalkDir(t)
	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if _, err := s.Create("fix-thing", "Fix the thing", "Body.", "task", 1, nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := commentCmd.RunE(commentCmd, []string{"fix-thing", "found", "the", "root", "cause"}); err != nil {
		t.Fatalf("comment: %v", err)
	}

	got, err := s.Comments("fix-thing")
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if !strings.Contains(got, "found the root cause") {
		t.Errorf("comments = %q, want to contain the joined text", got)
	}
}
