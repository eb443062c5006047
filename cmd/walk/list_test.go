package main

import (
	"testing"

	"github.com/fdr/walk/internal/store"
)

func TestListCommandModes(t *testing.T) {
	dir := withWalkDir(t)
	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if _, err := s.Create("open-one", "Open one", "Body.", "task", 1, nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Close("open-one", "done", "routine"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Create("open-two", "Open two", "Body.", "task", 1, nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, flag := range []string{"closed", "ready"} {
		if err := listCmd.Flags().Set(flag, "true"); err != nil {
			t.Fatalf("setting %s: %v", flag, err)
		}
		if err := listCmd.RunE(listCmd, nil); err != nil {
			t.Errorf("list --%s: %v", flag, err)
		}
		listCmd.Flags().Set(flag, "false")
	}

	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Errorf("list (open, default): %v", err)
	}
}
