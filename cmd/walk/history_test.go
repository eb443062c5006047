package main

import (
	"testing"
	"time"
)

func TestParseSinceRFC3339(t *testing.T) {
	got, err := parseSince("2026-07-30T12:00:00Z")
	if err != nil {
		t.Fatalf("parseSince: %v", err)
	}
	want, _ := time.Parse(time.RFC3339, "2026-07-30T12:00:00Z")
	if !got.Equal(want) {
		t.Errorf("parseSince RFC3339 = %v, want %v", got, want)
	}
}

func TestParseSinceNaturalLanguage(t *testing.T) {
	got, err := parseSince("3 hours ago")
	if err != nil {
		t.Fatalf("parseSince: %v", err)
	}
	if got.After(time.Now()) {
		t.Errorf("parseSince(%q) = %v, want a time in the past", "3 hours ago", got)
	}
	if time.Since(got) < 2*time.Hour {
		t.Errorf("parseSince(%q) = %v, want roughly 3 hours ago", "3 hours ago", got)
	}
}

func TestParseSinceUnrecognised(t *testing.T) {
	if _, err := parseSince("gibberish not a time"); err == nil {
		t.Error("parseSince with gibberish input = nil error, want failure")
	}
}
