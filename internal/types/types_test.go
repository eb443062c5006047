package types

import "testing"

func TestIssueReady(t *testing.T) {
	cases := []struct {
		name     string
		issue    Issue
		openSet  map[string]bool
		epicType string
		want     bool
	}{
		{"open, no blockers", Issue{Status: IssueOpen}, nil, "epic", true},
		{"closed is never ready", Issue{Status: IssueClosed}, nil, "epic", false},
		{"blocked by driver", Issue{Status: IssueOpen, BlockedByDriver: true}, nil, "epic", false},
		{"epic type is a container, never ready", Issue{Status: IssueOpen, Type: "epic"}, nil, "epic", false},
		{
			"blocked by an open dependency",
			Issue{Status: IssueOpen, BlockedBy: []string{"dep"}},
			map[string]bool{"dep": true},
			"epic",
			false,
		},
		{
			"dependency already closed",
			Issue{Status: IssueOpen, BlockedBy: []string{"dep"}},
			map[string]bool{},
			"epic",
			true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.issue.Ready(c.openSet, c.epicType); got != c.want {
				t.Errorf("Ready() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestRunFailedAndInterrupted(t *testing.T) {
	zero, one := 0, 1
	cases := []struct {
		name            string
		run             Run
		wantFailed      bool
		wantInterrupted bool
	}{
		{"success", Run{ExitCode: &zero}, false, false},
		{"failure", Run{ExitCode: &one}, true, false},
		{"interrupted", Run{ExitCode: nil}, false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.run.Failed(); got != c.wantFailed {
				t.Errorf("Failed() = %v, want %v", got, c.wantFailed)
			}
			if got := c.run.Interrupted(); got != c.wantInterrupted {
				t.Errorf("Interrupted() = %v, want %v", got, c.wantInterrupted)
			}
		})
	}
}

func TestMemoryAliveAt(t *testing.T) {
	until := 5
	m := Memory{AliveFrom: 2, AliveUntil: &until}
	cases := []struct {
		epoch int
		want  bool
	}{
		{1, false},
		{2, true},
		{5, true},
		{6, false},
	}
	for _, c := range cases {
		if got := m.AliveAt(c.epoch); got != c.want {
			t.Errorf("AliveAt(%d) = %v, want %v", c.epoch, got, c.want)
		}
	}

	unbounded := Memory{AliveFrom: 0}
	if !unbounded.AliveAt(1000) {
		t.Error("memory with nil AliveUntil should remain alive indefinitely")
	}
}
