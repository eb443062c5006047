package prompt

import (
	"strings"
	"testing"

	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

func TestAssembleWorkerPromptIncludesIssueAndGoals(t *testing.T) {
	in := WorkerInput{
		WorkingDir: "/walk/issues/fix-thing",
		WalkTitle:  "Investigate flaky builds",
		WalkGoals:  "Find and fix the source of CI flakiness.",
		Issue: &types.Issue{
			Slug:  "fix-thing",
			Title: "Fix the thing",
			Body:  "The thing is broken.",
		},
	}
	out := AssembleWorkerPrompt(in)

	for _, want := range []string{
		"/walk/issues/fix-thing",
		"Investigate flaky builds",
		"Find and fix the source of CI flakiness.",
		"fix-thing",
		"Fix the thing",
		"The thing is broken.",
		"routine", "surprising", "pivotal",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("worker prompt missing %q\n---\n%s", want, out)
		}
	}
	if strings.Contains(out, "PLANNING mode") {
		t.Error("non-planning worker prompt should not mention PLANNING mode")
	}
	if strings.Contains(out, "_restart_requested") {
		t.Error("non-self-modify worker prompt should not mention restart")
	}
}

func TestAssembleWorkerPromptPlanningAndSelfModify(t *testing.T) {
	in := WorkerInput{
		Issue:      &types.Issue{Slug: "s", Title: "t"},
		Planning:   true,
		SelfModify: true,
	}
	out := AssembleWorkerPrompt(in)
	if !strings.Contains(out, "PLANNING mode") {
		t.Error("planning worker prompt should mention PLANNING mode")
	}
	if !strings.Contains(out, "_restart_requested") {
		t.Error("self-modify worker prompt should mention restart request mechanism")
	}
}

func TestAssembleWorkerPromptIsPureAndDeterministic(t *testing.T) {
	in := WorkerInput{
		WorkingDir: "/d",
		WalkTitle:  "title",
		WalkGoals:  "goals",
		Issue:      &types.Issue{Slug: "s", Title: "t", Body: "b"},
	}
	first := AssembleWorkerPrompt(in)
	second := AssembleWorkerPrompt(in)
	if first != second {
		t.Error("AssembleWorkerPrompt is not deterministic over identical input")
	}
}

func TestAssemblePlannerPromptSections(t *testing.T) {
	in := PlannerInput{
		CurrentEpoch: 3,
		AllEpochs:    []int{1, 2, 3},
		WalkGoals:    "Harden the parser.",
		RecentClosed: []store.RecentClosedGroup{
			{
				Epoch: 2,
				Issues: []*types.Issue{
					{Slug: "a", Title: "A", Signal: types.SignalPivotal, CloseReason: "found a bug"},
				},
			},
		},
		OpenIssues: []*types.Issue{
			{Slug: "b", Title: "B", Priority: 1, Type: "fix"},
		},
		Memories:          []types.Memory{{Key: "k", Text: "remember this"}},
		RecentlyDead:      []types.Memory{{Key: "old", Text: "forgotten"}},
		Proposals:         []types.Proposal{{Key: "p", Text: "proposed text", ProposedBy: "a"}},
		ExpansionOverall:  types.ExpansionStat{Count: 5, Median: 1.2, P75: 1.8},
		PlannerByteBudget: 1024,
		PlanningThreshold: 2048,
	}
	out := AssemblePlannerPrompt(in)

	for _, want := range []string{
		"current epoch: 3",
		"1, 2, 3",
		"Harden the parser.",
		"## Recently closed",
		"a", "found a bug",
		"### Pivotal / surprising",
		"## Open issues",
		"b", "[priority 1, type fix]",
		"## Memories",
		"remember this",
		"### Recently forgotten",
		"~~old: forgotten~~",
		"## Pending proposals",
		"proposed text",
		"## Context pressure",
		"## Protocol",
		"created_issues",
		"no_work_found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("planner prompt missing %q\n---\n%s", want, out)
		}
	}
}

func TestAssemblePlannerPromptEmptySections(t *testing.T) {
	out := AssemblePlannerPrompt(PlannerInput{})
	for _, want := range []string{"(none)", "(none alive)"} {
		if !strings.Contains(out, want) {
			t.Errorf("planner prompt with empty input missing %q\n---\n%s", want, out)
		}
	}
}
