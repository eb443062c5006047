// Package planning implements the planning round lifecycle of spec §4.5:
// epoch increment, planner prompt assembly and invocation, result-file
// parsing and dispatch, and walk finalize with summary write.
package planning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fdr/walk/internal/agent"
	"github.com/fdr/walk/internal/digest"
	"github.com/fdr/walk/internal/logging"
	"github.com/fdr/walk/internal/prompt"
	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

// Outcome of dispatch after a planning round.
type Outcome string

const (
	OutcomeCompleted     Outcome = "completed"
	OutcomeCreatedIssues Outcome = "created_issues"
	OutcomeNoWorkFound   Outcome = "no_work_found"
)

const resultFileName = "_planning_result.md"

// resultDocument is the frontmatter shape the planner writes.
type resultDocument struct {
	Outcome string `yaml:"outcome"`
	Reason  string `yaml:"reason"`
}

// Round runs one planning round: increments the epoch, builds and spawns
// the planner prompt, reads and dispatches the result file, and returns
// the outcome plus the human-readable reason the planner (or the
// observational fallback) gave.
type Round struct {
	Store             *store.Store
	Runner            *agent.Runner
	PlannerByteBudget int64
	PlanningThreshold int64

	// Summarizer condenses oversized recently-closed issues before they
	// reach the planner prompt. Optional: nil disables condensation and
	// the prompt carries each issue's raw body/close-reason text.
	Summarizer *digest.Summarizer
	Log        *logging.Logger
}

// Run executes one planning round per spec §4.5 and returns the dispatched
// outcome and reason. The caller (internal/driver) is responsible for
// acting on OutcomeCompleted by finalizing the walk.
func (r *Round) Run(ctx context.Context) (Outcome, string, error) {
	if _, err := r.Store.IncrementEpoch(); err != nil {
		return "", "", fmt.Errorf("incrementing epoch: %w", err)
	}

	openBefore, err := r.Store.List(types.IssueOpen)
	if err != nil {
		return "", "", err
	}

	in, err := r.snapshot(ctx)
	if err != nil {
		return "", "", err
	}

	promptText := prompt.AssemblePlannerPrompt(in)

	_, err = r.Runner.RunPlanner(ctx, promptText)
	if err != nil {
		return "", "", fmt.Errorf("running planner: %w", err)
	}

	outcome, reason, err := r.readResult()
	if err != nil {
		return "", "", err
	}

	if outcome == "" {
		openAfter, listErr := r.Store.List(types.IssueOpen)
		if listErr != nil {
			return "", "", listErr
		}
		if len(openAfter) > len(openBefore) {
			outcome = OutcomeCreatedIssues
		} else {
			outcome = OutcomeNoWorkFound
		}
		if reason == "" {
			reason = "planning result file missing or unrecognised; used observational fallback"
		}
	}

	return outcome, reason, nil
}

// readResult reads and deletes _planning_result.md if present (spec §4.5
// step 4). A missing file or unrecognised outcome returns "" so Run can
// apply the observational fallback (spec's PlanningOutcomeUnknown policy).
func (r *Round) readResult() (Outcome, string, error) {
	path := filepath.Join(r.Store.Dir(), resultFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("reading %s: %w", resultFileName, err)
	}
	defer os.Remove(path)

	var doc resultDocument
	if _, err := store.DecodeFrontmatter(data, &doc); err != nil {
		return "", "", nil // malformed: fall back, per spec's PlanningOutcomeUnknown policy
	}

	switch Outcome(doc.Outcome) {
	case OutcomeCompleted, OutcomeCreatedIssues, OutcomeNoWorkFound:
		return Outcome(doc.Outcome), doc.Reason, nil
	default:
		return "", doc.Reason, nil
	}
}

// snapshot gathers every piece of store state AssemblePlannerPrompt needs
// into one explicit struct, per internal/prompt's pure-function contract.
// Any condensation of oversized recently-closed issues (via r.Summarizer)
// happens here, before the snapshot is built — AssemblePlannerPrompt itself
// stays a pure function of whatever text it is handed.
func (r *Round) snapshot(ctx context.Context) (prompt.PlannerInput, error) {
	current, err := r.Store.CurrentEpoch()
	if err != nil {
		return prompt.PlannerInput{}, err
	}
	epochs, err := r.Store.Epochs()
	if err != nil {
		return prompt.PlannerInput{}, err
	}
	walk, err := r.Store.Walk()
	if err != nil {
		return prompt.PlannerInput{}, err
	}
	recentClosed, err := r.Store.RecentClosed(r.PlannerByteBudget)
	if err != nil {
		return prompt.PlannerInput{}, err
	}
	recentClosed = r.condenseRecentClosed(ctx, recentClosed)
	tree, err := r.Store.BuildDiscoveryTree(false)
	if err != nil {
		return prompt.PlannerInput{}, err
	}
	open, err := r.Store.List(types.IssueOpen)
	if err != nil {
		return prompt.PlannerInput{}, err
	}
	allMemories, err := r.Store.Memories()
	if err != nil {
		return prompt.PlannerInput{}, err
	}
	proposals, err := r.Store.Proposals()
	if err != nil {
		return prompt.PlannerInput{}, err
	}
	overall, byType, err := r.Store.ExpansionStats()
	if err != nil {
		return prompt.PlannerInput{}, err
	}

	var alive, dead []types.Memory
	for _, m := range allMemories {
		if m.AliveAt(current) {
			alive = append(alive, m)
		} else if m.AliveUntil != nil && *m.AliveUntil == current-1 {
			dead = append(dead, m)
		}
	}

	return prompt.PlannerInput{
		CurrentEpoch:      current,
		AllEpochs:         epochs,
		WalkGoals:         walk.Body,
		RecentClosed:      recentClosed,
		DiscoveryTree:     tree,
		OpenIssues:        open,
		Memories:          alive,
		RecentlyDead:      dead,
		Proposals:         proposals,
		ExpansionOverall:  overall,
		ExpansionByType:   byType,
		PlannerByteBudget: r.PlannerByteBudget,
		PlanningThreshold: r.PlanningThreshold,
	}, nil
}

// condenseRecentClosed shrinks any issue whose body+close-reason exceeds
// its per-issue share of PlannerByteBudget, replacing that text with a
// Summarizer-produced condensation. Issues are copied rather than mutated
// in place, and any Summarize failure (including a nil Summarizer, which
// disables this entirely) leaves the issue's original text untouched.
func (r *Round) condenseRecentClosed(ctx context.Context, groups []store.RecentClosedGroup) []store.RecentClosedGroup {
	if r.Summarizer == nil {
		return groups
	}
	total := 0
	for _, g := range groups {
		total += len(g.Issues)
	}
	if total == 0 {
		return groups
	}
	perIssueBudget := r.PlannerByteBudget / int64(total)

	out := make([]store.RecentClosedGroup, len(groups))
	for i, g := range groups {
		issues := make([]*types.Issue, len(g.Issues))
		for j, issue := range g.Issues {
			issues[j] = r.condenseIssue(ctx, issue, perIssueBudget)
		}
		out[i] = store.RecentClosedGroup{Epoch: g.Epoch, Issues: issues}
	}
	return out
}

func (r *Round) condenseIssue(ctx context.Context, issue *types.Issue, perIssueBudget int64) *types.Issue {
	size := int64(len(issue.Body) + len(issue.CloseReason))
	if size <= perIssueBudget {
		return issue
	}
	condensed, err := r.Summarizer.Summarize(ctx, issue.Title, issue.Body, issue.CloseReason)
	if err != nil {
		if r.Log != nil {
			r.Log.Warn("summarizing closed issue for planner prompt", "slug", issue.Slug, "error", err)
		}
		return issue
	}
	copied := *issue
	copied.Body = ""
	copied.CloseReason = condensed
	return &copied
}
