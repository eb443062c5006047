// Package prompt composes the worker and planner prompts described in
// spec §4.3 as pure functions over explicit snapshot structs — never
// reading the store directly — so that the same snapshot always yields
// byte-identical output (spec §8).
package prompt

import (
	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

// WorkerInput is everything AssembleWorkerPrompt needs.
type WorkerInput struct {
	WorkingDir   string
	ContextFile  string // body text, already read; "" if none
	WalkTitle    string
	WalkGoals    string
	Issue        *types.Issue
	Planning     bool
	SelfModify   bool // issue type permits modifying the driver's own source
}

// PlannerInput is everything AssemblePlannerPrompt needs.
type PlannerInput struct {
	CurrentEpoch   int
	AllEpochs      []int
	WalkGoals      string
	RecentClosed   []store.RecentClosedGroup
	DiscoveryTree  *types.DiscoveryTree
	OpenIssues     []*types.Issue
	Memories       []types.Memory
	RecentlyDead   []types.Memory
	Proposals      []types.Proposal
	ExpansionOverall types.ExpansionStat
	ExpansionByType  []types.ExpansionStat
	PlannerByteBudget int64
	PlanningThreshold int64
}
