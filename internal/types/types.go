// Package types defines the plain data records shared across the walk
// driver: walks, issues, runs, memories, proposals, and the discovery tree.
// Nothing in this package touches the filesystem — see internal/store for
// that.
package types

import "time"

// WalkStatus is the lifecycle state of a walk.
type WalkStatus string

const (
	WalkOpen      WalkStatus = "open"
	WalkCompleted WalkStatus = "completed"
	WalkStalled   WalkStatus = "stalled"
	WalkStopped   WalkStatus = "stopped"
)

// Walk is a named investigation rooted at a directory.
type Walk struct {
	Title      string         `yaml:"title"`
	Status     WalkStatus     `yaml:"status"`
	Body       string         `yaml:"-"`
	FinishedAt *time.Time     `yaml:"finished_at,omitempty"`
	FinishReason string       `yaml:"finish_reason,omitempty"`
	Config     WalkConfig     `yaml:"config"`
}

// WalkConfig holds the tunables a walk was created with. Most of these are
// overridable at runtime via internal/config; the values here are the ones
// recorded at walk-creation time for reproducibility.
type WalkConfig struct {
	SchemaVersion  string `yaml:"schema_version,omitempty"`
	MaxConcurrency int    `yaml:"max_concurrency,omitempty"`
	WorkerCommand  string `yaml:"worker_command,omitempty"`
	PlannerCommand string `yaml:"planner_command,omitempty"`
}

// IssueStatus is open or closed; a slug is a member of exactly one set.
type IssueStatus string

const (
	IssueOpen   IssueStatus = "open"
	IssueClosed IssueStatus = "closed"
)

// Signal annotates a closure's epistemic weight for the planner.
type Signal string

const (
	SignalRoutine    Signal = "routine"
	SignalSurprising Signal = "surprising"
	SignalPivotal    Signal = "pivotal"
)

// Issue is one atomic unit of work.
type Issue struct {
	Slug     string `yaml:"-"`
	Title    string `yaml:"title"`
	Type     string `yaml:"type"`
	Priority int    `yaml:"priority"`
	Body     string `yaml:"-"`

	Status IssueStatus `yaml:"-"`

	BlockedBy   []string `yaml:"-"`
	DerivedFrom []string `yaml:"-"`

	Runs []Run `yaml:"-"`

	CloseReason string     `yaml:"-"`
	ClosedAt    *time.Time `yaml:"-"`
	Signal      Signal     `yaml:"-"`
	Epoch       int        `yaml:"-"`

	PriorityOverride bool `yaml:"-"`
	BlockedByDriver  bool `yaml:"-"`
}

// Ready reports whether the issue is eligible for dispatch given the set of
// currently-open slugs (callers pass the full open-slug set so BlockedBy can
// be checked without a store round-trip per issue).
func (i *Issue) Ready(openSlugs map[string]bool, epicType string) bool {
	if i.Status != IssueOpen {
		return false
	}
	if i.BlockedByDriver {
		return false
	}
	if i.Type == epicType {
		return false
	}
	for _, dep := range i.BlockedBy {
		if openSlugs[dep] {
			return false
		}
	}
	return true
}

// Run is one worker invocation against one issue.
type Run struct {
	ID         string     `yaml:"-"`
	StartedAt  time.Time  `yaml:"started_at"`
	FinishedAt *time.Time `yaml:"finished_at,omitempty"`
	ExitCode   *int       `yaml:"exit_code"`
	Prompt     string     `yaml:"-"`
	Output     string     `yaml:"-"`
	CostUSD    *float64   `yaml:"cost_usd,omitempty"`
	Usage      *TokenUsage `yaml:"token_usage,omitempty"`
}

// TokenUsage mirrors the worker subprocess's reported usage fields.
type TokenUsage struct {
	InputTokens              int `yaml:"input_tokens"`
	OutputTokens             int `yaml:"output_tokens"`
	CacheCreationInputTokens int `yaml:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `yaml:"cache_read_input_tokens"`
}

// Failed reports whether this run counts as a failure for retry purposes.
// A nil ExitCode means the worker was signalled/interrupted: neither a
// pass nor a failure.
func (r *Run) Failed() bool {
	return r.ExitCode != nil && *r.ExitCode != 0
}

// Interrupted reports whether the run has no recorded exit code.
func (r *Run) Interrupted() bool {
	return r.ExitCode == nil
}

// Memory is a key/text fact with an epoch lifetime.
type Memory struct {
	Key         string `json:"key"`
	Text        string `json:"text"`
	AliveFrom   int    `json:"alive_from"`
	AliveUntil  *int   `json:"alive_until,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	KilledBy    string `json:"killed_by,omitempty"`
}

// AliveAt reports whether the memory is in force at epoch e.
func (m *Memory) AliveAt(e int) bool {
	if m.AliveFrom > e {
		return false
	}
	if m.AliveUntil != nil && e > *m.AliveUntil {
		return false
	}
	return true
}

// Proposal is a pending memory candidate awaiting planner disposition.
type Proposal struct {
	Key         string `json:"key"`
	Text        string `json:"text"`
	ProposedBy  string `json:"proposed_by,omitempty"`
	Epoch       int    `json:"epoch"`
}

// ExpansionStat is the aggregated (result+comments)/body byte ratio for one
// type, or for the walk overall.
type ExpansionStat struct {
	Type   string
	Count  int
	Median float64
	P75    float64
	TotalBytes int64
}

// DiscoveryTree is the rendering of the derived_from DAG as a tree with a
// primary parent per child and back-references for the rest.
type DiscoveryTree struct {
	Roots      []string
	Children   map[string][]string // parent -> children, primary-parent order
	ParentsOf  map[string][]string // child -> all parents, first is primary
	Issues     map[string]*Issue
}

// NewContext is the result of store.NewContextSince: bytes and signals
// accrued by closures after a given time.
type NewContext struct {
	Bytes   int64
	Signals []Signal
	Issues  []string
}
