package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fdr/walk/internal/types"
	"gopkg.in/yaml.v3"
)

// runMetaDocument is the YAML shape of runs/<ts>/meta.
type runMetaDocument struct {
	StartedAt  time.Time          `yaml:"started_at"`
	FinishedAt *time.Time         `yaml:"finished_at,omitempty"`
	ExitCode   *int               `yaml:"exit_code"`
	CostUSD    *float64           `yaml:"cost_usd,omitempty"`
	Usage      *types.TokenUsage  `yaml:"token_usage,omitempty"`
}

// readRuns loads every runs/<ts>/ entry under an issue directory, ordered
// by directory name (which is the start timestamp, optionally disambiguated
// with a -N suffix — see internal/agent for the writer side).
func (s *Store) readRuns(issueDir string) []types.Run {
	runsDir := filepath.Join(issueDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	runs := make([]types.Run, 0, len(names))
	for _, name := range names {
		runDir := filepath.Join(runsDir, name)
		meta, err := readRunMeta(runDir)
		if err != nil {
			s.log.Warn("skipping malformed run meta", "dir", runDir, "error", err)
			continue
		}
		prompt, _ := os.ReadFile(filepath.Join(runDir, "prompt"))
		output, _ := os.ReadFile(filepath.Join(runDir, "output"))
		runs = append(runs, types.Run{
			ID:         name,
			StartedAt:  meta.StartedAt,
			FinishedAt: meta.FinishedAt,
			ExitCode:   meta.ExitCode,
			Prompt:     string(prompt),
			Output:     string(output),
			CostUSD:    meta.CostUSD,
			Usage:      meta.Usage,
		})
	}
	return runs
}

func readRunMeta(runDir string) (*runMetaDocument, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "meta"))
	if err != nil {
		return nil, &MalformedRecordError{Path: runDir, Err: err}
	}
	var doc runMetaDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedRecordError{Path: runDir, Err: err}
	}
	return &doc, nil
}

func writeRunMeta(runDir string, doc *runMetaDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding run meta: %w", err)
	}
	return os.WriteFile(filepath.Join(runDir, "meta"), data, 0o644)
}

// RunMeta is the exported counterpart of runMetaDocument, used by
// internal/agent to record a finished run.
type RunMeta struct {
	StartedAt  time.Time
	FinishedAt *time.Time
	ExitCode   *int
	CostUSD    *float64
	Usage      *types.TokenUsage
}

// IssueDir resolves a slug to its current directory (open or closed) and
// status, for callers that need direct filesystem access (the agent runner
// writing run artifacts, in particular across a mid-run relocation).
func (s *Store) IssueDir(slug string) (dir string, status types.IssueStatus, err error) {
	if d := s.issuePath(slug); dirExists(d) {
		return d, types.IssueOpen, nil
	}
	if d := s.closedIssuePath(slug); dirExists(d) {
		return d, types.IssueClosed, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrNotFound, slug)
}

// NewRunDir creates runs/<ts>/ under the issue's current directory,
// disambiguating with a -1, -2, … suffix if a run with the same
// second-resolution timestamp already exists (spec §4.4 step 4).
func (s *Store) NewRunDir(slug string, ts time.Time) (string, error) {
	issueDir, _, err := s.IssueDir(slug)
	if err != nil {
		return "", err
	}
	runsDir := filepath.Join(issueDir, "runs")
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating runs directory: %w", err)
	}
	base := ts.UTC().Format("20060102T150405Z")
	name := base
	for i := 1; ; i++ {
		candidate := filepath.Join(runsDir, name)
		if err := os.Mkdir(candidate, 0o755); err == nil {
			return candidate, nil
		} else if !os.IsExist(err) {
			return "", fmt.Errorf("creating run directory: %w", err)
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

// WriteRunMeta writes runs/<ts>/meta.
func WriteRunMeta(runDir string, meta RunMeta) error {
	return writeRunMeta(runDir, &runMetaDocument{
		StartedAt:  meta.StartedAt,
		FinishedAt: meta.FinishedAt,
		ExitCode:   meta.ExitCode,
		CostUSD:    meta.CostUSD,
		Usage:      meta.Usage,
	})
}

// WriteRunFile writes one of a run directory's flat artifacts (prompt,
// output, stderr).
func WriteRunFile(runDir, name, content string) error {
	return os.WriteFile(filepath.Join(runDir, name), []byte(content), 0o644)
}
