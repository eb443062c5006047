// Package agent runs one worker (or planner) subprocess invocation against
// one issue, per spec §4.4: retry gating, prompt assembly, run-directory
// bookkeeping, subprocess spawn with the prompt on stdin, digest
// extraction, and close detection.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/fdr/walk/internal/digest"
	"github.com/fdr/walk/internal/logging"
	"github.com/fdr/walk/internal/prompt"
	"github.com/fdr/walk/internal/retry"
	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

// Mode selects how a worker's stdout is interpreted.
type Mode int

const (
	// ModeStream expects line-delimited JSON events and is tee'd to a log file.
	ModeStream Mode = iota
	// ModeCapture expects a single completion payload; stdout/stderr are captured whole.
	ModeCapture
)

// verificationTypes get an enlarged capture-mode turn budget (spec §4.4
// "Extended turns"): these issue kinds typically require a check-your-work
// pass beyond the first attempt.
var verificationTypes = map[string]bool{
	"fix":      true,
	"ablation": true,
	"selfmod":  true,
}

const extendedTurnMultiplier = 3
const baseTurnBudget = 40

// Runner executes worker subprocesses against issues.
type Runner struct {
	Store       *store.Store
	Log         *logging.Logger
	Command     string // shell-style command line, e.g. "claude --print --output-format stream-json"
	Mode        Mode
	WalkTitle   string
	WalkGoals   string
	ContextFile string // pre-read body of an optional context file; "" if none
	MaxFailures int    // 0 means retry.MaxFailures

	// BackendMu, when set, serialises every store-mutating call this
	// Runner makes (spec §5's "backend mutex"), for concurrent-mode
	// drivers running multiple Runners against the same store. Sequential
	// drivers leave this nil.
	BackendMu *sync.Mutex
}

func (r *Runner) withBackendLock(fn func() error) error {
	if r.BackendMu == nil {
		return fn()
	}
	r.BackendMu.Lock()
	defer r.BackendMu.Unlock()
	return fn()
}

func (r *Runner) maxFailures() int {
	if r.MaxFailures > 0 {
		return r.MaxFailures
	}
	return retry.MaxFailures
}

// Outcome records what RunIssue observed after the subprocess exited.
type Outcome struct {
	Closed     bool
	ExitCode   *int
	Interrupted bool
	Digest     digest.Digest
}

// RunIssue executes the full per-invocation protocol of spec §4.4 against
// one open issue. planning selects WALK_PLANNING=1 and the planner prompt
// shape is the caller's concern — RunIssue always uses the worker prompt;
// internal/planning builds its own planner-specific invocation on top of
// the same primitives.
func (r *Runner) RunIssue(ctx context.Context, issue *types.Issue, planning bool) (*Outcome, error) {
	n := retry.ConsecutiveFailures(issue)
	maxFailures := r.maxFailures()
	if retry.ShouldBlock(n, maxFailures) {
		return nil, r.withBackendLock(func() error { return retry.Block(r.Store, issue, n) })
	}
	if retry.ShouldWarn(n, maxFailures) {
		err := r.withBackendLock(func() error {
			return r.Store.AddComment(issue.Slug, fmt.Sprintf(
				"Warning: %d consecutive failures; one more failing run will block this issue.", n))
		})
		if err != nil {
			return nil, err
		}
	}

	promptText := prompt.AssembleWorkerPrompt(prompt.WorkerInput{
		WorkingDir:  r.Store.Dir(),
		ContextFile: r.ContextFile,
		WalkTitle:   r.WalkTitle,
		WalkGoals:   r.WalkGoals,
		Issue:       issue,
		Planning:    planning,
		SelfModify:  issue.Type == "selfmod",
	})

	lineCount := strings.Count(promptText, "\n") + 1
	err := r.withBackendLock(func() error {
		return r.Store.AddComment(issue.Slug, fmt.Sprintf(
			"Agent started (type=%s, prompt lines=%d).", issue.Type, lineCount))
	})
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	runDir, err := r.Store.NewRunDir(issue.Slug, startedAt)
	if err != nil {
		return nil, err
	}
	if err := store.WriteRunFile(runDir, "prompt", promptText); err != nil {
		return nil, err
	}

	var liveLogSymlink string
	if r.Mode == ModeStream {
		liveLogSymlink = filepath.Join(r.Store.Dir(), "runs", issue.Slug)
		_ = os.MkdirAll(filepath.Dir(liveLogSymlink), 0o755)
		_ = os.Symlink(runDir, liveLogSymlink)
		defer os.Remove(liveLogSymlink)
	}

	correlationID := uuid.NewString()
	out, outcome, runErr := r.spawn(ctx, promptText, issue.Slug, issue.Type, planning, runDir, correlationID)
	finishedAt := time.Now().UTC()

	meta := store.RunMeta{StartedAt: startedAt, FinishedAt: &finishedAt, ExitCode: outcome.ExitCode}
	if out != nil {
		meta.CostUSD = out.costUSD
		meta.Usage = out.usage
	}
	if err := store.WriteRunMeta(runDir, meta); err != nil {
		return nil, err
	}

	if r.Mode == ModeCapture && out != nil {
		if err := store.WriteRunFile(runDir, "output", out.stdout); err != nil {
			return nil, err
		}
		if err := store.WriteRunFile(runDir, "stderr", out.stderr); err != nil {
			return nil, err
		}
	}

	if out != nil {
		status := "interrupted"
		if outcome.ExitCode != nil {
			if *outcome.ExitCode == 0 {
				status = "success"
			} else {
				status = "failure"
			}
		}
		statsComment := fmt.Sprintf(
			"Run stats: duration=%s turns=%d tools=%d status=%s cost=$%.4f",
			finishedAt.Sub(startedAt).Round(time.Millisecond), out.numTurns, out.toolCalls, status, out.costUSD)
		if outcome.Digest.ResultText != "" {
			statsComment += "\n\nResult: " + outcome.Digest.ResultText
		}
		err := r.withBackendLock(func() error {
			return r.Store.AddComment(issue.Slug, statsComment)
		})
		if err != nil {
			return nil, err
		}
	}

	closed, err := r.detectClose(issue, runDir, out)
	if err != nil {
		return nil, err
	}
	outcome.Closed = closed
	return outcome, runErr
}

// RunPlanner spawns the planner subprocess against an already-assembled
// prompt (spec §4.5 step 3). Unlike RunIssue, there is no retry gating, no
// agent-started/run-stats comment (the planner has no issue to comment
// on), and run artifacts land under the walk root's own runs/_planning/
// directory rather than an issue's runs/.
func (r *Runner) RunPlanner(ctx context.Context, promptText string) (*Outcome, error) {
	startedAt := time.Now().UTC()
	runDir, err := r.newPlannerRunDir(startedAt)
	if err != nil {
		return nil, err
	}
	if err := store.WriteRunFile(runDir, "prompt", promptText); err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	out, outcome, runErr := r.spawn(ctx, promptText, "_planning", "planning", true, runDir, correlationID)
	finishedAt := time.Now().UTC()

	meta := store.RunMeta{StartedAt: startedAt, FinishedAt: &finishedAt, ExitCode: outcome.ExitCode}
	if out != nil {
		meta.CostUSD = out.costUSD
		meta.Usage = out.usage
	}
	if err := store.WriteRunMeta(runDir, meta); err != nil {
		return nil, err
	}
	if r.Mode == ModeCapture && out != nil {
		if err := store.WriteRunFile(runDir, "output", out.stdout); err != nil {
			return nil, err
		}
		if err := store.WriteRunFile(runDir, "stderr", out.stderr); err != nil {
			return nil, err
		}
	}
	return outcome, runErr
}

func (r *Runner) newPlannerRunDir(ts time.Time) (string, error) {
	runsDir := filepath.Join(r.Store.Dir(), "runs", "_planning")
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating planner runs directory: %w", err)
	}
	base := ts.UTC().Format("20060102T150405Z")
	name := base
	for i := 1; ; i++ {
		candidate := filepath.Join(runsDir, name)
		if err := os.Mkdir(candidate, 0o755); err == nil {
			return candidate, nil
		} else if !os.IsExist(err) {
			return "", fmt.Errorf("creating planner run directory: %w", err)
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

type spawnResult struct {
	stdout    string
	stderr    string
	costUSD   float64
	usage     *types.TokenUsage
	numTurns  int
	toolCalls int
}

func (r *Runner) spawn(ctx context.Context, promptText, slug, issueType string, planning bool, runDir, correlationID string) (*spawnResult, *Outcome, error) {
	args, err := shellwords.Parse(r.Command)
	if err != nil || len(args) == 0 {
		return nil, nil, fmt.Errorf("parsing worker command %q: %w", r.Command, err)
	}

	// #nosec G204 -- args come from the operator's own configured worker command
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(promptText)
	cmd.Env = append(os.Environ(),
		"WALK_DIR="+r.Store.Dir(),
		"WALK_ISSUE="+slug,
		"WALK_RUN_ID="+correlationID,
	)
	if planning {
		cmd.Env = append(cmd.Env, "WALK_PLANNING=1")
	}
	if budget := turnBudget(issueType); budget > 0 && r.Mode == ModeCapture {
		cmd.Env = append(cmd.Env, "WALK_MAX_TURNS="+strconv.Itoa(budget))
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	var logFile *os.File
	if r.Mode == ModeStream {
		logFile, err = os.OpenFile(filepath.Join(runDir, "output"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening stream log: %w", err)
		}
		defer logFile.Close()
		cmd.Stdout = io.MultiWriter(&stdoutBuf, logFile)
	} else {
		cmd.Stdout = &stdoutBuf
	}

	runErr := cmd.Run()

	outcome := &Outcome{}
	if cmd.ProcessState != nil {
		if cmd.ProcessState.Exited() {
			code := cmd.ProcessState.ExitCode()
			outcome.ExitCode = &code
		} else {
			outcome.Interrupted = true
		}
	} else {
		outcome.Interrupted = true
	}

	result := &spawnResult{stdout: stdoutBuf.String(), stderr: stderrBuf.String()}

	if r.Mode == ModeStream {
		d := digest.Scan(strings.NewReader(result.stdout))
		outcome.Digest = d
		result.costUSD = d.CostUSD
		result.usage = d.Usage
		result.numTurns = d.NumTurns
		for _, n := range d.ToolUseCounts {
			result.toolCalls += n
		}
		if d.MalformedLines > 0 {
			r.Log.Warn("digest scan saw malformed lines", "issue", slug, "count", d.MalformedLines)
		}
	}

	if runErr != nil && outcome.ExitCode == nil && !outcome.Interrupted {
		return result, outcome, fmt.Errorf("spawning worker: %w", runErr)
	}
	return result, outcome, nil
}

func turnBudget(issueType string) int {
	if verificationTypes[issueType] {
		return baseTurnBudget * extendedTurnMultiplier
	}
	return 0
}

// detectClose implements spec §4.4 step 10: the issue may already have
// moved to closed/ (the worker called the close command itself); failing
// that, a result or close.meta file left behind tells the driver to close
// it on the worker's behalf.
func (r *Runner) detectClose(issue *types.Issue, runDir string, out *spawnResult) (bool, error) {
	dir, status, err := r.Store.IssueDir(issue.Slug)
	if err != nil {
		return false, err
	}
	if status == types.IssueClosed {
		return true, nil
	}

	resultPath := filepath.Join(dir, "result")
	if _, err := os.Stat(resultPath); err == nil {
		reason, err := store.ResultReason(resultPath)
		if err != nil {
			return false, err
		}
		closeErr := r.withBackendLock(func() error {
			_, err := r.Store.Close(issue.Slug, reason, types.SignalRoutine)
			return err
		})
		if closeErr != nil {
			return false, closeErr
		}
		return true, nil
	}

	closeMetaPath := filepath.Join(dir, "close.meta")
	if _, err := os.Stat(closeMetaPath); err == nil {
		reason, signal, err := store.ReadCloseDocument(closeMetaPath)
		if err != nil {
			return false, err
		}
		closeErr := r.withBackendLock(func() error {
			_, err := r.Store.Close(issue.Slug, reason, signal)
			return err
		})
		if closeErr != nil {
			return false, closeErr
		}
		return true, nil
	}

	if r.Mode == ModeCapture && out != nil {
		excerpt := excerpt(out.stdout, 500) + "\n---\n" + excerpt(out.stderr, 500)
		_ = r.withBackendLock(func() error {
			return r.Store.AddComment(issue.Slug, "Worker did not close the issue.\n\n"+excerpt)
		})
	}
	return false, nil
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
