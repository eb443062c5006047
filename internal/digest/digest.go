// Package digest extracts a compact summary from a worker's streaming
// JSON-per-line event log (spec §4.4): tool-use counts, files touched,
// whether any mutating command ran, and the terminal result event's
// duration/turns/cost/tokens/status. Malformed lines are tolerated and
// skipped rather than aborting the scan.
package digest

import (
	"bufio"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fdr/walk/internal/types"
)

// Digest is what the agent runner's Outcome and run-stats comment need
// out of a run's raw event stream.
type Digest struct {
	ToolUseCounts map[string]int
	FilesTouched  []string
	RanMutation   bool

	TerminalStatus string // "success", "error", or "" if no result event seen
	DurationMS     int64
	NumTurns       int
	CostUSD        float64
	Usage          *types.TokenUsage
	ResultText     string // terminal result event's own text, truncated to resultTextLimit runes

	MalformedLines int
}

// resultTextLimit is the "first 500 chars" cap on the terminal result
// event's text (spec §4.4).
const resultTextLimit = 500

var mutatingCommands = []string{"git commit", "git push", "git rebase", "rm ", "mv ", "git reset --hard"}

// Scan reads newline-delimited JSON events from r, one per line, and
// builds a Digest. Lines that fail to parse as JSON are counted in
// MalformedLines and otherwise ignored — per spec §4.4, a corrupt line
// never aborts the scan.
func Scan(r io.Reader) Digest {
	d := Digest{ToolUseCounts: map[string]int{}}
	filesSeen := map[string]bool{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			d.MalformedLines++
			continue
		}
		parsed := gjson.Parse(line)
		scanLine(&d, parsed, filesSeen)
	}

	d.FilesTouched = make([]string, 0, len(filesSeen))
	for f := range filesSeen {
		d.FilesTouched = append(d.FilesTouched, f)
	}
	return d
}

func scanLine(d *Digest, line gjson.Result, filesSeen map[string]bool) {
	switch line.Get("type").String() {
	case "assistant", "message":
		scanToolUse(d, line, filesSeen)
	case "result":
		scanResult(d, line)
	}
}

func scanToolUse(d *Digest, line gjson.Result, filesSeen map[string]bool) {
	content := line.Get("message.content")
	if !content.IsArray() {
		content = line.Get("content")
	}
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() != "tool_use" {
			return true
		}
		name := block.Get("name").String()
		if name == "" {
			return true
		}
		d.ToolUseCounts[name]++

		if path := block.Get("input.file_path").String(); path != "" {
			filesSeen[path] = true
		}
		if path := block.Get("input.path").String(); path != "" {
			filesSeen[path] = true
		}
		if cmd := block.Get("input.command").String(); cmd != "" {
			for _, m := range mutatingCommands {
				if strings.Contains(cmd, m) {
					d.RanMutation = true
					break
				}
			}
		}
		return true
	})
}

func scanResult(d *Digest, line gjson.Result) {
	if line.Get("is_error").Bool() {
		d.TerminalStatus = "error"
	} else {
		d.TerminalStatus = "success"
	}
	d.DurationMS = line.Get("duration_ms").Int()
	d.NumTurns = int(line.Get("num_turns").Int())
	d.CostUSD = line.Get("total_cost_usd").Float()

	usage := line.Get("usage")
	if usage.Exists() {
		d.Usage = &types.TokenUsage{
			InputTokens:              int(usage.Get("input_tokens").Int()),
			OutputTokens:             int(usage.Get("output_tokens").Int()),
			CacheCreationInputTokens: int(usage.Get("cache_creation_input_tokens").Int()),
			CacheReadInputTokens:     int(usage.Get("cache_read_input_tokens").Int()),
		}
	}

	d.ResultText = truncateRunes(line.Get("result").String(), resultTextLimit)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
