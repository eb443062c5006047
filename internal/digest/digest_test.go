package digest

import (
	"strings"
	"testing"
)

func TestScanToolUseAndFiles(t *testing.T) {
	lines := strings.Join([]string{
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Edit","input":{"file_path":"/tmp/a.go"}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"git commit -am wip"}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Edit","input":{"file_path":"/tmp/a.go"}}]}}`,
	}, "\n")

	d := Scan(strings.NewReader(lines))
	if d.ToolUseCounts["Edit"] != 2 {
		t.Errorf("Edit count = %d, want 2", d.ToolUseCounts["Edit"])
	}
	if d.ToolUseCounts["Bash"] != 1 {
		t.Errorf("Bash count = %d, want 1", d.ToolUseCounts["Bash"])
	}
	if !d.RanMutation {
		t.Error("RanMutation = false, want true (saw git commit)")
	}
	if len(d.FilesTouched) != 1 || d.FilesTouched[0] != "/tmp/a.go" {
		t.Errorf("FilesTouched = %v, want [/tmp/a.go]", d.FilesTouched)
	}
}

func TestScanResultEvent(t *testing.T) {
	line := `{"type":"result","is_error":false,"duration_ms":1500,"num_turns":4,"total_cost_usd":0.25,"usage":{"input_tokens":100,"output_tokens":50},"result":"Fixed the parser bug."}`
	d := Scan(strings.NewReader(line))
	if d.TerminalStatus != "success" {
		t.Errorf("TerminalStatus = %q, want success", d.TerminalStatus)
	}
	if d.DurationMS != 1500 || d.NumTurns != 4 {
		t.Errorf("duration/turns = %d/%d, want 1500/4", d.DurationMS, d.NumTurns)
	}
	if d.CostUSD != 0.25 {
		t.Errorf("CostUSD = %v, want 0.25", d.CostUSD)
	}
	if d.Usage == nil || d.Usage.InputTokens != 100 {
		t.Errorf("Usage = %+v, want InputTokens 100", d.Usage)
	}
	if d.ResultText != "Fixed the parser bug." {
		t.Errorf("ResultText = %q, want %q", d.ResultText, "Fixed the parser bug.")
	}
}

func TestScanResultEventTruncatesResultText(t *testing.T) {
	long := strings.Repeat("x", 600)
	line := `{"type":"result","is_error":false,"result":"` + long + `"}`
	d := Scan(strings.NewReader(line))
	if len(d.ResultText) != 500 {
		t.Errorf("len(ResultText) = %d, want 500", len(d.ResultText))
	}
}

func TestScanToleratesMalformedLines(t *testing.T) {
	lines := strings.Join([]string{
		`not json at all`,
		`{"type":"result","is_error":true}`,
	}, "\n")
	d := Scan(strings.NewReader(lines))
	if d.MalformedLines != 1 {
		t.Errorf("MalformedLines = %d, want 1", d.MalformedLines)
	}
	if d.TerminalStatus != "error" {
		t.Errorf("TerminalStatus = %q, want error", d.TerminalStatus)
	}
}
