package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fdr/walk/internal/types"
)

// RenderSummary produces the summary.md content written on finalize (spec
// §4.5 step 6): timeline, totals, open issues.
func RenderSummary(snap *Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", snap.Walk.Title)
	fmt.Fprintf(&b, "Status: **%s**", snap.Walk.Status)
	if snap.Walk.FinishReason != "" {
		fmt.Fprintf(&b, " — %s", snap.Walk.FinishReason)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Closed: %d. Open: %d. Epochs: %d.\n\n",
		len(snap.Closed), len(snap.Open), len(snap.Epochs))
	if snap.ExpansionOverall.Count > 0 {
		fmt.Fprintf(&b, "Expansion ratio (median / p75): %.2f / %.2f over %d issues.\n\n",
			snap.ExpansionOverall.Median, snap.ExpansionOverall.P75, snap.ExpansionOverall.Count)
	}

	b.WriteString("## Timeline\n\n")
	sorted := append([]*types.Issue(nil), snap.Closed...)
	sort.Slice(sorted, func(i, j int) bool {
		return closedAtOf(sorted[i]).Before(closedAtOf(sorted[j]))
	})
	if len(sorted) == 0 {
		b.WriteString("(no issues closed)\n\n")
	} else {
		for _, issue := range sorted {
			fmt.Fprintf(&b, "- [epoch %d] %s: %s (%s)\n", issue.Epoch, issue.Slug, issue.Title, issue.Signal)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Open issues\n\n")
	if len(snap.Open) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, issue := range snap.Open {
			fmt.Fprintf(&b, "- %s [priority %d]: %s\n", issue.Slug, issue.Priority, issue.Title)
		}
	}

	return b.String()
}

// RenderStatus produces a short one-screen status view.
func RenderStatus(snap *Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", snap.Walk.Title)
	fmt.Fprintf(&b, "status: %s\n", snap.Walk.Status)
	fmt.Fprintf(&b, "open issues: %d\n", len(snap.Open))
	fmt.Fprintf(&b, "closed issues: %d\n", len(snap.Closed))
	if len(snap.Epochs) > 0 {
		fmt.Fprintf(&b, "current epoch: %d\n", snap.Epochs[len(snap.Epochs)-1])
	}
	if snap.Walk.FinishReason != "" {
		fmt.Fprintf(&b, "finish reason: %s\n", snap.Walk.FinishReason)
	}
	return b.String()
}

// RenderHistory renders closed issues since t, newest first, with close
// time, epoch, slug, signal and title. An empty since (zero value) shows
// all closures.
func RenderHistory(snap *Snapshot, since time.Time) string {
	var b strings.Builder
	b.WriteString("# History\n\n")

	var rows []*types.Issue
	if since.IsZero() {
		rows = snap.Closed
	} else {
		rows = closedAfter(snap.Closed, since)
	}
	sort.Slice(rows, func(i, j int) bool {
		return closedAtOf(rows[i]).After(closedAtOf(rows[j]))
	})

	if len(rows) == 0 {
		b.WriteString("(nothing closed in this window)\n")
		return b.String()
	}

	b.WriteString("| when | epoch | slug | signal | title |\n|---|---|---|---|---|\n")
	for _, issue := range rows {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n",
			closedAtOf(issue).Format(time.RFC3339), issue.Epoch, issue.Slug, issue.Signal, issue.Title)
	}
	return b.String()
}

func closedAtOf(issue *types.Issue) time.Time {
	if issue.ClosedAt == nil {
		return time.Time{}
	}
	return *issue.ClosedAt
}

// FormatBytes is a thin humanize wrapper that renders n as a
// human-readable byte count.
func FormatBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}
