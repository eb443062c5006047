package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/fdr/walk/internal/types"
)

// AssemblePlannerPrompt composes the single-document planner prompt of
// spec §4.3: epoch status, goals, recently-closed table, open-issue
// listing, memories/proposals, context-pressure section, and the fixed
// five-step protocol. It is a pure function of in — the same input always
// produces byte-identical output (spec §8).
func AssemblePlannerPrompt(in PlannerInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Epoch status\n\ncurrent epoch: %d\nall epochs: %s\n\n",
		in.CurrentEpoch, joinInts(in.AllEpochs))

	fmt.Fprintf(&b, "## Walk goals\n\n%s\n\n", in.WalkGoals)

	writeRecentlyClosed(&b, in)
	writeOpenIssues(&b, in)
	writeMemories(&b, in)
	writeProposals(&b, in)
	writeContextPressure(&b, in)
	writeProtocol(&b)

	return b.String()
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}

func writeRecentlyClosed(b *strings.Builder, in PlannerInput) {
	b.WriteString("## Recently closed\n\n")
	if len(in.RecentClosed) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	b.WriteString("| epoch | slug | title | signal | bytes |\n|---|---|---|---|---|\n")
	var highlights []string
	for _, group := range in.RecentClosed {
		for _, issue := range group.Issues {
			slugCol := issue.Slug
			if in.DiscoveryTree != nil {
				if parents, ok := in.DiscoveryTree.ParentsOf[issue.Slug]; ok && len(parents) > 0 {
					slugCol = fmt.Sprintf("%s (from %s)", issue.Slug, parents[0])
				}
			}
			fmt.Fprintf(b, "| %d | %s | %s | %s | %s |\n",
				group.Epoch, slugCol, issue.Title, issue.Signal, humanize.Bytes(uint64(maxInt64(0, sizeOf(issue)))))
			if issue.Signal == types.SignalPivotal || issue.Signal == types.SignalSurprising {
				highlights = append(highlights, fmt.Sprintf("- [%s] %s: %s", issue.Signal, issue.Slug, issue.CloseReason))
			}
		}
	}
	b.WriteString("\n")
	if len(highlights) > 0 {
		b.WriteString("### Pivotal / surprising\n\n")
		for _, h := range highlights {
			b.WriteString(h)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

// sizeOf is a display-only approximation (body+close-reason length); the
// authoritative byte accounting lives in internal/store's ExpansionStats.
func sizeOf(issue *types.Issue) int64 {
	return int64(len(issue.Body) + len(issue.CloseReason))
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func writeOpenIssues(b *strings.Builder, in PlannerInput) {
	b.WriteString("## Open issues\n\n")
	if len(in.OpenIssues) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for _, issue := range in.OpenIssues {
		parentAnnotation := ""
		if in.DiscoveryTree != nil {
			if parents, ok := in.DiscoveryTree.ParentsOf[issue.Slug]; ok && len(parents) > 0 {
				parentAnnotation = fmt.Sprintf(" (from %s)", parents[0])
			}
		}
		fmt.Fprintf(b, "- %s%s [priority %d, type %s]: %s\n", issue.Slug, parentAnnotation, issue.Priority, issue.Type, issue.Title)
	}
	b.WriteString("\n")
}

func writeMemories(b *strings.Builder, in PlannerInput) {
	b.WriteString("## Memories\n\n")
	if len(in.Memories) == 0 {
		b.WriteString("(none alive)\n\n")
	} else {
		b.WriteString("| key | text |\n|---|---|\n")
		var total int
		for _, m := range in.Memories {
			fmt.Fprintf(b, "| %s | %s |\n", m.Key, m.Text)
			total += len(m.Text)
		}
		fmt.Fprintf(b, "\n_total: %s_\n\n", humanize.Bytes(uint64(total)))
	}
	if len(in.RecentlyDead) > 0 {
		b.WriteString("### Recently forgotten\n\n")
		for _, m := range in.RecentlyDead {
			fmt.Fprintf(b, "- ~~%s: %s~~\n", m.Key, m.Text)
		}
		b.WriteString("\n")
	}
}

func writeProposals(b *strings.Builder, in PlannerInput) {
	b.WriteString("## Pending proposals\n\n")
	if len(in.Proposals) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	b.WriteString("| key | text | proposed by |\n|---|---|---|\n")
	for _, p := range in.Proposals {
		fmt.Fprintf(b, "| %s | %s | %s |\n", p.Key, p.Text, p.ProposedBy)
	}
	b.WriteString("\n")
}

func writeContextPressure(b *strings.Builder, in PlannerInput) {
	b.WriteString("## Context pressure\n\n")
	fmt.Fprintf(b, "sliding-window byte budget: %s (planning threshold: %s)\n\n",
		humanize.Bytes(uint64(maxInt64(0, in.PlannerByteBudget))),
		humanize.Bytes(uint64(maxInt64(0, in.PlanningThreshold))))
	b.WriteString("| type | count | median ratio | p75 ratio |\n|---|---|---|---|\n")
	fmt.Fprintf(b, "| overall | %d | %.2f | %.2f |\n",
		in.ExpansionOverall.Count, in.ExpansionOverall.Median, in.ExpansionOverall.P75)
	for _, stat := range in.ExpansionByType {
		fmt.Fprintf(b, "| %s | %d | %.2f | %.2f |\n", stat.Type, stat.Count, stat.Median, stat.P75)
	}
	b.WriteString("\n")
}

func writeProtocol(b *strings.Builder) {
	b.WriteString(`## Protocol

1. Assess progress against the walk goals above.
2. Explore: read the recently-closed table and open-issue listing; look for
   gaps, dead ends, or work whose premise has been overtaken.
3. Expand and critically evaluate closed issues: did they actually resolve
   what they claimed to?
3.5. Meta-evaluate the system itself: is the set of open issues still the
   right shape, or does the walk need restructuring?
4. Create follow-up issues, ordered by criticality, within the remaining
   byte budget shown above.
5. Verify your plan and write the result file (` + "`_planning_result.md`" + `)
   with an ` + "`outcome`" + ` of completed, created_issues, or no_work_found,
   and a one-line ` + "`reason`" + `.
`)
}
