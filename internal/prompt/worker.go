package prompt

import (
	"strings"
	"text/template"
)

var workerTemplate = template.Must(template.New("worker").Parse(`Working directory: {{.WorkingDir}}
{{if .ContextFile}}A context file for this walk is available; its contents follow.{{end}}
{{if .Planning}}You are running in PLANNING mode.{{end}}

{{if .ContextFile}}{{.ContextFile}}

{{end}}## Walk goals: {{.WalkTitle}}

{{.WalkGoals}}

## Issue: {{.Issue.Slug}} — {{.Issue.Title}}

{{.Issue.Body}}

---

When you are done, close this issue with the close command, giving a short
reason. You may append comments at any time. You may create derived issues
(name them with a short, lowercase, hyphenated slug unique across this
walk's open and closed issues) and propose memories for the planner to
review. Keep commits small and reviewable; never force-push or rewrite
history this walk did not create.
{{if .SelfModify}}
This issue may ask you to modify the driver's own source. If you do,
request a restart by writing _restart_requested in the walk root when you
are finished, rather than trying to hot-reload yourself.
{{end}}
When you close the issue, annotate its signal as one of:
  routine     — expected, unremarkable outcome
  surprising  — worth the next planning round's attention
  pivotal     — should trigger planning immediately, before other work continues
`))

// AssembleWorkerPrompt composes the worker prompt described in spec §4.3:
// preamble, context file, parent/walk context, issue block, and epilogue.
func AssembleWorkerPrompt(in WorkerInput) string {
	var b strings.Builder
	_ = workerTemplate.Execute(&b, in)
	return b.String()
}
