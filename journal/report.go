package journal

import (
	"bytes"
	"os"
	"strings"
	"text/template"
	"time"
)

var runOrgFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "(unset)"
		}
		return t.Format(time.DateOnly)
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"join": strings.Join,
	"failed": func(run Run, feature string) bool {
		for _, f := range run.Failed {
			if f == feature {
				return true
			}
		}
		return false
	},
}

// RunOrg renders the run summary as an org-mode entry.
func RunOrg(run Run) (string, error) {
	t, err := template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate)
	if err != nil {
		return "", err
	}
	buf := new(bytes.Buffer)
	if err := t.Execute(buf, run); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteRunOrg renders run into path.
func WriteRunOrg(path string, run Run) error {
	s, err := RunOrg(run)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}

const RunOrgTemplate = `
* CROSS-SECTION RUN {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:DATE_COLUMN: {{.DateColumn}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:TICKERS:     {{len .Tickers}}
:FEATURES:    {{len .Features}}
:FAILED:      {{len .Failed}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Features
| Feature | Status |
|---------+--------|
{{- range .Features }}
| {{.}} | {{if failed $ .}}failed{{else}}ok{{end}} |
{{- end }}

{{- if .Tickers }}

** Tickers
{{ join .Tickers ", " }}
{{- end }}
`
