package journal

import (
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// Metric is one benchmark reading included in a run report.
type Metric struct {
	Name  string
	Args  string
	Value float64
}

// Report summarises a simulation run.
type Report struct {
	RunID     string
	Created   time.Time
	Strategy  string
	Dataset   string
	Benchmark string
	// Precision is the benchmark instrument's decimal places.
	Precision int32

	Start time.Time
	End   time.Time
	Ticks int

	Trades     int
	Summary    Summary
	StartValue decimal.Decimal
	EndValue   decimal.Decimal

	Metrics []Metric
	Notes   []string
}

// NetPL is the change in portfolio value over the run.
func (r Report) NetPL() decimal.Decimal { return r.EndValue.Sub(r.StartValue) }

// Amount formats q in the benchmark instrument at its precision.
func (r Report) Amount(q decimal.Decimal) string {
	return q.StringFixedBank(r.Precision) + " " + r.Benchmark
}

// ReturnPct is NetPL as a percentage of the starting value.
func (r Report) ReturnPct() float64 {
	if r.StartValue.IsZero() {
		return 0
	}
	return r.NetPL().Div(r.StartValue).Shift(2).InexactFloat64()
}

var reportFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(reportFuncs).Parse(ReportOrgTemplate))

// WriteOrg renders the report as an Org-mode section.
func (r Report) WriteOrg(w io.Writer) error {
	return reportTemplate.Execute(w, r)
}

// WriteOrgFile renders the report to path.
func (r Report) WriteOrgFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := r.WriteOrg(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

const ReportOrgTemplate = `* RUN: {{if .Strategy}}{{.Strategy}}{{else}}(strategy?){{end}} in {{.Benchmark}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(inline){{end}}
:BENCHMARK:   {{.Benchmark}}
:START:       {{.Start.Format "2006-01-02 15:04"}}
:END:         {{.End.Format "2006-01-02 15:04"}}
:TICKS:       {{.Ticks}}
:START_VALUE: {{.StartValue}}
:END_VALUE:   {{.EndValue}}
:NET_PL:      {{.NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:TRADES:      {{.Trades}}
:CLOSED:      {{.Summary.Closed}}
:WINS:        {{.Summary.Wins}}
:LOSSES:      {{.Summary.Losses}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Benchmarks
| Benchmark | Args | Value |
|-----------+------+-------|
{{- range .Metrics }}
| {{.Name}} | {{.Args}} | {{printf "%.6f" .Value}} |
{{- end }}

** Realized
- Closed positions: *{{.Summary.Closed}}*
- Realized P/L:     *{{.Summary.RealizedPL}}*

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
