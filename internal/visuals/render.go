package visuals

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"parking-analytics/internal/reports"
)

// Markdown renders a report as a markdown document for assistants and terminals.
func Markdown(r reports.Report, withCharts bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s report, facility %s\n\n", humanize(string(r.Kind)), r.FacilityID))
	sb.WriteString(fmt.Sprintf("Period: %s (previous: %s)\n\n", r.Period.Current.Label(), r.Period.Previous.Label()))

	if rows := kpiRows(r); len(rows) > 0 {
		sb.WriteString("| Metric | Current | Previous | Change |\n|---|---:|---:|---|\n")
		for _, row := range rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", row.Name, row.Current, row.Previous, row.Change))
		}
		sb.WriteString("\n")
	}

	if len(r.Insights) > 0 {
		sb.WriteString("## Insights\n\n")
		for _, in := range r.Insights {
			sb.WriteString("- " + in + "\n")
		}
		sb.WriteString("\n")
	}

	if withCharts {
		for _, c := range ReportCharts(r) {
			sb.WriteString(c.Mermaid)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

type kpiRow struct {
	Name     string
	Current  string
	Previous string
	Change   string
	Tone     string
}

func kpiRows(r reports.Report) []kpiRow {
	var rows []kpiRow
	for _, key := range sortedKeys(r.Current) {
		row := kpiRow{Name: humanize(key), Current: formatValue(r.Current[key]), Previous: "-"}
		if prev, ok := r.Previous[key]; ok {
			row.Previous = formatValue(prev)
		}
		if d, ok := r.Descriptors[key]; ok {
			row.Change = d.Label
			row.Tone = string(d.Tone)
		}
		rows = append(rows, row)
	}
	return rows
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 960px; color: #222; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5rem; }
th, td { border-bottom: 1px solid #ddd; padding: .4rem .6rem; text-align: left; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.positive { color: #1a7f37; } .negative { color: #cf222e; } .neutral { color: #57606a; }
.chart { margin: 1.5rem 0; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Sections}}<section>
<h2>{{.Title}}</h2>
<p>{{.Period}}</p>
{{if .Rows}}<table>
<tr><th>Metric</th><th>Current</th><th>Previous</th><th>Change</th></tr>
{{range .Rows}}<tr><td>{{.Name}}</td><td class="num">{{.Current}}</td><td class="num">{{.Previous}}</td><td class="{{.Tone}}">{{.Change}}</td></tr>
{{end}}</table>{{end}}
{{if .Insights}}<h3>Insights</h3>
<ul>{{range .Insights}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{range .Charts}}<div class="chart"><pre class="mermaid">{{.}}</pre></div>
{{end}}</section>
{{end}}
<script type="module">
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs";
mermaid.initialize({ startOnLoad: true });
</script>
</body>
</html>
`))

type section struct {
	Title    string
	Period   string
	Rows     []kpiRow
	Insights []string
	Charts   []string
}

// HTML renders one or more reports of a facility as a standalone page with Mermaid charts.
func HTML(title string, rs ...reports.Report) ([]byte, error) {
	page := struct {
		Title    string
		Sections []section
	}{Title: title}

	for _, r := range rs {
		charts := ReportCharts(r)
		bodies := make([]string, len(charts))
		for i, c := range charts {
			bodies[i] = stripFence(c.Mermaid)
		}
		page.Sections = append(page.Sections, section{
			Title:    humanize(string(r.Kind)),
			Period:   fmt.Sprintf("%s (previous: %s)", r.Period.Current.Label(), r.Period.Previous.Label()),
			Rows:     kpiRows(r),
			Insights: r.Insights,
			Charts:   bodies,
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render report page: %w", err)
	}
	return buf.Bytes(), nil
}

func stripFence(s string) string {
	s = strings.TrimPrefix(s, "```mermaid\n")
	return strings.TrimSuffix(s, "```")
}
