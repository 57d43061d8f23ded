// Package report renders an HTML summary of an ingested campaign database.
package report

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/gargmohit24/platoonbench/internal/ctxlog"
	"github.com/gargmohit24/platoonbench/internal/resultsdb"
)

// Generator builds campaign reports from a results database.
type Generator struct {
	DB    *resultsdb.DB
	Title string
}

// Data is everything the report template consumes.
type Data struct {
	Title       string
	GeneratedAt time.Time
	Runs        []int
	Collisions  int64
	Groups      []resultsdb.GroupStat
}

// Collect gathers the report data.
func (g *Generator) Collect(ctx context.Context) (*Data, error) {
	runs, err := g.DB.RunIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	groups, err := g.DB.GroupStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate results: %w", err)
	}
	collisions, err := g.DB.CollisionCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count collisions: %w", err)
	}

	title := g.Title
	if title == "" {
		title = "Platooning campaign report"
	}
	return &Data{
		Title:       title,
		GeneratedAt: time.Now(),
		Runs:        runs,
		Collisions:  collisions,
		Groups:      groups,
	}, nil
}

// Write renders the report to path. The file is written to a temporary
// sibling first and renamed into place so readers never see a partial
// report.
func (g *Generator) Write(ctx context.Context, path string) error {
	logger := ctxlog.FromContext(ctx)

	data, err := g.Collect(ctx)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.html")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := reportTemplate.Execute(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("render report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info("Report written.", "path", path, "runs", len(data.Runs), "groups", len(data.Groups))
	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(reportHTML))

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #bbb; padding: 0.4em 0.8em; text-align: right; }
th { background: #eee; }
td:first-child, th:first-child { text-align: left; }
.meta { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}} &mdash;
{{len .Runs}} runs ingested, {{.Collisions}} collisions recorded.</p>

<h2>Sweep results</h2>
<table>
<tr>
  <th>Controller</th><th>MPR</th><th>FER</th>
  <th>Runs</th><th>Samples</th>
  <th>Avg speed [m/s]</th><th>Avg accel [m/s&sup2;]</th><th>Avg busy time</th>
</tr>
{{range .Groups}}
<tr>
  <td>{{.Controller}}</td>
  <td>{{printf "%.2f" .MPR}}</td>
  <td>{{printf "%.2f" .FrameErrorRate}}</td>
  <td>{{.Runs}}</td>
  <td>{{.Samples}}</td>
  <td>{{if .AvgSpeed.Valid}}{{printf "%.2f" .AvgSpeed.Float64}}{{else}}&ndash;{{end}}</td>
  <td>{{if .AvgAccel.Valid}}{{printf "%.3f" .AvgAccel.Float64}}{{else}}&ndash;{{end}}</td>
  <td>{{if .AvgBusyTime.Valid}}{{printf "%.4f" .AvgBusyTime.Float64}}{{else}}&ndash;{{end}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`
