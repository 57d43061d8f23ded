package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gargmohit24/platoonbench/internal/campaign"
	"github.com/gargmohit24/platoonbench/internal/collisions"
	"github.com/gargmohit24/platoonbench/internal/ctxlog"
	"github.com/gargmohit24/platoonbench/internal/edgedata"
	"github.com/gargmohit24/platoonbench/internal/fsutil"
	"github.com/gargmohit24/platoonbench/internal/report"
	"github.com/gargmohit24/platoonbench/internal/resultsdb"
	"github.com/gargmohit24/platoonbench/internal/sumonet"
)

// OpenDB opens the campaign's results database with its configured column
// map. The caller closes it.
func OpenDB(ctx context.Context, c *campaign.Campaign) (*resultsdb.DB, error) {
	if c.Ingest == nil {
		return nil, fmt.Errorf("campaign has no ingest block")
	}
	columns := resultsdb.DefaultColumns()
	if c.Ingest.ColumnMap != "" {
		cs, err := resultsdb.LoadColumns(resolvePath(c.Dir, c.Ingest.ColumnMap))
		if err != nil {
			return nil, err
		}
		columns = cs
	}
	return resultsdb.Open(ctx, resolvePath(c.Dir, c.Ingest.Database), columns)
}

// Ingest loads every vector file matching the campaign's patterns into the
// results database and returns the number of rows that survived ingestion.
// A pattern naming a directory selects all .vec files beneath it.
func Ingest(ctx context.Context, c *campaign.Campaign) (int64, error) {
	db, err := OpenDB(ctx, c)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	files, err := matchVectorFiles(c)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no vector files match %v", c.Ingest.Patterns)
	}
	return db.Ingest(ctx, files)
}

func matchVectorFiles(c *campaign.Campaign) ([]string, error) {
	var patterns []string
	for _, p := range c.Ingest.Patterns {
		resolved := resolvePath(c.Dir, p)
		if info, err := os.Stat(resolved); err == nil && info.IsDir() {
			found, err := fsutil.FindFilesByExtension(resolved, ".vec")
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, found...)
			continue
		}
		patterns = append(patterns, resolved)
	}
	return fsutil.ExpandGlobs(patterns)
}

// Collisions scans every ingested run for collisions and returns the total
// recorded.
func Collisions(ctx context.Context, c *campaign.Campaign) (int, error) {
	if c.Collisions == nil {
		return 0, fmt.Errorf("campaign has no collisions block")
	}
	db, err := OpenDB(ctx, c)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	_, locator, err := loadNetwork(c, c.Collisions.NetFile, c.Collisions.Transform)
	if err != nil {
		return 0, err
	}
	scanner := &collisions.Scanner{
		DB:           db,
		Locator:      locator,
		TTC:          c.Collisions.TTC,
		AllSnapshots: c.Collisions.AllSnapshots,
	}

	runIDs, err := db.RunIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, runID := range runIDs {
		n, err := scanner.Run(ctx, runID, timeOr(c.Collisions.StartTime), timeOr(c.Collisions.EndTime))
		if err != nil {
			return total, err
		}
		total += n
	}
	ctxlog.FromContext(ctx).Info("Collision scan complete.", "runs", len(runIDs), "collisions", total)
	return total, nil
}

// EdgeData exports per-edge congestion data for every ingested run. With a
// single run the configured output path is used as-is; with several, each
// run gets a _run<N> suffix before the extension.
func EdgeData(ctx context.Context, c *campaign.Campaign) error {
	if c.EdgeData == nil {
		return fmt.Errorf("campaign has no edgedata block")
	}
	db, err := OpenDB(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	net, locator, err := loadNetwork(c, c.EdgeData.NetFile, c.EdgeData.Transform)
	if err != nil {
		return err
	}
	exporter := &edgedata.Exporter{DB: db, Net: net, Locator: locator}

	runIDs, err := db.RunIDs(ctx)
	if err != nil {
		return err
	}
	output := resolvePath(c.Dir, c.EdgeData.Output)
	for _, runID := range runIDs {
		path := output
		if len(runIDs) > 1 {
			path = runSuffixed(output, runID)
		}
		if err := exporter.Export(ctx, runID, timeOr(c.EdgeData.StartTime), timeOr(c.EdgeData.EndTime), path); err != nil {
			return fmt.Errorf("run %d: %w", runID, err)
		}
		ctxlog.FromContext(ctx).Info("Edge data written.", "runID", runID, "path", path)
	}
	return nil
}

// Report writes the campaign's HTML report.
func Report(ctx context.Context, c *campaign.Campaign) error {
	if c.Report == nil {
		return fmt.Errorf("campaign has no report block")
	}
	db, err := OpenDB(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	gen := &report.Generator{DB: db, Title: c.Report.Title}
	return gen.Write(ctx, resolvePath(c.Dir, c.Report.Output))
}

func loadNetwork(c *campaign.Campaign, netFile string, t *campaign.Transform) (*sumonet.Network, *sumonet.Locator, error) {
	net, err := sumonet.LoadNet(resolvePath(c.Dir, netFile))
	if err != nil {
		return nil, nil, err
	}
	var xform *sumonet.Transformer
	if t != nil {
		x1, y1, x2, y2, margin := t.Corners()
		xform = sumonet.NewTransformer(
			sumonet.Point{X: x1, Y: y1},
			sumonet.Point{X: x2, Y: y2},
			margin,
		)
	}
	return net, sumonet.NewLocator(net, xform, 0), nil
}

func timeOr(p *float64) float64 {
	if p == nil {
		return -1
	}
	return *p
}

func runSuffixed(path string, runID int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_run%d%s", strings.TrimSuffix(path, ext), runID, ext)
}
