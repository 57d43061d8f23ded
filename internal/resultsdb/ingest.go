package resultsdb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gargmohit24/platoonbench/internal/ctxlog"
	"github.com/gargmohit24/platoonbench/internal/vecfile"
)

// Run variable names as they appear in vector file metadata. The short
// iteration variable name is accepted as a fallback for each.
const (
	varFrameErrorRate = "*.**.nic.mac1609_4.frameErrorRate"
	varController     = "*.node[*].scenario.controller"
	varMPR            = "**.mpr"
)

type rowKey struct {
	nodeID  int
	seconds float64
}

type row struct {
	metrics map[string]float64
}

// fileCollector accumulates one vector file's samples grouped by
// (node, time) before they are flushed in a single transaction.
type fileCollector struct {
	columns *ColumnSet

	run            *vecfile.Run
	frameErrorRate float64
	controller     string
	mpr            float64

	rows map[rowKey]*row
	keys []rowKey
}

func (c *fileCollector) OnRun(run *vecfile.Run) error {
	c.run = run

	fer, err := runVarFloat(run, varFrameErrorRate, "frameErrorRate")
	if err != nil {
		return err
	}
	mpr, err := runVarFloat(run, varMPR, "mpr")
	if err != nil {
		return err
	}
	controller := run.Var(varController)
	if controller == "" {
		controller = run.Var("controller")
	}
	if controller == "" {
		return fmt.Errorf("run %s: controller variable missing", run.Label)
	}

	c.frameErrorRate = fer
	c.controller = controller
	c.mpr = mpr
	return nil
}

func (c *fileCollector) OnVector(*vecfile.Vector) error { return nil }

func (c *fileCollector) OnSample(s vecfile.Sample) error {
	key := rowKey{nodeID: s.Vector.NodeID, seconds: s.Seconds}
	r, ok := c.rows[key]
	if !ok {
		r = &row{metrics: make(map[string]float64, 4)}
		c.rows[key] = r
		c.keys = append(c.keys, key)
	}

	col := vecfile.ColumnName(s.Vector)
	if !c.columns.Contains(col) {
		return nil
	}
	r.metrics[col] = s.Value
	return nil
}

func runVarFloat(run *vecfile.Run, name, fallback string) (float64, error) {
	v := run.Var(name)
	if v == "" {
		v = run.Var(fallback)
	}
	if v == "" {
		return 0, fmt.Errorf("run %s: variable %s missing", run.Label, name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("run %s: variable %s: %w", run.Label, name, err)
	}
	return f, nil
}

// IngestFile parses one vector file and inserts its rows. Rows that already
// exist (same node, run and timestamp) are left untouched.
func (d *DB) IngestFile(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()

	c := &fileCollector{columns: d.columns, rows: make(map[rowKey]*row)}
	if err := vecfile.Parse(f, c); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.run == nil {
		return 0, fmt.Errorf("parse %s: no run metadata", path)
	}

	// Deterministic insert order keeps the WAL compact and runs stable.
	sort.Slice(c.keys, func(i, j int) bool {
		a, b := c.keys[i], c.keys[j]
		if a.seconds != b.seconds {
			return a.seconds < b.seconds
		}
		return a.nodeID < b.nodeID
	})

	cols := d.columns.Names()
	names := append([]string{"node_id", "run_id", "seconds", "frame_error_rate", "controller", "mpr"}, cols...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	insert := fmt.Sprintf("insert or ignore into results (%s) values (%s);",
		strings.Join(names, ", "), placeholders)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, key := range c.keys {
		r := c.rows[key]
		args := make([]any, 0, len(names))
		args = append(args, key.nodeID, c.run.ID, key.seconds, c.frameErrorRate, c.controller, c.mpr)
		for _, col := range cols {
			if v, ok := r.metrics[col]; ok {
				args = append(args, v)
			} else {
				args = append(args, nil)
			}
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("insert row for node %d at %gs: %w", key.nodeID, key.seconds, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Ingest loads every given vector file and then purges rows missing the
// distance-travelled metric, which marks incomplete samples.
func (d *DB) Ingest(ctx context.Context, files []string) (int64, error) {
	logger := ctxlog.FromContext(ctx)
	var total int64
	for _, path := range files {
		n, err := d.IngestFile(ctx, path)
		if err != nil {
			return total, err
		}
		logger.Info("Vector file ingested.", "file", path, "rows", n)
		total += n
	}

	purged, err := d.PurgeIncomplete(ctx)
	if err != nil {
		return total, err
	}
	if purged > 0 {
		logger.Info("Incomplete rows purged.", "rows", purged)
	}
	return total - purged, nil
}

// PurgeIncomplete deletes rows whose appl_distanceTravelled column is NULL,
// using it as a proxy for rows that never received application data.
func (d *DB) PurgeIncomplete(ctx context.Context) (int64, error) {
	if !d.columns.Contains("appl_distanceTravelled") {
		return 0, nil
	}
	res, err := d.db.ExecContext(ctx, "delete from results where appl_distanceTravelled is null;")
	if err != nil {
		return 0, fmt.Errorf("purge incomplete rows: %w", err)
	}
	return res.RowsAffected()
}
